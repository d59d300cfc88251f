// Package mcpserver exposes the dispatcher methods as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bnema/modebridge/internal/bridge"
)

const ServerName = "modebridge"

// Handler answers one named-method call.
type Handler interface {
	Handle(method string, args any) bridge.Response
}

// NoInput is the argument type of every tool; the methods take none.
type NoInput struct{}

// Server is the MCP front end of a Handler.
type Server struct {
	mcpServer *mcpsdk.Server
	handler   Handler
}

var tools = []struct {
	method      string
	description string
}{
	{
		bridge.MethodGetPlatformVersion,
		"Return the host platform name and version, e.g. \"Linux 6.8.0\". Never fails.",
	},
	{
		bridge.MethodGetSupportedModes,
		"List every display mode (modeId, width, height, refreshRate in Hz) supported by the attached primary display, in the order the platform reports them.",
	},
	{
		bridge.MethodGetActiveMode,
		"Return the display mode currently in effect on the attached primary display. Its modeId is one of the getSupportedModes ids.",
	},
}

// New creates an MCP server for handler.
func New(handler Handler, version string) *Server {
	s := &Server{handler: handler}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: version,
		},
		nil,
	)

	for _, tool := range tools {
		mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
			Name:        tool.method,
			Description: tool.description,
		}, s.toolFor(tool.method))
	}
	return s
}

// Run serves on stdio until ctx is done or the peer disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) toolFor(method string) func(context.Context, *mcpsdk.CallToolRequest, NoInput) (*mcpsdk.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, any, error) {
		return toolResult(method, s.handler.Handle(method, nil)), nil, nil
	}
}

func toolResult(method string, resp bridge.Response) *mcpsdk.CallToolResult {
	if resp.NotImplemented {
		return errorResult(fmt.Sprintf("method %s not implemented", method))
	}
	if resp.Err != nil {
		return errorResult(resp.Err.Error())
	}

	text, err := json.Marshal(resp.Result)
	if err != nil {
		return errorResult(fmt.Sprintf("%s: failed to encode result: %v", bridge.CodeDisplayError, err))
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(text)},
		},
	}
}

func errorResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: text},
		},
	}
}
