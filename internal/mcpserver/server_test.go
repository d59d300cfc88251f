package mcpserver

import (
	"context"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/modebridge/internal/bridge"
)

type tableHandler map[string]bridge.Response

func (h tableHandler) Handle(method string, args any) bridge.Response {
	if resp, ok := h[method]; ok {
		return resp
	}
	return bridge.NotImplemented()
}

func textOf(t *testing.T, res *mcpsdk.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestToolResultSuccess(t *testing.T) {
	res := toolResult(bridge.MethodGetActiveMode, bridge.Success(map[string]any{
		"modeId": 2, "width": 1920, "height": 1080, "refreshRate": 120.0,
	}))
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"modeId":2,"width":1920,"height":1080,"refreshRate":120}`, textOf(t, res))
}

func TestToolResultError(t *testing.T) {
	res := toolResult(bridge.MethodGetSupportedModes, bridge.Failure(bridge.CodeNoActivity, "display not attached"))
	assert.True(t, res.IsError)
	assert.Equal(t, "NO_ACTIVITY: display not attached", textOf(t, res))
}

func TestToolResultNotImplemented(t *testing.T) {
	res := toolResult("setActiveMode", bridge.NotImplemented())
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "not implemented")
}

func TestToolHandlersDispatchByName(t *testing.T) {
	handler := tableHandler{
		bridge.MethodGetPlatformVersion: bridge.Success("Linux 6.8.0"),
	}
	s := New(handler, "test")

	res, out, err := s.toolFor(bridge.MethodGetPlatformVersion)(context.Background(), nil, NoInput{})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, `"Linux 6.8.0"`, textOf(t, res))

	res, _, err = s.toolFor(bridge.MethodGetActiveMode)(context.Background(), nil, NoInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestEveryMethodHasATool(t *testing.T) {
	var names []string
	for _, tool := range tools {
		names = append(names, tool.method)
	}
	assert.ElementsMatch(t, []string{
		bridge.MethodGetPlatformVersion,
		bridge.MethodGetSupportedModes,
		bridge.MethodGetActiveMode,
	}, names)
}
