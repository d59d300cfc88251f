package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/modebridge/internal/config"
	"github.com/bnema/modebridge/internal/logger"
	"github.com/bnema/modebridge/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the display mode methods as MCP tools on stdio",
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol
	logger.SetOutput(os.Stderr)

	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newCore(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	c.start(ctx, cfg)
	c.watchConfig()

	return mcpserver.New(c.dispatcher, Version).Run(ctx)
}
