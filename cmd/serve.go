package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/modebridge/internal/channel"
	"github.com/bnema/modebridge/internal/config"
	"github.com/bnema/modebridge/internal/ipc"
	"github.com/bnema/modebridge/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer display mode queries until interrupted",
	Long: `Attach to the primary display and answer getPlatformVersion,
getSupportedModes and getActiveMode over the local socket. When
websocket.enabled is set the same methods are served on ws://<listen>/channel.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	srv, err := ipc.NewSocketServer(c.dispatcher, cfg.IPC.SocketPath)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start socket server: %w", err)
	}
	defer srv.Stop()
	logger.Infof("Listening on %s", srv.SocketPath())

	errCh := make(chan error, 1)
	if cfg.WebSocket.Enabled {
		ws := channel.NewServer(c.dispatcher, cfg.WebSocket.AllowAnyOrigin)
		go func() {
			errCh <- ws.ListenAndServe(ctx, cfg.WebSocket.Listen)
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("websocket channel: %w", err)
		}
		<-ctx.Done()
	}

	logger.Info("Shutting down")
	return nil
}
