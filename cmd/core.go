package cmd

import (
	"context"
	"fmt"

	"github.com/bnema/modebridge/internal/bridge"
	"github.com/bnema/modebridge/internal/config"
	"github.com/bnema/modebridge/internal/display"
	"github.com/bnema/modebridge/internal/lifecycle"
	"github.com/bnema/modebridge/internal/logger"
	"github.com/bnema/modebridge/internal/platform"
)

// core wires the display backend to a dispatcher. Every front end shares it.
type core struct {
	backend    display.Backend
	adapter    *display.Adapter
	dispatcher *bridge.Dispatcher
	binder     *lifecycle.Binder
}

var openBackend = display.Open

func newCore(cfg *config.Config) (*core, error) {
	backend, err := openBackend(cfg.Display.Backend, cfg.Display.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to open display backend: %w", err)
	}

	adapter := display.NewAdapter(backend)
	if adapter.Supported() {
		logger.Infof("Display backend: %s", adapter.Platform())
	} else {
		logger.Warnf("Display backend %s is below %s, mode queries will report UNSUPPORTED",
			adapter.Platform(), backend.MinimumVersion())
	}

	dispatcher := bridge.New(adapter, platform.Version)
	return &core{
		backend:    backend,
		adapter:    adapter,
		dispatcher: dispatcher,
		binder:     lifecycle.NewBinder(backend, dispatcher, cfg.Display.Output),
	}, nil
}

// start attaches the display. With lifecycle.watch the attachment follows
// the display socket until ctx is done; otherwise it attaches once.
func (c *core) start(ctx context.Context, cfg *config.Config) {
	target := cfg.Display.Target
	socket := c.backend.SocketPath(target)

	if cfg.Lifecycle.Watch && socket != "" {
		watcher := lifecycle.NewWatcher(c.binder, socket, target)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Errorf("Display watcher stopped: %v", err)
			}
		}()
		return
	}

	if err := c.binder.Attach(target); err != nil {
		logger.Warnf("Display not attached: %v", err)
	}
}

// watchConfig reattaches when the configured target or output changes.
func (c *core) watchConfig() {
	config.Watch(func(prev, next *config.Config) {
		if !config.DisplayChanged(prev, next) {
			return
		}
		logger.Infof("Display config changed, reattaching to %q output %q", next.Display.Target, next.Display.Output)
		if err := c.binder.Reattach(next.Display.Target, next.Display.Output); err != nil {
			logger.Warnf("Reattach failed: %v", err)
		}
	})
}

func (c *core) close() {
	c.binder.Detach()
}
