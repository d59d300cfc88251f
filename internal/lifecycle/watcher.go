package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bnema/modebridge/internal/logger"
)

// Watcher drives a Binder from the display server's socket: the socket
// appearing attaches, the socket going away detaches.
type Watcher struct {
	binder *Binder
	socket string
	target string

	// a freshly created socket may not accept connections yet
	attachRetries int
	retryDelay    time.Duration
}

// NewWatcher watches socketPath on behalf of target.
func NewWatcher(binder *Binder, socketPath, target string) *Watcher {
	return &Watcher{
		binder:        binder,
		socket:        filepath.Clean(socketPath),
		target:        target,
		attachRetries: 5,
		retryDelay:    200 * time.Millisecond,
	}
}

// Run blocks until ctx is done. The current state of the socket is applied
// before the first event is read.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create socket watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.socket)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logger.Debugf("watching display socket %s", w.socket)

	if _, err := os.Stat(w.socket); err == nil {
		w.attach(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.socket {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				w.attach(ctx)
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				w.binder.Detach()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("display socket watcher error", "error", err)
		}
	}
}

func (w *Watcher) attach(ctx context.Context) {
	var err error
	for i := 0; i <= w.attachRetries; i++ {
		if err = w.binder.Attach(w.target); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retryDelay):
		}
	}
	logger.Warn("display socket appeared but attach failed", "socket", w.socket, "error", err)
}
