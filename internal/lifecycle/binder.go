// Package lifecycle owns the display handle: it opens a surface when the
// host display becomes available and releases it when it goes away.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/bnema/modebridge/internal/display"
	"github.com/bnema/modebridge/internal/logger"
)

// HandleSink receives every handle transition. bridge.Dispatcher
// implements it.
type HandleSink interface {
	SetHandle(h *display.Handle) *display.Handle
}

// Binder attaches and detaches display handles and publishes them to a
// sink. It reacts to calls from notifiers and never polls.
type Binder struct {
	backend display.Backend
	sink    HandleSink

	mu      sync.Mutex
	output  string
	target  string
	current *display.Handle
}

// NewBinder creates a detached binder for output ("" = primary).
func NewBinder(backend display.Backend, sink HandleSink, output string) *Binder {
	return &Binder{
		backend: backend,
		sink:    sink,
		output:  output,
	}
}

// Attach opens target and publishes the new handle. Attaching the target
// that is already attached is a no-op; a different target replaces it.
func (b *Binder) Attach(target string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != nil {
		if b.target == target {
			return nil
		}
		b.detachLocked()
	}
	return b.attachLocked(target)
}

// Detach withdraws the handle. It returns once in-flight queries on the old
// handle have finished.
func (b *Binder) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detachLocked()
}

// Reattach handles a configuration change: the handle is detached and a new
// one attached straight away, possibly to a different target or output.
func (b *Binder) Reattach(target, output string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	logger.Info("reattaching display", "target", target, "output", output)
	b.detachLocked()
	b.output = output
	return b.attachLocked(target)
}

// Attached reports whether a handle is currently published.
func (b *Binder) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current != nil
}

// Target returns the target of the current or most recent attach.
func (b *Binder) Target() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target
}

func (b *Binder) attachLocked(target string) error {
	surface, err := b.backend.Attach(target, b.output)
	if err != nil {
		return fmt.Errorf("failed to attach display %q: %w", target, err)
	}

	h := display.NewHandle(target, b.output, surface)
	b.current = h
	b.target = target
	b.sink.SetHandle(h)

	logger.Info("display attached", "backend", b.backend.Name(), "target", target, "output", b.output)
	return nil
}

// detachLocked unpublishes before releasing so new calls see no handle
// while in-flight ones drain.
func (b *Binder) detachLocked() {
	h := b.current
	if h == nil {
		return
	}
	b.current = nil
	b.sink.SetHandle(nil)

	if err := h.Release(); err != nil {
		logger.Warn("failed to release display handle", "error", err)
	}
	logger.Info("display detached", "target", h.Target())
}
