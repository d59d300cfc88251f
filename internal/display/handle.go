package display

import "sync"

// Handle references the currently attached display surface. It is owned by
// the lifecycle layer; everyone else only borrows it.
//
// Queries hold the read lock for their whole duration and Release takes the
// write lock, so a detach waits for in-flight queries and every query that
// starts afterwards fails with ErrHandleUnavailable.
type Handle struct {
	mu       sync.RWMutex
	surface  Surface
	target   string
	output   string
	released bool
}

// NewHandle wraps an attached surface.
func NewHandle(target, output string, surface Surface) *Handle {
	return &Handle{
		surface: surface,
		target:  target,
		output:  output,
	}
}

// Target is the display the handle was attached to ("" means the
// environment default).
func (h *Handle) Target() string {
	return h.target
}

// Output is the requested output name ("" means primary).
func (h *Handle) Output() string {
	return h.output
}

// Released reports whether the handle has been detached.
func (h *Handle) Released() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.released
}

// Release detaches the handle and closes its surface. Safe to call twice.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil
	}
	h.released = true
	if h.surface == nil {
		return nil
	}
	return h.surface.Close()
}

func (h *Handle) use(fn func(Surface) error) error {
	if h == nil {
		return ErrHandleUnavailable
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.released || h.surface == nil {
		return ErrHandleUnavailable
	}
	return fn(h.surface)
}
