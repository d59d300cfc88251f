package display

import (
	"fmt"
	"slices"
)

// CapabilityError reports a platform display API below the backend minimum.
type CapabilityError struct {
	Backend string
	Have    Version
	Need    Version
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s %d.%d+ required for display modes (have %s)",
		e.Backend, e.Need.Major, e.Need.Minor, e.Have)
}

func (e *CapabilityError) Unwrap() error {
	return ErrCapabilityUnsupported
}

// Adapter runs the two display queries against whatever handle the caller
// supplies.
type Adapter struct {
	backend Backend
}

// NewAdapter creates an adapter over an opened backend.
func NewAdapter(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Backend returns the underlying backend.
func (a *Adapter) Backend() Backend {
	return a.backend
}

// Supported is the capability gate.
func (a *Adapter) Supported() bool {
	return !a.backend.APIVersion().Less(a.backend.MinimumVersion())
}

// Platform describes the backend for logs and version output.
func (a *Adapter) Platform() string {
	return fmt.Sprintf("%s %s", a.backend.Name(), a.backend.APIVersion())
}

// ListSupportedModes returns every mode the handle's display supports, in
// the order the platform reports them.
func (a *Adapter) ListSupportedModes(h *Handle) ([]Mode, error) {
	if err := a.checkCapability(); err != nil {
		return nil, err
	}

	var modes []Mode
	err := h.use(func(s Surface) error {
		var err error
		modes, err = s.Modes()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(modes) == 0 {
		return nil, ErrNoModes
	}
	return slices.Clone(modes), nil
}

// GetActiveMode returns the mode currently in effect on the handle's display.
func (a *Adapter) GetActiveMode(h *Handle) (Mode, error) {
	if err := a.checkCapability(); err != nil {
		return Mode{}, err
	}

	var mode Mode
	err := h.use(func(s Surface) error {
		var err error
		mode, err = s.ActiveMode()
		return err
	})
	return mode, err
}

// checkCapability runs before any handle check so an unsupported platform
// always reports the capability error, attached or not.
func (a *Adapter) checkCapability() error {
	if a.Supported() {
		return nil
	}
	return &CapabilityError{
		Backend: a.backend.Name(),
		Have:    a.backend.APIVersion(),
		Need:    a.backend.MinimumVersion(),
	}
}
