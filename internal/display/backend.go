package display

import (
	"fmt"
	"os"

	"github.com/bnema/modebridge/internal/logger"
)

// Backend is the platform display service. It is opened once per process;
// its API version is what the capability gate compares.
type Backend interface {
	Name() string
	APIVersion() Version
	MinimumVersion() Version

	// SocketPath returns the local socket whose presence means target is
	// reachable, or "" when there is none to watch.
	SocketPath(target string) string

	// Attach opens a surface for one output of target. An empty output
	// selects the primary output.
	Attach(target, output string) (Surface, error)
}

// Surface is one attached display context.
type Surface interface {
	Modes() ([]Mode, error)
	ActiveMode() (Mode, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendAuto     = "auto"
	BackendRandr    = "randr"
	BackendWlrRandr = "wlr-randr"
	BackendHyprland = "hyprland"
	BackendSway     = "sway"
)

type backendFactory struct {
	name string
	open func(target string) (Backend, error)
}

// factories is in order of preference for "auto".
var factories = []backendFactory{
	{BackendHyprland, newHyprlandBackend},
	{BackendSway, newSwayBackend},
	{BackendWlrRandr, newWlrRandrBackend},
	{BackendRandr, newRandrBackend},
}

// Open opens the named backend. "auto" (or "") tries each backend in order
// of preference and returns the first one that opens.
func Open(kind, target string) (Backend, error) {
	if kind != "" && kind != BackendAuto {
		for _, f := range factories {
			if f.name == kind {
				return f.open(target)
			}
		}
		return nil, fmt.Errorf("unknown display backend %q", kind)
	}

	wayland := os.Getenv("WAYLAND_DISPLAY") != ""
	compositor := detectCompositor()

	var candidates []backendFactory
	for _, f := range factories {
		switch f.name {
		case BackendHyprland, BackendSway:
			if !wayland || f.name != compositor {
				continue
			}
		case BackendWlrRandr:
			// no compositor socket, wlr-randr cannot work
			if !wayland {
				continue
			}
		}
		candidates = append(candidates, f)
	}

	var lastErr error
	for _, f := range candidates {
		logger.Debugf("display.Open: trying backend %s", f.name)
		backend, err := f.open(target)
		if err == nil {
			logger.Debugf("display.Open: using backend %s (API %s)", f.name, backend.APIVersion())
			return backend, nil
		}
		logger.Debugf("display.Open: backend %s failed: %v", f.name, err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no candidates")
	}
	return nil, fmt.Errorf("no display backend available: %w", lastErr)
}
