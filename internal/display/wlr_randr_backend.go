package display

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bnema/modebridge/internal/logger"
)

// wlr-randr gained --json in 0.3.0.
var wlrRandrMinimum = Version{Major: 0, Minor: 3}

// commandRunner runs wlr-randr with extra environment entries.
type commandRunner func(env []string, args ...string) ([]byte, error)

func runWlrRandr(env []string, args ...string) ([]byte, error) {
	cmd := exec.Command("wlr-randr", args...)
	cmd.Env = append(os.Environ(), env...)
	return cmd.CombinedOutput()
}

// wlrRandrBackend uses the wlr-randr tool on wlroots compositors.
type wlrRandrBackend struct {
	run     commandRunner
	version Version
}

func newWlrRandrBackend(target string) (Backend, error) {
	if _, err := exec.LookPath("wlr-randr"); err != nil {
		return nil, fmt.Errorf("wlr-randr not found. Please install wlr-randr: https://gitlab.freedesktop.org/emersion/wlr-randr")
	}
	return newWlrRandrBackendWithRunner(target, runWlrRandr), nil
}

func newWlrRandrBackendWithRunner(target string, run commandRunner) *wlrRandrBackend {
	return &wlrRandrBackend{
		run:     run,
		version: detectWlrRandrVersion(run, waylandEnv(target)),
	}
}

// detectWlrRandrVersion prefers --version; older builds without it are
// checked for --json support instead.
func detectWlrRandrVersion(run commandRunner, env []string) Version {
	if out, err := run(env, "--version"); err == nil {
		fields := strings.Fields(string(out))
		if len(fields) > 0 {
			if v, err := ParseVersion(fields[len(fields)-1]); err == nil {
				return v
			}
		}
	}

	if out, err := run(env, "--json"); err == nil && json.Valid(out) {
		return wlrRandrMinimum
	}
	return Version{}
}

func (w *wlrRandrBackend) Name() string {
	return BackendWlrRandr
}

func (w *wlrRandrBackend) APIVersion() Version {
	return w.version
}

func (w *wlrRandrBackend) MinimumVersion() Version {
	return wlrRandrMinimum
}

func (w *wlrRandrBackend) SocketPath(target string) string {
	return waylandSocketPath(target)
}

// waylandSocketPath resolves a WAYLAND_DISPLAY value to its socket.
func waylandSocketPath(target string) string {
	if target == "" {
		target = os.Getenv("WAYLAND_DISPLAY")
	}
	if target == "" {
		return ""
	}
	if filepath.IsAbs(target) {
		return target
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return ""
	}
	return filepath.Join(runtimeDir, target)
}

func (w *wlrRandrBackend) Attach(target, output string) (Surface, error) {
	s := &wlrRandrSurface{
		run:    w.run,
		env:    waylandEnv(target),
		output: output,
	}

	// fail the attach, not the first query, when the output is missing
	if _, err := s.head(); err != nil {
		return nil, err
	}
	return s, nil
}

type wlrMode struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Refresh   float64 `json:"refresh"`
	Preferred bool    `json:"preferred"`
	Current   bool    `json:"current"`
}

type wlrHead struct {
	Name     string    `json:"name"`
	Enabled  bool      `json:"enabled"`
	Modes    []wlrMode `json:"modes"`
	Position struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"position"`
}

type wlrRandrSurface struct {
	run    commandRunner
	env    []string
	output string
}

func (s *wlrRandrSurface) heads() ([]wlrHead, error) {
	out, err := s.run(s.env, "--json")
	if err != nil {
		if len(out) > 0 {
			logger.Errorf("wlr-randr --json error: %s", string(out))
		}
		return nil, fmt.Errorf("failed to run wlr-randr: %w", err)
	}

	var heads []wlrHead
	if err := json.Unmarshal(out, &heads); err != nil {
		return nil, fmt.Errorf("failed to parse wlr-randr output: %w", err)
	}
	return heads, nil
}

// head picks the configured output, else the enabled output at (0,0),
// else the first enabled output.
func (s *wlrRandrSurface) head() (*wlrHead, error) {
	heads, err := s.heads()
	if err != nil {
		return nil, err
	}
	return pickWlrHead(heads, s.output)
}

func pickWlrHead(heads []wlrHead, name string) (*wlrHead, error) {
	if name != "" {
		for i := range heads {
			if heads[i].Name == name {
				return &heads[i], nil
			}
		}
		return nil, fmt.Errorf("output %q not found", name)
	}

	var first *wlrHead
	for i := range heads {
		h := &heads[i]
		if !h.Enabled {
			continue
		}
		if h.Position.X == 0 && h.Position.Y == 0 {
			return h, nil
		}
		if first == nil {
			first = h
		}
	}
	if first == nil {
		return nil, fmt.Errorf("no active outputs found")
	}
	return first, nil
}

func (s *wlrRandrSurface) Modes() ([]Mode, error) {
	h, err := s.head()
	if err != nil {
		return nil, err
	}

	modes := make([]Mode, len(h.Modes))
	for i, m := range h.Modes {
		modes[i] = wlrModeToMode(i, m)
	}
	return modes, nil
}

func (s *wlrRandrSurface) ActiveMode() (Mode, error) {
	h, err := s.head()
	if err != nil {
		return Mode{}, err
	}

	for i, m := range h.Modes {
		if m.Current {
			return wlrModeToMode(i, m), nil
		}
	}
	return Mode{}, fmt.Errorf("output %s has no current mode", h.Name)
}

func (s *wlrRandrSurface) Close() error {
	return nil
}

// IDs are 1-based positions in the head's mode list.
func wlrModeToMode(i int, m wlrMode) Mode {
	return Mode{
		ID:          i + 1,
		Width:       m.Width,
		Height:      m.Height,
		RefreshRate: m.Refresh,
	}
}

// waylandEnv builds the environment wlr-randr needs for target. Under sudo
// the real user's runtime dir is used, since root has no compositor.
func waylandEnv(target string) []string {
	var env []string

	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" && os.Geteuid() == 0 {
		if sudoUID := os.Getenv("SUDO_UID"); sudoUID != "" {
			runtimeDir := fmt.Sprintf("/run/user/%s", sudoUID)
			env = append(env, "XDG_RUNTIME_DIR="+runtimeDir)
			logger.Debugf("Setting XDG_RUNTIME_DIR=%s for sudo user %s", runtimeDir, sudoUser)
		}
	}

	if target != "" {
		env = append(env, "WAYLAND_DISPLAY="+target)
	}
	return env
}
