package display

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/bnema/modebridge/internal/logger"
)

// Compositor IPC versions that report per-output mode lists.
var (
	hyprlandMinimum = Version{Major: 0, Minor: 25}
	swayMinimum     = Version{Major: 1, Minor: 0}
)

// compositorBackend queries the compositor's own IPC tool (hyprctl or
// swaymsg) on Wayland compositors that are not wlroots-randr friendly.
type compositorBackend struct {
	compositor string
	run        commandRunner
	version    Version
}

func execRunner(bin string) commandRunner {
	return func(env []string, args ...string) ([]byte, error) {
		cmd := exec.Command(bin, args...)
		cmd.Env = append(os.Environ(), env...)
		return cmd.Output()
	}
}

func newHyprlandBackend(target string) (Backend, error) {
	return openCompositorBackend(BackendHyprland, target)
}

func newSwayBackend(target string) (Backend, error) {
	return openCompositorBackend(BackendSway, target)
}

func openCompositorBackend(compositor, target string) (Backend, error) {
	bin := compositorTool(compositor)
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%s not found: %w", bin, err)
	}
	return newCompositorBackend(compositor, target, execRunner(bin))
}

func newCompositorBackend(compositor, target string, run commandRunner) (*compositorBackend, error) {
	c := &compositorBackend{
		compositor: compositor,
		run:        run,
	}

	v, err := c.queryVersion(waylandEnv(target))
	if err != nil {
		return nil, fmt.Errorf("%s is not reachable: %w", compositor, err)
	}
	c.version = v
	return c, nil
}

func compositorTool(compositor string) string {
	if compositor == BackendHyprland {
		return "hyprctl"
	}
	return "swaymsg"
}

// detectCompositor names the running compositor from the session
// environment, or "" when it is not one this backend speaks to.
func detectCompositor() string {
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return BackendHyprland
	}
	if os.Getenv("SWAYSOCK") != "" {
		return BackendSway
	}

	for _, desktop := range strings.Split(os.Getenv("XDG_CURRENT_DESKTOP"), ":") {
		switch strings.ToLower(strings.TrimSpace(desktop)) {
		case "hyprland":
			return BackendHyprland
		case "sway":
			return BackendSway
		}
	}
	return ""
}

func (c *compositorBackend) queryVersion(env []string) (Version, error) {
	switch c.compositor {
	case BackendHyprland:
		out, err := c.run(env, "version", "-j")
		if err != nil {
			return Version{}, err
		}
		var info struct {
			Tag string `json:"tag"`
		}
		if err := json.Unmarshal(out, &info); err != nil {
			return Version{}, fmt.Errorf("failed to parse hyprctl version: %w", err)
		}
		v, err := ParseVersion(info.Tag)
		if err != nil {
			// development builds report a commit tag; the IPC answered, so
			// assume the oldest version that lists modes
			logger.Warnf("hyprctl version tag %q is not a release, assuming %s", info.Tag, hyprlandMinimum)
			return hyprlandMinimum, nil
		}
		return v, nil

	default:
		out, err := c.run(env, "-t", "get_version", "-r")
		if err != nil {
			return Version{}, err
		}
		var info struct {
			Major int `json:"major"`
			Minor int `json:"minor"`
			Patch int `json:"patch"`
		}
		if err := json.Unmarshal(out, &info); err != nil {
			return Version{}, fmt.Errorf("failed to parse sway version: %w", err)
		}
		return Version{Major: info.Major, Minor: info.Minor, Patch: info.Patch}, nil
	}
}

func (c *compositorBackend) Name() string {
	return c.compositor
}

func (c *compositorBackend) APIVersion() Version {
	return c.version
}

func (c *compositorBackend) MinimumVersion() Version {
	if c.compositor == BackendHyprland {
		return hyprlandMinimum
	}
	return swayMinimum
}

func (c *compositorBackend) SocketPath(target string) string {
	return waylandSocketPath(target)
}

func (c *compositorBackend) Attach(target, output string) (Surface, error) {
	s := &compositorSurface{
		compositor: c.compositor,
		run:        c.run,
		env:        waylandEnv(target),
		output:     output,
	}
	if _, err := s.pickOutput(); err != nil {
		return nil, err
	}
	return s, nil
}

// compositorOutput is one output as both tools describe it, normalized.
type compositorOutput struct {
	name    string
	enabled bool
	focused bool
	x, y    int
	modes   []Mode
	current Mode
}

type compositorSurface struct {
	compositor string
	run        commandRunner
	env        []string
	output     string
}

func (s *compositorSurface) outputs() ([]compositorOutput, error) {
	if s.compositor == BackendHyprland {
		out, err := s.run(s.env, "monitors", "-j")
		if err != nil {
			return nil, fmt.Errorf("failed to run hyprctl: %w", err)
		}
		return parseHyprlandMonitors(out)
	}

	out, err := s.run(s.env, "-t", "get_outputs", "-r")
	if err != nil {
		return nil, fmt.Errorf("failed to run swaymsg: %w", err)
	}
	return parseSwayOutputs(out)
}

// pickOutput picks the configured output, else the enabled output at (0,0),
// else the focused one, else the first enabled output.
func (s *compositorSurface) pickOutput() (*compositorOutput, error) {
	outputs, err := s.outputs()
	if err != nil {
		return nil, err
	}

	if s.output != "" {
		for i := range outputs {
			if outputs[i].name == s.output {
				return &outputs[i], nil
			}
		}
		return nil, fmt.Errorf("output %q not found", s.output)
	}

	var focused, first *compositorOutput
	for i := range outputs {
		o := &outputs[i]
		if !o.enabled {
			continue
		}
		if o.x == 0 && o.y == 0 {
			return o, nil
		}
		if o.focused && focused == nil {
			focused = o
		}
		if first == nil {
			first = o
		}
	}
	if focused != nil {
		return focused, nil
	}
	if first == nil {
		return nil, fmt.Errorf("no active outputs found")
	}
	return first, nil
}

func (s *compositorSurface) Modes() ([]Mode, error) {
	o, err := s.pickOutput()
	if err != nil {
		return nil, err
	}
	return o.modes, nil
}

func (s *compositorSurface) ActiveMode() (Mode, error) {
	o, err := s.pickOutput()
	if err != nil {
		return Mode{}, err
	}
	if o.current.ID == 0 {
		return Mode{}, fmt.Errorf("output %s has no current mode", o.name)
	}
	return o.current, nil
}

func (s *compositorSurface) Close() error {
	return nil
}

func parseHyprlandMonitors(data []byte) ([]compositorOutput, error) {
	var monitors []struct {
		Name           string   `json:"name"`
		Width          int      `json:"width"`
		Height         int      `json:"height"`
		RefreshRate    float64  `json:"refreshRate"`
		X              int      `json:"x"`
		Y              int      `json:"y"`
		Focused        bool     `json:"focused"`
		Disabled       bool     `json:"disabled"`
		AvailableModes []string `json:"availableModes"`
	}
	if err := json.Unmarshal(data, &monitors); err != nil {
		return nil, fmt.Errorf("failed to parse hyprctl output: %w", err)
	}

	outputs := make([]compositorOutput, 0, len(monitors))
	for _, m := range monitors {
		o := compositorOutput{
			name:    m.Name,
			enabled: !m.Disabled,
			focused: m.Focused,
			x:       m.X,
			y:       m.Y,
		}
		for _, desc := range m.AvailableModes {
			mode, err := parseHyprlandMode(desc)
			if err != nil {
				logger.Debugf("hyprctl: skipping mode %q: %v", desc, err)
				continue
			}
			mode.ID = len(o.modes) + 1
			o.modes = append(o.modes, mode)
		}
		o.current = closestMode(o.modes, m.Width, m.Height, m.RefreshRate)
		outputs = append(outputs, o)
	}
	return outputs, nil
}

// parseHyprlandMode parses "2560x1440@143.97Hz".
func parseHyprlandMode(desc string) (Mode, error) {
	size, rate, ok := strings.Cut(desc, "@")
	if !ok {
		return Mode{}, fmt.Errorf("missing refresh rate")
	}
	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return Mode{}, fmt.Errorf("missing height")
	}

	width, err := strconv.Atoi(w)
	if err != nil {
		return Mode{}, err
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Mode{}, err
	}
	refresh, err := strconv.ParseFloat(strings.TrimSuffix(rate, "Hz"), 64)
	if err != nil {
		return Mode{}, err
	}
	return Mode{Width: width, Height: height, RefreshRate: refresh}, nil
}

func parseSwayOutputs(data []byte) ([]compositorOutput, error) {
	type swayMode struct {
		Width   int `json:"width"`
		Height  int `json:"height"`
		Refresh int `json:"refresh"` // mHz
	}
	var swayOutputs []struct {
		Name        string     `json:"name"`
		Active      bool       `json:"active"`
		Focused     bool       `json:"focused"`
		Modes       []swayMode `json:"modes"`
		CurrentMode swayMode   `json:"current_mode"`
		Rect        struct {
			X int `json:"x"`
			Y int `json:"y"`
		} `json:"rect"`
	}
	if err := json.Unmarshal(data, &swayOutputs); err != nil {
		return nil, fmt.Errorf("failed to parse sway output: %w", err)
	}

	outputs := make([]compositorOutput, 0, len(swayOutputs))
	for _, so := range swayOutputs {
		o := compositorOutput{
			name:    so.Name,
			enabled: so.Active,
			focused: so.Focused,
			x:       so.Rect.X,
			y:       so.Rect.Y,
		}
		for i, m := range so.Modes {
			o.modes = append(o.modes, Mode{
				ID:          i + 1,
				Width:       m.Width,
				Height:      m.Height,
				RefreshRate: float64(m.Refresh) / 1000,
			})
		}
		o.current = closestMode(o.modes, so.CurrentMode.Width, so.CurrentMode.Height, float64(so.CurrentMode.Refresh)/1000)
		outputs = append(outputs, o)
	}
	return outputs, nil
}

// closestMode finds the listed mode with the given size whose refresh rate
// is nearest to refresh. The zero Mode means no listed mode has that size.
func closestMode(modes []Mode, width, height int, refresh float64) Mode {
	var best Mode
	bestDelta := math.Inf(1)
	for _, m := range modes {
		if m.Width != width || m.Height != height {
			continue
		}
		if d := math.Abs(m.RefreshRate - refresh); d < bestDelta {
			best, bestDelta = m, d
		}
	}
	return best
}
