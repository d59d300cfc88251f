package display

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hyprMonitorsJSON = `[
  {
    "id": 0, "name": "DP-1", "width": 2560, "height": 1440, "refreshRate": 143.97,
    "x": 0, "y": 0, "focused": false, "disabled": false,
    "availableModes": ["2560x1440@143.97Hz", "2560x1440@59.95Hz", "1920x1080@60.00Hz", "bogus"]
  },
  {
    "id": 1, "name": "HDMI-A-1", "width": 1920, "height": 1080, "refreshRate": 60.0,
    "x": 2560, "y": 0, "focused": true, "disabled": false,
    "availableModes": ["1920x1080@60.00Hz", "1280x720@60.00Hz"]
  }
]`

const swayOutputsJSON = `[
  {
    "name": "eDP-1", "active": true, "focused": true,
    "rect": {"x": 0, "y": 0},
    "modes": [
      {"width": 1920, "height": 1080, "refresh": 60000},
      {"width": 1920, "height": 1080, "refresh": 48000}
    ],
    "current_mode": {"width": 1920, "height": 1080, "refresh": 48000}
  }
]`

func fakeCompositor(responses map[string]string) commandRunner {
	return func(env []string, args ...string) ([]byte, error) {
		out, ok := responses[strings.Join(args, " ")]
		if !ok {
			return nil, errors.New("exit status 1")
		}
		return []byte(out), nil
	}
}

func TestHyprlandBackend(t *testing.T) {
	b, err := newCompositorBackend(BackendHyprland, "wayland-1", fakeCompositor(map[string]string{
		"version -j":  `{"tag": "v0.41.2"}`,
		"monitors -j": hyprMonitorsJSON,
	}))
	require.NoError(t, err)
	assert.Equal(t, Version{0, 41, 2}, b.APIVersion())
	assert.True(t, NewAdapter(b).Supported())

	s, err := b.Attach("wayland-1", "")
	require.NoError(t, err)

	modes, err := s.Modes()
	require.NoError(t, err)
	assert.Equal(t, []Mode{
		{ID: 1, Width: 2560, Height: 1440, RefreshRate: 143.97},
		{ID: 2, Width: 2560, Height: 1440, RefreshRate: 59.95},
		{ID: 3, Width: 1920, Height: 1080, RefreshRate: 60},
	}, modes)

	active, err := s.ActiveMode()
	require.NoError(t, err)
	assert.Equal(t, modes[0], active)

	named, err := b.Attach("wayland-1", "HDMI-A-1")
	require.NoError(t, err)
	active, err = named.ActiveMode()
	require.NoError(t, err)
	assert.Equal(t, Mode{ID: 1, Width: 1920, Height: 1080, RefreshRate: 60}, active)
}

func TestHyprlandDevelopmentTag(t *testing.T) {
	b, err := newCompositorBackend(BackendHyprland, "", fakeCompositor(map[string]string{
		"version -j": `{"tag": "unknown"}`,
	}))
	require.NoError(t, err)
	assert.Equal(t, hyprlandMinimum, b.APIVersion())
	assert.True(t, NewAdapter(b).Supported())
}

func TestHyprlandOldReleaseUnsupported(t *testing.T) {
	b, err := newCompositorBackend(BackendHyprland, "", fakeCompositor(map[string]string{
		"version -j": `{"tag": "v0.24.1"}`,
	}))
	require.NoError(t, err)
	assert.False(t, NewAdapter(b).Supported())
}

func TestSwayBackend(t *testing.T) {
	b, err := newCompositorBackend(BackendSway, "", fakeCompositor(map[string]string{
		"-t get_version -r": `{"major": 1, "minor": 9, "patch": 0}`,
		"-t get_outputs -r": swayOutputsJSON,
	}))
	require.NoError(t, err)
	assert.Equal(t, BackendSway, b.Name())
	assert.Equal(t, swayMinimum, b.MinimumVersion())

	s, err := b.Attach("", "")
	require.NoError(t, err)

	active, err := s.ActiveMode()
	require.NoError(t, err)
	assert.Equal(t, Mode{ID: 2, Width: 1920, Height: 1080, RefreshRate: 48}, active)

	_, err = b.Attach("", "DP-9")
	assert.ErrorContains(t, err, `output "DP-9" not found`)
}

func TestCompositorUnreachable(t *testing.T) {
	_, err := newCompositorBackend(BackendSway, "", fakeCompositor(nil))
	assert.ErrorContains(t, err, "sway is not reachable")
}

func TestParseHyprlandMode(t *testing.T) {
	m, err := parseHyprlandMode("3840x2160@119.88Hz")
	require.NoError(t, err)
	assert.Equal(t, Mode{Width: 3840, Height: 2160, RefreshRate: 119.88}, m)

	for _, bad := range []string{"3840x2160", "3840@60Hz", "axb@60Hz", "1x1@fastHz"} {
		_, err := parseHyprlandMode(bad)
		assert.Error(t, err, bad)
	}
}

func TestClosestMode(t *testing.T) {
	modes := []Mode{
		{ID: 1, Width: 1920, Height: 1080, RefreshRate: 60},
		{ID: 2, Width: 1920, Height: 1080, RefreshRate: 59.94},
		{ID: 3, Width: 1280, Height: 720, RefreshRate: 60},
	}
	assert.Equal(t, 2, closestMode(modes, 1920, 1080, 59.9).ID)
	assert.Equal(t, 3, closestMode(modes, 1280, 720, 30).ID)
	assert.Equal(t, Mode{}, closestMode(modes, 800, 600, 60))
}

func TestDetectCompositor(t *testing.T) {
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	t.Setenv("SWAYSOCK", "")
	t.Setenv("XDG_CURRENT_DESKTOP", "GNOME")
	assert.Equal(t, "", detectCompositor())

	t.Setenv("XDG_CURRENT_DESKTOP", "sway:wlroots")
	assert.Equal(t, BackendSway, detectCompositor())

	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc_123")
	assert.Equal(t, BackendHyprland, detectCompositor())
}
