package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	SetConfigPath("")
	Set(nil)
	t.Cleanup(func() {
		viper.Reset()
		SetConfigPath("")
		Set(nil)
	})
}

func TestInit(t *testing.T) {
	t.Run("initializes with defaults when no config exists", func(t *testing.T) {
		resetConfig(t)
		t.Chdir(t.TempDir())
		t.Setenv("HOME", t.TempDir())

		if err := Init(); err != nil {
			t.Fatalf("Init() failed: %v", err)
		}

		config := Get()
		if config.Display.Backend != "auto" {
			t.Errorf("Expected default backend auto, got %q", config.Display.Backend)
		}
		if !config.Lifecycle.Watch {
			t.Error("Expected lifecycle.watch to default to true")
		}
		if config.WebSocket.Enabled {
			t.Error("Expected websocket channel to be disabled by default")
		}
	})

	t.Run("reads an explicit config file", func(t *testing.T) {
		resetConfig(t)
		path := filepath.Join(t.TempDir(), "custom.toml")
		content := `[display]
backend = "RandR"
target = ":1"
output = "DP-2"

[websocket]
enabled = true
listen = "127.0.0.1:9000"
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		SetConfigPath(path)

		if err := Init(); err != nil {
			t.Fatalf("Init() failed: %v", err)
		}

		config := Get()
		if config.Display.Backend != "randr" {
			t.Errorf("Expected backend randr, got %q", config.Display.Backend)
		}
		if config.Display.Target != ":1" || config.Display.Output != "DP-2" {
			t.Errorf("Unexpected display section: %+v", config.Display)
		}
		if !config.WebSocket.Enabled || config.WebSocket.Listen != "127.0.0.1:9000" {
			t.Errorf("Unexpected websocket section: %+v", config.WebSocket)
		}
		// untouched sections keep their defaults
		if !config.Lifecycle.Watch {
			t.Error("Expected lifecycle.watch default to survive")
		}
		if GetConfigPath() != path {
			t.Errorf("Expected config path %s, got %s", path, GetConfigPath())
		}
	})

	t.Run("accepts compositor backends", func(t *testing.T) {
		for _, backend := range []string{"Hyprland", "sway"} {
			resetConfig(t)
			path := filepath.Join(t.TempDir(), "compositor.toml")
			content := "[display]\nbackend = \"" + backend + "\"\n"
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			SetConfigPath(path)

			if err := Init(); err != nil {
				t.Fatalf("Init() failed for %s: %v", backend, err)
			}
			if got := Get().Display.Backend; got != strings.ToLower(backend) {
				t.Errorf("Expected backend %s, got %q", strings.ToLower(backend), got)
			}
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		resetConfig(t)
		t.Chdir(t.TempDir())
		t.Setenv("HOME", t.TempDir())
		t.Setenv("MODEBRIDGE_DISPLAY_OUTPUT", "HDMI-A-1")

		if err := Init(); err != nil {
			t.Fatalf("Init() failed: %v", err)
		}
		if got := Get().Display.Output; got != "HDMI-A-1" {
			t.Errorf("Expected output from env, got %q", got)
		}
	})

	t.Run("handles invalid TOML", func(t *testing.T) {
		resetConfig(t)
		path := filepath.Join(t.TempDir(), "modebridge.toml")
		if err := os.WriteFile(path, []byte("[display\nbackend = 1"), 0o600); err != nil {
			t.Fatal(err)
		}
		SetConfigPath(path)

		err := Init()
		if err == nil {
			t.Fatal("Expected an error for invalid TOML")
		}
		if !strings.Contains(err.Error(), "error reading config file") {
			t.Errorf("Expected read error, got: %v", err)
		}
	})
}

func TestGetBeforeInit(t *testing.T) {
	resetConfig(t)

	c := Get()
	if c.Display.Backend != DefaultConfig.Display.Backend {
		t.Errorf("Expected defaults, got %+v", c.Display)
	}

	// mutating the returned defaults must not leak into DefaultConfig
	c.Display.Backend = "randr"
	if DefaultConfig.Display.Backend != "auto" {
		t.Error("DefaultConfig was modified through Get()")
	}
}

func TestConfigPathResolution(t *testing.T) {
	t.Run("normal user", func(t *testing.T) {
		if os.Getuid() == 0 {
			t.Skip("running as root")
		}
		resetConfig(t)
		t.Setenv("HOME", "/home/testuser")
		t.Setenv("SUDO_USER", "")

		want := "/home/testuser/.config/modebridge/modebridge.toml"
		if got := GetConfigPath(); got != want {
			t.Errorf("Expected path %s, got %s", want, got)
		}
	})

	t.Run("running with sudo", func(t *testing.T) {
		resetConfig(t)
		t.Setenv("SUDO_USER", "testuser")

		want := "/etc/modebridge/modebridge.toml"
		if got := GetConfigPath(); got != want {
			t.Errorf("Expected path %s, got %s", want, got)
		}
	})

	t.Run("override wins", func(t *testing.T) {
		resetConfig(t)
		SetConfigPath("/tmp/elsewhere.toml")

		if got := GetConfigPath(); got != "/tmp/elsewhere.toml" {
			t.Errorf("Expected override path, got %s", got)
		}
	})
}

func TestDisplayChanged(t *testing.T) {
	base := DefaultConfig
	same := DefaultConfig
	same.WebSocket.Enabled = true

	if DisplayChanged(&base, &same) {
		t.Error("Expected no display change when only websocket settings differ")
	}

	target := DefaultConfig
	target.Display.Target = ":1"
	if !DisplayChanged(&base, &target) {
		t.Error("Expected a target change to be detected")
	}

	output := DefaultConfig
	output.Display.Output = "DP-1"
	if !DisplayChanged(&base, &output) {
		t.Error("Expected an output change to be detected")
	}
}

func TestWatchReloads(t *testing.T) {
	resetConfig(t)
	path := filepath.Join(t.TempDir(), "modebridge.toml")
	if err := os.WriteFile(path, []byte("[display]\noutput = \"DP-1\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	SetConfigPath(path)
	if err := Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	changes := make(chan [2]string, 4)
	Watch(func(prev, next *Config) {
		changes <- [2]string{prev.Display.Output, next.Display.Output}
	})

	// give the watcher a moment to register before writing
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[display]\noutput = \"HDMI-A-1\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-changes:
			if c[1] != "HDMI-A-1" {
				// a truncate event can be observed before the new content
				continue
			}
			if c[0] != "DP-1" && c[0] != "" {
				t.Errorf("Unexpected previous output %q", c[0])
			}
			if Get().Display.Output != "HDMI-A-1" {
				t.Errorf("Get() not updated, got %q", Get().Display.Output)
			}
			return
		case <-deadline:
			t.Fatal("config change was not observed")
		}
	}
}

func TestSaveWritesDefaults(t *testing.T) {
	resetConfig(t)
	path := filepath.Join(t.TempDir(), "nested", "modebridge.toml")
	SetConfigPath(path)
	viper.SetDefault("display.backend", "auto")
	viper.SetDefault("lifecycle.watch", true)

	if err := Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "backend = 'auto'") && !strings.Contains(string(data), `backend = "auto"`) {
		t.Errorf("saved config missing display.backend:\n%s", data)
	}
}
