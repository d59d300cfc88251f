// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/bnema/modebridge/internal/logger"
)

// Config represents the application configuration
type Config struct {
	Display   DisplayConfig   `mapstructure:"display"`
	IPC       IPCConfig       `mapstructure:"ipc"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DisplayConfig selects the display service and the output to query
type DisplayConfig struct {
	Backend string `mapstructure:"backend"` // auto, randr, wlr-randr, hyprland or sway
	Target  string `mapstructure:"target"`  // X display or Wayland socket name, empty for the environment's
	Output  string `mapstructure:"output"`  // Output name, empty for the primary output
}

// IPCConfig contains local socket settings
type IPCConfig struct {
	SocketPath string `mapstructure:"socket_path"` // Empty for /tmp/modebridge-<user>.sock
}

// WebSocketConfig contains the embedded web view channel settings
type WebSocketConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Listen         string `mapstructure:"listen"`
	AllowAnyOrigin bool   `mapstructure:"allow_any_origin"`
}

// LifecycleConfig controls how the display handle follows the display server
type LifecycleConfig struct {
	Watch bool `mapstructure:"watch"` // Attach and detach as the display socket appears and disappears
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Display: DisplayConfig{
			Backend: "auto",
		},
		WebSocket: WebSocketConfig{
			Listen: "127.0.0.1:52530",
		},
		Lifecycle: LifecycleConfig{
			Watch: true,
		},
	}

	mu  sync.RWMutex
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("modebridge")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/modebridge")

		// If running with sudo, try the real user's config
		if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
			viper.AddConfigPath(fmt.Sprintf("/home/%s/.config/modebridge", sudoUser))
		} else if home := os.Getenv("HOME"); home != "" && home != "/root" {
			viper.AddConfigPath(filepath.Join(home, ".config", "modebridge"))
		}

		viper.AddConfigPath(".")
	}

	// MODEBRIDGE_DISPLAY_OUTPUT overrides display.output, and so on
	viper.SetEnvPrefix("MODEBRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("display.backend", DefaultConfig.Display.Backend)
	viper.SetDefault("display.target", DefaultConfig.Display.Target)
	viper.SetDefault("display.output", DefaultConfig.Display.Output)
	viper.SetDefault("ipc.socket_path", DefaultConfig.IPC.SocketPath)
	viper.SetDefault("websocket.enabled", DefaultConfig.WebSocket.Enabled)
	viper.SetDefault("websocket.listen", DefaultConfig.WebSocket.Listen)
	viper.SetDefault("websocket.allow_any_origin", DefaultConfig.WebSocket.AllowAnyOrigin)
	viper.SetDefault("lifecycle.watch", DefaultConfig.Lifecycle.Watch)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	loaded, err := unmarshal()
	if err != nil {
		return err
	}
	Set(loaded)
	return nil
}

func unmarshal() (*Config, error) {
	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	c.Display.Backend = strings.ToLower(strings.TrimSpace(c.Display.Backend))
	return c, nil
}

// Get returns the current configuration
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if cfg == nil {
		// Return defaults if not initialized
		d := DefaultConfig
		return &d
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	mu.Lock()
	cfg = c
	mu.Unlock()
}

// Watch reloads the config file when it changes and calls onChange with the
// previous and new configuration. It does nothing when no file was loaded.
func Watch(onChange func(prev, next *Config)) {
	if viper.ConfigFileUsed() == "" {
		logger.Debug("No config file loaded, not watching for changes")
		return
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Infof("Config file changed: %s", e.Name)
		next, err := unmarshal()
		if err != nil {
			logger.Errorf("Ignoring config change: %v", err)
			return
		}
		prev := Get()
		Set(next)
		if onChange != nil {
			onChange(prev, next)
		}
	})
	viper.WatchConfig()
}

// DisplayChanged reports whether the display target or output differ.
func DisplayChanged(prev, next *Config) bool {
	return prev.Display.Target != next.Display.Target || prev.Display.Output != next.Display.Output
}

// Save writes the current configuration to GetConfigPath
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		// If we can't create it (e.g., /etc/modebridge needs sudo), provide helpful message
		if os.IsPermission(err) && strings.Contains(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	// For servers/sudo, prefer system config
	if os.Getuid() == 0 || os.Getenv("SUDO_USER") != "" {
		return "/etc/modebridge/modebridge.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/modebridge/modebridge.toml"
	}

	return filepath.Join(home, ".config", "modebridge", "modebridge.toml")
}
