package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/modebridge/internal/config"
	"github.com/bnema/modebridge/internal/logger"
)

var (
	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "modebridge",
		Short: "modebridge - display mode queries for embedded hosts",
		Long: `modebridge answers display mode queries for the primary display.
It reports the modes the display supports and the mode currently in effect,
over a local socket, an optional WebSocket channel, or MCP on stdio.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
	}
)

// Execute runs the root command
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: modebridge.toml in /etc/modebridge, ~/.config/modebridge or .)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func initConfig(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		config.SetConfigPath(configPath)
	}
	if err := config.Init(); err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = config.Get().Logging.LogLevel
	}
	if level != "" && !logger.SetLevel(level) {
		return fmt.Errorf("invalid log level %q", level)
	}
	return nil
}
