package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/modebridge/internal/config"
	"github.com/bnema/modebridge/internal/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage modebridge configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Config file: %s\n\n", config.GetConfigPath())

		fmt.Fprintln(out, "[display]")
		fmt.Fprintf(out, "  backend: %s\n", cfg.Display.Backend)
		fmt.Fprintf(out, "  target: %s\n", orDefault(cfg.Display.Target, "(environment)"))
		fmt.Fprintf(out, "  output: %s\n", orDefault(cfg.Display.Output, "(primary)"))

		fmt.Fprintln(out, "\n[ipc]")
		fmt.Fprintf(out, "  socket_path: %s\n", orDefault(cfg.IPC.SocketPath, "(default)"))

		fmt.Fprintln(out, "\n[websocket]")
		fmt.Fprintf(out, "  enabled: %v\n", cfg.WebSocket.Enabled)
		fmt.Fprintf(out, "  listen: %s\n", cfg.WebSocket.Listen)
		fmt.Fprintf(out, "  allow_any_origin: %v\n", cfg.WebSocket.AllowAnyOrigin)

		fmt.Fprintln(out, "\n[lifecycle]")
		fmt.Fprintf(out, "  watch: %v\n", cfg.Lifecycle.Watch)

		fmt.Fprintln(out, "\n[logging]")
		fmt.Fprintf(out, "  log_level: %s\n", orDefault(cfg.Logging.LogLevel, "(LOG_LEVEL)"))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetConfigPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Infof("Configuration file already exists at: %s", configPath)
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		return nil
	},
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
