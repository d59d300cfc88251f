package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/modebridge/internal/bridge"
	"github.com/bnema/modebridge/internal/config"
	"github.com/bnema/modebridge/internal/ipc"
	"github.com/bnema/modebridge/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the status of a running modebridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := ipc.NewClient(config.Get().IPC.SocketPath)
		if err != nil {
			return fmt.Errorf("failed to create IPC client: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), renderStatus(client))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// caller is the part of ipc.Client the status view needs.
type caller interface {
	Call(method string, args any) (bridge.Response, error)
}

func renderStatus(client caller) string {
	var output strings.Builder

	platform, err := client.Call(bridge.MethodGetPlatformVersion, nil)
	if err != nil {
		output.WriteString(ui.ErrorStyle.Render(ui.IconInactive + " Not running"))
		output.WriteString("\n")
		return output.String()
	}

	output.WriteString(ui.SuccessStyle.Render(ui.IconActive + " Running"))
	output.WriteString("\n")
	if platform.OK() {
		output.WriteString(ui.SubtleStyle.Render(fmt.Sprintf("  platform: %v", platform.Result)))
		output.WriteString("\n")
	}

	active, err := client.Call(bridge.MethodGetActiveMode, nil)
	switch {
	case err != nil:
		output.WriteString(ui.FormatError("ERROR", err.Error()))
	case active.Err != nil:
		output.WriteString(ui.FormatError(active.Err.Code, active.Err.Message))
	case active.OK():
		rec, _ := active.Result.(map[string]any)
		output.WriteString(fmt.Sprintf("  active mode: %vx%v @ %v Hz (id %v)",
			rec["width"], rec["height"], rec["refreshRate"], rec["modeId"]))
	}
	output.WriteString("\n")
	return output.String()
}
