package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/modebridge/internal/bridge"
	"github.com/bnema/modebridge/internal/config"
	"github.com/bnema/modebridge/internal/display"
	"github.com/bnema/modebridge/internal/platform"
	"github.com/bnema/modebridge/internal/ui"
)

// ModesInfo is the --json output of the modes command
type ModesInfo struct {
	Platform string        `json:"platform"`
	Backend  string        `json:"backend"`
	Modes    any           `json:"modes,omitempty"`
	Active   any           `json:"active,omitempty"`
	Error    *bridge.Error `json:"error,omitempty"`
}

var (
	jsonOutput bool
)

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "Show the display modes of the primary display",
	Long:  `Attach once, list the supported display modes and mark the active one.`,
	RunE:  runModes,
}

func init() {
	modesCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.AddCommand(modesCmd)
}

func runModes(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	c, err := newCore(cfg)
	if err != nil {
		if jsonOutput {
			return writeModesFailure(cmd, err)
		}
		return err
	}
	defer c.close()

	// NO_ACTIVITY below reports a failed attach
	_ = c.binder.Attach(cfg.Display.Target)

	if jsonOutput {
		return writeModesJSON(cmd, c)
	}

	h := c.dispatcher.CurrentHandle()
	modes, err := c.adapter.ListSupportedModes(h)
	if err != nil {
		return describeQueryError(err)
	}
	active, err := c.adapter.GetActiveMode(h)
	if err != nil {
		return describeQueryError(err)
	}

	title := c.adapter.Platform()
	if h != nil && h.Output() != "" {
		title = fmt.Sprintf("%s (%s)", title, h.Output())
	}
	fmt.Fprint(cmd.OutOrStdout(), ui.RenderModes(title, modes, active))
	return nil
}

func writeModesJSON(cmd *cobra.Command, c *core) error {
	info := ModesInfo{
		Platform: c.dispatcher.Handle(bridge.MethodGetPlatformVersion, nil).Result.(string),
		Backend:  c.adapter.Platform(),
	}

	modes := c.dispatcher.Handle(bridge.MethodGetSupportedModes, nil)
	active := c.dispatcher.Handle(bridge.MethodGetActiveMode, nil)
	switch {
	case modes.Err != nil:
		info.Error = modes.Err
	case active.Err != nil:
		info.Error = active.Err
	default:
		info.Modes = modes.Result
		info.Active = active.Result
	}

	return encodeModesInfo(cmd, info)
}

// writeModesFailure reports a backend that could not be opened
func writeModesFailure(cmd *cobra.Command, err error) error {
	info := ModesInfo{
		Platform: platform.Version(),
		Error:    &bridge.Error{Code: bridge.CodeDisplayError, Message: err.Error()},
	}
	if encErr := encodeModesInfo(cmd, info); encErr != nil {
		return encErr
	}
	return err
}

func encodeModesInfo(cmd *cobra.Command, info ModesInfo) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		return err
	}
	if info.Error != nil {
		return info.Error
	}
	return nil
}

func describeQueryError(err error) error {
	var capErr *display.CapabilityError
	switch {
	case errors.As(err, &capErr):
		return fmt.Errorf("%s: %w", bridge.CodeUnsupported, err)
	case errors.Is(err, display.ErrHandleUnavailable):
		return fmt.Errorf("%s: %w", bridge.CodeNoActivity, err)
	default:
		return err
	}
}
