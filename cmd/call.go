package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/modebridge/internal/bridge"
	"github.com/bnema/modebridge/internal/config"
	"github.com/bnema/modebridge/internal/ipc"
)

var (
	callSocket  string
	callTimeout time.Duration
)

var callCmd = &cobra.Command{
	Use:   "call <method> [json-arguments]",
	Short: "Send one call to a running modebridge",
	Long: `Send one named-method call to a running 'modebridge serve' and print the
result as JSON. Exits non-zero when the call fails.`,
	Example: `  modebridge call getSupportedModes
  modebridge call getActiveMode '{}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callSocket, "socket", "", "Socket path (default: ipc.socket_path or /tmp/modebridge-<user>.sock)")
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 5*time.Second, "Call timeout")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	arguments, err := parseArguments(args[1:])
	if err != nil {
		return err
	}

	socketPath := callSocket
	if socketPath == "" {
		socketPath = config.Get().IPC.SocketPath
	}

	client, err := ipc.NewClient(socketPath)
	if err != nil {
		return err
	}
	client.SetTimeout(callTimeout)

	resp, err := client.Call(args[0], arguments)
	if err != nil {
		if errors.Is(err, ipc.ErrNotRunning) {
			return fmt.Errorf("%w (start it with 'modebridge serve')", err)
		}
		return err
	}
	return writeResponse(cmd.OutOrStdout(), args[0], resp)
}

func parseArguments(args []string) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	var arguments any
	if err := json.Unmarshal([]byte(args[0]), &arguments); err != nil {
		return nil, fmt.Errorf("arguments must be JSON: %w", err)
	}
	return arguments, nil
}

// writeResponse prints the result, or the error triple, as JSON. Failed
// calls return an error so the process exits non-zero.
func writeResponse(w io.Writer, method string, resp bridge.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	switch {
	case resp.NotImplemented:
		return fmt.Errorf("method %q not implemented", method)
	case resp.Err != nil:
		if err := enc.Encode(map[string]any{"error": resp.Err}); err != nil {
			return err
		}
		return resp.Err
	default:
		return enc.Encode(resp.Result)
	}
}
