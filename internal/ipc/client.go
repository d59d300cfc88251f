package ipc

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/bnema/modebridge/internal/bridge"
	"github.com/bnema/modebridge/internal/logger"
)

// ErrNotRunning is returned when nothing listens on the socket.
var ErrNotRunning = errors.New("modebridge is not running")

// Client sends calls to a running server. Each call uses its own
// connection.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for socketPath ("" = DefaultSocketPath).
func NewClient(socketPath string) (*Client, error) {
	if socketPath == "" {
		var err error
		socketPath, err = DefaultSocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get socket path: %w", err)
		}
	}

	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}, nil
}

// SetTimeout changes the per-call deadline.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// Call invokes method on the server. A returned error means the call never
// completed; error responses are reported in the Response.
func (c *Client) Call(method string, args any) (bridge.Response, error) {
	request, err := NewRequest(method, args)
	if err != nil {
		return bridge.Response{}, fmt.Errorf("failed to create request: %w", err)
	}

	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		if isNotRunning(err) {
			return bridge.Response{}, ErrNotRunning
		}
		return bridge.Response{}, fmt.Errorf("failed to connect to modebridge: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Errorf("Failed to close IPC connection: %v", err)
		}
	}()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		logger.Warnf("Failed to set connection deadline: %v", err)
	}

	if err := writeMessage(conn, request); err != nil {
		return bridge.Response{}, fmt.Errorf("failed to send request: %w", err)
	}

	msg, err := readMessage(conn)
	if err != nil {
		return bridge.Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	return ParseResponse(msg)
}

// Ping reports whether a server answers on the socket.
func (c *Client) Ping() bool {
	resp, err := c.Call(bridge.MethodGetPlatformVersion, nil)
	return err == nil && resp.OK()
}

func isNotRunning(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}
