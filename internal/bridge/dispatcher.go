// Package bridge dispatches named method calls to the display adapter and
// maps the outcome to the response contract shared by all channels.
package bridge

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bnema/modebridge/internal/display"
	"github.com/bnema/modebridge/internal/logger"
)

// Method names.
const (
	MethodGetPlatformVersion = "getPlatformVersion"
	MethodGetSupportedModes  = "getSupportedModes"
	MethodGetActiveMode      = "getActiveMode"
)

// Adapter is the display query surface the dispatcher needs.
type Adapter interface {
	ListSupportedModes(h *display.Handle) ([]display.Mode, error)
	GetActiveMode(h *display.Handle) (display.Mode, error)
}

type handlerFunc func(args any) Response

// Dispatcher maps method names to handlers. Calls are serialized: each runs
// to completion before the next starts.
type Dispatcher struct {
	adapter  Adapter
	version  func() string
	handlers map[string]handlerFunc

	callMu sync.Mutex
	handle atomic.Pointer[display.Handle]
}

// New creates a dispatcher. version supplies the getPlatformVersion result.
func New(adapter Adapter, version func() string) *Dispatcher {
	d := &Dispatcher{
		adapter: adapter,
		version: version,
	}
	d.handlers = map[string]handlerFunc{
		MethodGetPlatformVersion: d.getPlatformVersion,
		MethodGetSupportedModes:  d.getSupportedModes,
		MethodGetActiveMode:      d.getActiveMode,
	}
	return d
}

// SetHandle records the current display handle (nil when detached) and
// returns the previous one. The dispatcher never owns or releases handles.
func (d *Dispatcher) SetHandle(h *display.Handle) *display.Handle {
	prev := d.handle.Swap(h)
	logger.Debug("display handle changed", "attached", h != nil)
	return prev
}

// CurrentHandle returns the handle calls will use.
func (d *Dispatcher) CurrentHandle() *display.Handle {
	return d.handle.Load()
}

// Methods lists the supported method names, sorted.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle runs one call. Arguments are accepted and ignored by every current
// method. It never panics; unknown methods get the not-implemented response.
func (d *Dispatcher) Handle(method string, args any) (resp Response) {
	handler, ok := d.handlers[method]
	if !ok {
		logger.Debug("unknown method", "method", method)
		return NotImplemented()
	}

	d.callMu.Lock()
	defer d.callMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panicked", "method", method, "panic", r)
			resp = Failure(CodeDisplayError, fmt.Sprintf("internal error: %v", r))
		}
	}()

	resp = handler(args)
	if resp.Err != nil {
		logger.Debug("call failed", "method", method, "code", resp.Err.Code, "message", resp.Err.Message)
	} else {
		logger.Debug("call succeeded", "method", method)
	}
	return resp
}

func (d *Dispatcher) getPlatformVersion(any) Response {
	return Success(d.version())
}

func (d *Dispatcher) getSupportedModes(any) Response {
	modes, err := d.adapter.ListSupportedModes(d.handle.Load())
	if err != nil {
		return failureFor(err)
	}
	return Success(modeRecords(modes))
}

func (d *Dispatcher) getActiveMode(any) Response {
	mode, err := d.adapter.GetActiveMode(d.handle.Load())
	if err != nil {
		return failureFor(err)
	}
	return Success(mode.Record())
}

func failureFor(err error) Response {
	switch {
	case errors.Is(err, display.ErrCapabilityUnsupported):
		return Failure(CodeUnsupported, err.Error())
	case errors.Is(err, display.ErrHandleUnavailable):
		return Failure(CodeNoActivity, display.ErrHandleUnavailable.Error())
	default:
		return Failure(CodeDisplayError, err.Error())
	}
}
