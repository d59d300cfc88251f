package bridge

import (
	"fmt"

	"github.com/bnema/modebridge/internal/display"
)

// Error codes sent to callers. The first two are part of the public
// contract and must not change.
const (
	CodeUnsupported  = "UNSUPPORTED"
	CodeNoActivity   = "NO_ACTIVITY"
	CodeDisplayError = "DISPLAY_ERROR"
)

// Error is the error triple returned over every channel. Details is always
// nil.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Response is the outcome of one dispatched call. Exactly one of Result,
// Err or NotImplemented is meaningful.
type Response struct {
	Result         any
	Err            *Error
	NotImplemented bool
}

// OK reports whether the call succeeded.
func (r Response) OK() bool {
	return r.Err == nil && !r.NotImplemented
}

// Success wraps a result payload.
func Success(result any) Response {
	return Response{Result: result}
}

// Failure wraps an error triple.
func Failure(code, message string) Response {
	return Response{Err: &Error{Code: code, Message: message}}
}

// NotImplemented is the unknown-method response.
func NotImplemented() Response {
	return Response{NotImplemented: true}
}

func modeRecords(modes []display.Mode) []any {
	records := make([]any, len(modes))
	for i, m := range modes {
		records[i] = m.Record()
	}
	return records
}
