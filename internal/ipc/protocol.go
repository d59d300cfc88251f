package ipc

import (
	"encoding/binary"
	"fmt"
	"io"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bnema/modebridge/internal/bridge"
)

// Message field names on the wire.
const (
	fieldMethod         = "method"
	fieldArguments      = "arguments"
	fieldResult         = "result"
	fieldError          = "error"
	fieldNotImplemented = "not_implemented"
	fieldCode           = "code"
	fieldMessage        = "message"
	fieldDetails        = "details"
)

// maxMessageSize bounds a single frame; mode lists are a few KiB at most.
const maxMessageSize = 1 << 20

// NewRequest creates a call message. args must be representable as a
// protobuf Value (nil, bool, numbers, strings, []any, map[string]any).
func NewRequest(method string, args any) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldMethod:    method,
		fieldArguments: args,
	})
}

// ParseRequest extracts the method name and arguments from a call message.
func ParseRequest(msg *structpb.Struct) (string, any, error) {
	methodValue, ok := msg.GetFields()[fieldMethod]
	if !ok {
		return "", nil, fmt.Errorf("request has no method")
	}
	method, ok := methodValue.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", nil, fmt.Errorf("request method is not a string")
	}

	var args any
	if v, ok := msg.GetFields()[fieldArguments]; ok {
		args = v.AsInterface()
	}
	return method.StringValue, args, nil
}

// NewResponse encodes a dispatcher response.
func NewResponse(resp bridge.Response) (*structpb.Struct, error) {
	switch {
	case resp.NotImplemented:
		return structpb.NewStruct(map[string]any{fieldNotImplemented: true})
	case resp.Err != nil:
		return structpb.NewStruct(map[string]any{
			fieldError: map[string]any{
				fieldCode:    resp.Err.Code,
				fieldMessage: resp.Err.Message,
				fieldDetails: nil,
			},
		})
	default:
		return structpb.NewStruct(map[string]any{fieldResult: resp.Result})
	}
}

// ParseResponse decodes a response message. Numbers come back as float64,
// as with any protobuf Value.
func ParseResponse(msg *structpb.Struct) (bridge.Response, error) {
	fields := msg.GetFields()

	if v, ok := fields[fieldNotImplemented]; ok && v.GetBoolValue() {
		return bridge.NotImplemented(), nil
	}

	if v, ok := fields[fieldError]; ok {
		errFields := v.GetStructValue().GetFields()
		if errFields == nil {
			return bridge.Response{}, fmt.Errorf("malformed error response")
		}
		return bridge.Failure(
			errFields[fieldCode].GetStringValue(),
			errFields[fieldMessage].GetStringValue(),
		), nil
	}

	if v, ok := fields[fieldResult]; ok {
		return bridge.Success(v.AsInterface()), nil
	}
	return bridge.Response{}, fmt.Errorf("response has no result, error or not_implemented field")
}

// readMessage reads one length-prefixed protobuf message.
func readMessage(r io.Reader) (*structpb.Struct, error) {
	// Read message length (4 bytes, big endian)
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to read message length: %w", err)
	}
	if length > maxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read message data: %w", err)
	}

	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// writeMessage writes one length-prefixed protobuf message.
func writeMessage(w io.Writer, msg *structpb.Struct) error {
	data, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if len(data) > maxMessageSize {
		return fmt.Errorf("message too large: %d bytes", len(data))
	}

	length := uint32(len(data)) //nolint:gosec // bounded by maxMessageSize
	if err := binary.Write(w, binary.BigEndian, length); err != nil {
		return fmt.Errorf("failed to write message length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write message data: %w", err)
	}
	return nil
}
