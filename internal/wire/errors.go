package wire

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrMalformed   = errors.New("malformed frame")
	ErrUnknownType = errors.New("unknown frame type")
)

// ErrorKind classifies a decode failure.
type ErrorKind int

const (
	Malformed ErrorKind = iota + 1
	UnknownType
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case UnknownType:
		return "unknown_type"
	default:
		return "unknown"
	}
}

// DecodeError reports a frame that could not be turned into an Event.
// It is never fatal to the connection.
type DecodeError struct {
	Kind   ErrorKind
	Type   string // Frame discriminant, if one was readable
	Reason string
	Err    error // Underlying parse error, if any
}

func (e *DecodeError) Error() string {
	msg := e.Kind.String()
	if e.Type != "" {
		msg += " frame type=" + e.Type
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches ErrMalformed and ErrUnknownType by kind.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrMalformed:
		return e.Kind == Malformed
	case ErrUnknownType:
		return e.Kind == UnknownType
	}
	return false
}

func malformed(frameType string, err error, format string, args ...any) *DecodeError {
	return &DecodeError{
		Kind:   Malformed,
		Type:   frameType,
		Reason: fmt.Sprintf(format, args...),
		Err:    err,
	}
}
