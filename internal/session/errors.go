package session

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a bridge error
type ErrorType int

const (
	// ErrTypeInvalidArgument indicates a malformed request (address, port, baud, settings field)
	ErrTypeInvalidArgument ErrorType = iota
	// ErrTypeInvalidState indicates an operation not allowed in the current session state
	ErrTypeInvalidState
	// ErrTypeTransportFailure indicates the transport could not be opened or refused a send
	ErrTypeTransportFailure
	// ErrTypeDecodeAnomaly indicates an unknown or undersized frame. It is logged, never returned.
	ErrTypeDecodeAnomaly
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeInvalidArgument:
		return "Invalid Argument"
	case ErrTypeInvalidState:
		return "Invalid State"
	case ErrTypeTransportFailure:
		return "Transport Failure"
	case ErrTypeDecodeAnomaly:
		return "Decode Anomaly"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// BridgeError is returned by session and dispatcher operations
type BridgeError struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// ErrClosed is returned by operations on a session after Close.
var ErrClosed = errors.New("session closed")

// NewInvalidArgument creates an invalid argument error
func NewInvalidArgument(format string, args ...any) *BridgeError {
	return &BridgeError{Type: ErrTypeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidState creates an invalid state error
func NewInvalidState(message string) *BridgeError {
	return &BridgeError{Type: ErrTypeInvalidState, Message: message}
}

// NewTransportFailure creates a transport error
func NewTransportFailure(message string, err error) *BridgeError {
	return &BridgeError{Type: ErrTypeTransportFailure, Message: message, Err: err}
}

func isType(err error, et ErrorType) bool {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Type == et
	}
	return false
}

// IsInvalidArgument checks if an error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return isType(err, ErrTypeInvalidArgument)
}

// IsInvalidState checks if an error is an invalid state error
func IsInvalidState(err error) bool {
	return isType(err, ErrTypeInvalidState)
}

// IsTransportFailure checks if an error is a transport error
func IsTransportFailure(err error) bool {
	return isType(err, ErrTypeTransportFailure)
}
