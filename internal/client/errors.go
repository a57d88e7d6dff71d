package client

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// ErrorType is the category of a failed bridge request.
type ErrorType int

const (
	// ErrTypeNetwork is a transport level failure.
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout is a request that did not finish in time.
	ErrTypeTimeout
	// ErrTypeConnectionRefused means nothing listens at the bridge address.
	ErrTypeConnectionRefused
	// ErrTypeDNS is a failed host name lookup.
	ErrTypeDNS
	// ErrTypeHTTP is a non-2xx response.
	ErrTypeHTTP
	// ErrTypeParse is a response body that could not be decoded.
	ErrTypeParse
)

func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by every Client method.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err may succeed when tried again.
func IsRetryable(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// StatusCode returns the HTTP status of err, or 0 when there is none.
func StatusCode(err error) int {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}

func classifyNetworkError(message string, err error) *Error {
	if os.IsTimeout(err) {
		return &Error{Type: ErrTypeTimeout, Message: message, Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Type: ErrTypeDNS, Message: message, Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &Error{Type: ErrTypeConnectionRefused, Message: message, Err: err, Retryable: true}
	}

	return &Error{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}
}

func newHTTPError(status int, message string) *Error {
	return &Error{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: status,
		Retryable:  status >= 500 && status != 501,
	}
}

func newParseError(message string, err error) *Error {
	return &Error{Type: ErrTypeParse, Message: message, Err: err}
}
