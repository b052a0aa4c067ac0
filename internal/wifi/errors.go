package wifi

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a connection manager error.
type ErrorType int

const (
	// ErrTypeArgument indicates invalid input (ssid or password length, missing field)
	ErrTypeArgument ErrorType = iota
	// ErrTypeTimeout indicates the state lock or a platform call did not complete in time
	ErrTypeTimeout
	// ErrTypeState indicates the operation is invalid in the current state
	ErrTypeState
	// ErrTypeNotFound indicates missing persisted configuration
	ErrTypeNotFound
	// ErrTypeHardware wraps an opaque platform failure
	ErrTypeHardware
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeArgument:
		return "Argument Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeState:
		return "State Error"
	case ErrTypeNotFound:
		return "Not Found"
	case ErrTypeHardware:
		return "Hardware Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Sentinel errors shared with collaborators.
var (
	// ErrConfigNotFound is returned by a Store when nothing is persisted.
	ErrConfigNotFound = errors.New("configuration not found")
	// ErrRadioNotStarted is returned by a Platform asked to act on a stopped radio.
	ErrRadioNotStarted = errors.New("radio not started")
	// ErrNotConnected is returned by Platform.Disconnect when there is no link
	// or attempt to drop. No LinkDown event follows it.
	ErrNotConnected = errors.New("station not connected")
)

// Error is returned by every Manager operation.
type Error struct {
	Type    ErrorType // Category of error
	Op      string    // Operation that failed, e.g. "connect_station"
	Message string    // Human-readable error message
	Code    int       // Platform error code (hardware errors only)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Op, e.Type, e.Message)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewArgumentError creates an argument validation error
func NewArgumentError(op, message string) *Error {
	return &Error{Type: ErrTypeArgument, Op: op, Message: message}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(op, message string) *Error {
	return &Error{Type: ErrTypeTimeout, Op: op, Message: message}
}

// NewStateError creates a state error
func NewStateError(op, message string) *Error {
	return &Error{Type: ErrTypeState, Op: op, Message: message}
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(op, message string, err error) *Error {
	return &Error{Type: ErrTypeNotFound, Op: op, Message: message, Err: err}
}

// NewHardwareError wraps a platform failure. If err exposes a numeric code
// through a Code() int method it is copied into the error.
func NewHardwareError(op, message string, err error) *Error {
	e := &Error{Type: ErrTypeHardware, Op: op, Message: message, Err: err}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		e.Code = coded.Code()
	}
	return e
}

func isType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// IsArgumentError checks if an error is an argument error
func IsArgumentError(err error) bool { return isType(err, ErrTypeArgument) }

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool { return isType(err, ErrTypeTimeout) }

// IsStateError checks if an error is a state error
func IsStateError(err error) bool { return isType(err, ErrTypeState) }

// IsNotFoundError checks if an error is a not-found error
func IsNotFoundError(err error) bool { return isType(err, ErrTypeNotFound) }

// IsHardwareError checks if an error is a hardware error
func IsHardwareError(err error) bool { return isType(err, ErrTypeHardware) }
