// Package errs provides typed error handling for the erraid daemon.
//
// This package defines domain-specific error types that enable better error
// classification and mapping onto the wire protocol's RSP_ERROR codes. All
// errors support the standard errors.Is() and errors.As() functions.
package errs

import (
	"errors"
	"fmt"
)

// Kind represents the category of an error.
type Kind int

const (
	// KindNotFound indicates a task or resource was not found.
	KindNotFound Kind = iota
	// KindInvalidRequest indicates a malformed or invalid client request.
	KindInvalidRequest
	// KindPersistence indicates a task store disk failure.
	KindPersistence
	// KindScheduler indicates a plan rebuild failure.
	KindScheduler
	// KindProtocol indicates a framed-message read/write failure.
	KindProtocol
	// KindUnknownRequest indicates an unrecognised message type.
	KindUnknownRequest
	// KindEncoding indicates a JSON or base64 encode/decode failure.
	KindEncoding
	// KindInternal indicates an internal error with no better classification.
	KindInternal
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidRequest:
		return "invalid request"
	case KindPersistence:
		return "persistence error"
	case KindScheduler:
		return "scheduler error"
	case KindProtocol:
		return "protocol error"
	case KindUnknownRequest:
		return "unknown request"
	case KindEncoding:
		return "encoding error"
	case KindInternal:
		return "internal error"
	default:
		return "unknown error"
	}
}

// Error represents an error that occurred during a daemon operation.
type Error struct {
	// Op is the operation that failed (e.g., "create", "remove", "fire").
	Op string
	// TaskID is the task id involved, if any.
	TaskID uint64
	// Err is the underlying error.
	Err error
	// Kind is the error classification.
	Kind Kind
	// Detail provides additional human-readable context.
	Detail string
}

// Error returns the error message.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	if e.Op != "" {
		msg = fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches the target by Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a new Error with the given kind.
func New(kind Kind, op, detail string) *Error {
	return &Error{Op: op, Kind: kind, Detail: detail}
}

// Wrap wraps an error with operation context.
func Wrap(err error, kind Kind, op string) *Error {
	return &Error{Op: op, Err: err, Kind: kind}
}

// WrapTask wraps an error with operation and task context.
func WrapTask(err error, kind Kind, op string, taskID uint64) *Error {
	return &Error{Op: op, TaskID: taskID, Err: err, Kind: kind}
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// GetKind returns the error kind if the error is an *Error.
func GetKind(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
