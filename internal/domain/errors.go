package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an operation failure so the facade can pick a
// transport-specific status without parsing messages.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindConflict          ErrorKind = "conflict"
	KindIllegalTransition ErrorKind = "illegal_transition"
	KindRemoteRejection   ErrorKind = "remote_rejection"
	KindConnectivity      ErrorKind = "connectivity"
	KindNotification      ErrorKind = "notification"
)

// Error carries an ErrorKind alongside the message. All kinds except
// KindNotification abort the current operation; notification failures are
// swallowed at the notifier boundary.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and message to an underlying error.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the ErrorKind from err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
