package platform

import (
	"errors"
	"fmt"
)

// ErrorKind classifies platform failures so callers can decide what to ignore.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	// KindUnreachable means the recipient does not accept messages from the bot (DMs closed, no shared guild).
	KindUnreachable
	KindNotFound
	KindForbidden
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	default:
		return "transient"
	}
}

// Error is returned by Client implementations.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("platform %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with an operation name and kind.
func NewError(op string, kind ErrorKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the kind of a platform error; unknown errors count as transient.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransient
}

// IsUnreachable reports whether err means the recipient cannot be messaged.
func IsUnreachable(err error) bool {
	return err != nil && KindOf(err) == KindUnreachable
}

// IsNotFound reports whether the target no longer exists.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
