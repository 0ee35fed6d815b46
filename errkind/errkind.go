// Package errkind provides the stable error taxonomy shared by the storage,
// ingest and collector layers.
package errkind

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error into one of the stable categories callers branch on.
type Kind int

const (
	// Connect indicates the storage handle could not be opened.
	Connect Kind = iota
	// Migrate indicates schema bootstrap failed.
	Migrate
	// Insert indicates a row could not be written.
	Insert
	// Update indicates an existing row could not be updated.
	Update
	// Delete indicates a row could not be removed.
	Delete
	// Query indicates a read failed.
	Query
	// ForeignKeyViolation is distinguished from Insert so callers can
	// downgrade it to a logged skip.
	ForeignKeyViolation
	// Validate indicates the store failed its validity gate.
	Validate
	// Parse indicates a grammar, regex, identifier or schema deserialization
	// failure. Non-fatal; the offending file is skipped.
	Parse
	// IO indicates a could-not-read or could-not-write failure for a single
	// file. Non-fatal; the walk continues.
	IO
)

func (k Kind) String() string {
	switch k {
	case Connect:
		return "connect"
	case Migrate:
		return "migrate"
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	case Query:
		return "query"
	case ForeignKeyViolation:
		return "foreign-key-violation"
	case Validate:
		return "validate"
	case Parse:
		return "parse"
	case IO:
		return "io"
	default:
		return "unknown"
	}
}

// Error wraps a cause with a stable Kind so call sites can branch on
// taxonomy rather than string-matching.
type Error struct {
	Kind  Kind
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Cause() error {
	if e.cause != nil {
		return e.cause
	}
	return e
}

// New builds a taxonomy error with a formatted message and no cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind to an existing error, preserving it as the cause
// with a stack trace recorded by github.com/pkg/errors.WithStack. Error()
// and %+v on the *Error print messages only; the stack trace is printed by
// %+v on the cause returned by Unwrap.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	if cause == nil {
		return New(kind, format, args...)
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if te, ok := err.(*Error); ok {
			e = te
			break
		}
		err = errors.Unwrap(err)
	}
	return e != nil && e.Kind == kind
}
