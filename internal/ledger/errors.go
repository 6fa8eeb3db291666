package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies ledger failures so callers can switch on them.
type Kind int

// Failure kinds.
const (
	KindUnexpected Kind = iota
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "unexpected"
	}
}

// Error is the error type returned by every Engine operation.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := "ledger." + e.Op
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a ledger error. Errors that are not *Error are
// reported as KindUnexpected.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnexpected
}

// IsNotFound reports whether err is a KindNotFound ledger error.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsValidation reports whether err is a KindValidation ledger error.
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

func notFoundf(op, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func invalidf(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// unexpected wraps a store failure. Errors that are already ledger errors are
// returned unchanged.
func unexpected(op string, err error) error {
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	return &Error{Kind: KindUnexpected, Op: op, Err: err}
}
