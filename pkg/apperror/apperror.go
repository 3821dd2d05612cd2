package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindInvalidArgument        Kind = "invalid_argument"
	KindConflict               Kind = "conflict"
	KindInsufficientStock      Kind = "insufficient_stock"
	KindInsufficientPoints     Kind = "insufficient_points"
	KindForbidden              Kind = "forbidden"
	KindUnauthorized           Kind = "unauthorized"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindInternal               Kind = "internal_error"
)

// Error is a sentinel carrying a kind and a stable machine code.
type Error struct {
	Kind Kind
	Code string
}

func New(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func (e *Error) Error() string {
	return e.Code
}

type detailed struct {
	err    *Error
	detail string
}

func (d *detailed) Error() string {
	if d.detail == "" {
		return d.err.Error()
	}
	return fmt.Sprintf("%s: %s", d.err.Error(), d.detail)
}

func (d *detailed) Unwrap() error {
	return d.err
}

// Wrapf attaches a human readable detail to a sentinel. errors.Is on the
// result still matches the sentinel.
func Wrapf(err *Error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &detailed{err: err, detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// CodeOf returns the machine code of the first *Error in err's chain.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
