// Package geoerr defines the error taxonomy shared by every component of
// the geometry I/O core: parsing, validation, argument, type, overflow and
// bridge errors all carry a Kind so callers can branch with Is or
// AsKind instead of parsing messages.
package geoerr

import "fmt"

// Kind classifies a failure the way the core's components report them.
// Kinds are plain string values, so a single Error type covers every
// kind and Is(err, kind) compares them directly.
type Kind string

const (
	// Parse indicates malformed WKB, WKT, or extension metadata.
	Parse Kind = "parse"
	// Validation indicates a structural invariant breach in an array
	// (bad offsets, short buffers, unbalanced visitor events).
	Validation Kind = "validation"
	// IllegalArgument indicates an unknown enum value, bad kernel name,
	// or an input type a kernel was not built to accept.
	IllegalArgument Kind = "illegal_argument"
	// Type indicates an operation incompatible with a descriptor's
	// edge type or geometry type (e.g. box() on spherical edges).
	Type Kind = "type"
	// Overflow indicates offsets exceeded the int32 range.
	Overflow Kind = "overflow"
	// IO indicates a failure at an Arrow-C bridge boundary.
	IO Kind = "io"
)

// Error is the concrete error value returned (directly or wrapped) by
// every exported function in this module. It carries a Kind so callers
// can check Is(err, geoerr.Parse) or switch on AsKind(err).
type Error struct {
	Kind Kind
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("geoarrow: %s: %s: %v", e.Kind, e.Msg, e.err)
	}
	return fmt.Sprintf("geoarrow: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.err }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a lower-level cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), err: cause}
}

// AsKind reports the Kind of err if it (or something it wraps) is a
// *Error, and whether one was found.
func AsKind(err error) (Kind, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := AsKind(err)
	return ok && k == kind
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
