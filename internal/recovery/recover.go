// Package recovery contains panic containment adapted from the
// original Flight-server panic middleware. The teacher's version
// converted a recovered panic into a gRPC status; since this module
// has no transport layer of its own, it converts into a geoerr.Error
// instead. It guards the two places this module cannot vouch for the
// callee's safety: crossing the Arrow-C bridge, and calling an
// embedder-supplied fragment.Scan during index building.
package recovery

import (
	"log/slog"
	"runtime/debug"

	"github.com/hugr-lab/geoarrow-go/geoerr"
)

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// RecoverToError wraps a function call with panic recovery. If fn
// panics, the panic is logged with a stack trace and converted to a
// geoerr.Error of kind IO.
func RecoverToError(operation string, fn func() error) (err error) {
	return RecoverToErrorWithLogger(nil, operation, fn)
}

// RecoverToErrorWithLogger is RecoverToError with an explicit logger;
// a nil logger falls back to slog.Default().
func RecoverToErrorWithLogger(l *slog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			logger(l).Error("panic recovered", "operation", operation, "panic", r, "stack", string(stack))
			err = geoerr.New(geoerr.IO, "%s panicked: %v", operation, r)
		}
	}()
	return fn()
}

// RecoverToValue wraps a function that returns a value and error. If
// fn panics, returns the zero value and a geoerr.Error.
func RecoverToValue[T any](operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			logger(nil).Error("panic recovered", "operation", operation, "panic", r, "stack", string(stack))
			var zero T
			result = zero
			err = geoerr.New(geoerr.IO, "%s panicked: %v", operation, r)
		}
	}()
	return fn()
}
