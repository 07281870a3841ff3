package rhi

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error categories. Every error returned by this package or a backend wraps
// exactly one of these, so callers can branch with errors.Is.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidState        = errors.New("invalid state")
	ErrBackendFailure      = errors.New("backend failure")
	ErrTimeout             = errors.New("timeout")
	ErrPresentationStale   = errors.New("presentation stale")
	ErrDeviceLost          = errors.New("device lost")
	ErrNotImplemented      = errors.New("not implemented")
	ErrBackendNotAvailable = errors.New("backend not available")
	ErrOutOfPoolMemory     = errors.New("out of pool memory")
)

// InvalidArgumentf reports a violated precondition on a call's arguments.
func InvalidArgumentf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// InvalidStatef reports a call made on an object in the wrong state.
func InvalidStatef(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidState, format, args...)
}

// NotImplementedf reports a feature the active backend does not provide.
func NotImplementedf(format string, args ...any) error {
	return errors.Wrapf(ErrNotImplemented, format, args...)
}

// BackendError carries the native status code of a failed backend call.
type BackendError struct {
	Op     string
	Code   int
	Status string

	// Category is one of ErrBackendFailure, ErrDeviceLost, ErrTimeout or
	// ErrPresentationStale. Nil means ErrBackendFailure.
	Category error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Status, e.Code)
}

func (e *BackendError) Unwrap() error {
	if e.Category == nil {
		return ErrBackendFailure
	}
	return e.Category
}

// IsRecoverable returns true for errors a caller can recover from without
// tearing the device down: timeouts and stale presentation.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrPresentationStale)
}
