// Package errors defines application-specific error types and sentinel errors.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrInsufficientCapacity = errors.New("insufficient ring buffer capacity")
	ErrBadArgument          = errors.New("bad argument")
	ErrAllocation           = errors.New("allocation failed")
	ErrResourceUnavailable  = errors.New("resource unavailable")
	ErrStartTimeout         = errors.New("flush worker did not acknowledge start")
	ErrAlreadyStarted       = errors.New("logger already started")
	ErrNotStarted           = errors.New("logger not started")
	ErrStopped              = errors.New("logger is stopped")
	ErrSinkClosed           = errors.New("sink is closed")
)

// Kind classifies lifecycle failures.
type Kind string

const (
	KindResourceUnavailable Kind = "resource-unavailable"
	KindStartTimeout        Kind = "start-timeout"
	KindAllocation          Kind = "allocation"
	KindCanceled            Kind = "canceled"
)

// sentinel maps a kind to the sentinel callers match with errors.Is.
func (k Kind) sentinel() error {
	switch k {
	case KindResourceUnavailable:
		return ErrResourceUnavailable
	case KindStartTimeout:
		return ErrStartTimeout
	case KindAllocation:
		return ErrAllocation
	default:
		return nil
	}
}

// StartError represents a failed logger start. All partial resources
// have been released by the time it is returned.
type StartError struct {
	Kind Kind
	Err  error
}

func (e *StartError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("start error: kind=%s", e.Kind)
	}
	return fmt.Sprintf("start error: kind=%s: %v", e.Kind, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *StartError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// SinkError represents a sink operation failure. Delivered counts the
// bytes of the chunk the backend accepted before the failure.
type SinkError struct {
	Backend   string
	Operation string
	Err       error
	Delivered int
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink error: backend=%s operation=%s: %v",
		e.Backend, e.Operation, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// DeliveredBytes returns how many bytes of a failed append reached
// the backend, or 0 when err does not say.
func DeliveredBytes(err error) int {
	var se *SinkError
	if errors.As(err, &se) {
		return se.Delivered
	}
	return 0
}

// KindOf returns the lifecycle kind carried by err, or "" if none.
func KindOf(err error) Kind {
	var se *StartError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
