// Package runtimeerr is the error taxonomy of the runtime: every error
// the core returns carries a Kind, the step that failed, and (for
// syscalls) the captured errno, so the CLI can map it to an exit code
// and a caller can errors.Is/As through it without string matching.
package runtimeerr

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Kind is the coarse category of a runtime error.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindSyscallFailed     Kind = "syscall_failed"
	KindNotFound          Kind = "not_found"
	KindStateConflict     Kind = "state_conflict"
	KindPermissionDenied  Kind = "permission_denied"
	KindResourceExhausted Kind = "resource_exhausted"
)

// Error is the typed error value returned across the core's public
// operations.
type Error struct {
	Kind  Kind
	Step  string
	Errno unix.Errno // zero if not a syscall failure
	Err   error
}

func (e *Error) Error() string {
	if e.Errno != 0 {
		return fmt.Sprintf("%s: %s: %v (errno %d)", e.Kind, e.Step, e.Err, e.Errno)
	}
	if e.Step != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err as Kind, annotated with the step that failed.
func New(kind Kind, step string, err error) *Error {
	return &Error{Kind: kind, Step: step, Err: err}
}

// Syscall wraps a failed syscall, capturing errno when present.
func Syscall(step string, err error) *Error {
	e := &Error{Kind: KindSyscallFailed, Step: step, Err: err}
	var errno unix.Errno
	if errors.As(err, &errno) {
		e.Errno = errno
	}
	return e
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
