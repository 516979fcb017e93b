// Package apperr defines the error taxonomy shared by the engines and the command layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidContext   = errors.New("invalid context")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrNotFound         = errors.New("not found")
	ErrOutOfRange       = errors.New("out of range")
	ErrPersistence      = errors.New("persistence failure")
)

// Error pairs a taxonomy kind with the text shown to the chat user.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// New returns an *Error of the given kind with a formatted user message.
func New(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Code returns a short machine-readable code for err, or "" when err
// carries no taxonomy kind.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidContext):
		return "invalid_context"
	case errors.Is(err, ErrInvalidArguments):
		return "invalid_arguments"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	}
	return ""
}
