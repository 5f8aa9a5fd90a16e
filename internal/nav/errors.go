package nav

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownSelection: the button is not a transition of the current screen.
	ErrUnknownSelection = errors.New("unknown selection")
	// ErrDataGap: a screen needs catalog data that is not there.
	ErrDataGap = errors.New("catalog data missing")
	// ErrUnauthorized: the user is not an administrator.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidAnswer: a prompt rejected the answer; the prompt is repeated.
	ErrInvalidAnswer = errors.New("invalid answer")
)

// UsageError is returned by commands for malformed arguments. Hint is shown
// to the administrator and nothing is changed.
type UsageError struct {
	Hint string
}

func (e *UsageError) Error() string { return "usage: " + e.Hint }

func Usage(format string, args ...any) error {
	return &UsageError{Hint: fmt.Sprintf(format, args...)}
}

// Gap wraps ErrDataGap with what is missing.
func Gap(what string) error {
	return fmt.Errorf("%w: %s", ErrDataGap, what)
}

// Reject is returned from Prompt.Normalize with a message for the user.
type Reject struct {
	Message string
}

func (e *Reject) Error() string { return e.Message }

func (e *Reject) Unwrap() error { return ErrInvalidAnswer }
