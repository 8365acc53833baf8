package domain

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrModelUnavailable  = errors.New("vecbench: embedding model unavailable")
	ErrInvalidInput      = errors.New("vecbench: invalid input")
	ErrDimensionMismatch = errors.New("vecbench: vector dimension mismatch")
	ErrIndexNotBuilt     = errors.New("vecbench: index not built")
	ErrPhaseTimeout      = errors.New("vecbench: phase timed out")
)

// Harness-initialization errors. Both are invalid-input conditions, so
// they match ErrInvalidInput as well as their own sentinel.
var (
	ErrEmptyCorpus   = fmt.Errorf("%w: empty corpus", ErrInvalidInput)
	ErrEmptyRegistry = fmt.Errorf("%w: empty model registry", ErrInvalidInput)
)

// Error wraps errors with operation context.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("vecbench.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with operation context.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
