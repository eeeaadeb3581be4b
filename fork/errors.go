package fork

import (
	"context"
	"errors"
	"fmt"
)

// Error is returned by cache lookups that could not be served.
type Error struct {
	Kind      Kind
	Key       []byte
	Attempts  int
	Retryable bool // transient failures exhausted the attempt ceiling
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fork: %v lookup %x failed after %d attempt(s): %v", e.Kind, e.Key, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable returns whether err is a fork error that may succeed if the lookup is repeated.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// IsForkError returns whether err came from the fork cache.
func IsForkError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as a transient remote failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err}
}

// IsTransient returns whether err is a transient remote failure.
// A request timeout counts as transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

var errAboveForkHeight = errors.New("block is above the fork height")
