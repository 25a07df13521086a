package errors

import (
	"errors"
)

// ErrorCategory groups a Job error by which phase produced it.
type ErrorCategory string

const (
	CategoryRun        ErrorCategory = "run"
	CategoryCancel     ErrorCategory = "cancel"
	CategoryCleanup    ErrorCategory = "cleanup"
	CategoryAbort      ErrorCategory = "abort"
	CategoryTransition ErrorCategory = "transition"
	CategoryUnknown    ErrorCategory = "unknown"
)

// ClassifiedError attaches a category and a retryability verdict to an
// underlying engine error, so callers (the jobctl CLI, in particular) can
// decide an exit code or a retry policy without type-switching themselves.
type ClassifiedError struct {
	Err       error
	Category  ErrorCategory
	Retryable bool
}

func (e *ClassifiedError) Error() string { return e.Err.Error() }
func (e *ClassifiedError) Unwrap() error { return e.Err }

// Classify maps an engine error onto a category. Run failures and
// timeouts are retryable (the Job's own retry budget may still recover);
// retries-exhausted, aborts, and invalid transitions are not.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case IsRetriesExhausted(err):
		return &ClassifiedError{Err: err, Category: CategoryRun, Retryable: false}
	case errors.Is(err, ErrRunTimedOut), IsRunFailed(err):
		return &ClassifiedError{Err: err, Category: CategoryRun, Retryable: true}
	case IsCancelFailed(err):
		return &ClassifiedError{Err: err, Category: CategoryCancel, Retryable: false}
	case IsCleanupFailed(err):
		return &ClassifiedError{Err: err, Category: CategoryCleanup, Retryable: false}
	case IsAborted(err):
		return &ClassifiedError{Err: err, Category: CategoryAbort, Retryable: false}
	case IsInvalidTransition(err):
		return &ClassifiedError{Err: err, Category: CategoryTransition, Retryable: false}
	default:
		return &ClassifiedError{Err: err, Category: CategoryUnknown, Retryable: false}
	}
}
