package errors

import (
	stderr "errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name              string
		err               error
		expectedCategory  ErrorCategory
		expectedRetryable bool
	}{
		{
			name:              "run failed",
			err:               WrapRunFailed("devicesim", stderr.New("boom")),
			expectedCategory:  CategoryRun,
			expectedRetryable: true,
		},
		{
			name:              "run timed out",
			err:               ErrRunTimedOut,
			expectedCategory:  CategoryRun,
			expectedRetryable: true,
		},
		{
			name:              "retries exhausted",
			err:               ErrRetriesExhausted,
			expectedCategory:  CategoryRun,
			expectedRetryable: false,
		},
		{
			name:              "cancel failed",
			err:               WrapCancelFailed("lockscreen", stderr.New("boom")),
			expectedCategory:  CategoryCancel,
			expectedRetryable: false,
		},
		{
			name:              "cleanup failed",
			err:               WrapCleanupFailed("assetserver", stderr.New("boom")),
			expectedCategory:  CategoryCleanup,
			expectedRetryable: false,
		},
		{
			name:              "aborted",
			err:               NewAborted("user"),
			expectedCategory:  CategoryAbort,
			expectedRetryable: false,
		},
		{
			name:              "invalid transition",
			err:               ErrInvalidTransition,
			expectedCategory:  CategoryTransition,
			expectedRetryable: false,
		},
		{
			name:              "unknown",
			err:               stderr.New("mystery"),
			expectedCategory:  CategoryUnknown,
			expectedRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := Classify(tt.err)
			if classified.Category != tt.expectedCategory {
				t.Errorf("Category = %v, want %v", classified.Category, tt.expectedCategory)
			}
			if classified.Retryable != tt.expectedRetryable {
				t.Errorf("Retryable = %v, want %v", classified.Retryable, tt.expectedRetryable)
			}
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	if Classify(nil) != nil {
		t.Error("Classify(nil) should return nil")
	}
}

func TestClassify_AlreadyClassified(t *testing.T) {
	original := Classify(stderr.New("boom"))
	reclassified := Classify(original)

	if reclassified != original {
		t.Error("Classify should return the same *ClassifiedError when already classified")
	}
}
