package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeetError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("permission denied")

	// When: wrapping it as a document read error
	err := DocumentReadError("notes/q3.md", originalErr)

	// Then: the chain still reaches the original
	require.NotNil(t, err)
	assert.Equal(t, originalErr, errors.Unwrap(err))
	assert.True(t, errors.Is(err, originalErr))
	assert.Equal(t, "notes/q3.md", err.Details["document"])
}

func TestMeetError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigInvalid,
			message:  "top_k must be positive",
			expected: "[ERR_102_CONFIG_INVALID] top_k must be positive",
		},
		{
			name:     "corpus error",
			code:     ErrCodeCorpusUnavailable,
			message:  "corpus unavailable: /notes",
			expected: "[ERR_202_CORPUS_UNAVAILABLE] corpus unavailable: /notes",
		},
		{
			name:     "query error",
			code:     ErrCodeInvalidQuery,
			message:  "empty query",
			expected: "[ERR_403_INVALID_QUERY] empty query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestMeetError_Is_MatchesByCode(t *testing.T) {
	// Given: a corpus error buried under fmt wrapping
	err := fmt.Errorf("list: %w", CorpusUnavailableError("/notes", errors.New("no such file")))

	// Then: errors.Is matches by code alone
	assert.True(t, errors.Is(err, &MeetError{Code: ErrCodeCorpusUnavailable}))
	assert.False(t, errors.Is(err, &MeetError{Code: ErrCodeDocumentRead}))
}

func TestNew_DerivesClassification(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeDocumentRead, CategoryIO, SeverityWarning, false},
		{ErrCodeCorpusUnavailable, CategoryIO, SeverityWarning, true},
		{ErrCodeInvalidQuery, CategoryValidation, SeverityWarning, false},
		{ErrCodeIndexFailed, CategoryInternal, SeverityError, false},
		{ErrCodeLockHeld, CategoryInternal, SeverityFatal, false},
		{"BAD", CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestHelpers_WorkThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", CorpusUnavailableError("/x", nil))

	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsFatal(wrapped))
	assert.Equal(t, ErrCodeCorpusUnavailable, GetCode(wrapped))
	assert.Equal(t, CategoryIO, GetCategory(wrapped))

	plain := errors.New("plain")
	assert.False(t, IsRetryable(plain))
	assert.Equal(t, "", GetCode(plain))
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestFormatForCLI(t *testing.T) {
	// Given: a corpus error with a cause and a suggestion
	err := CorpusUnavailableError("/notes", errors.New("no such file or directory"))

	// When: formatting for the terminal
	out := FormatForCLI(err)

	// Then: message, cause, hint and code are all present
	assert.Contains(t, out, "Error: corpus unavailable: /notes")
	assert.Contains(t, out, "Cause: no such file or directory")
	assert.Contains(t, out, "Hint: Check that the corpus directory exists")
	assert.Contains(t, out, "Code: ERR_202_CORPUS_UNAVAILABLE")

	assert.Contains(t, FormatForCLI(errors.New("boom")), "Code: ERR_501_INTERNAL")
	assert.Equal(t, "", FormatForCLI(nil))
}

func TestLogAttrs(t *testing.T) {
	attrs := LogAttrs(DocumentReadError("a.md", errors.New("bad yaml")))

	keys := make(map[string]string)
	for _, a := range attrs {
		attr, ok := a.(slog.Attr)
		require.True(t, ok)
		keys[attr.Key] = attr.Value.String()
	}
	assert.Equal(t, ErrCodeDocumentRead, keys["error_code"])
	assert.Equal(t, "bad yaml", keys["cause"])
	assert.Equal(t, "a.md", keys["detail_document"])

	assert.Len(t, LogAttrs(errors.New("x")), 1)
	assert.Nil(t, LogAttrs(nil))
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      4 * time.Millisecond,
		Multiplier:    2,
		OnlyRetryable: true,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	// Given: a function that fails twice with a retryable error
	calls := 0
	fn := func() (int, error) {
		calls++
		if calls < 3 {
			return 0, CorpusUnavailableError("/notes", nil)
		}
		return calls, nil
	}

	// When: retrying
	got, err := RetryWithResult(context.Background(), fastRetry(), fn)

	// Then: it succeeds on the third attempt
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, got)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := RetryWithResult(context.Background(), fastRetry(), func() (string, error) {
		calls++
		return "", ConfigError("bad", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, ErrCodeConfigInvalid, GetCode(err))
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := RetryWithResult(context.Background(), fastRetry(), func() (string, error) {
		calls++
		return "", CorpusUnavailableError("/notes", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Contains(t, err.Error(), "failed after 3 retries")
	assert.True(t, IsRetryable(err))
}

func TestRetryWithResult_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := RetryWithResult(ctx, fastRetry(), func() (int, error) {
		return 42, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, got)
}
