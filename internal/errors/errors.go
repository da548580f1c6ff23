package errors

import (
	stderrors "errors"
	"fmt"
)

// MeetError is the structured error type for meetprep.
// It carries a stable code plus enough context for logs and the CLI.
type MeetError struct {
	// Code is the unique error code (e.g., "ERR_202_CORPUS_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *MeetError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *MeetError) Unwrap() error {
	return e.Cause
}

// Is matches by code, so errors.Is(err, &MeetError{Code: ...}) works
// regardless of message or cause.
func (e *MeetError) Is(target error) bool {
	if t, ok := target.(*MeetError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *MeetError) WithDetail(key, value string) *MeetError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *MeetError) WithSuggestion(suggestion string) *MeetError {
	e.Suggestion = suggestion
	return e
}

// New creates a new MeetError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *MeetError {
	return &MeetError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a MeetError from an existing error.
func Wrap(code string, err error) *MeetError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError reports an invalid configuration value.
func ConfigError(message string, cause error) *MeetError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// DocumentReadError reports a single document that could not be read or
// decoded. It is never fatal to a build.
func DocumentReadError(id string, cause error) *MeetError {
	return New(ErrCodeDocumentRead, fmt.Sprintf("read document %s", id), cause).
		WithDetail("document", id)
}

// CorpusUnavailableError reports that the corpus root cannot be enumerated.
func CorpusUnavailableError(root string, cause error) *MeetError {
	return New(ErrCodeCorpusUnavailable, fmt.Sprintf("corpus unavailable: %s", root), cause).
		WithDetail("root", root).
		WithSuggestion("Check that the corpus directory exists and is readable")
}

// QueryError reports a malformed query context.
func QueryError(message string) *MeetError {
	return New(ErrCodeInvalidQuery, message, nil)
}

// IndexError reports an internal token index failure.
func IndexError(message string, cause error) *MeetError {
	return New(ErrCodeIndexFailed, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *MeetError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first MeetError in err's chain.
func As(err error) (*MeetError, bool) {
	var me *MeetError
	if stderrors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if me, ok := As(err); ok {
		return me.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if me, ok := As(err); ok {
		return me.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code, or "" if err carries none.
func GetCode(err error) string {
	if me, ok := As(err); ok {
		return me.Code
	}
	return ""
}

// GetCategory extracts the category, or "" if err carries none.
func GetCategory(err error) Category {
	if me, ok := As(err); ok {
		return me.Category
	}
	return ""
}
