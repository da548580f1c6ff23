// Package errors provides structured error handling for meetprep.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Corpus and document I/O errors
//   - 4XX: Query validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates corpus and document read errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates query validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid = "ERR_102_CONFIG_INVALID"

	// Corpus errors (200-299)
	ErrCodeDocumentRead      = "ERR_201_DOCUMENT_READ"
	ErrCodeCorpusUnavailable = "ERR_202_CORPUS_UNAVAILABLE"
	ErrCodeDocumentTooLarge  = "ERR_203_DOCUMENT_TOO_LARGE"

	// Validation errors (400-499)
	ErrCodeInvalidQuery = "ERR_403_INVALID_QUERY"

	// Internal errors (500-599)
	ErrCodeInternal    = "ERR_501_INTERNAL"
	ErrCodeIndexFailed = "ERR_505_INDEX_FAILED"
	ErrCodeLockHeld    = "ERR_506_LOCK_HELD"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "102" from "ERR_102_CONFIG_INVALID"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeDocumentRead, ErrCodeDocumentTooLarge, ErrCodeInvalidQuery:
		return SeverityWarning
	case ErrCodeLockHeld:
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// An unreachable corpus root often comes back (network mounts, sync clients).
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeCorpusUnavailable:
		return true
	default:
		return false
	}
}
