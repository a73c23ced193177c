// Package errors provides standardized error handling for the onboarding client.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Local validation. These stay in form state and are never returned by a submission.
	ErrCodeFieldValidationFailed ErrorCode = "FIELD_VALIDATION_FAILED"
	ErrCodeFileTooLarge          ErrorCode = "FILE_TOO_LARGE"
	ErrCodeFileTypeNotAccepted   ErrorCode = "FILE_TYPE_NOT_ACCEPTED"
	ErrCodeFileLimitExceeded     ErrorCode = "FILE_LIMIT_EXCEEDED"
	ErrCodeUnknownField          ErrorCode = "UNKNOWN_FIELD"

	// Missing prerequisites
	ErrCodeMissingRequiredDocument ErrorCode = "MISSING_REQUIRED_DOCUMENT"
	ErrCodeApplicationIDMissing    ErrorCode = "APPLICATION_ID_MISSING"

	// Upload transport
	ErrCodeUploadInitFailed     ErrorCode = "UPLOAD_INIT_FAILED"
	ErrCodeUploadTransferFailed ErrorCode = "UPLOAD_TRANSFER_FAILED"
	ErrCodeUploadConfirmFailed  ErrorCode = "UPLOAD_CONFIRM_FAILED"

	// Backend
	ErrCodeApplicationCreateFailed ErrorCode = "APPLICATION_CREATE_FAILED"
	ErrCodeBackendRequestFailed    ErrorCode = "BACKEND_REQUEST_FAILED"
	ErrCodeUnauthorized            ErrorCode = "UNAUTHORIZED"

	// Configuration and local storage
	ErrCodeRegistryInvalid          ErrorCode = "REGISTRY_INVALID"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDraftNotFound            ErrorCode = "DRAFT_NOT_FOUND"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any *StandardError carrying the same code, so callers can
// compare against a bare sentinel such as &StandardError{Code: ErrCodeUnauthorized}.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewFieldValidationError reports a field that failed its predicate.
func NewFieldValidationError(field, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFieldValidationFailed,
		Message:   message,
		Details:   fmt.Sprintf("field: %s", field),
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewFileTooLargeError reports a staged file above the size cap.
func NewFileTooLargeError(message string, size, maxSize int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileTooLarge,
		Message:   message,
		Details:   fmt.Sprintf("size: %d, maxSize: %d", size, maxSize),
		Retryable: false,
		Metadata:  map[string]interface{}{"size": size, "maxSize": maxSize},
		Timestamp: time.Now().UTC(),
	}
}

// NewFileTypeNotAcceptedError reports a staged file whose type is not on the accept list.
func NewFileTypeNotAcceptedError(message, contentType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileTypeNotAccepted,
		Message:   message,
		Details:   fmt.Sprintf("contentType: %s", contentType),
		Retryable: false,
		Metadata:  map[string]interface{}{"contentType": contentType},
		Timestamp: time.Now().UTC(),
	}
}

// NewFileLimitExceededError reports a multi-file slot that is already full.
func NewFileLimitExceededError(slot string, maxFiles int) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileLimitExceeded,
		Message:   fmt.Sprintf("Maximum %d files allowed", maxFiles),
		Details:   fmt.Sprintf("slot: %s, maxFiles: %d", slot, maxFiles),
		Retryable: false,
		Metadata:  map[string]interface{}{"slot": slot, "maxFiles": maxFiles},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownFieldError reports a key that the active schema does not declare.
func NewUnknownFieldError(section, key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownField,
		Message:   fmt.Sprintf("Unknown %s field: %s", section, key),
		Details:   fmt.Sprintf("section: %s, key: %s", section, key),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingRequiredDocumentError reports the first required document with no staged file.
func NewMissingRequiredDocumentError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingRequiredDocument,
		Message:   fmt.Sprintf("Missing required document: %s", key),
		Details:   fmt.Sprintf("documentType: %s", key),
		Retryable: false,
		Metadata:  map[string]interface{}{"documentType": key},
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationIDMissingError reports a creation response without an identifier.
func NewApplicationIDMissingError(body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationIDMissing,
		Message:   "No application_id returned from application creation",
		Details:   body,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadInitFailedError reports a failed init-persist-upload call.
func NewUploadInitFailedError(documentType string, status int, body string, cause error) *StandardError {
	return newUploadError(ErrCodeUploadInitFailed, "init-persist-upload failed", documentType, status, body, cause)
}

// NewUploadTransferFailedError reports a failed PUT to the signed storage URL.
func NewUploadTransferFailedError(documentType string, status int, body string, cause error) *StandardError {
	return newUploadError(ErrCodeUploadTransferFailed, "Storage PUT upload failed", documentType, status, body, cause)
}

// NewUploadConfirmFailedError reports a failed confirm-persist-upload call.
func NewUploadConfirmFailedError(documentType string, status int, body string, cause error) *StandardError {
	return newUploadError(ErrCodeUploadConfirmFailed, "confirm-persist-upload failed", documentType, status, body, cause)
}

func newUploadError(code ErrorCode, prefix, documentType string, status int, body string, cause error) *StandardError {
	details := body
	if cause != nil {
		details = cause.Error()
	}
	msg := fmt.Sprintf("%s (%s)", prefix, documentType)
	if status > 0 {
		msg = fmt.Sprintf("%s: %d %s", msg, status, strings.TrimSpace(body))
	} else if details != "" {
		msg = fmt.Sprintf("%s: %s", msg, details)
	}
	return &StandardError{
		Code:      code,
		Message:   msg,
		Details:   details,
		Retryable: false,
		Metadata: map[string]interface{}{
			"documentType": documentType,
			"status":       status,
			"body":         body,
		},
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewApplicationCreateFailedError wraps a failed firstSubmit call.
func NewApplicationCreateFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationCreateFailed,
		Message:   "Application creation failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewBackendRequestFailedError reports a non-2xx response from the portal API.
func NewBackendRequestFailedError(method, path string, status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendRequestFailed,
		Message:   fmt.Sprintf("%s %s failed (status %d)", method, path, status),
		Details:   body,
		Retryable: false,
		Metadata:  map[string]interface{}{"status": status, "path": path},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError reports a 401 from the portal API.
func NewUnauthorizedError(path, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Session expired or not authorized",
		Details:   body,
		Retryable: false,
		Metadata:  map[string]interface{}{"status": 401, "path": path},
		Timestamp: time.Now().UTC(),
	}
}

// NewRegistryInvalidError reports a registry override file that failed schema validation.
func NewRegistryInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRegistryInvalid,
		Message:   "Registry configuration is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDraftNotFoundError reports a missing or expired draft.
func NewDraftNotFoundError(draftID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDraftNotFound,
		Message:   "Draft not found or expired",
		Details:   fmt.Sprintf("draftId: %s", draftID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// Sentinel returns a bare *StandardError usable as an errors.Is target.
func Sentinel(code ErrorCode) *StandardError {
	return &StandardError{Code: code}
}

// HasCode reports whether err or anything it wraps is a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	return stderrors.Is(err, Sentinel(code))
}

// AsStandard extracts the first *StandardError in err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryableErrorCode checks if an error code is retryable. Only local
// storage failures qualify; nothing on the submission path is retried.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeDatabaseConnectionFailed, ErrCodeQueryExecutionFailed:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "UPLOAD"):
		return "UPLOAD"
	case strings.HasPrefix(codeStr, "FILE"):
		return "STAGING"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "DRAFT"):
		return "STORAGE"
	case strings.Contains(codeStr, "UNAUTHORIZED") || strings.Contains(codeStr, "BACKEND") || strings.Contains(codeStr, "APPLICATION"):
		return "BACKEND"
	case strings.Contains(codeStr, "MISSING") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "UNKNOWN"):
		return "VALIDATION"
	case strings.Contains(codeStr, "REGISTRY"):
		return "CONFIG"
	default:
		return "OTHER"
	}
}
