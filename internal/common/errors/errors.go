// Package errors provides the standardized error taxonomy shared by the
// pipeline, the HTTP API and the workflow workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInputInvalid           ErrorCode = "INPUT_INVALID"
	ErrCodeUnsupportedLanguage    ErrorCode = "UNSUPPORTED_LANGUAGE"
	ErrCodeDataUnavailable        ErrorCode = "DATA_UNAVAILABLE"
	ErrCodeRecognitionUnavailable ErrorCode = "RECOGNITION_UNAVAILABLE"
	ErrCodeTransientProcessing    ErrorCode = "TRANSIENT_PROCESSING"
	ErrCodeStageTimeout           ErrorCode = "STAGE_TIMEOUT"

	ErrCodeRunNotFound      ErrorCode = "RUN_NOT_FOUND"
	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeAuditIndexFailed ErrorCode = "AUDIT_INDEX_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

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
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns the error with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInputInvalidError reports malformed or missing required fields. Never retried.
func NewInputInvalidError(details string) *StandardError {
	return newError(ErrCodeInputInvalid, "Invalid input", details, false, nil)
}

// NewUnsupportedLanguageError reports a language outside the supported set.
func NewUnsupportedLanguageError(lang string) *StandardError {
	return newError(ErrCodeUnsupportedLanguage, "Unsupported language", fmt.Sprintf("language: %q", lang), false, nil)
}

// NewDataUnavailableError is terminal for the current run but not for the process.
func NewDataUnavailableError(details string, cause error) *StandardError {
	if cause != nil && details == "" {
		details = cause.Error()
	}
	return newError(ErrCodeDataUnavailable, "Geo data unavailable", details, false, cause)
}

// NewRecognitionUnavailableError reports that no speech capability is present.
func NewRecognitionUnavailableError(details string) *StandardError {
	return newError(ErrCodeRecognitionUnavailable, "Speech recognition unavailable", details, false, nil)
}

// NewTransientProcessingError aborts the current run; the caller may re-invoke the pipeline.
func NewTransientProcessingError(stage string, cause error) *StandardError {
	details := fmt.Sprintf("stage: %s", stage)
	if cause != nil {
		details = fmt.Sprintf("stage: %s, error: %s", stage, cause.Error())
	}
	return newError(ErrCodeTransientProcessing, "Processing interrupted", details, true, cause)
}

// NewStageTimeoutError reports a stage that exceeded its deadline.
func NewStageTimeoutError(stage string, timeout time.Duration) *StandardError {
	return newError(ErrCodeStageTimeout, "Stage timed out", fmt.Sprintf("stage: %s, timeout: %s", stage, timeout), true, nil)
}

func NewRunNotFoundError(runID string) *StandardError {
	return newError(ErrCodeRunNotFound, "Run not found", fmt.Sprintf("runId: %s", runID), false, nil)
}

func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Run store unavailable", err.Error(), true, err)
}

func NewAuditIndexFailedError(err error) *StandardError {
	return newError(ErrCodeAuditIndexFailed, "Audit indexing failed", err.Error(), true, err)
}

func NewNotificationSendFailedError(err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification send failed", err.Error(), true, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInputInvalid:           "INPUT_INVALID",
	ErrCodeUnsupportedLanguage:    "UNSUPPORTED_LANGUAGE",
	ErrCodeDataUnavailable:        "DATA_UNAVAILABLE",
	ErrCodeRecognitionUnavailable: "RECOGNITION_UNAVAILABLE",
	ErrCodeTransientProcessing:    "TRANSIENT_PROCESSING",
	ErrCodeStageTimeout:           "STAGE_TIMEOUT",
	ErrCodeRunNotFound:            "RUN_NOT_FOUND",
	ErrCodeCacheUnavailable:       "CACHE_UNAVAILABLE",
	ErrCodeAuditIndexFailed:       "AUDIT_INDEX_FAILED",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended workflow retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCacheUnavailable,
		ErrCodeAuditIndexFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeTransientProcessing,
		ErrCodeStageTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError finds the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize always returns a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// CodeOf returns the error code carried by err, or "" when there is none.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Code
	}
	return ""
}

func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// HTTPStatus maps an error code to the status returned by the API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInputInvalid, ErrCodeUnsupportedLanguage:
		return http.StatusBadRequest
	case ErrCodeRunNotFound:
		return http.StatusNotFound
	case ErrCodeDataUnavailable, ErrCodeRecognitionUnavailable, ErrCodeCacheUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeStageTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeTransientProcessing:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INPUT") || strings.Contains(codeStr, "LANGUAGE"):
		return "VALIDATION"
	case strings.Contains(codeStr, "DATA"):
		return "DATA"
	case strings.Contains(codeStr, "RECOGNITION"):
		return "SPEECH"
	case strings.Contains(codeStr, "TRANSIENT") || strings.Contains(codeStr, "TIMEOUT"):
		return "PIPELINE"
	case strings.Contains(codeStr, "CACHE") || strings.Contains(codeStr, "RUN"):
		return "STORAGE"
	case strings.Contains(codeStr, "AUDIT"):
		return "AUDIT"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
