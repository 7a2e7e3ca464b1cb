// Package errors provides standardized error handling for the prediction pipeline and chat surface.
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

// Validation errors (payload normalisation, request envelopes)
const (
	ErrCodeMissingFields  ErrorCode = "MISSING_FIELDS"
	ErrCodeInvalidFields  ErrorCode = "INVALID_FIELDS"
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
)

// Encoding errors
const (
	ErrCodeEncoderNotConfigured ErrorCode = "ENCODER_NOT_CONFIGURED"
	ErrCodeUnknownCategory      ErrorCode = "UNKNOWN_CATEGORY"
)

// Asset / model errors
const (
	ErrCodeModelUnavailable ErrorCode = "MODEL_UNAVAILABLE"
	ErrCodePredictionFailed ErrorCode = "PREDICTION_FAILED"
)

// Provider errors
const (
	ErrCodeProviderRequestFailed ErrorCode = "PROVIDER_REQUEST_FAILED"
	ErrCodeProviderTimeout       ErrorCode = "PROVIDER_TIMEOUT"
	ErrCodeProviderNotConfigured ErrorCode = "PROVIDER_NOT_CONFIGURED"
)

// Storage errors
const (
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeStorageQueryFailed ErrorCode = "STORAGE_QUERY_FAILED"
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

// Error returns the user-facing message. Details are kept out of it and logged separately.
func (e *StandardError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// String includes the code and details, for logs.
func (e *StandardError) String() string {
	if e.Details == "" {
		return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewMissingFieldsError lists every required input key that was absent or empty.
func NewMissingFieldsError(fields []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingFields,
		Message:   "Missing required fields for prediction: " + strings.Join(fields, ", "),
		Retryable: false,
		Metadata:  map[string]interface{}{"fields": append([]string(nil), fields...)},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFieldsError lists every input key whose value could not be cast.
func NewInvalidFieldsError(fields []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFields,
		Message:   "Invalid values provided for: " + strings.Join(fields, ", "),
		Retryable: false,
		Metadata:  map[string]interface{}{"fields": append([]string(nil), fields...)},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError is returned for malformed request envelopes.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEncoderNotConfiguredError means the loaded assets lack an encoder for a categorical column.
func NewEncoderNotConfiguredError(column string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEncoderNotConfigured,
		Message:   fmt.Sprintf("Encoder not found for column '%s'.", column),
		Retryable: false,
		Metadata:  map[string]interface{}{"column": column},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownCategoryError means a categorical value is outside the encoder vocabulary.
func NewUnknownCategoryError(column, value string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownCategory,
		Message:   fmt.Sprintf("Unknown value '%s' for column '%s'", value, column),
		Retryable: false,
		Metadata:  map[string]interface{}{"column": column, "value": value},
		Timestamp: time.Now().UTC(),
	}
}

// NewModelUnavailableError wraps an asset loading failure.
func NewModelUnavailableError(err error) *StandardError {
	e := &StandardError{
		Code:      ErrCodeModelUnavailable,
		Message:   "Prediction model is not available",
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// NewPredictionFailedError wraps a classifier runtime failure.
func NewPredictionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePredictionFailed,
		Message:   "Prediction failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewProviderRequestFailedError wraps a chat provider transport or API error.
func NewProviderRequestFailedError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderRequestFailed,
		Message:   fmt.Sprintf("%s request failed: %s", provider, err.Error()),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"provider": provider},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewProviderTimeoutError is returned when a provider call exceeds its deadline.
func NewProviderTimeoutError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderTimeout,
		Message:   fmt.Sprintf("%s request timed out", provider),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"provider": provider},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewProviderNotConfiguredError is returned when a provider is asked to run without a key.
func NewProviderNotConfiguredError(provider string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderNotConfigured,
		Message:   fmt.Sprintf("%s is not configured", provider),
		Retryable: false,
		Metadata:  map[string]interface{}{"provider": provider},
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageUnavailableError is returned when a history backend is disabled or unreachable.
func NewStorageUnavailableError(backend string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageUnavailable,
		Message:   fmt.Sprintf("%s storage is not available", backend),
		Retryable: false,
		Metadata:  map[string]interface{}{"backend": backend},
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageQueryFailedError wraps a history query or insert failure.
func NewStorageQueryFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageQueryFailed,
		Message:   "History storage error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Error Conversion to HTTP
// ==========================

// HTTPStatusMapping maps internal error codes to response status codes.
var HTTPStatusMapping = map[ErrorCode]int{
	ErrCodeMissingFields:         http.StatusBadRequest,
	ErrCodeInvalidFields:         http.StatusBadRequest,
	ErrCodeInvalidRequest:        http.StatusBadRequest,
	ErrCodeUnknownCategory:       http.StatusUnprocessableEntity,
	ErrCodeEncoderNotConfigured:  http.StatusInternalServerError,
	ErrCodeModelUnavailable:      http.StatusServiceUnavailable,
	ErrCodePredictionFailed:      http.StatusInternalServerError,
	ErrCodeProviderRequestFailed: http.StatusBadGateway,
	ErrCodeProviderTimeout:       http.StatusGatewayTimeout,
	ErrCodeProviderNotConfigured: http.StatusServiceUnavailable,
	ErrCodeStorageUnavailable:    http.StatusServiceUnavailable,
	ErrCodeStorageQueryFailed:    http.StatusInternalServerError,
}

// HTTPStatus returns the response status for a code, 500 when unmapped.
func HTTPStatus(code ErrorCode) int {
	if status, ok := HTTPStatusMapping[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ==========================
// 4. Utility Functions
// ==========================

// As returns the StandardError in err's chain, if any.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the error code of err, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := As(err); ok {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}

// Fields returns the offending input keys attached to a validation error.
func Fields(err error) []string {
	stdErr, ok := As(err)
	if !ok || stdErr.Metadata == nil {
		return nil
	}
	fields, _ := stdErr.Metadata["fields"].([]string)
	return fields
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodePredictionFailed,
		ErrCodeProviderRequestFailed,
		ErrCodeProviderTimeout,
		ErrCodeStorageQueryFailed:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeMissingFields, ErrCodeInvalidFields, ErrCodeInvalidRequest:
		return "VALIDATION"
	case ErrCodeEncoderNotConfigured, ErrCodeUnknownCategory:
		return "ENCODING"
	case ErrCodeModelUnavailable, ErrCodePredictionFailed:
		return "ASSET"
	}
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "PROVIDER"):
		return "PROVIDER"
	case strings.HasPrefix(codeStr, "STORAGE"):
		return "STORAGE"
	default:
		return "OTHER"
	}
}

// IsValidation reports whether err is a payload or request validation error.
func IsValidation(err error) bool {
	return GetErrorCategory(CodeOf(err)) == "VALIDATION"
}

// IsEncoding reports whether err came from categorical encoding.
func IsEncoding(err error) bool {
	return GetErrorCategory(CodeOf(err)) == "ENCODING"
}

// IsAsset reports whether err came from loading or running the model.
func IsAsset(err error) bool {
	return GetErrorCategory(CodeOf(err)) == "ASSET"
}
