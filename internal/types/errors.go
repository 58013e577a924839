package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All handlers MUST use these constants instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationMissingText      ErrorCode = "validation_missing_text"
	ErrCodeValidationInvalidParameter ErrorCode = "validation_invalid_parameter"
	ErrCodeValidationContentTooLong   ErrorCode = "validation_content_too_long"
	ErrCodeValidationInvalidPeriod    ErrorCode = "validation_invalid_period"
	ErrCodeValidationInvalidJSON      ErrorCode = "validation_invalid_json"

	// Auth (401)
	ErrCodeAuthTokenMissing ErrorCode = "auth_token_missing"
	ErrCodeAuthTokenInvalid ErrorCode = "auth_token_invalid"
	ErrCodeAuthTokenRevoked ErrorCode = "auth_token_revoked"

	// Entitlement (403)
	ErrCodeEntitlementCapability ErrorCode = "entitlement_capability_not_in_plan"
	ErrCodeEntitlementAPIAccess  ErrorCode = "entitlement_api_access_not_in_plan"

	// Limits (429)
	ErrCodeLimitMonthlyContent ErrorCode = "limit_monthly_content_exceeded"

	// Persistence (503)
	ErrCodePersistenceRead        ErrorCode = "persistence_read_failed"
	ErrCodePersistenceWrite       ErrorCode = "persistence_write_failed"
	ErrCodePersistenceUnavailable ErrorCode = "persistence_store_unavailable"

	// Internal/Upstream (500/502)
	ErrCodeInternalUnexpected  ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamStripe      ErrorCode = "upstream_stripe_unavailable"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
)

// ErrorKind is the coarse classification callers branch on. Every ErrorCode
// belongs to exactly one kind.
type ErrorKind string

const (
	KindInvalidInput     ErrorKind = "InvalidInput"
	KindNotEntitled      ErrorKind = "NotEntitled"
	KindCapacityExceeded ErrorKind = "CapacityExceeded"
	KindPersistenceError ErrorKind = "PersistenceError"
	KindUnauthenticated  ErrorKind = "Unauthenticated"
	KindUpstream         ErrorKind = "Upstream"
	KindInternalError    ErrorKind = "InternalError"
)

// Kind maps the code onto its ErrorKind using the code prefix.
// Unrecognized codes are InternalError.
func (c ErrorCode) Kind() ErrorKind {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return KindInvalidInput
	case strings.HasPrefix(s, "entitlement_"):
		return KindNotEntitled
	case strings.HasPrefix(s, "limit_"):
		return KindCapacityExceeded
	case strings.HasPrefix(s, "persistence_"):
		return KindPersistenceError
	case strings.HasPrefix(s, "auth_"):
		return KindUnauthenticated
	case strings.HasPrefix(s, "upstream_"):
		return KindUpstream
	default:
		return KindInternalError
	}
}

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Used by the API layer to translate AppErrors into HTTP responses.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	switch c.Kind() {
	case KindInvalidInput:
		return http.StatusBadRequest // 400
	case KindUnauthenticated:
		return http.StatusUnauthorized // 401
	case KindNotEntitled:
		return http.StatusForbidden // 403
	case KindCapacityExceeded:
		return http.StatusTooManyRequests // 429
	case KindPersistenceError:
		return http.StatusServiceUnavailable // 503
	case KindUpstream:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the engine.
// All domain and handler errors should be expressed as AppError to enable
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// Kind returns the ErrorKind of this error's code.
func (e *AppError) Kind() ErrorKind {
	return e.Code.Kind()
}

// WithDetails returns a copy of the error with the provided details merged in.
// This is useful for adding context without mutating the original error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// KindOf returns the ErrorKind carried by err. Errors that are not (and do not
// wrap) an *AppError are InternalError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind()
	}
	return KindInternalError
}
