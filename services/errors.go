package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the HTTP-facing class of an error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
)

// ErrorCode identifies the precise failure within a class
type ErrorCode string

const (
	CodeMalformedToken        ErrorCode = "malformed_token"
	CodeExpiredToken          ErrorCode = "expired_token"
	CodeWrongTokenCategory    ErrorCode = "wrong_token_category"
	CodeRevokedOrUnknownToken ErrorCode = "revoked_or_unknown_token"
	CodeMissingRefreshToken   ErrorCode = "missing_refresh_token"
	CodeCredentialMismatch    ErrorCode = "credential_mismatch"
	CodeStorageFailure        ErrorCode = "storage_failure"
	CodeUnauthenticated       ErrorCode = "unauthenticated"
	CodeUsernameTaken         ErrorCode = "username_taken"
	CodeInvalidInput          ErrorCode = "invalid_input"
	CodeInternal              ErrorCode = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Code    ErrorCode
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code when the target carries one, otherwise on Type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return e.Type == t.Type
}

// Wrap returns a copy of e carrying cause. Sentinels are never mutated.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Err:     cause,
	}
}

// WithDetail returns a copy of e with an extra detail
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: details,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

var (
	// Token errors
	ErrMalformedToken        = NewDomainError(ErrorTypeUnauthorized, CodeMalformedToken, "invalid token", nil)
	ErrExpiredToken          = NewDomainError(ErrorTypeUnauthorized, CodeExpiredToken, "token expired", nil)
	ErrWrongTokenCategory    = NewDomainError(ErrorTypeUnauthorized, CodeWrongTokenCategory, "wrong token category", nil)
	ErrRevokedOrUnknownToken = NewDomainError(ErrorTypeUnauthorized, CodeRevokedOrUnknownToken, "refresh token revoked or unknown", nil)
	ErrMissingRefreshToken   = NewDomainError(ErrorTypeValidation, CodeMissingRefreshToken, "refresh token missing", nil)
	ErrUnauthenticated       = NewDomainError(ErrorTypeUnauthorized, CodeUnauthenticated, "missing or invalid authorization", nil)

	// Credential errors
	ErrCredentialMismatch = NewDomainError(ErrorTypeUnauthorized, CodeCredentialMismatch, "invalid username or password", nil)
	ErrUsernameTaken      = NewDomainError(ErrorTypeConflict, CodeUsernameTaken, "username already taken", nil)
	ErrInvalidInput       = NewDomainError(ErrorTypeValidation, CodeInvalidInput, "invalid input", nil)

	// Server faults
	ErrStorageFailure = NewDomainError(ErrorTypeInternal, CodeStorageFailure, "storage unavailable", nil)
	ErrInternal       = NewDomainError(ErrorTypeInternal, CodeInternal, "internal server error", nil)
)

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorCode returns the ErrorCode of a domain error, or empty string if not a domain error
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// GetErrorMessage returns the client-facing message of a domain error
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapStorage marks err as a storage failure. The operation name stays in the
// cause; clients only see the generic message.
func WrapStorage(op string, err error) error {
	return ErrStorageFailure.Wrap(fmt.Errorf("%s: %w", op, err))
}

// WrapInternal wraps an error as an internal error
func WrapInternal(op string, err error) error {
	return ErrInternal.Wrap(fmt.Errorf("%s: %w", op, err))
}
