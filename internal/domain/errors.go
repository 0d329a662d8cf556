package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidQueryType     = NewDomainError(ErrCodeValidation, "invalid query type")
	ErrInvalidEventType     = NewDomainError(ErrCodeValidation, "invalid event type")
	ErrInvalidPeriod        = NewDomainError(ErrCodeValidation, "period must be week or month")
)

// Not found errors
var (
	ErrUserNotFound = NewDomainError(ErrCodeNotFound, "user not found")
	ErrListNotFound = NewDomainError(ErrCodeNotFound, "shopping list not found")
)

// Authorization errors
var (
	ErrUnauthenticated = NewDomainError(ErrCodeUnauthorized, "user must be authenticated")
	ErrInvalidToken    = NewDomainError(ErrCodeUnauthorized, "invalid token")
	ErrNotListMember   = NewDomainError(ErrCodeForbidden, "not a member of this list")
	ErrForeignUser     = NewDomainError(ErrCodeForbidden, "cannot act on behalf of another user")
)

// Operation errors
var (
	ErrChatNotConfigured = NewDomainError(ErrCodeInternalError, "chat provider not configured")
)

// Internal wraps a store or provider failure so callers surface the underlying message.
func Internal(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeInternalError, message, err)
}
