package shared

import "errors"

// Stable error codes surfaced to API clients
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeBadRequest   = "BAD_REQUEST"
	CodeInternal     = "INTERNAL_ERROR"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so that errors.Is works
// against the sentinel values below regardless of message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrUnauthorized = NewDomainError(CodeUnauthorized, "Authentication required")
	ErrForbidden    = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrNotFound     = NewDomainError(CodeNotFound, "Resource not found")
	ErrConflict     = NewDomainError(CodeConflict, "Resource already exists")
	ErrBadRequest   = NewDomainError(CodeBadRequest, "Invalid input provided")
	ErrInternal     = NewDomainError(CodeInternal, "An unexpected error occurred")
)

// Forbidden returns a FORBIDDEN error with a specific message
func Forbidden(message string) *DomainError {
	return NewDomainError(CodeForbidden, message)
}

// NotFound returns a NOT_FOUND error with a specific message
func NotFound(message string) *DomainError {
	return NewDomainError(CodeNotFound, message)
}

// Conflict returns a CONFLICT error with a specific message
func Conflict(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// BadRequest returns a BAD_REQUEST error with a specific message
func BadRequest(message string) *DomainError {
	return NewDomainError(CodeBadRequest, message)
}

// Unauthorized returns an UNAUTHORIZED error with a specific message
func Unauthorized(message string) *DomainError {
	return NewDomainError(CodeUnauthorized, message)
}

// CodeOf extracts the domain code from err, or CodeInternal for foreign errors
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
