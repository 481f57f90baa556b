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
	ErrCodeUpstreamFailure  = "UPSTREAM_FAILURE"
)

// Validation errors
var (
	ErrInvalidNoticeStatus  = NewDomainError(ErrCodeValidation, "invalid notice status")
	ErrInvalidBudgetRange   = NewDomainError(ErrCodeValidation, "budget minimum cannot exceed budget maximum")
	ErrInvalidTRLRange      = NewDomainError(ErrCodeValidation, "TRL minimum cannot exceed TRL maximum")
	ErrInvalidTRLValue      = NewDomainError(ErrCodeValidation, "TRL must be between 1 and 9")
	ErrInvalidSearchLevel   = NewDomainError(ErrCodeValidation, "invalid search level")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyChatHistory     = NewDomainError(ErrCodeValidation, "chat history cannot be empty")
	ErrInvalidChatRole      = NewDomainError(ErrCodeValidation, "invalid chat role")
)

// Not found errors
var (
	ErrNoticeNotFound     = NewDomainError(ErrCodeNotFound, "notice not found")
	ErrAgencyNotFound     = NewDomainError(ErrCodeNotFound, "agency not found")
	ErrNoticeFileNotFound = NewDomainError(ErrCodeNotFound, "notice file not found")
	ErrDocumentNotFound   = NewDomainError(ErrCodeNotFound, "document not found")
)

// Upstream failures
var (
	ErrAssistantUnavailable = NewDomainError(ErrCodeUpstreamFailure, "assistant is unavailable")
	ErrEmptyCompletion      = NewDomainError(ErrCodeUpstreamFailure, "assistant returned an empty response")
)

// Storage errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
