package domain

import (
	"errors"
	"fmt"
)

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

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, ErrIndexMissing) holds for any INDEX_MISSING error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
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
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeEmptyInput       = "EMPTY_INPUT"
	ErrCodeSchemaValidation = "SCHEMA_VALIDATION"
	ErrCodeIndexMissing     = "INDEX_MISSING"
	ErrCodeProvider         = "PROVIDER_ERROR"
	ErrCodePersistence      = "PERSISTENCE_ERROR"
)

// Validation errors
var (
	ErrEmptyInput            = NewDomainError(ErrCodeEmptyInput, "document text is empty")
	ErrSchemaValidation      = NewDomainError(ErrCodeSchemaValidation, "generated output does not match schema")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidIngestionJob   = NewDomainError(ErrCodeValidation, "invalid ingestion job")
	ErrUnsupportedProvider   = NewDomainError(ErrCodeValidation, "unsupported provider")
	ErrUnsupportedIndexStore = NewDomainError(ErrCodeValidation, "unsupported index backend")
)

// Not found errors
var (
	ErrIndexMissing         = NewDomainError(ErrCodeIndexMissing, "vector index missing for scope")
	ErrPublicationNotFound  = NewDomainError(ErrCodeNotFound, "publication not found")
	ErrIngestionJobNotFound = NewDomainError(ErrCodeNotFound, "ingestion job not found")
)

// Capability and storage errors
var (
	ErrProvider          = NewDomainError(ErrCodeProvider, "provider call failed")
	ErrPersistence       = NewDomainError(ErrCodePersistence, "index persistence failed")
	ErrDimensionMismatch = NewDomainError(ErrCodePersistence, "embedding dimension does not match index")
)

// IndexMissing returns an INDEX_MISSING error naming the scope.
func IndexMissing(scope Scope) *DomainError {
	return NewDomainError(ErrCodeIndexMissing, fmt.Sprintf("vector index missing for scope %q", scope))
}

// ProviderError wraps a capability failure.
func ProviderError(op string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeProvider, op, err)
}

// PersistenceError wraps an index storage failure.
func PersistenceError(op string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodePersistence, op, err)
}

// SchemaValidationError wraps a parse or validation failure of generated output.
func SchemaValidationError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeSchemaValidation, "generated output does not match schema", err)
}

// CodeOf returns the code of the first DomainError in err's chain, or "".
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
