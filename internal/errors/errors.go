// Package errors defines the application error taxonomy shared by the
// repository, scheduler, and tool-dispatch layers (spec §7).
package errors

import "fmt"

// Error codes surfaced to MCP tool callers.
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeInternal      = "INTERNAL_ERROR"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeInvalidState  = "INVALID_STATE"
	ErrCodeDuplicateSkip = "DUPLICATE_SKIP"
	ErrCodeStorage       = "STORAGE_ERROR"
	ErrCodeReadonly      = "READONLY_REFUSED"
)

// AppError represents an application error with a stable code and, for
// validation failures, the set of fields that failed.
type AppError struct {
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new NOT_FOUND error.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
	}
}

// NewValidationError creates a VALIDATION_ERROR for a single field.
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Fields:  map[string]string{field: reason},
	}
}

// NewValidationErrors creates a VALIDATION_ERROR carrying every failed field,
// per spec §4.5 ("Validation errors list every failed field").
func NewValidationErrors(fields map[string]string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %d field(s)", len(fields)),
		Fields:  fields,
	}
}

// NewInternalError creates a new INTERNAL_ERROR.
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error.
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// NewInvalidStateError creates an INVALID_STATE error for a state-machine
// precondition violation (e.g. scheduling a suspended card).
func NewInvalidStateError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidState,
		Message: message,
	}
}

// NewDuplicateSkipError creates a DUPLICATE_SKIP soft error recorded in an
// import batch's errors array; it never aborts the batch.
func NewDuplicateSkipError(reason string) *AppError {
	return &AppError{
		Code:    ErrCodeDuplicateSkip,
		Message: reason,
	}
}

// NewStorageError wraps a persistence failure.
func NewStorageError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeStorage,
		Message: "storage operation failed",
		Err:     err,
	}
}

// NewReadonlyError signals a mutating tool call was refused by the readonly
// gate before it reached the store.
func NewReadonlyError(tool string) *AppError {
	return &AppError{
		Code:    ErrCodeReadonly,
		Message: fmt.Sprintf("%s is a mutating tool and the server is running in readonly mode", tool),
	}
}

// Is reports whether err is an *AppError with the given code.
func Is(err error, code string) bool {
	ae, ok := err.(*AppError)
	return ok && ae.Code == code
}
