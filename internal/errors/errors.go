package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound         = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation       = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation = new(ErrCodeInvalidOperation, "invalid operation")
	ErrHTTPClient       = new(ErrCodeHTTPClient, "http client error")
	ErrDatabase         = new(ErrCodeDatabase, "database error")
	ErrSystem           = new(ErrCodeSystemError, "system error")

	// invoicing run failures
	ErrInvalidEventOrdering = new(ErrCodeInvalidEventOrdering, "invalid billing event ordering")
	ErrProration            = new(ErrCodeProration, "proration error")
	ErrConcurrentInvoicing  = new(ErrCodeConcurrentInvoicing, "concurrent invoicing in progress")
	ErrPersistence          = new(ErrCodePersistence, "invoice persistence failed")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrHTTPClient:           http.StatusInternalServerError,
		ErrDatabase:             http.StatusInternalServerError,
		ErrNotFound:             http.StatusNotFound,
		ErrAlreadyExists:        http.StatusConflict,
		ErrValidation:           http.StatusBadRequest,
		ErrInvalidOperation:     http.StatusBadRequest,
		ErrSystem:               http.StatusInternalServerError,
		ErrInvalidEventOrdering: http.StatusUnprocessableEntity,
		ErrProration:            http.StatusUnprocessableEntity,
		ErrConcurrentInvoicing:  http.StatusConflict,
		ErrPersistence:          http.StatusInternalServerError,
	}
)

const (
	ErrCodeHTTPClient           = "http_client_error"
	ErrCodeSystemError          = "system_error"
	ErrCodeNotFound             = "not_found"
	ErrCodeAlreadyExists        = "already_exists"
	ErrCodeValidation           = "validation_error"
	ErrCodeInvalidOperation     = "invalid_operation"
	ErrCodeDatabase             = "database_error"
	ErrCodeInvalidEventOrdering = "invalid_event_ordering"
	ErrCodeProration            = "proration_error"
	ErrCodeConcurrentInvoicing  = "concurrent_invoicing"
	ErrCodePersistence          = "persistence_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsHTTPClient checks if an error is an http client error
func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}

// IsDatabase checks if an error is a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsSystem checks if an error is an internal system error
func IsSystem(err error) bool {
	return errors.Is(err, ErrSystem)
}

// IsInvalidEventOrdering checks if the billing event timeline was rejected
func IsInvalidEventOrdering(err error) bool {
	return errors.Is(err, ErrInvalidEventOrdering)
}

// IsProration checks if a recurring charge could not be computed
func IsProration(err error) bool {
	return errors.Is(err, ErrProration)
}

// IsConcurrentInvoicing checks if another run holds the account
func IsConcurrentInvoicing(err error) bool {
	return errors.Is(err, ErrConcurrentInvoicing)
}

// IsPersistence checks if an invoice could not be committed
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsRetryable reports whether a caller such as a scheduler should try the run again later.
// Computation errors are deterministic and never retryable.
func IsRetryable(err error) bool {
	if err == nil || IsInvalidEventOrdering(err) || IsProration(err) || IsValidation(err) {
		return false
	}
	return IsConcurrentInvoicing(err) || IsPersistence(err) || IsDatabase(err)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
