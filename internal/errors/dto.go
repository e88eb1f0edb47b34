package errors

import "github.com/cockroachdb/errors"

// ErrorResponse is the body written for failed API requests
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code          string         `json:"code"`
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Retryable     bool           `json:"retryable,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// codePrecedence lists the invoicing failures before the generic classes they may wrap
var codePrecedence = []*InternalError{
	ErrConcurrentInvoicing,
	ErrInvalidEventOrdering,
	ErrProration,
	ErrPersistence,
	ErrNotFound,
	ErrAlreadyExists,
	ErrValidation,
	ErrInvalidOperation,
	ErrDatabase,
	ErrHTTPClient,
	ErrSystem,
}

// ErrorCode returns the machine readable code of the most specific class err is marked with
func ErrorCode(err error) string {
	for _, e := range codePrecedence {
		if errors.Is(err, e) {
			return e.Code
		}
	}
	return ErrCodeSystemError
}

// NewErrorResponse builds the API error body. display and details must be safe to expose.
func NewErrorResponse(err error, display string, details map[string]any) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:          ErrorCode(err),
			Display:       display,
			InternalError: err.Error(),
			Retryable:     IsRetryable(err),
			Details:       details,
		},
	}
}
