package errors

import "fmt"

// ErrorCode represents a triage error code.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // 400
	ErrTooManyIDs          ErrorCode = "TOO_MANY_IDS"         // 400
	ErrNotParent           ErrorCode = "NOT_PARENT"           // 403
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrConflict            ErrorCode = "CONFLICT"             // 409
	ErrInternal            ErrorCode = "INTERNAL"             // 500
	ErrUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE" // 503
)

// TriageError represents a structured error with code, status, and details.
type TriageError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *TriageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TriageError {
	return &TriageError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewTooManyIDs creates a 400 error when an id list exceeds the page cap.
func NewTooManyIDs(max, actual int) *TriageError {
	return &TriageError{
		Code:    ErrTooManyIDs,
		Status:  400,
		Message: fmt.Sprintf("too many ids: %d (max %d)", actual, max),
		Details: map[string]any{"max_ids": max, "actual_ids": actual},
	}
}

// NewNotParent creates a 403 error for parent-only operations on a non-parent project.
func NewNotParent(projectID string) *TriageError {
	return &TriageError{
		Code:    ErrNotParent,
		Status:  403,
		Message: fmt.Sprintf("project %q is not a parent project", projectID),
		Details: map[string]any{"project_id": projectID},
	}
}

// NewNotFound creates a 404 error for a missing record of the given kind.
func NewNotFound(kind, identifier string) *TriageError {
	return &TriageError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *TriageError {
	return &TriageError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewUpstreamUnavailable creates a 503 error when a sibling service or the
// store cannot be reached in time.
func NewUpstreamUnavailable(service string, err error) *TriageError {
	msg := fmt.Sprintf("%s unavailable", service)
	if err != nil {
		msg = fmt.Sprintf("%s unavailable: %v", service, err)
	}
	return &TriageError{
		Code:    ErrUpstreamUnavailable,
		Status:  503,
		Message: msg,
		Details: map[string]any{"service": service},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *TriageError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &TriageError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a TriageError with the given code.
func Is(err error, code ErrorCode) bool {
	if tErr, ok := err.(*TriageError); ok {
		return tErr.Code == code
	}
	return false
}
