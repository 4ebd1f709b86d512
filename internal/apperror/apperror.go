// Package apperror defines the domain error taxonomy shared by the storage
// engine and the RPC layer. Errors carry a sentinel (for errors.Is checks)
// plus the human-readable message that ends up in the response envelope.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInvalidRequest = errors.New("invalid request")
	ErrPrecondition   = errors.New("precondition failed")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // Human-readable error message
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports an absent entity where the contract has no default value,
// e.g. fetching a single comment or image by id.
func NotFound(format string, args ...any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Conflict reports a uniqueness violation surfaced to the caller, e.g. a
// duplicate comment id on create.
func Conflict(format string, args ...any) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf(format, args...),
	}
}

// InvalidRequest reports a malformed combination of locator/user/comment
// fields in a request.
func InvalidRequest(format string, args ...any) *AppError {
	return &AppError{
		Err:     ErrInvalidRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

// Precondition reports an operation rejected by business state, e.g. writing
// to a read-only post.
func Precondition(format string, args ...any) *AppError {
	return &AppError{
		Err:     ErrPrecondition,
		Message: fmt.Sprintf(format, args...),
	}
}
