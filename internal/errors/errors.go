package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a cram error code.
type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"       // 400
	ErrInvalidParameter     ErrorCode = "INVALID_PARAMETER"     // 400
	ErrUnknownOption        ErrorCode = "UNKNOWN_OPTION"        // 400
	ErrNotFound             ErrorCode = "NOT_FOUND"             // 404
	ErrFileNotFound         ErrorCode = "FILE_NOT_FOUND"        // 404
	ErrNameAlreadyExists    ErrorCode = "NAME_ALREADY_EXISTS"   // 409
	ErrNothingToExtend      ErrorCode = "NOTHING_TO_EXTEND"     // 409
	ErrOptionUnavailable    ErrorCode = "OPTION_UNAVAILABLE"    // 409
	ErrSessionConflict      ErrorCode = "SESSION_CONFLICT"      // 409
	ErrInternal             ErrorCode = "INTERNAL"              // 500
	ErrCommitFailed         ErrorCode = "COMMIT_FAILED"         // 502
	ErrSchedulerUnavailable ErrorCode = "SCHEDULER_UNAVAILABLE" // 503
)

// CramError represents a structured error with code, status, and details.
type CramError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Err is the underlying cause, if any. It is reachable through errors.Unwrap.
	Err error
}

// Error implements the error interface.
func (e *CramError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CramError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CramError {
	return &CramError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidParameter creates a 400 error for a study option parameter that does not
// fit the option's declared shape.
func NewInvalidParameter(option, msg string) *CramError {
	return &CramError{
		Code:    ErrInvalidParameter,
		Status:  400,
		Message: fmt.Sprintf("%s: %s", option, msg),
		Details: map[string]any{"option": option},
	}
}

// NewUnknownOption creates a 400 error for an option outside the catalog.
func NewUnknownOption(option string) *CramError {
	return &CramError{
		Code:    ErrUnknownOption,
		Status:  400,
		Message: fmt.Sprintf("unknown study option: %q", option),
		Details: map[string]any{"option": option},
	}
}

// NewNotFound creates a 404 error for when a deck cannot be found.
func NewNotFound(identifier string) *CramError {
	return &CramError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("deck not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *CramError {
	return &CramError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNameAlreadyExists creates a 409 error for deck name collisions.
func NewNameAlreadyExists(name string) *CramError {
	return &CramError{
		Code:    ErrNameAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("deck with name %q already exists", name),
		Details: map[string]any{"name": name},
	}
}

// NewNothingToExtend creates a 409 error when a limit-extension option has no cards
// left to draw from.
func NewNothingToExtend(option, deckID string) *CramError {
	return &CramError{
		Code:    ErrNothingToExtend,
		Status:  409,
		Message: fmt.Sprintf("%s: nothing to extend in deck %s", option, deckID),
		Details: map[string]any{"option": option, "deck_id": deckID},
	}
}

// NewOptionUnavailable creates a 409 error when an option is not offered for a deck.
func NewOptionUnavailable(option, deckID string) *CramError {
	return &CramError{
		Code:    ErrOptionUnavailable,
		Status:  409,
		Message: fmt.Sprintf("%s is not available for deck %s", option, deckID),
		Details: map[string]any{"option": option, "deck_id": deckID},
	}
}

// NewSessionConflict creates a 409 error when the session name is held by a deck
// that cannot be reused as a custom study session.
func NewSessionConflict(name string) *CramError {
	return &CramError{
		Code:    ErrSessionConflict,
		Status:  409,
		Message: fmt.Sprintf("deck %q exists and is not a filtered deck", name),
		Details: map[string]any{"name": name},
	}
}

// NewCommitFailed creates a 502 error wrapping the persistence failure verbatim.
func NewCommitFailed(err error) *CramError {
	msg := "commit failed"
	if err != nil {
		msg = fmt.Sprintf("commit failed: %v", err)
	}
	return &CramError{
		Code:    ErrCommitFailed,
		Status:  502,
		Message: msg,
		Err:     err,
	}
}

// NewSchedulerUnavailable creates a 503 error when the collection cannot be queried.
func NewSchedulerUnavailable(err error) *CramError {
	msg := "scheduler unavailable"
	if err != nil {
		msg = fmt.Sprintf("scheduler unavailable: %v", err)
	}
	return &CramError{
		Code:    ErrSchedulerUnavailable,
		Status:  503,
		Message: msg,
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the cause is kept in Details for logging.
func NewInternal(err error) *CramError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &CramError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		Err:     err,
	}
}

// Is checks if an error is (or wraps) a CramError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *CramError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// IsRetryable reports whether the caller may retry the same request unchanged.
func IsRetryable(err error) bool {
	return Is(err, ErrSchedulerUnavailable) || Is(err, ErrCommitFailed)
}
