package domain

import (
	"errors"
	"fmt"
)

type ErrorCode int

const (
	ErrUnexpected ErrorCode = iota
	ErrUserNotFound
	ErrNoteNotFound
	ErrUsernameTaken
	ErrMalformedResource
	ErrUnexpectedActivity
	ErrPersistence
	ErrSigning
)

// Message returns the human-readable text for a code. The mapping is a
// pure function of the code; there is no shared table to guard.
func (c ErrorCode) Message() string {
	switch c {
	case ErrUserNotFound:
		return "User does not exist"
	case ErrNoteNotFound:
		return "Note does not exist"
	case ErrUsernameTaken:
		return "Username already exists"
	case ErrMalformedResource:
		return "Malformed resource"
	case ErrUnexpectedActivity:
		return "Unexpected activity type"
	case ErrPersistence:
		return "Unexpected DB error"
	case ErrSigning:
		return "Request signing failed"
	default:
		return "Unexpected error"
	}
}

// CommonError carries an error code across component boundaries; the web
// layer translates codes to HTTP statuses.
type CommonError struct {
	Code  ErrorCode
	cause error
}

func NewError(code ErrorCode) *CommonError {
	return &CommonError{Code: code}
}

func WrapError(code ErrorCode, cause error) *CommonError {
	return &CommonError{Code: code, cause: cause}
}

func (e *CommonError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Code.Message(), e.cause)
	}
	return e.Code.Message()
}

func (e *CommonError) Unwrap() error {
	return e.cause
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var ce *CommonError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
