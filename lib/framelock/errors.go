package framelock

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

type ErrCode uint64

const (
	ErrCSinkUnavailable ErrCode = iota + 1 // 1: The sink could not be created or opened.
	ErrCIoFailure                          // 2: Writing or flushing the attached sink failed.
	ErrCInvalidToken                       // 3: The token does not belong to the frame in progress.
)

// String returns the name of the error code
func (c ErrCode) String() string {
	switch c {
	case ErrCSinkUnavailable:
		return "SinkUnavailable"
	case ErrCIoFailure:
		return "IoFailure"
	case ErrCInvalidToken:
		return "InvalidToken"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps an error code, a message and the underlying cause (may be nil)
type Error struct {
	Code ErrCode
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("FrameLockError (code %s): %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("FrameLockError (code %s): %s: %v", e.Code, e.Msg, e.Err)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// newError creates a new Error with the given code, message and cause
func newError(code ErrCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// IsCode reports whether err is (or wraps) an *Error with the given code
func IsCode(err error, code ErrCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
