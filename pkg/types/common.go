package types

import (
	"time"

	"github.com/google/uuid"
)

// ID represents a unique identifier
type ID string

// NewID creates an ID from a string
func NewID(s string) ID {
	return ID(s)
}

// GenerateID generates a new unique identifier
func GenerateID() ID {
	return ID(uuid.NewString())
}

// String returns the string representation of the ID
func (i ID) String() string {
	return string(i)
}

// IsEmpty returns true if the ID is empty
func (i ID) IsEmpty() bool {
	return string(i) == ""
}

// Timestamp represents a point in time. It embeds time.Time so that it
// marshals to and from RFC 3339 strings, which is the serialized form the
// persistence layer expects for every temporal field.
type Timestamp struct {
	time.Time
}

// NewTimestamp creates a timestamp from the current time
func NewTimestamp() Timestamp {
	return Timestamp{Time: time.Now()}
}

// NewTimestampFromTime creates a timestamp from a time.Time
func NewTimestampFromTime(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// Error represents an error with a stable code and optional cause
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new error with code and message
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with code and message
func WrapError(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsErrCode checks if an error has a specific error code
func IsErrCode(err error, code string) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error
func GetErrorCode(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// Common error codes
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeAlreadyExists      = "ALREADY_EXISTS"
	ErrCodeInvalidArgument    = "INVALID_ARGUMENT"
	ErrCodeInternal           = "INTERNAL"
	ErrCodeUnavailable        = "UNAVAILABLE"
	ErrCodeFailedPrecondition = "FAILED_PRECONDITION"
)
