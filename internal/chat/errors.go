package chat

import (
	"errors"
	"fmt"
)

// Code classifies a failed operation.
type Code int

const (
	CodeUnknown Code = iota
	CodeUnauthenticated
	CodeNotFound
	CodeForbidden
	CodeInvalidArgument
)

func (c Code) String() string {
	switch c {
	case CodeUnauthenticated:
		return "unauthenticated"
	case CodeNotFound:
		return "not_found"
	case CodeForbidden:
		return "forbidden"
	case CodeInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error is a classified failure with a message fit for display to the caller.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Is matches any *Error with the same code, so errors.Is(err, ErrNotMember)
// also holds for other Forbidden errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

var (
	ErrUnauthenticated = &Error{Code: CodeUnauthenticated, Msg: "not authenticated"}
	ErrNotMember       = &Error{Code: CodeForbidden, Msg: "you are not a member of this conversation"}
)

// CodeOf returns the classification of err, or CodeUnknown for storage and
// other unexpected failures.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
