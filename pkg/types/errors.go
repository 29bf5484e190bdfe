package types

import (
	"errors"
	"fmt"
)

// Reason classifies a compile failure.
type Reason uint8

// Compile failure reasons.
const (
	ReasonSyntaxError Reason = iota + 1
	ReasonConstantOverflow
	ReasonTypeMismatch
	ReasonUndefinedName
	ReasonFunctionHasNoReturnValue
	ReasonInvalidExplicitCast
	ReasonAmbiguousMatch
	ReasonAccessDenied
	ReasonInvalidFormat
	// ReasonTooComplex reports input that exceeds the nesting depth or
	// generated code size limits.
	ReasonTooComplex
)

var reasonNames = [...]string{
	ReasonSyntaxError:              "SyntaxError",
	ReasonConstantOverflow:         "ConstantOverflow",
	ReasonTypeMismatch:             "TypeMismatch",
	ReasonUndefinedName:            "UndefinedName",
	ReasonFunctionHasNoReturnValue: "FunctionHasNoReturnValue",
	ReasonInvalidExplicitCast:      "InvalidExplicitCast",
	ReasonAmbiguousMatch:           "AmbiguousMatch",
	ReasonAccessDenied:             "AccessDenied",
	ReasonInvalidFormat:            "InvalidFormat",
	ReasonTooComplex:               "TooComplex",
}

// String returns the name of the reason.
func (r Reason) String() string {
	if int(r) < len(reasonNames) && reasonNames[r] != "" {
		return reasonNames[r]
	}
	return fmt.Sprintf("Reason(%d)", uint8(r))
}

// Sentinels for errors.Is matching against a compile failure reason:
//
//	if errors.Is(err, types.ErrAmbiguousMatch) { ... }
var (
	ErrSyntax                   = &Error{Reason: ReasonSyntaxError, Position: -1}
	ErrConstantOverflow         = &Error{Reason: ReasonConstantOverflow, Position: -1}
	ErrTypeMismatch             = &Error{Reason: ReasonTypeMismatch, Position: -1}
	ErrUndefinedName            = &Error{Reason: ReasonUndefinedName, Position: -1}
	ErrFunctionHasNoReturnValue = &Error{Reason: ReasonFunctionHasNoReturnValue, Position: -1}
	ErrInvalidExplicitCast      = &Error{Reason: ReasonInvalidExplicitCast, Position: -1}
	ErrAmbiguousMatch           = &Error{Reason: ReasonAmbiguousMatch, Position: -1}
	ErrAccessDenied             = &Error{Reason: ReasonAccessDenied, Position: -1}
	ErrInvalidFormat            = &Error{Reason: ReasonInvalidFormat, Position: -1}
	ErrTooComplex               = &Error{Reason: ReasonTooComplex, Position: -1}
)

// Evaluation errors. These are returned by a compiled expression, never by
// the compiler.
var (
	ErrDivideByZero = errors.New("division by zero")
	ErrOverflow     = errors.New("arithmetic overflow")
	ErrNilReference = errors.New("nil reference")

	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrKeyNotFound       = errors.New("key not found")
	ErrUndefinedVariable = errors.New("undefined variable")
)

// Error is the single structured compile failure.
type Error struct {
	Reason   Reason
	Message  string
	Position int
	Token    string
	Err      error
}

// NewError creates a new compile error.
func NewError(reason Reason, message string, position int) *Error {
	return &Error{
		Reason:   reason,
		Message:  message,
		Position: position,
	}
}

// Errorf creates a compile error with a formatted message and no position.
func Errorf(reason Reason, format string, args ...any) *Error {
	return NewError(reason, fmt.Sprintf(format, args...), -1)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Reason, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// WithPosition sets the source position if none is set yet.
func (e *Error) WithPosition(pos int) *Error {
	if e.Position < 0 {
		e.Position = pos
	}
	return e
}

// ReasonOf returns the reason of a compile error, or 0 if err is not one.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return 0
}
