package parser

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a single parse problem.
type ErrorKind uint8

const (
	// ErrUnexpectedChar is an input character no token pattern accepts.
	ErrUnexpectedChar ErrorKind = iota + 1
	// ErrUnexpectedToken is a token the grammar does not allow here.
	ErrUnexpectedToken
	// ErrUnexpectedEOF is a premature end of input.
	ErrUnexpectedEOF
	// ErrInvalidToken is a token whose text cannot be turned into a value.
	ErrInvalidToken
)

// ParseError is one problem found while parsing.
type ParseError struct {
	Kind     ErrorKind
	Message  string
	Position int
	Line     int
	Column   int
	Expected []string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := e.Message
	if len(e.Expected) > 0 {
		msg = fmt.Sprintf("%s, expected %s", msg, strings.Join(e.Expected, ", "))
	}
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, msg)
}

// LogError aggregates every problem found in one parse.
type LogError struct {
	Errors []*ParseError
}

// Add appends a problem to the log.
func (l *LogError) Add(e *ParseError) {
	l.Errors = append(l.Errors, e)
}

// Len returns the number of problems.
func (l *LogError) Len() int {
	return len(l.Errors)
}

// Error joins all messages with newlines.
func (l *LogError) Error() string {
	msgs := make([]string, len(l.Errors))
	for i, e := range l.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}
