package parser

import (
	"fmt"
	"unicode"
)

// DefaultMaxDepth is the default limit on nested grammar productions.
const DefaultMaxDepth = 2000

// DefaultDateTimeFormat is the default layout of #...# literals.
const DefaultDateTimeFormat = "dd/MM/yyyy"

// Options holds the settings that change the lexical shape of the language.
// A parser snapshot is built from one Options value and never changes; to
// apply new options build a new parser.
type Options struct {
	// DateTimeFormat is the layout of #...# literals, written with
	// day/month/year specifiers such as "dd/MM/yyyy HH:mm".
	DateTimeFormat string
	// RequireDigitsBeforeDecimalPoint rejects reals such as ".5".
	RequireDigitsBeforeDecimalPoint bool
	// DecimalSeparator separates the integer and fractional part of reals.
	DecimalSeparator rune
	// FunctionArgumentSeparator separates call arguments.
	FunctionArgumentSeparator rune
	// MaxDepth limits production nesting to reject pathological input.
	MaxDepth int
}

// DefaultOptions returns the default lexical options.
func DefaultOptions() Options {
	return Options{
		DateTimeFormat:            DefaultDateTimeFormat,
		DecimalSeparator:          '.',
		FunctionArgumentSeparator: ',',
		MaxDepth:                  DefaultMaxDepth,
	}
}

// Validate checks that the options describe an unambiguous language.
func (o Options) Validate() error {
	if o.DecimalSeparator == o.FunctionArgumentSeparator {
		return fmt.Errorf("decimal separator and argument separator are both %q", o.DecimalSeparator)
	}
	for _, r := range []rune{o.DecimalSeparator, o.FunctionArgumentSeparator} {
		if r == 0 || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			return fmt.Errorf("invalid separator %q", r)
		}
	}
	if o.FunctionArgumentSeparator != ',' {
		if _, clash := lookupSymbol(o.FunctionArgumentSeparator); clash {
			return fmt.Errorf("argument separator %q is already an operator", o.FunctionArgumentSeparator)
		}
	}
	if o.DateTimeFormat == "" {
		return fmt.Errorf("empty date/time format")
	}
	if _, err := DateLayout(o.DateTimeFormat); err != nil {
		return err
	}
	return nil
}

// Option configures the lexical options.
type Option func(*Options)

// WithDateTimeFormat sets the layout of date/time literals.
func WithDateTimeFormat(format string) Option {
	return func(opts *Options) {
		opts.DateTimeFormat = format
	}
}

// WithRequireDigitsBeforeDecimalPoint toggles the leading digit requirement.
func WithRequireDigitsBeforeDecimalPoint(require bool) Option {
	return func(opts *Options) {
		opts.RequireDigitsBeforeDecimalPoint = require
	}
}

// WithDecimalSeparator sets the decimal separator.
func WithDecimalSeparator(sep rune) Option {
	return func(opts *Options) {
		opts.DecimalSeparator = sep
	}
}

// WithArgumentSeparator sets the function argument separator.
func WithArgumentSeparator(sep rune) Option {
	return func(opts *Options) {
		opts.FunctionArgumentSeparator = sep
	}
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) Option {
	return func(opts *Options) {
		opts.MaxDepth = depth
	}
}

func lookupSymbol(r rune) (TokenType, bool) {
	for _, tt := range symbolPatterns {
		s := tt.String()
		if len(s) == 1 && rune(s[0]) == r {
			return tt, true
		}
	}
	return TokenEOF, false
}
