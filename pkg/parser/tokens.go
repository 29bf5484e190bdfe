package parser

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42, 42u, 42l, 42ul
	TokenReal       // 1.5, .5, 1.5e3, 1.5f, 2m
	TokenHex        // 0xff, 0xffu
	TokenString     // "text"
	TokenChar       // 'c'
	TokenDateTime   // #01/02/2006#
	TokenTimeSpan   // ##1.02:03:04#
	TokenIdentifier // name, _name, @if

	// Keywords
	TokenTrue  // true
	TokenFalse // false
	TokenNull  // null
	TokenAnd   // and
	TokenOr    // or
	TokenXor   // xor
	TokenNot   // not
	TokenIn    // in
	TokenIf    // if
	TokenCast  // cast

	// Arithmetic operators
	TokenPlus  // +
	TokenMinus // -
	TokenMult  // *
	TokenDiv   // /
	TokenMod   // %
	TokenPower // ^

	// Grouping symbols
	TokenParenOpen    // (
	TokenParenClose   // )
	TokenBracketOpen  // [
	TokenBracketClose // ]

	// Basic symbols
	TokenDot          // .
	TokenArgSeparator // , (configurable)

	// Comparison operators
	TokenEqual        // =
	TokenNotEqual     // <>
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=

	// Shift operators
	TokenShiftLeft  // <<
	TokenShiftRight // >>

	tokenTypeCount
)

var tokenNames = [tokenTypeCount]string{
	TokenEOF:          "(eof)",
	TokenError:        "(error)",
	TokenInteger:      "(integer)",
	TokenReal:         "(real)",
	TokenHex:          "(hex)",
	TokenString:       "(string)",
	TokenChar:         "(char)",
	TokenDateTime:     "(datetime)",
	TokenTimeSpan:     "(timespan)",
	TokenIdentifier:   "(identifier)",
	TokenTrue:         "true",
	TokenFalse:        "false",
	TokenNull:         "null",
	TokenAnd:          "and",
	TokenOr:           "or",
	TokenXor:          "xor",
	TokenNot:          "not",
	TokenIn:           "in",
	TokenIf:           "if",
	TokenCast:         "cast",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenMult:         "*",
	TokenDiv:          "/",
	TokenMod:          "%",
	TokenPower:        "^",
	TokenParenOpen:    "(",
	TokenParenClose:   ")",
	TokenBracketOpen:  "[",
	TokenBracketClose: "]",
	TokenDot:          ".",
	TokenArgSeparator: "(separator)",
	TokenEqual:        "=",
	TokenNotEqual:     "<>",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenShiftLeft:    "<<",
	TokenShiftRight:   ">>",
}

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	if tt < tokenTypeCount {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", uint8(tt))
}

// Token represents a lexical token.
type Token struct {
	Type     TokenType
	Image    string
	Position int // byte offset in the source
	Line     int // 1-based
	Column   int // 1-based, in runes
}

// PatternKind distinguishes fixed-string patterns from scanned ones.
type PatternKind uint8

const (
	// PatternString matches a fixed string through the automaton.
	PatternString PatternKind = iota
	// PatternVariable is matched by a scanner configured from Options.
	PatternVariable
)

// TokenPattern describes how one token type is recognised.
type TokenPattern struct {
	ID         TokenType
	Name       string
	Kind       PatternKind
	Pattern    string
	IgnoreCase bool
}

// keywordPatterns are the case-insensitive fixed strings.
var keywordPatterns = []TokenType{
	TokenTrue, TokenFalse, TokenNull,
	TokenAnd, TokenOr, TokenXor, TokenNot, TokenIn,
	TokenIf, TokenCast,
}

// symbolPatterns are the fixed operator strings. The argument separator is
// added from Options.
var symbolPatterns = []TokenType{
	TokenPlus, TokenMinus, TokenMult, TokenDiv, TokenMod, TokenPower,
	TokenParenOpen, TokenParenClose, TokenBracketOpen, TokenBracketClose,
	TokenDot,
	TokenEqual, TokenNotEqual, TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual,
	TokenShiftLeft, TokenShiftRight,
}

// buildPatterns computes the token pattern table for a set of options.
// Patterns that depend on options (real numbers, argument separator) are
// rebuilt here every time a parser snapshot is built.
func buildPatterns(opts Options) []TokenPattern {
	patterns := make([]TokenPattern, 0, tokenTypeCount)
	for _, tt := range keywordPatterns {
		patterns = append(patterns, TokenPattern{
			ID: tt, Name: strings.ToUpper(tt.String()), Kind: PatternString,
			Pattern: tt.String(), IgnoreCase: true,
		})
	}
	for _, tt := range symbolPatterns {
		patterns = append(patterns, TokenPattern{
			ID: tt, Name: tt.String(), Kind: PatternString, Pattern: tt.String(),
		})
	}
	patterns = append(patterns, TokenPattern{
		ID: TokenArgSeparator, Name: "ARGUMENT_SEPARATOR", Kind: PatternString,
		Pattern: string(opts.FunctionArgumentSeparator),
	})

	digitsBefore := "*"
	if opts.RequireDigitsBeforeDecimalPoint {
		digitsBefore = "+"
	}
	sep := string(opts.DecimalSeparator)
	if sep == "." {
		sep = `\.`
	}

	variable := []TokenPattern{
		{ID: TokenInteger, Name: "INTEGER", Pattern: `\d+(u|l|ul|lu)?`},
		{ID: TokenReal, Name: "REAL", Pattern: `\d` + digitsBefore + sep + `\d+(e[+-]?\d{1,3})?[dfm]?|\d+e[+-]?\d{1,3}[dfm]?|\d+[dfm]`},
		{ID: TokenHex, Name: "HEX", Pattern: `0x[0-9a-f]+(u|l|ul|lu)?`},
		{ID: TokenString, Name: "STRING", Pattern: `"([^"\r\n\\]|\\u[0-9a-f]{4}|\\[\\"'trn])*"`},
		{ID: TokenChar, Name: "CHAR", Pattern: `'([^'\r\n\\]|\\u[0-9a-f]{4}|\\[\\"'trn])'`},
		{ID: TokenDateTime, Name: "DATETIME", Pattern: `#[^#\r\n]+#`},
		{ID: TokenTimeSpan, Name: "TIMESPAN", Pattern: `##(\d+\.)?\d{2}:\d{2}(:\d{2}(\.\d{1,7})?)?#`},
		{ID: TokenIdentifier, Name: "IDENTIFIER", Pattern: `@?[a-z_]\w*`},
	}
	for _, p := range variable {
		p.Kind = PatternVariable
		p.IgnoreCase = true
		patterns = append(patterns, p)
	}
	return patterns
}
