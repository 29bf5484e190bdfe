package parser

import (
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"
)

const eof = -1

// Lexer converts an expression into a sequence of tokens.
//
// Fixed strings (operators and keywords) are recognised by the shared
// Automaton; numbers, identifiers and quoted literals are recognised by
// scanners configured from Options. The longest match wins and on a tie the
// fixed string wins, so "and" is a keyword while "android" is an identifier.
//
// Unrecognised characters are logged and skipped; the lexer never stops on
// the first problem.
type Lexer struct {
	automaton *Automaton
	opts      Options
	log       *LogError

	input      string // Input string being scanned
	length     int    // Length of input string
	start      int    // Start position of current token
	current    int    // Current position in input
	width      int    // Width of last rune read
	lineStarts []int  // Byte offsets of line starts

	// Last position resolved by lineColumn with its line index and column.
	markPos, markLine, markCol int
}

type scanner struct {
	tt   TokenType
	scan func(*Lexer) bool
}

var variableScanners = []scanner{
	{TokenHex, (*Lexer).scanHex},
	{TokenReal, (*Lexer).scanReal},
	{TokenInteger, (*Lexer).scanInteger},
	{TokenString, (*Lexer).scanString},
	{TokenChar, (*Lexer).scanChar},
	{TokenTimeSpan, (*Lexer).scanTimeSpan},
	{TokenDateTime, (*Lexer).scanDateTime},
	{TokenIdentifier, (*Lexer).scanIdentifier},
}

// NewLexer creates a lexer over input. Errors are appended to log.
func NewLexer(a *Automaton, opts Options, input string, log *LogError) *Lexer {
	l := &Lexer{automaton: a, opts: opts}
	l.Reset(input, log)
	return l
}

// Reset prepares the lexer for a new input.
func (l *Lexer) Reset(input string, log *LogError) {
	l.input = input
	l.length = len(input)
	l.start = 0
	l.current = 0
	l.width = 0
	l.log = log
	l.markPos, l.markLine, l.markCol = 0, 0, 1
	l.lineStarts = l.lineStarts[:0]
	l.lineStarts = append(l.lineStarts, 0)
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			l.lineStarts = append(l.lineStarts, i+1)
		}
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all
// subsequent calls.
func (l *Lexer) Next() Token {
	for {
		l.skipWhitespace()
		if l.current >= l.length {
			return l.eof()
		}

		start := l.current
		fixed, fixedLen := l.automaton.Match(l.input, start)

		best, bestLen := TokenEOF, 0
		for _, s := range variableScanners {
			l.current = start
			if s.scan(l) && l.current-start > bestLen {
				best, bestLen = s.tt, l.current-start
			}
		}
		if fixedLen > 0 && fixedLen >= bestLen {
			best, bestLen = fixed, fixedLen
		}

		if bestLen == 0 {
			l.current = start
			r := l.nextRune()
			line, col := l.lineColumn(start)
			l.log.Add(&ParseError{
				Kind:     ErrUnexpectedChar,
				Message:  fmt.Sprintf("unexpected character %q", r),
				Position: start,
				Line:     line,
				Column:   col,
			})
			l.ignore()
			continue
		}

		l.current = start + bestLen
		return l.newToken(best)
	}
}

// scanHex reads 0x followed by hex digits and an optional u/l suffix.
func (l *Lexer) scanHex() bool {
	if !l.acceptRune('0') || !l.acceptRunes2('x', 'X') {
		return false
	}
	if !l.acceptAll(isHexDigit) {
		return false
	}
	l.acceptIntegerSuffix()
	return true
}

// scanInteger reads digits and an optional u/l suffix.
func (l *Lexer) scanInteger() bool {
	if !l.acceptAll(isDigit) {
		return false
	}
	l.acceptIntegerSuffix()
	return true
}

// scanReal reads a real number:
//
//	digits? SEP digits exponent? suffix?
//	digits exponent suffix?
//	digits suffix
//
// where SEP is the configured decimal separator and a leading digit is
// mandatory with RequireDigitsBeforeDecimalPoint.
func (l *Lexer) scanReal() bool {
	hasInt := l.acceptAll(isDigit)
	if l.acceptRune(l.opts.DecimalSeparator) {
		if !hasInt && l.opts.RequireDigitsBeforeDecimalPoint {
			return false
		}
		if !l.acceptAll(isDigit) {
			return false
		}
		l.acceptExponent()
		l.accept(isRealSuffix)
		return true
	}
	if !hasInt {
		return false
	}
	exp := l.acceptExponent()
	return l.accept(isRealSuffix) || exp
}

func (l *Lexer) acceptExponent() bool {
	mark := l.current
	if !l.acceptRunes2('e', 'E') {
		return false
	}
	l.acceptRunes2('+', '-')
	n := 0
	for n < 3 && l.accept(isDigit) {
		n++
	}
	if n == 0 {
		l.current = mark
		return false
	}
	return true
}

func (l *Lexer) acceptIntegerSuffix() {
	if l.acceptRunes2('u', 'U') {
		l.acceptRunes2('l', 'L')
		return
	}
	if l.acceptRunes2('l', 'L') {
		l.acceptRunes2('u', 'U')
	}
}

// scanString reads a double-quoted string with escapes.
func (l *Lexer) scanString() bool {
	if !l.acceptRune('"') {
		return false
	}
	for {
		switch r := l.nextRune(); r {
		case '"':
			return true
		case '\\':
			if !l.acceptEscape() {
				return false
			}
		case eof, '\r', '\n':
			return false
		}
	}
}

// scanChar reads a single-quoted character.
func (l *Lexer) scanChar() bool {
	if !l.acceptRune('\'') {
		return false
	}
	switch r := l.nextRune(); r {
	case '\\':
		if !l.acceptEscape() {
			return false
		}
	case eof, '\'', '\r', '\n':
		return false
	}
	return l.acceptRune('\'')
}

func (l *Lexer) acceptEscape() bool {
	switch l.nextRune() {
	case '\\', '"', '\'', 't', 'r', 'n':
		return true
	case 'u', 'U':
		for i := 0; i < 4; i++ {
			if !l.accept(isHexDigit) {
				return false
			}
		}
		return true
	}
	return false
}

// scanDateTime reads #...#.
func (l *Lexer) scanDateTime() bool {
	if !l.acceptRune('#') {
		return false
	}
	if !l.acceptAll(func(r rune) bool { return r != '#' && r != '\r' && r != '\n' && r != eof }) {
		return false
	}
	return l.acceptRune('#')
}

// scanTimeSpan reads ##[d.]hh:mm[:ss[.fffffff]]#.
func (l *Lexer) scanTimeSpan() bool {
	if !l.acceptRune('#') || !l.acceptRune('#') {
		return false
	}
	mark := l.current
	if l.acceptAll(isDigit) && !l.acceptRune('.') {
		l.current = mark
	}
	if !l.acceptDigits(2) || !l.acceptRune(':') || !l.acceptDigits(2) {
		return false
	}
	if l.acceptRune(':') {
		if !l.acceptDigits(2) {
			return false
		}
		if l.acceptRune('.') {
			n := 0
			for n < 7 && l.accept(isDigit) {
				n++
			}
			if n == 0 {
				return false
			}
		}
	}
	return l.acceptRune('#')
}

// scanIdentifier reads a name. A leading @ marks a verbatim name that may
// spell a keyword.
func (l *Lexer) scanIdentifier() bool {
	l.acceptRune('@')
	if !l.accept(isIdentStart) {
		return false
	}
	l.acceptAll(isIdentPart)
	return true
}

// Helper methods

func (l *Lexer) eof() Token {
	line, col := l.lineColumn(l.current)
	return Token{
		Type:     TokenEOF,
		Position: l.current,
		Line:     line,
		Column:   col,
	}
}

func (l *Lexer) newToken(tt TokenType) Token {
	line, col := l.lineColumn(l.start)
	t := Token{
		Type:     tt,
		Image:    l.input[l.start:l.current],
		Position: l.start,
		Line:     line,
		Column:   col,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) lineColumn(pos int) (int, int) {
	i := sort.Search(len(l.lineStarts), func(i int) bool { return l.lineStarts[i] > pos }) - 1
	if i < 0 {
		i = 0
	}
	from, col := l.lineStarts[i], 1
	if i == l.markLine && pos >= l.markPos {
		from, col = l.markPos, l.markCol
	}
	col += utf8.RuneCountInString(l.input[from:pos])
	l.markPos, l.markLine, l.markCol = pos, i, col
	return i + 1, col
}

func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

func (l *Lexer) acceptDigits(n int) bool {
	for i := 0; i < n; i++ {
		if !l.accept(isDigit) {
			return false
		}
	}
	return true
}

func (l *Lexer) skipWhitespace() {
	l.acceptAll(isWhitespace)
	l.ignore()
}

// Character classification functions

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isRealSuffix(r rune) bool {
	switch r {
	case 'd', 'D', 'f', 'F', 'm', 'M':
		return true
	default:
		return false
	}
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentStart(r rune) bool {
	return r == '_' || isLetter(r) || (r > utf8.RuneSelf && unicode.IsLetter(r))
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}
