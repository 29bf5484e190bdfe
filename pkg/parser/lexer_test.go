package parser_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/parser"
)

type tok struct {
	Type  parser.TokenType
	Image string
}

func tokenize(t *testing.T, p *parser.Parser, input string) []tok {
	t.Helper()
	tokens, err := p.Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize(%q) error: %v", input, err)
	}
	out := make([]tok, len(tokens))
	for i, tk := range tokens {
		out[i] = tok{tk.Type, tk.Image}
	}
	return out
}

func TestLexer_Tokens(t *testing.T) {
	p, err := parser.New()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		input string
		want  []tok
	}{
		{"1 + 2", []tok{{parser.TokenInteger, "1"}, {parser.TokenPlus, "+"}, {parser.TokenInteger, "2"}}},
		{"42ul", []tok{{parser.TokenInteger, "42ul"}}},
		{"0xFFl", []tok{{parser.TokenHex, "0xFFl"}}},
		{"1.5 .5 1e5 2.5e-3f 3m 4d", []tok{
			{parser.TokenReal, "1.5"}, {parser.TokenReal, ".5"}, {parser.TokenReal, "1e5"},
			{parser.TokenReal, "2.5e-3f"}, {parser.TokenReal, "3m"}, {parser.TokenReal, "4d"},
		}},
		{`"a\"b"`, []tok{{parser.TokenString, `"a\"b"`}}},
		{`'x' '\n'`, []tok{{parser.TokenChar, "'x'"}, {parser.TokenChar, `'\n'`}}},
		{"#01/02/2006#", []tok{{parser.TokenDateTime, "#01/02/2006#"}}},
		{"##1.02:03:04.5#", []tok{{parser.TokenTimeSpan, "##1.02:03:04.5#"}}},
		{"a AND android", []tok{{parser.TokenIdentifier, "a"}, {parser.TokenAnd, "AND"}, {parser.TokenIdentifier, "android"}}},
		{"@if _x1", []tok{{parser.TokenIdentifier, "@if"}, {parser.TokenIdentifier, "_x1"}}},
		{"a<=b<>c<<d>=e>>f", []tok{
			{parser.TokenIdentifier, "a"}, {parser.TokenLessEqual, "<="},
			{parser.TokenIdentifier, "b"}, {parser.TokenNotEqual, "<>"},
			{parser.TokenIdentifier, "c"}, {parser.TokenShiftLeft, "<<"},
			{parser.TokenIdentifier, "d"}, {parser.TokenGreaterEqual, ">="},
			{parser.TokenIdentifier, "e"}, {parser.TokenShiftRight, ">>"},
			{parser.TokenIdentifier, "f"},
		}},
		{"f(a, b)[0].c", []tok{
			{parser.TokenIdentifier, "f"}, {parser.TokenParenOpen, "("},
			{parser.TokenIdentifier, "a"}, {parser.TokenArgSeparator, ","},
			{parser.TokenIdentifier, "b"}, {parser.TokenParenClose, ")"},
			{parser.TokenBracketOpen, "["}, {parser.TokenInteger, "0"}, {parser.TokenBracketClose, "]"},
			{parser.TokenDot, "."}, {parser.TokenIdentifier, "c"},
		}},
		{"", []tok{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := tokenize(t, p, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestLexer_CustomSeparators(t *testing.T) {
	p, err := parser.New(parser.WithDecimalSeparator(','), parser.WithArgumentSeparator(';'))
	if err != nil {
		t.Fatal(err)
	}

	got := tokenize(t, p, "Round(1,5; 2)")
	want := []tok{
		{parser.TokenIdentifier, "Round"}, {parser.TokenParenOpen, "("},
		{parser.TokenReal, "1,5"}, {parser.TokenArgSeparator, ";"},
		{parser.TokenInteger, "2"}, {parser.TokenParenClose, ")"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLexer_RequireDigitsBeforeDecimalPoint(t *testing.T) {
	p, err := parser.New(parser.WithRequireDigitsBeforeDecimalPoint(true))
	if err != nil {
		t.Fatal(err)
	}
	got := tokenize(t, p, ".5")
	want := []tok{{parser.TokenDot, "."}, {parser.TokenInteger, "5"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLexer_Positions(t *testing.T) {
	p, _ := parser.New()
	tokens, err := p.Tokenize("a +\n  bb")
	if err != nil {
		t.Fatal(err)
	}
	last := tokens[len(tokens)-1]
	if last.Position != 6 || last.Line != 2 || last.Column != 3 {
		t.Errorf("bb at position %d line %d column %d, want 6/2/3", last.Position, last.Line, last.Column)
	}
}

func TestLexer_ColumnsAfterMultibyteRunes(t *testing.T) {
	p, _ := parser.New()
	tokens, err := p.Tokenize("\"é\" + x\n\"日本\" + yy")
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]int{{1, 1}, {1, 5}, {1, 7}, {2, 1}, {2, 6}, {2, 8}}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, tk := range tokens {
		if tk.Line != want[i][0] || tk.Column != want[i][1] {
			t.Errorf("token %q at %d:%d, want %d:%d", tk.Image, tk.Line, tk.Column, want[i][0], want[i][1])
		}
	}
}

func TestLexer_UnicodeIdentifiers(t *testing.T) {
	p, _ := parser.New()
	got := tokenize(t, p, "préço And _x1 ÅND")
	want := []tok{
		{parser.TokenIdentifier, "préço"},
		{parser.TokenAnd, "And"},
		{parser.TokenIdentifier, "_x1"},
		{parser.TokenIdentifier, "ÅND"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestLexer_LongLine(t *testing.T) {
	p, _ := parser.New()
	const terms = 50000
	input := strings.Repeat("1+", terms-1) + "1"

	start := time.Now()
	tokens, err := p.Tokenize(input)
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 2*terms-1 {
		t.Fatalf("got %d tokens, want %d", len(tokens), 2*terms-1)
	}
	if last := tokens[len(tokens)-1]; last.Column != len(input) {
		t.Errorf("last token at column %d, want %d", last.Column, len(input))
	}

	_, err = p.Tokenize(strings.Repeat("$", 100000))
	if err == nil {
		t.Fatal("expected errors for unexpected characters")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("tokenizing long lines took %v", elapsed)
	}
}

func TestLexer_UnexpectedCharacters(t *testing.T) {
	p, _ := parser.New()
	tokens, err := p.Tokenize("1 $ 2 ?")
	var log *parser.LogError
	if !errors.As(err, &log) {
		t.Fatalf("expected *LogError, got %v", err)
	}
	if log.Len() != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", log.Len(), log)
	}
	if log.Errors[0].Kind != parser.ErrUnexpectedChar || log.Errors[0].Column != 3 {
		t.Errorf("unexpected first error %+v", log.Errors[0])
	}
	if len(tokens) != 2 {
		t.Errorf("expected the two integers to survive, got %d tokens", len(tokens))
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name string
		opts []parser.Option
	}{
		{"same separators", []parser.Option{parser.WithDecimalSeparator(','), parser.WithArgumentSeparator(',')}},
		{"letter separator", []parser.Option{parser.WithArgumentSeparator('a')}},
		{"operator separator", []parser.Option{parser.WithArgumentSeparator('+')}},
		{"empty date format", []parser.Option{parser.WithDateTimeFormat("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parser.New(tt.opts...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		text, format string
		want         time.Time
	}{
		{"01/02/2006", "dd/MM/yyyy", time.Date(2006, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-12-31 23:59", "yyyy-MM-dd HH:mm", time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := parser.ParseDateTime(tt.text, tt.format)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDateTime() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := parser.ParseDateTime("31/31/2020", "dd/MM/yyyy"); err == nil {
		t.Error("expected an invalid date error")
	}
}

func TestParseTimeSpan(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
	}{
		{"02:03", 2*time.Hour + 3*time.Minute},
		{"1.02:03:04", 26*time.Hour + 3*time.Minute + 4*time.Second},
		{"00:00:01.5", 1500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := parser.ParseTimeSpan(tt.text)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ParseTimeSpan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{`plain`, "plain", false},
		{`a\tb\nc`, "a\tb\nc", false},
		{`\"q\" \'s\' \\`, `"q" 's' \`, false},
		{`\u0041`, "A", false},
		{`\uD83D\uDE00`, "\U0001F600", false},
		{`\x`, "", true},
		{`\u12`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parser.Unescape(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unescape() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Unescape() = %q, want %q", got, tt.want)
			}
		})
	}
}
