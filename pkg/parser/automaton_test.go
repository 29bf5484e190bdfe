package parser

import "testing"

func TestAutomatonLongestMatch(t *testing.T) {
	a := NewAutomaton()
	a.Add("<", false, TokenLess)
	a.Add("<=", false, TokenLessEqual)
	a.Add("<<", false, TokenShiftLeft)
	a.Add("<>", false, TokenNotEqual)
	a.Add("and", true, TokenAnd)

	tests := []struct {
		input   string
		pos     int
		want    TokenType
		wantLen int
	}{
		{"<", 0, TokenLess, 1},
		{"<= 1", 0, TokenLessEqual, 2},
		{"a << 2", 2, TokenShiftLeft, 2},
		{"<>", 0, TokenNotEqual, 2},
		{"<3", 0, TokenLess, 1},
		{"AnD", 0, TokenAnd, 3},
		{"an", 0, TokenEOF, 0},
		{"x", 0, TokenEOF, 0},
		{"", 0, TokenEOF, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, n := a.Match(tt.input, tt.pos)
			if got != tt.want || n != tt.wantLen {
				t.Errorf("Match(%q, %d) = (%v, %d), want (%v, %d)", tt.input, tt.pos, got, n, tt.want, tt.wantLen)
			}
		})
	}
}

func TestAutomatonNonASCII(t *testing.T) {
	a := NewAutomaton()
	a.Add("§", false, TokenArgSeparator)

	got, n := a.Match("1§2", 1)
	if got != TokenArgSeparator || n != len("§") {
		t.Fatalf("Match() = (%v, %d), want (%v, %d)", got, n, TokenArgSeparator, len("§"))
	}
}

func TestTokenSet(t *testing.T) {
	var s tokenSet
	s = s.with(TokenPlus).with(TokenShiftRight).with(TokenEOF)

	if !s.has(TokenPlus) || !s.has(TokenShiftRight) || !s.has(TokenEOF) {
		t.Fatalf("set %v is missing members", s.tokens())
	}
	if s.has(TokenMinus) {
		t.Fatal("unexpected member")
	}
	if got := len(s.tokens()); got != 3 {
		t.Fatalf("tokens() has %d members, want 3", got)
	}
}

func TestGrammarRejectsConflicts(t *testing.T) {
	g := NewGrammar(1)
	g.Add(NewProduction(1, "Start").
		Alt(Tok(TokenIdentifier, 1, 1)).
		Alt(Tok(TokenIdentifier, 1, 1), Tok(TokenDot, 1, 1)))
	if err := g.Prepare(); err == nil {
		t.Fatal("expected conflict between alternatives")
	}

	g = NewGrammar(1)
	g.Add(NewProduction(1, "Start").Alt(Ref(2, 1, 1)))
	if err := g.Prepare(); err == nil {
		t.Fatal("expected undefined production error")
	}
}

func TestExpressionGrammarPrepares(t *testing.T) {
	g, err := expressionGrammar()
	if err != nil {
		t.Fatal(err)
	}
	if g.Start().ID != ProdExpression {
		t.Fatalf("start production = %d, want %d", g.Start().ID, ProdExpression)
	}
}
