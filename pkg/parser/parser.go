// Package parser turns expression text into a parse tree.
//
// The parser consists of three parts:
//   - Automaton: longest-match recogniser for operators and keywords
//   - Lexer: tokenizer combining the automaton with option-driven scanners
//     for numbers, names and quoted literals
//   - Parser: LL(1) driver over a Grammar of productions with precomputed
//     lookahead sets
//
// A Parser is an immutable snapshot built from Options; Parse may be called
// from several goroutines. Every syntax problem of one input is collected
// and reported together.
//
// # Example
//
//	p, err := parser.New(parser.WithDecimalSeparator(','), parser.WithArgumentSeparator(';'))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tree, err := p.Parse("Round(1,5; 0)")
package parser

import (
	"fmt"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// Parser is an immutable parser snapshot.
type Parser struct {
	opts      Options
	patterns  []TokenPattern
	automaton *Automaton
	grammar   *Grammar
}

// New builds a parser from the default options modified by opts.
func New(opts ...Option) (*Parser, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return NewWithOptions(o)
}

// NewWithOptions builds a parser snapshot from o.
func NewWithOptions(o Options) (*Parser, error) {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("parser options: %w", err)
	}
	g, err := expressionGrammar()
	if err != nil {
		return nil, err
	}

	patterns := buildPatterns(o)
	a := NewAutomaton()
	for _, p := range patterns {
		if p.Kind == PatternString {
			a.Add(p.Pattern, p.IgnoreCase, p.ID)
		}
	}
	return &Parser{
		opts:      o,
		patterns:  patterns,
		automaton: a,
		grammar:   g,
	}, nil
}

// Options returns the options the snapshot was built from.
func (p *Parser) Options() Options {
	return p.opts
}

// Patterns returns the token patterns of the snapshot.
func (p *Parser) Patterns() []TokenPattern {
	out := make([]TokenPattern, len(p.patterns))
	copy(out, p.patterns)
	return out
}

// Tokenize returns the token stream of text, without the final TokenEOF.
// Unrecognised characters are reported in the returned *LogError.
func (p *Parser) Tokenize(text string) ([]Token, error) {
	log := &LogError{}
	l := NewLexer(p.automaton, p.opts, text, log)
	var out []Token
	for t := l.Next(); t.Type != TokenEOF; t = l.Next() {
		out = append(out, t)
	}
	if log.Len() > 0 {
		return out, log
	}
	return out, nil
}

// Parse parses text into a parse tree.
//
// Syntax problems are returned as one *types.Error with reason
// SyntaxError wrapping the *LogError that lists them all. Input nested
// deeper than Options.MaxDepth fails with reason TooComplex.
func (p *Parser) Parse(text string) (*Node, error) {
	s := &parseState{parser: p, log: &LogError{}}
	s.lexer = NewLexer(p.automaton, p.opts, text, s.log)
	s.next = s.lexer.Next()

	root, err := s.parseProduction(p.grammar.Start())
	if err != nil {
		return nil, err
	}
	if s.next.Type != TokenEOF {
		s.unexpected(tokenSet(0).with(TokenEOF))
		for s.next.Type != TokenEOF {
			s.consume()
		}
	}
	if s.log.Len() > 0 {
		first := s.log.Errors[0]
		return nil, types.NewError(types.ReasonSyntaxError, s.log.Error(), first.Position).WithCause(s.log)
	}
	return root, nil
}

// parseState is the per-call state of one parse.
type parseState struct {
	parser   *Parser
	lexer    *Lexer
	log      *LogError
	next     Token
	consumed int
	depth    int
	recovery int
}

// recoveryTokens is the number of tokens that must be consumed after an
// error before another error is logged.
const recoveryTokens = 3

func (s *parseState) consume() Token {
	t := s.next
	s.next = s.lexer.Next()
	s.consumed++
	if s.recovery > 0 {
		s.recovery--
	}
	return t
}

func (s *parseState) parseProduction(p *Production) (*Node, error) {
	s.depth++
	defer func() { s.depth-- }()
	if s.depth > s.parser.opts.MaxDepth {
		return nil, types.NewError(types.ReasonTooComplex,
			fmt.Sprintf("expression nesting exceeds %d levels", s.parser.opts.MaxDepth),
			s.next.Position)
	}

	alt := p.choose(s.next.Type)
	if alt == nil {
		s.unexpected(p.lookahead)
		if s.next.Type != TokenEOF {
			s.consume()
		}
		return nil, nil
	}

	node := &Node{
		Production: p.ID,
		Name:       p.Name,
		Position:   s.next.Position,
		Line:       s.next.Line,
		Column:     s.next.Column,
	}
	for _, e := range alt.Elements {
		if err := s.parseElement(node, e); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (p *Production) choose(tt TokenType) *Alternative {
	var empty *Alternative
	for _, alt := range p.Alternatives {
		if alt.lookahead.has(tt) {
			return alt
		}
		if alt.nullable {
			empty = alt
		}
	}
	return empty
}

func (s *parseState) parseElement(parent *Node, e *Element) error {
	for i := 0; i < e.Max; i++ {
		if i >= e.Min && !e.lookahead.has(s.next.Type) {
			return nil
		}

		if e.Kind == ElementToken {
			if s.next.Type != e.Token {
				s.unexpected(e.lookahead)
				if s.next.Type != TokenEOF {
					s.consume()
				}
				return nil
			}
			t := s.consume()
			parent.Children = append(parent.Children, &Node{
				Token:    t.Type,
				Name:     t.Type.String(),
				Image:    t.Image,
				Position: t.Position,
				Line:     t.Line,
				Column:   t.Column,
			})
			continue
		}

		before := s.consumed
		prod := s.parser.grammar.Production(e.Production)
		child, err := s.parseProduction(prod)
		if err != nil {
			return err
		}
		if child == nil {
			return nil
		}
		if prod.Synthetic {
			parent.Children = append(parent.Children, child.Children...)
		} else {
			parent.Children = append(parent.Children, child)
		}
		if s.consumed == before {
			return nil
		}
	}
	return nil
}

func (s *parseState) unexpected(expected tokenSet) {
	if s.recovery > 0 {
		return
	}
	s.recovery = recoveryTokens

	e := &ParseError{
		Kind:     ErrUnexpectedToken,
		Message:  fmt.Sprintf("unexpected token %q", s.next.Image),
		Position: s.next.Position,
		Line:     s.next.Line,
		Column:   s.next.Column,
	}
	if s.next.Type == TokenEOF {
		e.Kind = ErrUnexpectedEOF
		e.Message = "unexpected end of expression"
	}
	for _, tt := range expected.tokens() {
		e.Expected = append(e.Expected, s.parser.tokenName(tt))
	}
	s.log.Add(e)
}

func (p *Parser) tokenName(tt TokenType) string {
	switch {
	case tt == TokenArgSeparator:
		return fmt.Sprintf("%q", string(p.opts.FunctionArgumentSeparator))
	case tt == TokenEOF || tt == TokenError || (tt >= TokenInteger && tt <= TokenIdentifier):
		return tt.String()
	}
	return fmt.Sprintf("%q", tt.String())
}
