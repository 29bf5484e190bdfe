package parser

import (
	"fmt"
	"math"
	"math/bits"
)

// ProductionID identifies a grammar production.
type ProductionID uint16

// Unbounded is the Max of an element that repeats without limit.
const Unbounded = math.MaxInt

// tokenSet is a set of token types; tokenTypeCount fits in one word.
type tokenSet uint64

func (s tokenSet) has(tt TokenType) bool {
	return s&(1<<tt) != 0
}

func (s tokenSet) with(tt TokenType) tokenSet {
	return s | 1<<tt
}

func (s tokenSet) tokens() []TokenType {
	out := make([]TokenType, 0, bits.OnesCount64(uint64(s)))
	for tt := TokenType(0); tt < tokenTypeCount; tt++ {
		if s.has(tt) {
			out = append(out, tt)
		}
	}
	return out
}

func (s tokenSet) names() []string {
	tts := s.tokens()
	out := make([]string, len(tts))
	for i, tt := range tts {
		out[i] = tt.String()
	}
	return out
}

// ElementKind tells whether an element references a token or a production.
type ElementKind uint8

const (
	ElementToken ElementKind = iota
	ElementProduction
)

// Element is one reference inside a production alternative, with repetition
// bounds and the lookahead set computed by Grammar.Prepare.
type Element struct {
	Kind       ElementKind
	Token      TokenType
	Production ProductionID
	Min        int
	Max        int

	lookahead tokenSet
}

// normalizeBounds applies the repetition rules: a negative minimum is zero,
// a non-positive maximum is unbounded and a maximum below the minimum is
// raised to it.
func normalizeBounds(min, max int) (int, int) {
	if min < 0 {
		min = 0
	}
	if max <= 0 {
		max = Unbounded
	} else if max < min {
		max = min
	}
	return min, max
}

// Tok returns an element matching token tt between min and max times.
func Tok(tt TokenType, min, max int) *Element {
	min, max = normalizeBounds(min, max)
	return &Element{Kind: ElementToken, Token: tt, Min: min, Max: max}
}

// Ref returns an element matching production id between min and max times.
func Ref(id ProductionID, min, max int) *Element {
	min, max = normalizeBounds(min, max)
	return &Element{Kind: ElementProduction, Production: id, Min: min, Max: max}
}

// Lookahead returns the tokens that can begin the element.
func (e *Element) Lookahead() []TokenType {
	return e.lookahead.tokens()
}

// Alternative is one sequence of elements of a production.
type Alternative struct {
	Elements []*Element

	lookahead tokenSet
	nullable  bool
}

// Production is a grammar rule. Synthetic productions do not appear in the
// parse tree: their children are spliced into the parent node.
type Production struct {
	ID           ProductionID
	Name         string
	Synthetic    bool
	Alternatives []*Alternative

	lookahead tokenSet
	nullable  bool
}

// NewProduction creates a production without alternatives.
func NewProduction(id ProductionID, name string) *Production {
	return &Production{ID: id, Name: name}
}

// Alt appends an alternative and returns the production.
func (p *Production) Alt(elems ...*Element) *Production {
	p.Alternatives = append(p.Alternatives, &Alternative{Elements: elems})
	return p
}

// Hidden marks the production as synthetic and returns it.
func (p *Production) Hidden() *Production {
	p.Synthetic = true
	return p
}

// Grammar is a set of productions with a start production. It is immutable
// once Prepare has succeeded.
type Grammar struct {
	start       ProductionID
	productions map[ProductionID]*Production
	order       []*Production
	prepared    bool
}

// NewGrammar creates an empty grammar.
func NewGrammar(start ProductionID) *Grammar {
	return &Grammar{start: start, productions: make(map[ProductionID]*Production)}
}

// Add registers a production.
func (g *Grammar) Add(p *Production) {
	g.productions[p.ID] = p
	g.order = append(g.order, p)
}

// Production returns a production by id.
func (g *Grammar) Production(id ProductionID) *Production {
	return g.productions[id]
}

// Start returns the start production.
func (g *Grammar) Start() *Production {
	return g.productions[g.start]
}

// Prepare validates references, computes nullability and lookahead sets and
// rejects alternatives that one token of lookahead cannot tell apart.
func (g *Grammar) Prepare() error {
	if g.prepared {
		return nil
	}
	if g.productions[g.start] == nil {
		return fmt.Errorf("grammar: start production %d is not defined", g.start)
	}
	for _, p := range g.order {
		if len(p.Alternatives) == 0 {
			return fmt.Errorf("grammar: production %s has no alternatives", p.Name)
		}
		for _, alt := range p.Alternatives {
			for _, e := range alt.Elements {
				if e.Kind == ElementProduction && g.productions[e.Production] == nil {
					return fmt.Errorf("grammar: production %s references undefined production %d", p.Name, e.Production)
				}
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, p := range g.order {
			for _, alt := range p.Alternatives {
				first, nullable := g.sequenceFirst(alt.Elements)
				if first|alt.lookahead != alt.lookahead || nullable != alt.nullable {
					alt.lookahead |= first
					alt.nullable = nullable
				}
				if alt.lookahead|p.lookahead != p.lookahead {
					p.lookahead |= alt.lookahead
					changed = true
				}
				if alt.nullable && !p.nullable {
					p.nullable = true
					changed = true
				}
			}
		}
	}

	for _, p := range g.order {
		for _, alt := range p.Alternatives {
			for _, e := range alt.Elements {
				e.lookahead, _ = g.elementFirst(e)
			}
		}
		if err := g.checkConflicts(p); err != nil {
			return err
		}
	}
	g.prepared = true
	return nil
}

func (g *Grammar) elementFirst(e *Element) (tokenSet, bool) {
	if e.Kind == ElementToken {
		return tokenSet(0).with(e.Token), e.Min == 0
	}
	p := g.productions[e.Production]
	return p.lookahead, e.Min == 0 || p.nullable
}

func (g *Grammar) sequenceFirst(elems []*Element) (tokenSet, bool) {
	var first tokenSet
	for _, e := range elems {
		set, nullable := g.elementFirst(e)
		first |= set
		if !nullable {
			return first, false
		}
	}
	return first, true
}

func (g *Grammar) checkConflicts(p *Production) error {
	nullableAlts := 0
	for i, a := range p.Alternatives {
		if a.nullable {
			nullableAlts++
		}
		for j := i + 1; j < len(p.Alternatives); j++ {
			b := p.Alternatives[j]
			if overlap := a.lookahead & b.lookahead; overlap != 0 {
				return fmt.Errorf("grammar: production %s: alternatives %d and %d both start with %v",
					p.Name, i+1, j+1, overlap.names())
			}
		}
		for k, e := range a.Elements {
			if e.Min == e.Max {
				continue
			}
			rest, _ := g.sequenceFirst(a.Elements[k+1:])
			if overlap := e.lookahead & rest; overlap != 0 {
				return fmt.Errorf("grammar: production %s: optional element %d is ambiguous on %v",
					p.Name, k+1, overlap.names())
			}
		}
	}
	if nullableAlts > 1 {
		return fmt.Errorf("grammar: production %s has %d empty alternatives", p.Name, nullableAlts)
	}
	return nil
}
