package parser

import (
	"sort"
	"unicode"
	"unicode/utf8"
)

// Automaton recognises fixed strings. It is a character-branching search
// tree: each state holds a direct table for ASCII transitions and a sorted
// list for everything else. Matching is longest-match.
//
// An Automaton is built once and is read-only afterwards, so concurrent
// calls to Match are safe.
type Automaton struct {
	root automatonState
}

type automatonState struct {
	value TokenType // TokenEOF means the state is not terminal
	ascii [utf8.RuneSelf]*automatonState
	other []transition
}

type transition struct {
	r    rune
	next *automatonState
}

// NewAutomaton creates an empty automaton.
func NewAutomaton() *Automaton {
	return &Automaton{}
}

// Add registers s as a pattern producing value. With ignoreCase set every
// case variant of each rune is accepted.
func (a *Automaton) Add(s string, ignoreCase bool, value TokenType) {
	states := []*automatonState{&a.root}
	for _, r := range s {
		variants := []rune{r}
		if ignoreCase {
			variants = foldVariants(r)
		}
		var next []*automatonState
		for _, st := range states {
			for _, v := range variants {
				next = appendUnique(next, st.ensure(v))
			}
		}
		states = next
	}
	for _, st := range states {
		st.value = value
	}
}

// Match returns the longest pattern starting at pos and its byte length.
// It returns (TokenEOF, 0) when nothing matches.
func (a *Automaton) Match(input string, pos int) (TokenType, int) {
	var (
		best    TokenType
		bestLen int
	)
	st := &a.root
	i := pos
	for i < len(input) {
		r, w := utf8.DecodeRuneInString(input[i:])
		st = st.step(r)
		if st == nil {
			break
		}
		i += w
		if st.value != TokenEOF {
			best, bestLen = st.value, i-pos
		}
	}
	return best, bestLen
}

func (st *automatonState) step(r rune) *automatonState {
	if r >= 0 && r < utf8.RuneSelf {
		return st.ascii[r]
	}
	i := sort.Search(len(st.other), func(i int) bool { return st.other[i].r >= r })
	if i < len(st.other) && st.other[i].r == r {
		return st.other[i].next
	}
	return nil
}

func (st *automatonState) ensure(r rune) *automatonState {
	if next := st.step(r); next != nil {
		return next
	}
	next := &automatonState{}
	if r >= 0 && r < utf8.RuneSelf {
		st.ascii[r] = next
		return next
	}
	i := sort.Search(len(st.other), func(i int) bool { return st.other[i].r >= r })
	st.other = append(st.other, transition{})
	copy(st.other[i+1:], st.other[i:])
	st.other[i] = transition{r: r, next: next}
	return next
}

// foldVariants returns r and every rune in its simple case-folding orbit.
func foldVariants(r rune) []rune {
	out := []rune{r}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		out = append(out, f)
	}
	return out
}

func appendUnique(list []*automatonState, st *automatonState) []*automatonState {
	for _, s := range list {
		if s == st {
			return list
		}
	}
	return append(list, st)
}
