// Package overload picks the best overload of a function, method or
// operator for a list of argument types.
//
// Each applicable candidate gets a score: the mean conversion score of its
// arguments, as rated by a Scorer. The lowest score wins. Two candidates
// sharing the lowest score make the call ambiguous.
package overload

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// Scoring constants.
const (
	// VariadicPenalty is added when a candidate only applies in its
	// expanded variadic form.
	VariadicPenalty = 1
	// EmptyExtensionScore is the score of an extension function whose only
	// parameter is the receiver.
	EmptyExtensionScore = 0.1
)

// Scorer rates an implicit conversion. A negative score means there is
// none.
type Scorer interface {
	Score(from, to reflect.Type) int
}

// Candidate is one overload.
type Candidate struct {
	Name string
	// Params are the declared parameter types. For a variadic candidate the
	// last one is the slice type.
	Params   []reflect.Type
	Variadic bool
	// Extension marks a function whose first parameter receives the value
	// of the preceding member chain element rather than an argument.
	Extension  bool
	Accessible bool
	// Value carries the caller's payload.
	Value any
}

// Signature renders the candidate as name(type, ...).
func (c *Candidate) Signature() string {
	params := c.Params
	if c.Extension && len(params) > 0 {
		params = params[1:]
	}
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = types.Name(p)
		if c.Variadic && i == len(params)-1 {
			names[i] = "..." + types.Name(p.Elem())
		}
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(names, ", "))
}

// Match is the outcome of a successful resolution.
type Match struct {
	Candidate *Candidate
	Score     float64
	// Expanded reports that the variadic candidate takes its trailing
	// arguments one by one.
	Expanded bool
}

// ParamType returns the type argument i is converted to.
func (m *Match) ParamType(i int) reflect.Type {
	params := m.Candidate.Params
	if m.Candidate.Extension {
		params = params[1:]
	}
	if m.Expanded && i >= len(params)-1 {
		return params[len(params)-1].Elem()
	}
	return params[i]
}

// Resolve selects the best candidate for args.
//
// It fails with reason UndefinedName when no candidate applies,
// AccessDenied when every applicable candidate is inaccessible and
// AmbiguousMatch when several share the best score.
func Resolve(name string, cands []*Candidate, args []reflect.Type, s Scorer) (*Match, error) {
	var applicable, denied []*Match
	for _, c := range cands {
		m, ok := score(c, args, s)
		if !ok {
			continue
		}
		if !c.Accessible {
			denied = append(denied, m)
			continue
		}
		applicable = append(applicable, m)
	}

	if len(applicable) == 0 {
		if len(denied) > 0 {
			return nil, types.Errorf(types.ReasonAccessDenied,
				"%s is not accessible", denied[0].Candidate.Signature())
		}
		return nil, types.Errorf(types.ReasonUndefinedName,
			"no overload of %s accepts (%s)", name, typeList(args))
	}

	best := applicable[0]
	ties := 0
	for _, m := range applicable[1:] {
		switch {
		case m.Score < best.Score:
			best, ties = m, 0
		case m.Score == best.Score:
			ties++
		}
	}
	if ties > 0 {
		var sigs []string
		for _, m := range applicable {
			if m.Score == best.Score {
				sigs = append(sigs, m.Candidate.Signature())
			}
		}
		return nil, types.Errorf(types.ReasonAmbiguousMatch,
			"call to %s(%s) is ambiguous between %s", name, typeList(args), strings.Join(sigs, " and "))
	}
	return best, nil
}

func score(c *Candidate, args []reflect.Type, s Scorer) (*Match, bool) {
	params := c.Params
	if c.Extension {
		if len(params) == 0 {
			return nil, false
		}
		params = params[1:]
		if len(params) == 0 && len(args) == 0 {
			return &Match{Candidate: c, Score: EmptyExtensionScore}, true
		}
	}

	if len(args) == len(params) {
		if total, ok := sum(args, params, s); ok {
			return &Match{Candidate: c, Score: mean(total, len(args))}, true
		}
		if !c.Variadic {
			return nil, false
		}
	}

	if !c.Variadic || len(args) < len(params)-1 {
		return nil, false
	}
	fixed := len(params) - 1
	total, ok := sum(args[:fixed], params[:fixed], s)
	if !ok {
		return nil, false
	}
	elem := params[fixed].Elem()
	for _, a := range args[fixed:] {
		sc := s.Score(a, elem)
		if sc < 0 {
			return nil, false
		}
		total += float64(sc)
	}
	return &Match{Candidate: c, Score: mean(total, len(args)) + VariadicPenalty, Expanded: true}, true
}

func mean(total float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

func sum(args, params []reflect.Type, s Scorer) (float64, bool) {
	var total float64
	for i, a := range args {
		sc := s.Score(a, params[i])
		if sc < 0 {
			return 0, false
		}
		total += float64(sc)
	}
	return total, true
}

func typeList(ts []reflect.Type) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = types.Name(t)
	}
	return strings.Join(names, ", ")
}
