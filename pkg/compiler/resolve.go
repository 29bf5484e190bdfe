package compiler

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/imports"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/overload"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// maxSuggestions caps the names offered for an undefined name.
const maxSuggestions = 3

// resolveFirst resolves the first name of a chain. Without arguments it
// looks at owner fields and properties, imported constants, variables,
// on-demand variables, then imported namespaces and types. With arguments
// it looks at owner methods, imported functions, then on-demand functions.
func (b *builder) resolveFirst(ref *memberRef) (Element, error) {
	if ref.hasArgs {
		return b.resolveFirstCall(ref)
	}
	cs := b.opts.CaseSensitive

	var denied *imports.Member
	for _, m := range b.owner.Lookup(ref.name, cs, imports.KindField, imports.KindProperty) {
		if m.Accessible(b.owner.Access) {
			return &memberGet{recv: &ownerRef{typ: b.owner.Type}, member: m}, nil
		}
		denied = m
	}

	var (
		ns  *imports.Member
		typ *imports.Member
	)
	for _, m := range b.imports.Lookup(ref.name, cs) {
		switch m.Kind {
		case imports.KindConstant:
			return &literal{value: m.Value, typ: m.Type}, nil
		case imports.KindNamespace:
			ns = m
		case imports.KindType:
			typ = m
		}
	}

	if t, ok := b.variables.Type(ref.name); ok {
		return &variableLoad{name: ref.name, typ: t}, nil
	}
	if t := b.variables.onDemandType(ref.name); t != nil {
		return &variableLoad{name: ref.name, typ: t}, nil
	}

	switch {
	case ns != nil:
		return &namespaceRef{ns: ns.Namespace, name: ns.Name}, nil
	case typ != nil:
		return &typeRef{typ: typ.Type, name: typ.Name}, nil
	case denied != nil:
		return nil, types.Errorf(types.ReasonAccessDenied, "%s %s is not accessible", denied.Kind, denied.Name).WithToken(ref.name)
	}
	return nil, undefinedName(ref.name, b.knownNames())
}

func (b *builder) resolveFirstCall(ref *memberRef) (Element, error) {
	cs := b.opts.CaseSensitive
	args := typesOf(ref.args)

	// Owner methods and imported functions compete as one overload set.
	cands := memberCandidates(b.owner.Lookup(ref.name, cs, imports.KindMethod), b.owner.Access, false)
	var funcs []*imports.Member
	for _, m := range b.imports.Lookup(ref.name, cs) {
		if m.Kind == imports.KindFunction {
			funcs = append(funcs, m)
		}
	}
	cands = append(cands, memberCandidates(funcs, imports.AccessAll, false)...)

	var lastErr error
	if len(cands) > 0 {
		el, err := b.callBest(&ownerRef{typ: b.owner.Type}, ref, cands, args)
		if el != nil || types.ReasonOf(err) != types.ReasonUndefinedName {
			return el, err
		}
		lastErr = err
	}

	if t := b.variables.onDemandFunction(ref.name, args); t != nil {
		return &onDemandCall{name: ref.name, args: ref.args, typ: t}, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, undefinedName(ref.name, b.knownNames())
}

// resolveNext resolves a name following prev in a chain.
func (b *builder) resolveNext(prev Element, ref *memberRef) (Element, error) {
	cs := b.opts.CaseSensitive
	switch p := prev.(type) {
	case *namespaceRef:
		return b.resolveInNamespace(p, ref)
	case *typeRef:
		return nil, types.Errorf(types.ReasonUndefinedName, "type %s has no member %s", p.name, ref.name).WithToken(ref.name)
	}

	t := prev.ResultType()
	mask := imports.AccessPublic
	if b.owner.Type != nil && t == b.owner.Type {
		mask = b.owner.Access
	}

	if !ref.hasArgs {
		var denied *imports.Member
		for _, m := range imports.Find(b.resolver, t, ref.name, cs, imports.KindField, imports.KindProperty) {
			if m.Accessible(mask) {
				return &memberGet{recv: prev, member: m}, nil
			}
			denied = m
		}
		if denied != nil {
			return nil, types.Errorf(types.ReasonAccessDenied, "%s %s of %s is not accessible", denied.Kind, denied.Name, types.Name(t)).WithToken(ref.name)
		}
		return nil, undefinedMember(t, ref.name, b.memberNames(t))
	}

	cands := memberCandidates(imports.Find(b.resolver, t, ref.name, cs, imports.KindMethod), mask, false)
	var exts []*imports.Member
	for _, m := range b.imports.Extensions(ref.name, cs) {
		if b.conv.CanImplicit(t, m.Sig.In(0)) {
			exts = append(exts, m)
		}
	}
	cands = append(cands, memberCandidates(exts, imports.AccessAll, true)...)
	if len(cands) == 0 {
		return nil, undefinedMember(t, ref.name, b.memberNames(t))
	}
	return b.callBest(prev, ref, cands, typesOf(ref.args))
}

func (b *builder) resolveInNamespace(p *namespaceRef, ref *memberRef) (Element, error) {
	members := p.ns.Lookup(ref.name, b.opts.CaseSensitive)
	if ref.hasArgs {
		var funcs []*imports.Member
		for _, m := range members {
			if m.Kind == imports.KindFunction {
				funcs = append(funcs, m)
			}
		}
		if len(funcs) > 0 {
			return b.callBest(nil, ref, memberCandidates(funcs, imports.AccessAll, false), typesOf(ref.args))
		}
	} else {
		for _, m := range members {
			switch m.Kind {
			case imports.KindConstant:
				return &literal{value: m.Value, typ: m.Type}, nil
			case imports.KindNamespace:
				return &namespaceRef{ns: m.Namespace, name: p.name + "." + m.Name}, nil
			case imports.KindType:
				return &typeRef{typ: m.Type, name: p.name + "." + m.Name}, nil
			}
		}
	}

	var names []string
	for _, m := range p.ns.Members() {
		names = append(names, m.Name)
	}
	err := undefinedName(ref.name, names)
	err.Message = fmt.Sprintf("namespace %s: %s", p.name, err.Message)
	return nil, err
}

func memberCandidates(members []*imports.Member, mask imports.Access, extension bool) []*overload.Candidate {
	out := make([]*overload.Candidate, 0, len(members))
	for _, m := range members {
		out = append(out, &overload.Candidate{
			Name:       m.Name,
			Params:     m.Params(),
			Variadic:   m.Sig.IsVariadic(),
			Extension:  extension,
			Accessible: m.Accessible(mask),
			Value:      m,
		})
	}
	return out
}

// callBest resolves the overload for the arguments of ref and builds the
// call. recv is the receiver of methods and the first argument of
// extension functions; it is nil for plain functions.
func (b *builder) callBest(recv Element, ref *memberRef, cands []*overload.Candidate, args []reflect.Type) (Element, error) {
	match, err := overload.Resolve(ref.name, cands, args, b.conv)
	if err != nil {
		if te, ok := err.(*types.Error); ok {
			te.WithToken(ref.name)
		}
		return nil, err
	}

	mem := match.Candidate.Value.(*imports.Member)
	if !mem.HasResult() {
		return nil, types.Errorf(types.ReasonFunctionHasNoReturnValue, "%s does not return a value", match.Candidate.Signature()).WithToken(ref.name)
	}

	converted := make([]Element, len(ref.args))
	for i, a := range ref.args {
		if converted[i], err = b.implicit(a, match.ParamType(i)); err != nil {
			return nil, err
		}
	}

	c := &call{member: mem, args: converted, extension: match.Candidate.Extension, expanded: match.Expanded}
	switch {
	case c.extension:
		if c.recv, err = b.implicit(recv, mem.Sig.In(0)); err != nil {
			return nil, err
		}
	case mem.Kind == imports.KindMethod:
		c.recv = recv
	}
	return c, nil
}

func typesOf(els []Element) []reflect.Type {
	out := make([]reflect.Type, len(els))
	for i, e := range els {
		out[i] = e.ResultType()
	}
	return out
}

// knownNames lists every name visible unqualified.
func (b *builder) knownNames() []string {
	names := b.owner.Names()
	names = append(names, b.imports.Names()...)
	return append(names, b.variables.Names()...)
}

func (b *builder) memberNames(t reflect.Type) []string {
	var names []string
	for _, m := range b.resolver.Members(t) {
		names = append(names, m.Name)
	}
	return names
}

func undefinedName(name string, known []string) *types.Error {
	return withSuggestions(fmt.Sprintf("name %q is not defined", name), name, known)
}

func undefinedMember(t reflect.Type, name string, known []string) *types.Error {
	return withSuggestions(fmt.Sprintf("%s has no member %q", types.Name(t), name), name, known)
}

func withSuggestions(msg, name string, known []string) *types.Error {
	if s := suggest(name, known); len(s) > 0 {
		msg += "; did you mean " + strings.Join(s, " or ") + "?"
	}
	return types.Errorf(types.ReasonUndefinedName, "%s", msg).WithToken(name)
}

// suggest returns the known names closest to name: those containing it as
// a fuzzy subsequence first, then those within a small edit distance.
func suggest(name string, known []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] && len(out) < maxSuggestions && s != name {
			seen[s] = true
			out = append(out, s)
		}
	}

	ranks := fuzzy.RankFindFold(name, known)
	sort.Sort(ranks)
	for _, r := range ranks {
		add(r.Target)
	}

	lower := strings.ToLower(name)
	limit := max(1, len(name)/3)
	for _, k := range known {
		if fuzzy.LevenshteinDistance(lower, strings.ToLower(k)) <= limit {
			add(k)
		}
	}
	for i, s := range out {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
