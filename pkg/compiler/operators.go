package compiler

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/convert"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/overload"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

func mismatch(format string, args ...any) *types.Error {
	return types.Errorf(types.ReasonTypeMismatch, format, args...)
}

func operandsMismatch(op convert.Operator, l, r Element) *types.Error {
	return mismatch("operator %s cannot be applied to %s and %s", op, types.Name(l.ResultType()), types.Name(r.ResultType()))
}

// implicit converts el to t, or fails with a type mismatch.
func (b *builder) implicit(el Element, t reflect.Type) (Element, error) {
	from := el.ResultType()
	if from == t {
		return el, nil
	}
	fn, ok := b.conv.Implicit(from, t)
	if !ok {
		return nil, mismatch("cannot convert %s to %s", types.Name(from), types.Name(t))
	}
	return &conversion{inner: el, typ: t, fn: fn, name: "conv"}, nil
}

// both converts l and r to t.
func (b *builder) both(l, r Element, t reflect.Type) (Element, Element, error) {
	l, err := b.implicit(l, t)
	if err != nil {
		return nil, nil, err
	}
	r, err = b.implicit(r, t)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// declaring returns the candidates among fns with a parameter of type t.
// Primitive types declare no operators of their own.
func declaring(fns []reflect.Value, cands []*overload.Candidate, t reflect.Type) []*overload.Candidate {
	if types.IsNumeric(t) || t == types.Bool || t == types.String || t == types.NullType {
		return nil
	}
	var out []*overload.Candidate
	for i, fn := range fns {
		ft := fn.Type()
		for p := 0; p < ft.NumIn(); p++ {
			if ft.In(p) == t {
				out = append(out, cands[i])
				break
			}
		}
	}
	return out
}

func operatorCandidates(op convert.Operator, fns []reflect.Value) []*overload.Candidate {
	cands := make([]*overload.Candidate, len(fns))
	for i, fn := range fns {
		ft := fn.Type()
		params := make([]reflect.Type, ft.NumIn())
		for p := range params {
			params[p] = ft.In(p)
		}
		cands[i] = &overload.Candidate{Name: op.String(), Params: params, Accessible: true, Value: fn}
	}
	return cands
}

// resolveOperator picks among the overloads of op in ops. Overloads found
// through the left and the right operand type are resolved separately;
// two different winners make the use ambiguous.
func (b *builder) resolveOperator(op convert.Operator, ops *convert.Operators, args []reflect.Type) (*overload.Match, error) {
	var fns []reflect.Value
	if len(args) == 1 {
		fns = ops.Unary(op, args[0])
	} else {
		fns = ops.Binary(op, args[0], args[1])
	}
	if len(fns) == 0 {
		return nil, nil
	}
	cands := operatorCandidates(op, fns)

	var best *overload.Match
	for i, t := range args {
		if i > 0 && t == args[0] {
			break
		}
		m, err := overload.Resolve(op.String(), declaring(fns, cands, t), args, b.conv)
		if err != nil {
			if types.ReasonOf(err) == types.ReasonUndefinedName {
				continue
			}
			return nil, err
		}
		if best != nil && best.Candidate != m.Candidate {
			return nil, types.Errorf(types.ReasonAmbiguousMatch,
				"operator %s is ambiguous between %s and %s", op, best.Candidate.Signature(), m.Candidate.Signature())
		}
		best = m
	}
	return best, nil
}

// userOperator builds the use of a user or builtin operator overload, or
// returns nil when there is none.
func (b *builder) userOperator(op convert.Operator, operands ...Element) (Element, error) {
	args := make([]reflect.Type, len(operands))
	for i, o := range operands {
		args[i] = o.ResultType()
	}
	for _, ops := range []*convert.Operators{b.operators, builtinOperators} {
		m, err := b.resolveOperator(op, ops, args)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}

		fn := m.Candidate.Value.(reflect.Value)
		params := m.Candidate.Params
		converted := make([]Element, len(operands))
		for i, o := range operands {
			if converted[i], err = b.implicit(o, params[i]); err != nil {
				return nil, err
			}
		}
		typ := fn.Type().Out(0)
		name := operatorNames[op]
		if len(operands) == 1 {
			p0 := params[0]
			return &unary{name: name, operand: converted[0], typ: typ, fn: func(a any) (any, error) {
				return convert.Invoke(fn, []reflect.Value{convert.ValueOf(a, p0)})
			}}, nil
		}
		p0, p1 := params[0], params[1]
		return &binary{name: name, left: converted[0], right: converted[1], typ: typ, fn: func(a, c any) (any, error) {
			return convert.Invoke(fn, []reflect.Value{convert.ValueOf(a, p0), convert.ValueOf(c, p1)})
		}}, nil
	}
	return nil, nil
}

// instruction names of the operators
var operatorNames = map[convert.Operator]string{
	convert.OpAdd:          "add",
	convert.OpSubtract:     "sub",
	convert.OpMultiply:     "mul",
	convert.OpDivide:       "div",
	convert.OpModulo:       "rem",
	convert.OpPower:        "pow",
	convert.OpEqual:        "ceq",
	convert.OpNotEqual:     "cne",
	convert.OpLess:         "clt",
	convert.OpLessEqual:    "cle",
	convert.OpGreater:      "cgt",
	convert.OpGreaterEqual: "cge",
	convert.OpAnd:          "and",
	convert.OpOr:           "or",
	convert.OpXor:          "xor",
	convert.OpNegate:       "neg",
	convert.OpNot:          "not",
}

func (b *builder) arithmetic(op convert.Operator, l, r Element) (Element, error) {
	lt, rt := l.ResultType(), r.ResultType()
	if op == convert.OpAdd && (lt == types.String || rt == types.String) {
		return &binary{name: "concat", left: l, right: r, typ: types.String, fn: concat}, nil
	}

	if el, err := b.userOperator(op, l, r); el != nil || err != nil {
		return el, err
	}

	if op == convert.OpPower {
		if !types.IsNumeric(lt) || !types.IsNumeric(rt) {
			return nil, operandsMismatch(op, l, r)
		}
		l, r, err := b.both(l, r, types.Double)
		if err != nil {
			return nil, err
		}
		return &binary{name: "pow", left: l, right: r, typ: types.Double, fn: power}, nil
	}

	t := convert.BinaryResultType(lt, rt)
	if t == nil {
		return nil, operandsMismatch(op, l, r)
	}
	t = operandType(t)
	fn := arithmeticFunc(op, t, b.opts.Checked)
	if fn == nil {
		return nil, operandsMismatch(op, l, r)
	}
	l, r, err := b.both(l, r, t)
	if err != nil {
		return nil, err
	}
	return &binary{name: operatorNames[op], left: l, right: r, typ: t, fn: fn}, nil
}

// concat joins the text of two values; null is empty text.
func concat(a, b any) (any, error) {
	return text(a) + text(b), nil
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case fmt.Stringer:
		if isNil(v) {
			return ""
		}
		return x.String()
	}
	return fmt.Sprint(v)
}

func isEquality(op convert.Operator) bool {
	return op == convert.OpEqual || op == convert.OpNotEqual
}

func (b *builder) compare(op convert.Operator, l, r Element) (Element, error) {
	lt, rt := l.ResultType(), r.ResultType()
	name := operatorNames[op]

	if lt == types.String && rt == types.String {
		if !isEquality(op) {
			return nil, operandsMismatch(op, l, r)
		}
		sc := b.opts.StringComparison
		negate := op == convert.OpNotEqual
		return &binary{name: name, left: l, right: r, typ: types.Bool, fn: func(a, c any) (any, error) {
			return sc.equal(a.(string), c.(string)) != negate, nil
		}}, nil
	}

	if el, err := b.userOperator(op, l, r); el != nil || err != nil {
		return el, err
	}

	if t := convert.BinaryResultType(lt, rt); t != nil {
		t = operandType(t)
		l, r, err := b.both(l, r, t)
		if err != nil {
			return nil, err
		}
		return &binary{name: name, left: l, right: r, typ: types.Bool, fn: compareFunc(op, t)}, nil
	}

	if !isEquality(op) {
		if lt == rt && types.IsEnum(lt) {
			return &binary{name: name, left: l, right: r, typ: types.Bool, fn: enumCompare(op)}, nil
		}
		return nil, operandsMismatch(op, l, r)
	}

	negate := op == convert.OpNotEqual
	equal := &binary{name: name, left: l, right: r, typ: types.Bool, fn: func(a, c any) (any, error) {
		return valuesEqual(a, c) != negate, nil
	}}
	switch {
	case lt == rt && (lt.Comparable() || types.IsNullable(lt)):
		return equal, nil
	case lt == types.String && rt == types.NullType, lt == types.NullType && rt == types.String:
		return equal, nil
	case types.IsNullable(lt) && types.IsNullable(rt):
		if lt == types.NullType || rt == types.NullType || lt.AssignableTo(rt) || rt.AssignableTo(lt) {
			return equal, nil
		}
	}
	return nil, operandsMismatch(op, l, r)
}

func (b *builder) shift(left bool, l, r Element) (Element, error) {
	name := "shr"
	if left {
		name = "shl"
	}
	t := shiftOperandType(l.ResultType())
	if t == nil {
		return nil, mismatch("cannot shift a value of type %s", types.Name(l.ResultType()))
	}
	l, err := b.implicit(l, t)
	if err != nil {
		return nil, err
	}
	rt := r.ResultType()
	count, err := b.implicit(r, types.Int32)
	if err != nil {
		return nil, mismatch("shift count must be an int, got %s", types.Name(rt))
	}
	return &binary{name: name, left: l, right: count, typ: t, fn: shiftFunc(left, t)}, nil
}

// logical builds and, or and xor: logical over booleans, bitwise over
// integers.
func (b *builder) logical(op convert.Operator, l, r Element) (Element, error) {
	lt, rt := l.ResultType(), r.ResultType()
	if lt == types.Bool && rt == types.Bool {
		switch op {
		case convert.OpAnd:
			return &andOr{op: logicalAnd, left: l, right: r}, nil
		case convert.OpOr:
			return &andOr{op: logicalOr, left: l, right: r}, nil
		}
		return &binary{name: "xor", left: l, right: r, typ: types.Bool, fn: func(a, c any) (any, error) {
			return a.(bool) != c.(bool), nil
		}}, nil
	}

	if el, err := b.userOperator(op, l, r); el != nil || err != nil {
		return el, err
	}

	t := convert.BitwiseResultType(lt, rt)
	if t == nil {
		return nil, operandsMismatch(op, l, r)
	}
	t = operandType(t)
	l, r, err := b.both(l, r, t)
	if err != nil {
		return nil, err
	}
	return &binary{name: operatorNames[op], left: l, right: r, typ: t, fn: bitwiseFunc(op, t)}, nil
}

func (b *builder) not(el Element) (Element, error) {
	t := el.ResultType()
	switch {
	case t == types.Bool:
		return &unary{name: "not", operand: el, typ: t, fn: func(a any) (any, error) { return !a.(bool), nil }}, nil
	case types.IsIntegral(t):
		return &unary{name: "not", operand: el, typ: t, fn: complement}, nil
	}
	if u, err := b.userOperator(convert.OpNot, el); u != nil || err != nil {
		return u, err
	}
	return nil, mismatch("operator not cannot be applied to %s", types.Name(t))
}

func (b *builder) negate(el Element) (Element, error) {
	if lit, ok := el.(*literal); ok && lit.image != "" {
		return b.number(lit.tok, lit.image, true)
	}
	if u, err := b.userOperator(convert.OpNegate, el); u != nil || err != nil {
		return u, err
	}
	t := negateType(el.ResultType())
	if t == nil {
		return nil, mismatch("operator - cannot be applied to %s", types.Name(el.ResultType()))
	}
	el, err := b.implicit(el, t)
	if err != nil {
		return nil, err
	}
	return &unary{name: "neg", operand: el, typ: t, fn: negateFunc(t, b.opts.Checked)}, nil
}

// conditional builds if(cond, a, b). The branches meet at the wider of
// their types.
func (b *builder) conditional(cond, whenTrue, whenFalse Element) (Element, error) {
	if cond.ResultType() != types.Bool {
		return nil, mismatch("if condition must be boolean, got %s", types.Name(cond.ResultType()))
	}
	tt, ft := whenTrue.ResultType(), whenFalse.ResultType()
	var t reflect.Type
	switch {
	case tt == ft:
		t = tt
	case b.conv.CanImplicit(tt, ft):
		t = ft
	case b.conv.CanImplicit(ft, tt):
		t = tt
	default:
		return nil, mismatch("if branches have incompatible types %s and %s", types.Name(tt), types.Name(ft))
	}
	whenTrue, whenFalse, err := b.both(whenTrue, whenFalse, t)
	if err != nil {
		return nil, err
	}
	return &conditional{cond: cond, whenTrue: whenTrue, whenFalse: whenFalse, typ: t}, nil
}

func (b *builder) cast(el Element, t reflect.Type) (Element, error) {
	explicit := b.conv.Explicit
	if b.opts.Checked {
		explicit = b.conv.CheckedExplicit
	}
	fn, ok := explicit(el.ResultType(), t)
	if !ok {
		return nil, types.Errorf(types.ReasonInvalidExplicitCast, "cannot cast %s to %s", types.Name(el.ResultType()), types.Name(t))
	}
	return &cast{operand: el, typ: t, fn: fn}, nil
}

// inList builds operand in (items...): the operand is evaluated once and
// compared with each item until one is equal.
func (b *builder) inList(operand Element, items []Element) (Element, error) {
	compares := make([]Element, len(items))
	for i, item := range items {
		c, err := b.compare(convert.OpEqual, &duplicate{typ: operand.ResultType()}, item)
		if err != nil {
			return nil, err
		}
		compares[i] = c
	}
	return &inList{operand: operand, compares: compares}, nil
}

func (b *builder) inCollection(operand, coll Element) (Element, error) {
	ct := coll.ResultType()
	if ct == nil {
		return nil, mismatch("in: target is not a collection")
	}
	target := ct
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
	}
	var elem reflect.Type
	switch target.Kind() {
	case reflect.Slice, reflect.Array:
		elem = target.Elem()
	case reflect.Map:
		elem = target.Key()
	default:
		return nil, mismatch("in: %s is not a collection", types.Name(ct))
	}
	operand, err := b.implicit(operand, elem)
	if err != nil {
		return nil, err
	}
	return &inCollection{operand: operand, collection: coll}, nil
}
