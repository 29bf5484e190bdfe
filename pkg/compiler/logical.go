package compiler

import (
	"reflect"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/vm"
)

type logicalOp uint8

const (
	logicalAnd logicalOp = iota + 1
	logicalOr
)

// andOr is a boolean and/or. A tree of them is emitted as one short-circuit
// sequence: each leaf operand branches straight to the operand or terminal
// that decides the outcome once its value is known.
type andOr struct {
	op          logicalOp
	left, right Element
}

func (a *andOr) ResultType() reflect.Type { return types.Bool }

// Terminal keys of the short-circuit label table.
var (
	falseTerminal = new(int)
	trueTerminal  = new(int)
)

// shortCircuit is the emission state: operands with the leftmost on top,
// operators in the order they are met.
type shortCircuit struct {
	operands  []Element
	operators []*andOr
	labels    map[any]vm.Label
}

func (a *andOr) Emit(g *generator) {
	sc := &shortCircuit{labels: make(map[any]vm.Label)}
	end := g.DefineLabel()
	a.populate(sc)

	for len(sc.operators) > 0 {
		op := popOperator(&sc.operators)
		left := popOperand(&sc.operands)
		sc.emitOperand(g, left)
		target := sc.label(g, op.shortCircuitTarget(sc))
		if op.op == logicalAnd {
			g.BrFalse(target)
		} else {
			g.BrTrue(target)
		}
	}

	sc.emitOperand(g, popOperand(&sc.operands))
	g.Br(end)

	falseLabel, hasFalse := sc.labels[falseTerminal]
	trueLabel, hasTrue := sc.labels[trueTerminal]
	if hasFalse {
		g.MarkLabel(falseLabel)
		g.Const(false)
		if hasTrue {
			g.Br(end)
		}
	}
	if hasTrue {
		g.MarkLabel(trueLabel)
		g.Const(true)
	}
	g.MarkLabel(end)
}

// populate visits the tree right to left.
func (a *andOr) populate(sc *shortCircuit) {
	if r, ok := a.right.(*andOr); ok {
		r.populate(sc)
	} else {
		sc.operands = append(sc.operands, a.right)
	}
	sc.operators = append(sc.operators, a)
	if l, ok := a.left.(*andOr); ok {
		l.populate(sc)
	} else {
		sc.operands = append(sc.operands, a.left)
	}
}

// shortCircuitTarget walks up a copy of the stacks to the first operator of
// the other kind; its right operand is where evaluation resumes. Without
// one, the result is the terminal matching this operator.
func (a *andOr) shortCircuitTarget(sc *shortCircuit) any {
	operands := append([]Element(nil), sc.operands...)
	operators := append([]*andOr(nil), sc.operators...)

	a.popRight(&operands, &operators)
	for len(operators) > 0 {
		top := popOperator(&operators)
		if top.op != a.op {
			return popOperand(&operands)
		}
		top.popRight(&operands, &operators)
	}
	if a.op == logicalAnd {
		return falseTerminal
	}
	return trueTerminal
}

func (a *andOr) popRight(operands *[]Element, operators *[]*andOr) {
	if r, ok := a.right.(*andOr); ok {
		r.pop(operands, operators)
		return
	}
	popOperand(operands)
}

func (a *andOr) pop(operands *[]Element, operators *[]*andOr) {
	popOperator(operators)
	if l, ok := a.left.(*andOr); ok {
		l.pop(operands, operators)
	} else {
		popOperand(operands)
	}
	a.popRight(operands, operators)
}

func (sc *shortCircuit) label(g *generator, key any) vm.Label {
	if l, ok := sc.labels[key]; ok {
		return l
	}
	l := g.DefineLabel()
	sc.labels[key] = l
	return l
}

func (sc *shortCircuit) emitOperand(g *generator, operand Element) {
	if l, ok := sc.labels[operand]; ok {
		g.MarkLabel(l)
	}
	operand.Emit(g)
}

func popOperand(s *[]Element) Element {
	n := len(*s) - 1
	v := (*s)[n]
	*s = (*s)[:n]
	return v
}

func popOperator(s *[]*andOr) *andOr {
	n := len(*s) - 1
	v := (*s)[n]
	*s = (*s)[:n]
	return v
}
