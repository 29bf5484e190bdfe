package compiler

import (
	"fmt"
	"reflect"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/convert"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/parser"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/vm"
)

// Element is a node of the typed expression tree. Its result type is fixed
// when it is constructed; Emit appends the instructions computing it.
type Element interface {
	ResultType() reflect.Type
	Emit(g *generator)
}

// generator is the code generation state shared by all elements of one
// compilation.
type generator struct {
	*vm.Emitter
}

func newGenerator(maxInstructions int) *generator {
	return &generator{Emitter: vm.NewEmitter(vm.WithMaxInstructions(maxInstructions))}
}

// unaryFunc and binaryFunc are the runtime operations of operators.
type (
	unaryFunc  func(a any) (any, error)
	binaryFunc func(a, b any) (any, error)
)

// literal pushes a constant.
type literal struct {
	value any
	typ   reflect.Type
	// image and tok are set for numeric literals, kept so a preceding minus
	// sign can be folded into the constant.
	image string
	tok   parser.TokenType
}

func typeOfValue(v any) reflect.Type {
	if v == nil {
		return types.NullType
	}
	return reflect.TypeOf(v)
}

func (l *literal) ResultType() reflect.Type { return l.typ }

func (l *literal) Emit(g *generator) { g.Const(l.value) }

// conversion converts the value of inner to typ.
type conversion struct {
	inner Element
	typ   reflect.Type
	fn    convert.Func
	name  string
}

func (c *conversion) ResultType() reflect.Type { return c.typ }

func (c *conversion) Emit(g *generator) {
	c.inner.Emit(g)
	if c.fn == nil {
		return
	}
	fn := c.fn
	g.Emit(c.name, types.Name(c.typ), func(m *vm.Machine) error {
		v, err := fn(m.Pop())
		if err != nil {
			return err
		}
		m.Push(v)
		return nil
	})
}

// binary applies a resolved binary operation to its converted operands.
type binary struct {
	name        string
	left, right Element
	typ         reflect.Type
	fn          binaryFunc
}

func (b *binary) ResultType() reflect.Type { return b.typ }

func (b *binary) Emit(g *generator) {
	b.left.Emit(g)
	b.right.Emit(g)
	fn := b.fn
	g.Emit(b.name, types.Name(b.left.ResultType()), func(m *vm.Machine) error {
		y := m.Pop()
		x := m.Pop()
		v, err := fn(x, y)
		if err != nil {
			return err
		}
		m.Push(v)
		return nil
	})
}

// unary applies a resolved unary operation.
type unary struct {
	name    string
	operand Element
	typ     reflect.Type
	fn      unaryFunc
}

func (u *unary) ResultType() reflect.Type { return u.typ }

func (u *unary) Emit(g *generator) {
	u.operand.Emit(g)
	fn := u.fn
	g.Emit(u.name, types.Name(u.operand.ResultType()), func(m *vm.Machine) error {
		v, err := fn(m.Pop())
		if err != nil {
			return err
		}
		m.Push(v)
		return nil
	})
}

// conditional is if(cond, whenTrue, whenFalse). Only the selected branch
// runs.
type conditional struct {
	cond, whenTrue, whenFalse Element
	typ                       reflect.Type
}

func (c *conditional) ResultType() reflect.Type { return c.typ }

func (c *conditional) Emit(g *generator) {
	otherwise := g.DefineLabel()
	end := g.DefineLabel()
	c.cond.Emit(g)
	g.BrFalse(otherwise)
	c.whenTrue.Emit(g)
	g.Br(end)
	g.MarkLabel(otherwise)
	c.whenFalse.Emit(g)
	g.MarkLabel(end)
}

// duplicate pushes a copy of the value on top of the stack. It stands for
// an operand evaluated once and compared several times.
type duplicate struct {
	typ reflect.Type
}

func (d *duplicate) ResultType() reflect.Type { return d.typ }

func (d *duplicate) Emit(g *generator) {
	g.Emit("dup", "", func(m *vm.Machine) error {
		m.Push(m.Peek())
		return nil
	})
}

// inList tests an operand against a list of values.
type inList struct {
	operand  Element
	compares []Element
}

func (in *inList) ResultType() reflect.Type { return types.Bool }

func (in *inList) Emit(g *generator) {
	found := g.DefineLabel()
	end := g.DefineLabel()
	in.operand.Emit(g)
	for _, c := range in.compares {
		c.Emit(g)
		g.BrTrue(found)
	}
	g.Pop()
	g.Const(false)
	g.Br(end)
	g.MarkLabel(found)
	g.Pop()
	g.Const(true)
	g.MarkLabel(end)
}

// inCollection tests whether a slice, array or map holds an operand. Maps
// are searched by key.
type inCollection struct {
	operand    Element
	collection Element
}

func (in *inCollection) ResultType() reflect.Type { return types.Bool }

func (in *inCollection) Emit(g *generator) {
	in.collection.Emit(g)
	in.operand.Emit(g)
	g.Emit("contains", types.Name(in.collection.ResultType()), func(m *vm.Machine) error {
		v := m.Pop()
		coll := reflect.ValueOf(m.Pop())
		ok, err := contains(coll, v)
		if err != nil {
			return err
		}
		m.Push(ok)
		return nil
	})
}

func contains(coll reflect.Value, v any) (bool, error) {
	if !coll.IsValid() {
		return false, fmt.Errorf("in: %w", types.ErrNilReference)
	}
	switch coll.Kind() {
	case reflect.Map:
		key := convert.ValueOf(v, coll.Type().Key())
		return coll.MapIndex(key).IsValid(), nil
	case reflect.Pointer:
		if coll.IsNil() {
			return false, fmt.Errorf("in: %w", types.ErrNilReference)
		}
		return contains(coll.Elem(), v)
	}
	for i := 0; i < coll.Len(); i++ {
		if valuesEqual(coll.Index(i).Interface(), v) {
			return true, nil
		}
	}
	return false, nil
}

// cast is an explicit conversion.
type cast struct {
	operand Element
	typ     reflect.Type
	fn      convert.Func
}

func (c *cast) ResultType() reflect.Type { return c.typ }

func (c *cast) Emit(g *generator) {
	c.operand.Emit(g)
	if c.fn == nil {
		return
	}
	fn := c.fn
	g.Emit("cast", types.Name(c.typ), func(m *vm.Machine) error {
		v, err := fn(m.Pop())
		if err != nil {
			return err
		}
		m.Push(v)
		return nil
	})
}
