package compiler

import (
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/convert"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/imports"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/vm"
)

// ownerRef pushes the owner object.
type ownerRef struct {
	typ reflect.Type
}

func (o *ownerRef) ResultType() reflect.Type { return o.typ }

func (o *ownerRef) Emit(g *generator) {
	g.Emit("ldowner", "", func(m *vm.Machine) error {
		m.Push(m.Owner)
		return nil
	})
}

// memberGet reads a field or property of the value of recv.
type memberGet struct {
	recv   Element
	member *imports.Member
}

func (e *memberGet) ResultType() reflect.Type { return e.member.ResultType() }

func (e *memberGet) Emit(g *generator) {
	e.recv.Emit(g)
	mem := e.member
	g.Emit("ldfld", mem.Name, func(m *vm.Machine) error {
		v, err := mem.Get(m.Pop())
		if err != nil {
			return err
		}
		m.Push(v)
		return nil
	})
}

// call invokes a function, or a method of the value of recv. For an
// extension function recv supplies the first argument.
type call struct {
	recv      Element
	member    *imports.Member
	args      []Element
	extension bool
	// expanded passes trailing variadic arguments one by one.
	expanded bool
}

func (c *call) ResultType() reflect.Type { return c.member.ResultType() }

func (c *call) Emit(g *generator) {
	if c.recv != nil {
		c.recv.Emit(g)
	}
	for _, a := range c.args {
		a.Emit(g)
	}
	mem := c.member
	n := len(c.args)
	hasRecv := c.recv != nil
	extension := c.extension
	spread := c.expanded || !mem.Sig.IsVariadic()
	g.Emit("call", mem.Name, func(m *vm.Machine) error {
		args := m.PopN(n)
		var recv any
		if hasRecv {
			recv = m.Pop()
		}
		if extension {
			args = append([]any{recv}, args...)
			recv = nil
		}
		v, err := mem.Call(recv, args, spread)
		if err != nil {
			return err
		}
		m.Push(v)
		return nil
	})
}

// variableLoad reads a variable, or an on-demand variable, from the store
// the expression runs with.
type variableLoad struct {
	name string
	typ  reflect.Type
}

func (v *variableLoad) ResultType() reflect.Type { return v.typ }

func (v *variableLoad) Emit(g *generator) {
	name, typ := v.name, v.typ
	g.Emit("ldvar", name, func(m *vm.Machine) error {
		vars, ok := m.Data.(*Variables)
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrUndefinedVariable, name)
		}
		value, err := vars.load(name, typ)
		if err != nil {
			return err
		}
		m.Push(value)
		return nil
	})
}

// onDemandCall calls a function supplied by the invoke hook of the store.
type onDemandCall struct {
	name string
	args []Element
	typ  reflect.Type
}

func (c *onDemandCall) ResultType() reflect.Type { return c.typ }

func (c *onDemandCall) Emit(g *generator) {
	for _, a := range c.args {
		a.Emit(g)
	}
	name, typ, n := c.name, c.typ, len(c.args)
	g.Emit("callvar", name, func(m *vm.Machine) error {
		args := m.PopN(n)
		vars, ok := m.Data.(*Variables)
		if !ok {
			return fmt.Errorf("function %s: no variable store", name)
		}
		v, err := vars.invoke(name, typ, args)
		if err != nil {
			return err
		}
		m.Push(v)
		return nil
	})
}

// indexer reads an element of a slice, array, string or map.
type indexer struct {
	recv  Element
	index Element
	typ   reflect.Type
}

func (ix *indexer) ResultType() reflect.Type { return ix.typ }

func (ix *indexer) Emit(g *generator) {
	ix.recv.Emit(g)
	ix.index.Emit(g)
	g.Emit("ldelem", types.Name(ix.recv.ResultType()), func(m *vm.Machine) error {
		i := m.Pop()
		v, err := index(m.Pop(), i)
		if err != nil {
			return err
		}
		m.Push(v)
		return nil
	})
}

func index(coll, i any) (any, error) {
	if s, ok := coll.(string); ok {
		n := int(convert.Int64Bits(i))
		if n < 0 || n >= utf8.RuneCountInString(s) {
			return nil, fmt.Errorf("%w: %d", types.ErrIndexOutOfRange, n)
		}
		return types.Char([]rune(s)[n]), nil
	}

	rv := reflect.ValueOf(coll)
	if isNil(coll) {
		return nil, fmt.Errorf("index: %w", types.ErrNilReference)
	}
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Map {
		v := rv.MapIndex(convert.ValueOf(i, rv.Type().Key()))
		if !v.IsValid() {
			return nil, fmt.Errorf("%w: %v", types.ErrKeyNotFound, i)
		}
		return v.Interface(), nil
	}
	var n int
	if u, ok := i.(uint64); ok {
		if u > uint64(rv.Len()) {
			return nil, fmt.Errorf("%w: %d", types.ErrIndexOutOfRange, u)
		}
		n = int(u)
	} else {
		n = int(convert.Int64Bits(i))
	}
	if n < 0 || n >= rv.Len() {
		return nil, fmt.Errorf("%w: %d", types.ErrIndexOutOfRange, n)
	}
	return rv.Index(n).Interface(), nil
}

// elementType returns the element type read by indexing t, and the index
// type it expects. The index type is nil for integral positions.
func elementType(t reflect.Type) (elem, key reflect.Type, ok bool) {
	if t == types.String {
		return types.CharType, nil, true
	}
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Array {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem(), nil, true
	case reflect.Map:
		return t.Elem(), t.Key(), true
	}
	return nil, nil, false
}

// namespaceRef is a namespace named in a member chain. It is resolved away
// by the next element and never emitted.
type namespaceRef struct {
	ns   *imports.Namespace
	name string
}

func (n *namespaceRef) ResultType() reflect.Type { return nil }

func (n *namespaceRef) Emit(*generator) {}

// typeRef is an imported type named in a member chain; it gives access to
// nothing but is kept for error reporting.
type typeRef struct {
	typ  reflect.Type
	name string
}

func (t *typeRef) ResultType() reflect.Type { return nil }

func (t *typeRef) Emit(*generator) {}
