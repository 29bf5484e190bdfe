package convert

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// Operator identifies an overloadable operator.
type Operator uint8

// Overloadable operators.
const (
	OpAdd Operator = iota + 1
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpPower
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpAnd
	OpOr
	OpXor
	OpNegate
	OpNot
)

var operatorNames = [...]string{
	OpAdd:          "+",
	OpSubtract:     "-",
	OpMultiply:     "*",
	OpDivide:       "/",
	OpModulo:       "%",
	OpPower:        "^",
	OpEqual:        "=",
	OpNotEqual:     "<>",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpAnd:          "and",
	OpOr:           "or",
	OpXor:          "xor",
	OpNegate:       "-",
	OpNot:          "not",
}

func (op Operator) String() string {
	if int(op) < len(operatorNames) && operatorNames[op] != "" {
		return operatorNames[op]
	}
	return fmt.Sprintf("Operator(%d)", uint8(op))
}

// IsUnary reports whether op takes one operand.
func (op Operator) IsUnary() bool {
	return op == OpNegate || op == OpNot
}

// Operators is a registry of user-defined operators and conversions for host
// types. Operator functions are plain Go funcs:
//
//	ops.AddBinary(convert.OpAdd, func(a, b Money) Money { ... })
//	ops.AddImplicit(func(c Cents) Money { ... })
//
// A func may return a second error result. Operators is safe for concurrent
// use.
type Operators struct {
	mu       sync.RWMutex
	binary   map[Operator][]reflect.Value
	unary    map[Operator][]reflect.Value
	implicit map[[2]reflect.Type]reflect.Value
	explicit map[[2]reflect.Type]reflect.Value
}

// NewOperators creates an empty registry.
func NewOperators() *Operators {
	return &Operators{
		binary:   make(map[Operator][]reflect.Value),
		unary:    make(map[Operator][]reflect.Value),
		implicit: make(map[[2]reflect.Type]reflect.Value),
		explicit: make(map[[2]reflect.Type]reflect.Value),
	}
}

// AddBinary registers a binary operator overload. fn must be a func of two
// parameters returning one value, optionally followed by an error.
func (o *Operators) AddBinary(op Operator, fn any) error {
	if op.IsUnary() {
		return fmt.Errorf("operator %s is unary", op)
	}
	v, err := checkFunc(fn, 2)
	if err != nil {
		return fmt.Errorf("binary operator %s: %w", op, err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.binary[op] = append(o.binary[op], v)
	return nil
}

// AddUnary registers a unary operator overload. fn must be a func of one
// parameter.
func (o *Operators) AddUnary(op Operator, fn any) error {
	if !op.IsUnary() {
		return fmt.Errorf("operator %s is binary", op)
	}
	v, err := checkFunc(fn, 1)
	if err != nil {
		return fmt.Errorf("unary operator %s: %w", op, err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unary[op] = append(o.unary[op], v)
	return nil
}

// AddImplicit registers an implicit conversion from the parameter type of
// fn to its result type.
func (o *Operators) AddImplicit(fn any) error {
	v, err := checkFunc(fn, 1)
	if err != nil {
		return fmt.Errorf("implicit conversion: %w", err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.implicit[[2]reflect.Type{v.Type().In(0), v.Type().Out(0)}] = v
	return nil
}

// AddExplicit registers an explicit conversion, used only by cast.
func (o *Operators) AddExplicit(fn any) error {
	v, err := checkFunc(fn, 1)
	if err != nil {
		return fmt.Errorf("explicit conversion: %w", err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.explicit[[2]reflect.Type{v.Type().In(0), v.Type().Out(0)}] = v
	return nil
}

// Binary returns the overloads of op declared on t or on u: those with at
// least one parameter of either type.
func (o *Operators) Binary(op Operator, t, u reflect.Type) []reflect.Value {
	if o == nil {
		return nil
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []reflect.Value
	for _, fn := range o.binary[op] {
		ft := fn.Type()
		if declares(ft, t) || declares(ft, u) {
			out = append(out, fn)
		}
	}
	return out
}

// Unary returns the overloads of op declared on t.
func (o *Operators) Unary(op Operator, t reflect.Type) []reflect.Value {
	if o == nil {
		return nil
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []reflect.Value
	for _, fn := range o.unary[op] {
		if fn.Type().In(0) == t {
			out = append(out, fn)
		}
	}
	return out
}

// ImplicitFunc returns the user conversion from from to to.
func (o *Operators) ImplicitFunc(from, to reflect.Type) (reflect.Value, bool) {
	if o == nil {
		return reflect.Value{}, false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.implicit[[2]reflect.Type{from, to}]
	return v, ok
}

// ExplicitFunc returns the user cast from from to to. Implicit conversions
// are valid casts too.
func (o *Operators) ExplicitFunc(from, to reflect.Type) (reflect.Value, bool) {
	if o == nil {
		return reflect.Value{}, false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	key := [2]reflect.Type{from, to}
	if v, ok := o.explicit[key]; ok {
		return v, true
	}
	v, ok := o.implicit[key]
	return v, ok
}

// Clone returns an independent copy of the registry.
func (o *Operators) Clone() *Operators {
	c := NewOperators()
	if o == nil {
		return c
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	for op, fns := range o.binary {
		c.binary[op] = append([]reflect.Value(nil), fns...)
	}
	for op, fns := range o.unary {
		c.unary[op] = append([]reflect.Value(nil), fns...)
	}
	for k, v := range o.implicit {
		c.implicit[k] = v
	}
	for k, v := range o.explicit {
		c.explicit[k] = v
	}
	return c
}

func declares(ft, t reflect.Type) bool {
	if t == nil {
		return false
	}
	for i := 0; i < ft.NumIn(); i++ {
		if ft.In(i) == t {
			return true
		}
	}
	return false
}

func checkFunc(fn any, params int) (reflect.Value, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return reflect.Value{}, fmt.Errorf("expected a func, got %T", fn)
	}
	t := v.Type()
	if t.IsVariadic() || t.NumIn() != params {
		return reflect.Value{}, fmt.Errorf("expected %d parameters, got %s", params, t)
	}
	if !ValidResults(t) {
		return reflect.Value{}, fmt.Errorf("expected one result, optionally followed by error, got %s", t)
	}
	return v, nil
}

// ValidResults reports whether t returns a single value, optionally
// followed by an error.
func ValidResults(t reflect.Type) bool {
	switch t.NumOut() {
	case 1:
		return t.Out(0) != types.ErrorInterface
	case 2:
		return t.Out(1) == types.ErrorInterface
	}
	return false
}
