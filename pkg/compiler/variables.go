package compiler

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/imports"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// Hooks resolving names that are not defined in the store, consulted at
// compile time (types) and at evaluation time (values).
type (
	// TypeResolver returns the type of an on-demand variable, or nil when
	// name is unknown.
	TypeResolver func(name string) reflect.Type
	// ValueResolver returns the value of an on-demand variable.
	ValueResolver func(name string, t reflect.Type) (any, error)
	// FunctionResolver returns the result type of an on-demand function
	// called with arguments of the given types, or nil when it is unknown.
	FunctionResolver func(name string, args []reflect.Type) reflect.Type
	// FunctionInvoker calls an on-demand function.
	FunctionInvoker func(name string, args []any) (any, error)
)

type variable struct {
	name  string
	typ   reflect.Type
	value any
}

// Variables is the store of named values expressions read. A context and
// the expressions compiled from it share one store. It is safe for
// concurrent use.
//
// A variable holding a *Expression is evaluated each time it is read; its
// type is the result type of that expression.
type Variables struct {
	mu            sync.RWMutex
	caseSensitive bool
	vars          map[string]*variable

	resolveType     TypeResolver
	resolveValue    ValueResolver
	resolveFunction FunctionResolver
	invokeFunction  FunctionInvoker
}

// NewVariables creates an empty store.
func NewVariables(caseSensitive bool) *Variables {
	return &Variables{caseSensitive: caseSensitive, vars: make(map[string]*variable)}
}

func (v *Variables) key(name string) string {
	return imports.NameKey(name, v.caseSensitive)
}

// Define declares name with type t and an initial value, which may be nil.
// A nil t takes the dynamic type of value. Defining an existing name is an
// error.
func (v *Variables) Define(name string, t reflect.Type, value any) error {
	if t == nil {
		if e, ok := value.(*Expression); ok {
			t = e.ResultType()
		} else if value != nil {
			t = reflect.TypeOf(value)
		}
	}
	if t == nil {
		return fmt.Errorf("define %s: nil type", name)
	}
	if name == "" {
		return errors.New("define: empty variable name")
	}
	if err := checkAssignable(name, t, value); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	k := v.key(name)
	if _, exists := v.vars[k]; exists {
		return fmt.Errorf("define %s: variable already defined", name)
	}
	v.vars[k] = &variable{name: name, typ: t, value: value}
	return nil
}

// Set assigns value to name. A missing variable is defined with the
// dynamic type of value; an existing one keeps its type and value must be
// assignable to it.
func (v *Variables) Set(name string, value any) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	k := v.key(name)
	if vr, ok := v.vars[k]; ok {
		if err := checkAssignable(name, vr.typ, value); err != nil {
			return err
		}
		vr.value = value
		return nil
	}

	t := valueType(value)
	if t == nil {
		return fmt.Errorf("set %s: cannot infer the type of nil", name)
	}
	v.vars[k] = &variable{name: name, typ: t, value: value}
	return nil
}

// Get returns the stored value of name. Expression values are returned as
// is, not evaluated.
func (v *Variables) Get(name string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	vr, ok := v.vars[v.key(name)]
	if !ok {
		return nil, false
	}
	return vr.value, true
}

// Type returns the type of name.
func (v *Variables) Type(name string) (reflect.Type, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	vr, ok := v.vars[v.key(name)]
	if !ok {
		return nil, false
	}
	return vr.typ, true
}

// Contains reports whether name is defined.
func (v *Variables) Contains(name string) bool {
	_, ok := v.Type(name)
	return ok
}

// Remove deletes name and reports whether it existed.
func (v *Variables) Remove(name string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	k := v.key(name)
	_, ok := v.vars[k]
	delete(v.vars, k)
	return ok
}

// Clear removes every variable.
func (v *Variables) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.vars)
}

// Len returns the number of variables.
func (v *Variables) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.vars)
}

// Names returns the variable names in sorted order.
func (v *Variables) Names() []string {
	v.mu.RLock()
	names := make([]string, 0, len(v.vars))
	for _, vr := range v.vars {
		names = append(names, vr.name)
	}
	v.mu.RUnlock()
	sort.Strings(names)
	return names
}

// OnResolveType installs the hook typing on-demand variables.
func (v *Variables) OnResolveType(fn TypeResolver) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resolveType = fn
}

// OnResolveValue installs the hook supplying on-demand variable values.
func (v *Variables) OnResolveValue(fn ValueResolver) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resolveValue = fn
}

// OnResolveFunction installs the hook typing on-demand functions.
func (v *Variables) OnResolveFunction(fn FunctionResolver) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resolveFunction = fn
}

// OnInvokeFunction installs the hook calling on-demand functions.
func (v *Variables) OnInvokeFunction(fn FunctionInvoker) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.invokeFunction = fn
}

// setCaseSensitive rekeys the store after the context option changed.
// Names that collide under the new rule keep the last one seen.
func (v *Variables) setCaseSensitive(cs bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.caseSensitive == cs {
		return
	}
	v.caseSensitive = cs
	rekeyed := make(map[string]*variable, len(v.vars))
	for _, vr := range v.vars {
		rekeyed[v.key(vr.name)] = vr
	}
	v.vars = rekeyed
}

// onDemandType asks the type hook about name.
func (v *Variables) onDemandType(name string) reflect.Type {
	v.mu.RLock()
	fn := v.resolveType
	v.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(name)
}

// onDemandFunction asks the function hook about name.
func (v *Variables) onDemandFunction(name string, args []reflect.Type) reflect.Type {
	v.mu.RLock()
	fn := v.resolveFunction
	v.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(name, args)
}

// load reads name for an expression that expects type t.
func (v *Variables) load(name string, t reflect.Type) (any, error) {
	v.mu.RLock()
	vr, ok := v.vars[v.key(name)]
	var value any
	if ok {
		value = vr.value
	}
	resolve := v.resolveValue
	v.mu.RUnlock()

	switch {
	case ok:
		if e, isExpr := value.(*Expression); isExpr {
			r, err := e.Evaluate()
			if err != nil {
				return nil, fmt.Errorf("variable %s: %w", name, err)
			}
			value = r
		}
	case resolve != nil:
		r, err := resolve(name, t)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		value = r
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUndefinedVariable, name)
	}
	return coerce(name, t, value)
}

// invoke calls the on-demand function name.
func (v *Variables) invoke(name string, t reflect.Type, args []any) (any, error) {
	v.mu.RLock()
	fn := v.invokeFunction
	v.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("function %s: no invoke hook installed", name)
	}
	r, err := fn(name, args)
	if err != nil {
		return nil, err
	}
	return coerce(name, t, r)
}

func valueType(value any) reflect.Type {
	if e, ok := value.(*Expression); ok {
		return e.ResultType()
	}
	return reflect.TypeOf(value)
}

func checkAssignable(name string, t reflect.Type, value any) error {
	if value == nil {
		return nil
	}
	vt := valueType(value)
	if !vt.AssignableTo(t) {
		return fmt.Errorf("variable %s: value of type %s is not assignable to %s", name, types.Name(vt), types.Name(t))
	}
	return nil
}

// coerce checks a runtime value against the compile-time type t. Nil
// becomes the zero value of t.
func coerce(name string, t reflect.Type, value any) (any, error) {
	if value == nil {
		if t.Kind() == reflect.Interface {
			return nil, nil
		}
		return reflect.Zero(t).Interface(), nil
	}
	vt := reflect.TypeOf(value)
	if vt == t || t.Kind() == reflect.Interface && vt.Implements(t) {
		return value, nil
	}
	if vt.AssignableTo(t) {
		return reflect.ValueOf(value).Convert(t).Interface(), nil
	}
	return nil, fmt.Errorf("%s: value of type %s is not assignable to %s", name, types.Name(vt), types.Name(t))
}
