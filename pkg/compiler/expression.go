package compiler

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/vm"
)

// Expression is a compiled expression. It is safe for concurrent use;
// evaluations read the variable store of the context it was compiled in.
type Expression struct {
	text       string
	ctx        *Context
	program    *vm.Program
	resultType reflect.Type

	mu    sync.RWMutex
	owner any
}

// Evaluate runs the expression and returns its value, whose dynamic type
// is ResultType (or nil for nil-able result types).
func (e *Expression) Evaluate() (any, error) {
	e.mu.RLock()
	owner := e.owner
	e.mu.RUnlock()
	return e.program.Run(owner, e.ctx.variables)
}

// EvaluateAs runs e and asserts its value to T.
func EvaluateAs[T any](e *Expression) (T, error) {
	var zero T
	v, err := e.Evaluate()
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("expression %q: result of type %s is not a %s", e.text, types.Name(reflect.TypeOf(v)), types.Name(reflect.TypeFor[T]()))
	}
	return t, nil
}

// Text returns the source text.
func (e *Expression) Text() string { return e.text }

// ResultType returns the static result type.
func (e *Expression) ResultType() reflect.Type { return e.resultType }

// Context returns the context snapshot the expression was compiled in.
func (e *Expression) Context() *Context { return e.ctx }

// Program returns the compiled program.
func (e *Expression) Program() *vm.Program { return e.program }

// Owner returns the current owner object.
func (e *Expression) Owner() any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.owner
}

// SetOwner rebinds the expression to another owner of the type it was
// compiled against.
func (e *Expression) SetOwner(owner any) error {
	want := e.ctx.ownerType
	if want == nil {
		return fmt.Errorf("expression %q was compiled without an owner", e.text)
	}
	if owner == nil {
		if !types.IsNullable(want) {
			return fmt.Errorf("owner of type %s cannot be nil", types.Name(want))
		}
	} else if got := reflect.TypeOf(owner); !got.AssignableTo(want) {
		return fmt.Errorf("owner of type %s is not assignable to %s", types.Name(got), types.Name(want))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.owner = owner
	return nil
}

// Clone returns an expression sharing the program and the context, with
// its own owner binding.
func (e *Expression) Clone() *Expression {
	return &Expression{
		text:       e.text,
		ctx:        e.ctx,
		program:    e.program,
		resultType: e.resultType,
		owner:      e.Owner(),
	}
}

func (e *Expression) String() string { return e.text }
