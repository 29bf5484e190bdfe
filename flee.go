// Package flee compiles and evaluates small typed expressions embedded in a
// Go host: arithmetic, logic, comparisons, string concatenation, casts,
// conditionals and calls into imported Go functions and the members of an
// owner object.
//
// Expressions are type-checked once when compiled and then evaluated many
// times. Variables are read when an expression is evaluated, so a compiled
// expression follows later changes to its context's variables.
//
// # Quick Start
//
//	// One-shot evaluation
//	v, err := flee.Eval("a * 2 + 1", map[string]any{"a": int32(20)})
//
//	// Compile once, evaluate many times
//	ctx, _ := flee.NewContext(order)
//	expr, err := ctx.Compile("Quantity * Price > 100m")
//	ok, _ := compiler.EvaluateAs[bool](expr)
//
// The function libraries of pkg/ext (Math, Strings, DateTime and Crypto)
// are imported into every context created by this package.
//
// # More Information
//
//   - Parser: github.com/caiosm1005/outsystems-formula-flee/pkg/parser
//   - Compiler: github.com/caiosm1005/outsystems-formula-flee/pkg/compiler
//   - Imports: github.com/caiosm1005/outsystems-formula-flee/pkg/imports
//   - Types and errors: github.com/caiosm1005/outsystems-formula-flee/pkg/types
package flee

import (
	"fmt"
	"sync"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/cache"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/compiler"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/ext"
)

// Version returns the current version of the module.
func Version() string {
	return "v0.1.0-dev"
}

var (
	sharedOnce sync.Once
	shared     *compiler.Context
	sharedErr  error
	compiled   = cache.New(cache.DefaultCapacity)
)

func sharedContext() (*compiler.Context, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = NewContext(nil)
	})
	return shared, sharedErr
}

// NewContext creates a compile context for owner with the ext libraries
// imported.
func NewContext(owner any, opts ...compiler.Option) (*compiler.Context, error) {
	ctx, err := compiler.NewContext(owner, opts...)
	if err != nil {
		return nil, err
	}
	if err := ext.ImportAll(ctx.Imports()); err != nil {
		return nil, err
	}
	return ctx, nil
}

// Compile compiles text against a shared context without an owner or
// variables. Results are cached by text, so compiling the same formula
// twice returns the same *compiler.Expression.
//
// Example:
//
//	expr, err := flee.Compile(`Math.Round(10 / 3.0, 2)`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, _ := expr.Evaluate() // 3.33
func Compile(text string) (*compiler.Expression, error) {
	ctx, err := sharedContext()
	if err != nil {
		return nil, err
	}
	return compiled.GetOrCompile(text, func() (*compiler.Expression, error) {
		return ctx.Compile(text)
	})
}

// CompileAs is Compile with the result converted to T.
func CompileAs[T any](text string) (*compiler.Expression, error) {
	ctx, err := sharedContext()
	if err != nil {
		return nil, err
	}
	return compiler.CompileAs[T](ctx, text)
}

// MustCompile is like Compile but panics if the expression cannot be
// compiled. It simplifies safe initialization of global variables.
func MustCompile(text string) *compiler.Expression {
	expr, err := Compile(text)
	if err != nil {
		panic(fmt.Sprintf("flee: Compile(%q): %v", text, err))
	}
	return expr
}

// Eval compiles text in a fresh context holding vars and evaluates it once.
// Variable types are taken from the values.
//
// For repeated evaluations, compile in a context and change its variables
// instead.
func Eval(text string, vars map[string]any, opts ...compiler.Option) (any, error) {
	expr, err := compileWith(text, vars, opts...)
	if err != nil {
		return nil, err
	}
	return expr.Evaluate()
}

// EvaluateAs is Eval with the result typed as T. The expression must
// convert implicitly to T.
func EvaluateAs[T any](text string, vars map[string]any, opts ...compiler.Option) (T, error) {
	var zero T
	expr, err := compileWith(text, vars, opts...)
	if err != nil {
		return zero, err
	}
	return compiler.EvaluateAs[T](expr)
}

func compileWith(text string, vars map[string]any, opts ...compiler.Option) (*compiler.Expression, error) {
	ctx, err := NewContext(nil, opts...)
	if err != nil {
		return nil, err
	}
	for name, v := range vars {
		if err := ctx.Variables().Define(name, nil, v); err != nil {
			return nil, err
		}
	}
	return ctx.Compile(text)
}

// ParseIdentifiers returns the distinct names text reads that are not
// imported, in order of first use: the variables a host must define before
// compiling text.
func ParseIdentifiers(text string) ([]string, error) {
	ctx, err := sharedContext()
	if err != nil {
		return nil, err
	}
	return ctx.ParseIdentifiers(text)
}

// CacheStats returns the counters of the cache used by Compile.
func CacheStats() cache.Stats {
	return compiled.Stats()
}
