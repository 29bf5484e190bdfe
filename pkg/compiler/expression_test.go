package compiler_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/compiler"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/parser"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

func TestVariables_DefineAndSet(t *testing.T) {
	vars := compiler.NewVariables(false)

	require.NoError(t, vars.Define("Total", types.Int32, int32(1)))
	assert.Error(t, vars.Define("total", types.Int32, int32(2)), "names are case-insensitive")
	assert.Error(t, vars.Define("x", types.Int32, "text"))
	assert.Error(t, vars.Define("", types.Int32, nil))
	assert.Error(t, vars.Define("y", nil, nil))

	require.NoError(t, vars.Set("TOTAL", int32(5)))
	v, ok := vars.Get("total")
	require.True(t, ok)
	assert.Equal(t, int32(5), v)
	assert.Error(t, vars.Set("total", "five"))

	require.NoError(t, vars.Set("Name", "Ann"))
	typ, ok := vars.Type("name")
	require.True(t, ok)
	assert.Equal(t, types.String, typ)
	assert.Error(t, vars.Set("nothing", nil))

	if diff := cmp.Diff([]string{"Name", "Total"}, vars.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, vars.Len())
	assert.True(t, vars.Remove("name"))
	assert.False(t, vars.Contains("Name"))
	vars.Clear()
	assert.Equal(t, 0, vars.Len())
}

func TestVariables_ReadAtEvaluation(t *testing.T) {
	ctx := newContext(t, nil)
	expr, err := ctx.Compile("a * b")
	require.NoError(t, err)

	v, err := expr.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, int32(200), v)

	require.NoError(t, ctx.Variables().Set("a", int32(3)))
	v, err = expr.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, int32(60), v)

	ctx.Variables().Remove("a")
	_, err = expr.Evaluate()
	assert.ErrorIs(t, err, types.ErrUndefinedVariable)
}

func TestVariables_ExpressionValued(t *testing.T) {
	ctx := newContext(t, nil)
	inner, err := ctx.Compile("a * 2")
	require.NoError(t, err)
	require.NoError(t, ctx.Variables().Define("twiceA", nil, inner))

	expr, err := ctx.Compile("twiceA + 1")
	require.NoError(t, err)
	assert.Equal(t, types.Int32, expr.ResultType())

	v, err := expr.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, int32(21), v)

	require.NoError(t, ctx.Variables().Set("a", int32(5)))
	v, err = expr.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, int32(11), v)
}

func TestVariables_OnDemand(t *testing.T) {
	ctx := newContext(t, nil)
	vars := ctx.Variables()

	vars.OnResolveType(func(name string) reflect.Type {
		if strings.HasPrefix(name, "x") {
			return types.Int32
		}
		return nil
	})
	vars.OnResolveValue(func(name string, t reflect.Type) (any, error) {
		if name == "xMissing" {
			return nil, fmt.Errorf("no value for %s", name)
		}
		return int32(len(name)), nil
	})
	vars.OnResolveFunction(func(name string, args []reflect.Type) reflect.Type {
		if strings.EqualFold(name, "Twice") && len(args) == 1 && args[0] == types.Int32 {
			return types.Int32
		}
		return nil
	})
	vars.OnInvokeFunction(func(name string, args []any) (any, error) {
		return args[0].(int32) * 2, nil
	})

	assert.Equal(t, int32(6), eval(t, ctx, "xyz * 2"))
	assert.Equal(t, int32(42), eval(t, ctx, "Twice(21)"))
	assert.Equal(t, int32(12), eval(t, ctx, "Twice(x12345) + a - 10"))

	expr, err := ctx.Compile("xMissing + 1")
	require.NoError(t, err)
	_, err = expr.Evaluate()
	assert.ErrorContains(t, err, "no value for xMissing")

	_, err = ctx.Compile(`Twice("s")`)
	assert.ErrorIs(t, err, types.ErrUndefinedName)
	_, err = ctx.Compile("other")
	assert.ErrorIs(t, err, types.ErrUndefinedName)
}

func TestExpression_SetOwner(t *testing.T) {
	ctx := newContext(t, newCustomer())
	expr, err := ctx.Compile("Name + \"!\"")
	require.NoError(t, err)

	other := newCustomer()
	other.Name = "Bob"
	clone := expr.Clone()
	require.NoError(t, clone.SetOwner(other))

	v, err := expr.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, "Ann!", v)
	v, err = clone.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, "Bob!", v)
	assert.Same(t, other, clone.Owner())

	assert.Error(t, expr.SetOwner("not a customer"))
	assert.Error(t, expr.SetOwner(customer{}))

	require.NoError(t, expr.SetOwner(nil))
	_, err = expr.Evaluate()
	assert.ErrorIs(t, err, types.ErrNilReference)

	plain, err := newContext(t, nil).Compile("1")
	require.NoError(t, err)
	assert.Error(t, plain.SetOwner(other))
}

func TestExpression_Accessors(t *testing.T) {
	ctx := newContext(t, nil)
	expr, err := ctx.Compile("a + b")
	require.NoError(t, err)

	assert.Equal(t, "a + b", expr.Text())
	assert.Equal(t, "a + b", expr.String())
	assert.Equal(t, types.Int32, expr.ResultType())
	assert.NotSame(t, ctx, expr.Context())
	assert.Same(t, ctx.Variables(), expr.Context().Variables())

	listing := expr.Program().Disassemble()
	assert.Contains(t, listing, "ldvar")
	assert.Contains(t, listing, "add")

	s, err := compiler.EvaluateAs[string](expr)
	assert.Error(t, err)
	assert.Empty(t, s)

	n, err := compiler.EvaluateAs[int32](expr)
	require.NoError(t, err)
	assert.Equal(t, int32(30), n)

	shared, err := ctx.Compile("a", compiler.WithNoClone())
	require.NoError(t, err)
	assert.Same(t, ctx, shared.Context())
}

func TestContext_SnapshotIsolation(t *testing.T) {
	ctx := newContext(t, nil)
	require.NoError(t, ctx.Imports().AddConstant("Rate", 2.0))
	expr, err := ctx.Compile("Rate * a")
	require.NoError(t, err)

	require.NoError(t, ctx.Imports().AddConstant("Later", int32(1)))
	assert.Empty(t, expr.Context().Imports().Lookup("Later", false))

	clone := ctx.Clone()
	require.NoError(t, clone.Imports().AddConstant("OnlyInClone", int32(1)))
	_, err = ctx.Compile("OnlyInClone")
	assert.ErrorIs(t, err, types.ErrUndefinedName)
	assert.Equal(t, int32(1), eval(t, clone, "OnlyInClone"))
}

func TestContext_RecreateParser(t *testing.T) {
	ctx := newContext(t, nil)
	require.NoError(t, ctx.Imports().AddFunction("Max", func(x, y float64) float64 { return max(x, y) }))

	ctx.SetOptions(compiler.WithParserOptions(
		parser.WithDecimalSeparator(','),
		parser.WithArgumentSeparator(';'),
		parser.WithDateTimeFormat("yyyy-MM-dd"),
	))
	_, err := ctx.Compile("Max(1,5; 2)")
	require.Error(t, err, "the parser is only rebuilt on request")

	require.NoError(t, ctx.RecreateParser())
	assert.Equal(t, 2.5, eval(t, ctx, "1,5 + 1"))
	assert.Equal(t, 2.5, eval(t, ctx, "Max(2,5; 2)"))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), eval(t, ctx, "#2024-03-05#"))

	ctx.SetOptions(compiler.WithParserOptions(parser.WithArgumentSeparator(',')))
	assert.Error(t, ctx.RecreateParser())
}

func TestContext_ParseIdentifiers(t *testing.T) {
	ctx := newContext(t, nil)
	require.NoError(t, ctx.Imports().Namespace("Calc").AddFunction("F", func(x int32) int32 { return x }))

	tests := []struct {
		text string
		want []string
	}{
		{"a + x * Calc.F(y) + z.Length + x", []string{"x", "y", "z"}},
		{"Foo(1) + bar", []string{"bar"}},
		{"x + X", []string{"x"}},
		{"p in (q, r) and s in items", []string{"p", "q", "r", "s", "items"}},
		{"1 + 2", nil},
		{"@if + b", []string{"if"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ctx.ParseIdentifiers(tt.text)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("identifiers mismatch (-want +got):\n%s", diff)
			}
		})
	}

	_, err := ctx.ParseIdentifiers("a +")
	assert.ErrorIs(t, err, types.ErrSyntax)
}

func TestContext_LogsCompilation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := newContext(t, nil, compiler.WithLogger(logger))

	_, err := ctx.Compile("a + 1")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "expression compiled")
	assert.Contains(t, buf.String(), "type=int")

	require.NoError(t, ctx.RecreateParser())
	assert.Contains(t, buf.String(), "parser recreated")
}

func TestExpression_Concurrent(t *testing.T) {
	ctx := newContext(t, newCustomer())
	expr, err := ctx.Compile("a * b + Age")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				if _, err := ctx.Compile(fmt.Sprintf("a + %d", i)); err != nil {
					errs <- err
				}
				return
			}
			v, err := expr.Evaluate()
			if err != nil {
				errs <- err
				return
			}
			if v != int32(230) {
				errs <- fmt.Errorf("got %v", v)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func BenchmarkCompile(b *testing.B) {
	ctx, err := compiler.NewContext(nil)
	require.NoError(b, err)
	require.NoError(b, ctx.Variables().Define("a", types.Int32, int32(10)))
	require.NoError(b, ctx.Variables().Define("b", types.Int32, int32(20)))

	b.ReportAllocs()
	for b.Loop() {
		if _, err := ctx.Compile("((a*2)+(b^2))-(100%5)"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEvaluate(b *testing.B) {
	ctx, err := compiler.NewContext(nil)
	require.NoError(b, err)
	require.NoError(b, ctx.Variables().Define("a", types.Int32, int32(10)))
	require.NoError(b, ctx.Variables().Define("b", types.Int32, int32(20)))
	expr, err := ctx.Compile("a > 5 and (b * 2 + a) % 7 = 1 or a = b")
	require.NoError(b, err)

	b.ReportAllocs()
	for b.Loop() {
		if _, err := expr.Evaluate(); err != nil {
			b.Fatal(err)
		}
	}
}
