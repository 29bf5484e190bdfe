package wasmimport_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/compiler"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/wasmimport"
)

// binary builds a module exporting one (i32, i32) -> i32 function made of
// local.get 0, local.get 1 and op.
func binary(name string, op byte) []byte {
	b := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
		0x03, 0x02, 0x01, 0x00,
		0x07, byte(len(name) + 4), 0x01, byte(len(name)),
	}
	b = append(b, name...)
	b = append(b, 0x00, 0x00)
	return append(b, 0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, op, 0x0b)
}

const (
	opAdd  = 0x6a
	opDivS = 0x6d
)

func load(t *testing.T, wasm []byte) *wasmimport.Module {
	t.Helper()
	ctx := context.Background()
	mod, err := wasmimport.Load(ctx, wasm, wasmimport.WithMemoryLimitPages(1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mod.Close(ctx) })
	return mod
}

func TestLoad_Exports(t *testing.T) {
	mod := load(t, binary("add", opAdd))
	assert.Equal(t, []string{"add"}, mod.Names())

	fn, ok := mod.Func("add")
	require.True(t, ok)
	add, ok := fn.(func(int32, int32) (int32, error))
	require.True(t, ok)
	v, err := add(40, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestLibrary_Compile(t *testing.T) {
	mod := load(t, binary("add", opAdd))
	ctx, err := compiler.NewContext(nil)
	require.NoError(t, err)
	require.NoError(t, mod.Library("Wasm").Import(ctx.Imports()))

	expr, err := ctx.Compile("Wasm.add(2, 40) * 2")
	require.NoError(t, err)
	v, err := expr.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, int32(84), v)
}

func TestLibrary_Trap(t *testing.T) {
	mod := load(t, binary("div", opDivS))
	ctx, err := compiler.NewContext(nil)
	require.NoError(t, err)
	require.NoError(t, mod.Library("Wasm").Import(ctx.Imports()))

	expr, err := ctx.Compile("Wasm.div(7, 0)")
	require.NoError(t, err)
	_, err = expr.Evaluate()
	assert.ErrorContains(t, err, "wasm div")
}

func TestLoad_Invalid(t *testing.T) {
	_, err := wasmimport.Load(context.Background(), []byte("not wasm"))
	assert.Error(t, err)
}
