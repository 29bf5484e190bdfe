package vm_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/vm"
)

func add(e *vm.Emitter) {
	e.Emit("add", "int32", func(m *vm.Machine) error {
		b := m.Pop().(int32)
		a := m.Pop().(int32)
		m.Push(a + b)
		return nil
	})
}

func TestProgram_Arithmetic(t *testing.T) {
	e := vm.NewEmitter()
	e.Const(int32(400))
	e.Const(int32(20))
	add(e)

	p, err := e.Build()
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())

	got, err := p.Run(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(420), got)
}

// branchProgram computes: if cond then "yes" else "no".
func branchProgram(t *testing.T, cond bool) *vm.Program {
	t.Helper()
	e := vm.NewEmitter()
	elseLabel := e.DefineLabel()
	end := e.DefineLabel()
	e.Const(cond)
	e.BrFalse(elseLabel)
	e.Const("yes")
	e.Br(end)
	e.MarkLabel(elseLabel)
	e.Const("no")
	e.MarkLabel(end)
	p, err := e.Build()
	require.NoError(t, err)
	return p
}

func TestProgram_Branches(t *testing.T) {
	for _, tt := range []struct {
		cond bool
		want string
	}{{true, "yes"}, {false, "no"}} {
		got, err := branchProgram(t, tt.cond).Run(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestProgram_BrTrue(t *testing.T) {
	e := vm.NewEmitter()
	skip := e.DefineLabel()
	e.Const(int32(1))
	e.Const(true)
	e.BrTrue(skip)
	e.Pop()
	e.Const(int32(2))
	e.MarkLabel(skip)

	p, err := e.Build()
	require.NoError(t, err)
	got, err := p.Run(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), got)
}

func TestProgram_OwnerAndData(t *testing.T) {
	e := vm.NewEmitter()
	e.Emit("ldowner", "", func(m *vm.Machine) error {
		m.Push(m.Owner.(string) + m.Data.(string))
		return nil
	})
	p, err := e.Build()
	require.NoError(t, err)

	got, err := p.Run("ab", "cd")
	require.NoError(t, err)
	assert.Equal(t, "abcd", got)
}

func TestProgram_Errors(t *testing.T) {
	t.Run("instruction error", func(t *testing.T) {
		e := vm.NewEmitter()
		e.Emit("fail", "", func(*vm.Machine) error { return types.ErrDivideByZero })
		p, err := e.Build()
		require.NoError(t, err)
		_, err = p.Run(nil, nil)
		assert.ErrorIs(t, err, types.ErrDivideByZero)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		boom := errors.New("boom")
		e := vm.NewEmitter()
		e.Emit("panic", "", func(*vm.Machine) error { panic(boom) })
		p, err := e.Build()
		require.NoError(t, err)
		_, err = p.Run(nil, nil)
		var pe *vm.PanicError
		require.ErrorAs(t, err, &pe)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unbalanced stack", func(t *testing.T) {
		e := vm.NewEmitter()
		e.Const(1)
		e.Const(2)
		p, err := e.Build()
		require.NoError(t, err)
		_, err = p.Run(nil, nil)
		assert.ErrorIs(t, err, vm.ErrStackImbalance)
	})

	t.Run("unmarked label", func(t *testing.T) {
		e := vm.NewEmitter()
		e.Br(e.DefineLabel())
		_, err := e.Build()
		assert.Error(t, err)
	})

	t.Run("too many instructions", func(t *testing.T) {
		e := vm.NewEmitter(vm.WithMaxInstructions(4))
		for i := 0; i < 5; i++ {
			e.Const(i)
		}
		_, err := e.Build()
		assert.ErrorIs(t, err, types.ErrTooComplex)
	})
}

func TestProgram_Disassemble(t *testing.T) {
	listing := branchProgram(t, true).Disassemble()
	assert.Contains(t, listing, "brfalse")
	assert.Contains(t, listing, `ldc        "yes"`)
	assert.Contains(t, listing, "L0004:")
	assert.Equal(t, 5, strings.Count(listing, "  0"))
}

func TestProgram_Concurrent(t *testing.T) {
	e := vm.NewEmitter()
	e.Emit("ldowner", "", func(m *vm.Machine) error {
		m.Push(m.Owner)
		return nil
	})
	e.Const(int32(1))
	add(e)
	p, err := e.Build()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := int32(0); i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, err := p.Run(i, nil)
				if err != nil || got != i+1 {
					t.Errorf("Run(%d) = %v, %v", i, got, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkProgram_Run(b *testing.B) {
	e := vm.NewEmitter()
	e.Const(int32(400))
	e.Const(int32(20))
	add(e)
	p, err := e.Build()
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for b.Loop() {
		if _, err := p.Run(nil, nil); err != nil {
			b.Fatal(err)
		}
	}
}
