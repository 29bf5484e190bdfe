package vm

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
)

// Machine is the state of one program run.
type Machine struct {
	stack []any
	// Owner is the owner object of the run.
	Owner any
	// Data is passed through to instructions; compiled expressions put
	// their variable store here.
	Data any
}

// Push pushes v.
func (m *Machine) Push(v any) {
	m.stack = append(m.stack, v)
}

// Pop removes and returns the top value.
func (m *Machine) Pop() any {
	n := len(m.stack) - 1
	v := m.stack[n]
	m.stack[n] = nil
	m.stack = m.stack[:n]
	return v
}

// Peek returns the top value without removing it.
func (m *Machine) Peek() any {
	return m.stack[len(m.stack)-1]
}

// PopN removes the top n values and returns them in push order.
func (m *Machine) PopN(n int) []any {
	start := len(m.stack) - n
	out := make([]any, n)
	copy(out, m.stack[start:])
	clear(m.stack[start:])
	m.stack = m.stack[:start]
	return out
}

// Depth returns the number of values on the stack.
func (m *Machine) Depth() int {
	return len(m.stack)
}

// machinePool recycles machines between runs.
//
// THREAD-SAFETY AUDIT: safe.
//   - Each run takes exclusive ownership of a machine until it is released.
//   - release clears the stack and the references before Put, so nothing of
//     a previous run leaks into the next one.
var machinePool = sync.Pool{
	New: func() any { return &Machine{stack: make([]any, 0, 16)} },
}

func acquireMachine(owner, data any) *Machine {
	m := machinePool.Get().(*Machine)
	m.Owner = owner
	m.Data = data
	return m
}

func releaseMachine(m *Machine) {
	clear(m.stack)
	m.stack = m.stack[:0]
	m.Owner = nil
	m.Data = nil
	if cap(m.stack) <= 1024 {
		machinePool.Put(m)
	}
}

// Program is an immutable instruction sequence. A Program may be run from
// several goroutines at once.
type Program struct {
	code []Instruction
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.code)
}

// PanicError is returned when host code called by a program panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic during evaluation: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ErrStackImbalance reports a program that did not leave exactly one value.
var ErrStackImbalance = errors.New("vm: program left an unbalanced stack")

// Run executes the program and returns the single value it leaves on the
// stack.
func (p *Program) Run(owner, data any) (result any, err error) {
	m := acquireMachine(owner, data)
	defer releaseMachine(m)
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	for pc := 0; pc < len(p.code); {
		in := &p.code[pc]
		switch in.kind {
		case opExec:
			if err := in.exec(m); err != nil {
				return nil, err
			}
			pc++
		case opBr:
			pc = in.target
		case opBrTrue:
			if m.Pop().(bool) {
				pc = in.target
			} else {
				pc++
			}
		case opBrFalse:
			if !m.Pop().(bool) {
				pc = in.target
			} else {
				pc++
			}
		}
	}

	if m.Depth() != 1 {
		return nil, fmt.Errorf("%w: depth %d", ErrStackImbalance, m.Depth())
	}
	return m.Pop(), nil
}

// Disassemble renders the program as a listing, one instruction per line.
func (p *Program) Disassemble() string {
	targets := make(map[int]bool)
	for _, in := range p.code {
		if in.kind != opExec {
			targets[in.target] = true
		}
	}
	var b strings.Builder
	for i, in := range p.code {
		if targets[i] {
			fmt.Fprintf(&b, "L%04d:\n", i)
		}
		if in.Arg != "" {
			fmt.Fprintf(&b, "  %04d  %-10s %s\n", i, in.Name, in.Arg)
		} else {
			fmt.Fprintf(&b, "  %04d  %s\n", i, in.Name)
		}
	}
	if targets[len(p.code)] {
		fmt.Fprintf(&b, "L%04d:\n", len(p.code))
	}
	return b.String()
}
