// Package vm is the low-level instruction stream compiled expressions run
// on. An Emitter collects instructions and labels; Build patches the
// branches and returns an immutable Program that evaluates on a value stack.
//
// Instructions are Go closures over their operands, so a Program needs no
// decoding step at run time.
package vm

import (
	"fmt"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// DefaultMaxInstructions is the default limit on program size.
const DefaultMaxInstructions = 1 << 16

// Exec runs one instruction against the machine.
type Exec func(m *Machine) error

type opKind uint8

const (
	opExec opKind = iota
	opBr
	opBrTrue
	opBrFalse
)

// Instruction is one step of a program.
type Instruction struct {
	Name   string
	Arg    string
	kind   opKind
	exec   Exec
	label  Label
	target int
}

// Label is a branch target defined by an Emitter.
type Label int

// Option configures an Emitter.
type Option func(*Emitter)

// WithMaxInstructions caps the number of emitted instructions.
func WithMaxInstructions(n int) Option {
	return func(e *Emitter) {
		if n > 0 {
			e.max = n
		}
	}
}

// Emitter builds a program.
type Emitter struct {
	code   []Instruction
	labels []int
	max    int
	err    error
}

// NewEmitter creates an empty emitter.
func NewEmitter(opts ...Option) *Emitter {
	e := &Emitter{max: DefaultMaxInstructions}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit appends an instruction. name and arg are only used by Disassemble.
func (e *Emitter) Emit(name, arg string, fn Exec) {
	e.append(Instruction{Name: name, Arg: arg, kind: opExec, exec: fn})
}

// Const appends an instruction pushing v.
func (e *Emitter) Const(v any) {
	e.Emit("ldc", formatValue(v), func(m *Machine) error {
		m.Push(v)
		return nil
	})
}

// Pop appends an instruction discarding the top of the stack.
func (e *Emitter) Pop() {
	e.Emit("pop", "", func(m *Machine) error {
		m.Pop()
		return nil
	})
}

// DefineLabel creates a new, unmarked label.
func (e *Emitter) DefineLabel() Label {
	e.labels = append(e.labels, -1)
	return Label(len(e.labels) - 1)
}

// MarkLabel binds l to the position of the next instruction.
func (e *Emitter) MarkLabel(l Label) {
	if e.labels[l] >= 0 && e.err == nil {
		e.err = fmt.Errorf("vm: label %d marked twice", l)
	}
	e.labels[l] = len(e.code)
}

// Br appends an unconditional branch to l.
func (e *Emitter) Br(l Label) {
	e.append(Instruction{Name: "br", kind: opBr, label: l})
}

// BrTrue appends a branch to l taken when the popped value is true.
func (e *Emitter) BrTrue(l Label) {
	e.append(Instruction{Name: "brtrue", kind: opBrTrue, label: l})
}

// BrFalse appends a branch to l taken when the popped value is false.
func (e *Emitter) BrFalse(l Label) {
	e.append(Instruction{Name: "brfalse", kind: opBrFalse, label: l})
}

// Len returns the number of instructions emitted so far.
func (e *Emitter) Len() int {
	return len(e.code)
}

func (e *Emitter) append(in Instruction) {
	if len(e.code) >= e.max {
		if e.err == nil {
			e.err = types.Errorf(types.ReasonTooComplex, "expression needs more than %d instructions", e.max)
		}
		return
	}
	e.code = append(e.code, in)
}

// Build patches branch targets and returns the program.
func (e *Emitter) Build() (*Program, error) {
	if e.err != nil {
		return nil, e.err
	}
	code := make([]Instruction, len(e.code))
	copy(code, e.code)
	for i := range code {
		in := &code[i]
		if in.kind == opExec {
			continue
		}
		target := e.labels[in.label]
		if target < 0 {
			return nil, fmt.Errorf("vm: branch at %d to unmarked label %d", i, in.label)
		}
		in.target = target
		in.Arg = fmt.Sprintf("L%04d", target)
	}
	return &Program{code: code}, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", x)
	case types.Char:
		return fmt.Sprintf("%q", rune(x))
	}
	return fmt.Sprintf("%v (%T)", v, v)
}
