// Package imports is the compiler's only window onto host vocabulary. It
// describes the members of Go types (fields, getter methods, methods), the
// members of the owner object and the functions, constants and types
// registered in a namespace tree.
//
// # Example
//
//	im := imports.New()
//	math := im.Root().Namespace("Math")
//	_ = math.AddFunction("Max", func(a, b float64) float64 { return max(a, b) })
//	_ = im.Root().AddConstant("Answer", int32(42))
package imports

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// Kind classifies a member.
type Kind uint8

// Member kinds.
const (
	KindField Kind = iota + 1
	// KindProperty is a method without parameters returning one value,
	// read like a field.
	KindProperty
	KindMethod
	KindFunction
	KindConstant
	KindType
	KindNamespace
)

var kindNames = [...]string{
	KindField:     "field",
	KindProperty:  "property",
	KindMethod:    "method",
	KindFunction:  "function",
	KindConstant:  "constant",
	KindType:      "type",
	KindNamespace: "namespace",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsValue reports whether the member is read without a call.
func (k Kind) IsValue() bool {
	return k == KindField || k == KindProperty || k == KindConstant
}

// IsCallable reports whether the member is invoked with arguments.
func (k Kind) IsCallable() bool {
	return k == KindMethod || k == KindFunction
}

// Access selects which members of the owner are visible.
type Access uint8

// Access flags.
const (
	AccessPublic Access = 1 << iota
	AccessNonPublic

	AccessAll = AccessPublic | AccessNonPublic
)

// Tag is an explicit access override set with a `flee:"allow"` or
// `flee:"deny"` struct tag.
type Tag uint8

// Tags.
const (
	TagNone Tag = iota
	TagAllow
	TagDeny
)

// TagKey is the struct tag key read for access overrides.
const TagKey = "flee"

func parseTag(st reflect.StructTag) Tag {
	switch strings.TrimSpace(st.Get(TagKey)) {
	case "allow":
		return TagAllow
	case "deny", "-":
		return TagDeny
	}
	return TagNone
}

// Member describes one named member.
type Member struct {
	Name string
	Kind Kind
	// Type is the value type of fields, properties and constants, and the
	// type itself for KindType.
	Type reflect.Type
	// Sig is the func type of methods and functions, without receiver.
	Sig reflect.Type
	// Owner is the declaring type; nil for namespace members.
	Owner     reflect.Type
	Index     []int
	Func      reflect.Value
	Value     any
	Namespace *Namespace
	Exported  bool
	Tag       Tag
}

// Accessible reports whether the member is visible under mask. Tags win
// over the mask.
func (m *Member) Accessible(mask Access) bool {
	switch m.Tag {
	case TagAllow:
		return true
	case TagDeny:
		return false
	}
	if m.Exported {
		return mask&AccessPublic != 0
	}
	return mask&AccessNonPublic != 0
}

// HasResult reports whether a callable member returns a value.
func (m *Member) HasResult() bool {
	if m.Sig == nil {
		return m.Kind.IsValue()
	}
	switch m.Sig.NumOut() {
	case 1:
		return m.Sig.Out(0) != types.ErrorInterface
	case 2:
		return m.Sig.Out(1) == types.ErrorInterface
	}
	return false
}

// ResultType returns the value type of the member: the field or constant
// type, or the first result of a callable.
func (m *Member) ResultType() reflect.Type {
	if m.Kind.IsCallable() {
		if !m.HasResult() {
			return nil
		}
		return m.Sig.Out(0)
	}
	return m.Type
}

// Params returns the parameter types of a callable member.
func (m *Member) Params() []reflect.Type {
	if m.Sig == nil {
		return nil
	}
	out := make([]reflect.Type, m.Sig.NumIn())
	for i := range out {
		out[i] = m.Sig.In(i)
	}
	return out
}

func (m *Member) String() string {
	switch {
	case m.Kind.IsCallable():
		return fmt.Sprintf("%s %s%s", m.Kind, m.Name, strings.TrimPrefix(m.Sig.String(), "func"))
	case m.Type != nil:
		return fmt.Sprintf("%s %s %s", m.Kind, m.Name, types.Name(m.Type))
	}
	return fmt.Sprintf("%s %s", m.Kind, m.Name)
}

// validResults reports whether a func signature returns nothing, one value,
// or one value and an error.
func validResults(t reflect.Type) bool {
	switch t.NumOut() {
	case 0:
		return true
	case 1:
		return true
	case 2:
		return t.Out(1) == types.ErrorInterface
	}
	return false
}
