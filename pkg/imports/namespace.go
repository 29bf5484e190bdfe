package imports

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// Namespace is a node of the import tree. It holds functions (several
// registrations under one name form an overload set), constants, types and
// nested namespaces.
type Namespace struct {
	mu      sync.RWMutex
	name    string
	members []*Member
}

// NewNamespace creates an empty namespace.
func NewNamespace(name string) *Namespace {
	return &Namespace{name: name}
}

// Name returns the namespace name; the root namespace has none.
func (n *Namespace) Name() string {
	return n.name
}

// AddFunction registers fn under name. fn must be a func returning nothing,
// one value, or one value and an error. Adding several funcs under one name
// overloads it.
func (n *Namespace) AddFunction(name string, fn any) error {
	if err := checkName(name); err != nil {
		return err
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Errorf("import %s: expected a func, got %T", name, fn)
	}
	if !validResults(v.Type()) {
		return fmt.Errorf("import %s: unsupported results in %s", name, v.Type())
	}
	n.add(&Member{
		Name:     name,
		Kind:     KindFunction,
		Sig:      v.Type(),
		Func:     v,
		Exported: true,
	})
	return nil
}

// AddFunctions registers every func of funcs.
func (n *Namespace) AddFunctions(funcs map[string]any) error {
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := n.AddFunction(name, funcs[name]); err != nil {
			return err
		}
	}
	return nil
}

// AddConstant registers a named constant value.
func (n *Namespace) AddConstant(name string, value any) error {
	if err := checkName(name); err != nil {
		return err
	}
	t := types.NullType
	if value != nil {
		t = reflect.TypeOf(value)
	}
	n.add(&Member{
		Name:     name,
		Kind:     KindConstant,
		Type:     t,
		Value:    value,
		Exported: true,
	})
	return nil
}

// AddType registers t under name so it can be named in casts.
func (n *Namespace) AddType(name string, t reflect.Type) error {
	if err := checkName(name); err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("import %s: nil type", name)
	}
	n.add(&Member{
		Name:     name,
		Kind:     KindType,
		Type:     t,
		Exported: true,
	})
	return nil
}

// Namespace returns the nested namespace called name, creating it when
// missing.
func (n *Namespace) Namespace(name string) *Namespace {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.members {
		if m.Kind == KindNamespace && m.Name == name {
			return m.Namespace
		}
	}
	child := NewNamespace(name)
	n.members = append(n.members, &Member{
		Name:      name,
		Kind:      KindNamespace,
		Namespace: child,
		Exported:  true,
	})
	return child
}

// Lookup returns the members called name.
func (n *Namespace) Lookup(name string, caseSensitive bool) []*Member {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var out []*Member
	for _, m := range n.members {
		if NameEqual(m.Name, name, caseSensitive) {
			out = append(out, m)
		}
	}
	return out
}

// Members returns every member, in registration order.
func (n *Namespace) Members() []*Member {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Member, len(n.members))
	copy(out, n.members)
	return out
}

// Clone returns a deep copy of the namespace tree. Member descriptors other
// than namespaces are shared; they are immutable.
func (n *Namespace) Clone() *Namespace {
	n.mu.RLock()
	defer n.mu.RUnlock()
	c := NewNamespace(n.name)
	c.members = make([]*Member, len(n.members))
	for i, m := range n.members {
		if m.Kind == KindNamespace {
			cm := *m
			cm.Namespace = m.Namespace.Clone()
			m = &cm
		}
		c.members[i] = m
	}
	return c
}

func (n *Namespace) add(m *Member) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.members = append(n.members, m)
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("import: empty name")
	}
	if strings.ContainsAny(name, ". \t\r\n") {
		return fmt.Errorf("import: invalid name %q", name)
	}
	return nil
}

// Imports is the root of an import tree.
type Imports struct {
	root *Namespace
}

// New creates an empty import tree.
func New() *Imports {
	return &Imports{root: NewNamespace("")}
}

// Root returns the root namespace. Its members are visible unqualified.
func (im *Imports) Root() *Namespace {
	return im.root
}

// AddFunction registers fn in the root namespace.
func (im *Imports) AddFunction(name string, fn any) error {
	return im.root.AddFunction(name, fn)
}

// AddConstant registers a constant in the root namespace.
func (im *Imports) AddConstant(name string, value any) error {
	return im.root.AddConstant(name, value)
}

// Namespace returns a namespace below the root, creating it when missing.
// A dotted path creates the intermediate namespaces.
func (im *Imports) Namespace(path string) *Namespace {
	ns := im.root
	for _, part := range strings.Split(path, ".") {
		ns = ns.Namespace(part)
	}
	return ns
}

// Lookup returns the root members called name.
func (im *Imports) Lookup(name string, caseSensitive bool) []*Member {
	return im.root.Lookup(name, caseSensitive)
}

// Extensions returns the root functions called name that can be applied to
// a preceding value: those with at least one parameter.
func (im *Imports) Extensions(name string, caseSensitive bool) []*Member {
	var out []*Member
	for _, m := range im.root.Lookup(name, caseSensitive) {
		if m.Kind == KindFunction && m.Sig.NumIn() > 0 {
			out = append(out, m)
		}
	}
	return out
}

// ResolveType resolves a possibly dotted type name: a builtin type name or
// a path through namespaces ending at an imported type.
func (im *Imports) ResolveType(path []string, caseSensitive bool) (reflect.Type, bool) {
	if len(path) == 1 {
		if t, ok := types.BuiltinType(path[0]); ok {
			return t, true
		}
	}
	ns := im.root
	for i, part := range path {
		last := i == len(path)-1
		var next *Namespace
		for _, m := range ns.Lookup(part, caseSensitive) {
			if last && m.Kind == KindType {
				return m.Type, true
			}
			if m.Kind == KindNamespace {
				next = m.Namespace
			}
		}
		if next == nil {
			return nil, false
		}
		ns = next
	}
	return nil, false
}

// Names returns the names visible at the root.
func (im *Imports) Names() []string {
	members := im.root.Members()
	names := make([]string, 0, len(members))
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if !seen[m.Name] {
			seen[m.Name] = true
			names = append(names, m.Name)
		}
	}
	return names
}

// Clone returns an independent copy of the tree.
func (im *Imports) Clone() *Imports {
	return &Imports{root: im.root.Clone()}
}
