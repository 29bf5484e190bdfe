package imports

import (
	"reflect"
	"sort"
	"sync"

	"golang.org/x/text/cases"
)

// Resolver lists the members of a type.
type Resolver interface {
	Members(t reflect.Type) []*Member
}

// ReflectResolver derives members from Go reflection and caches them per
// type. It is safe for concurrent use.
type ReflectResolver struct {
	cache sync.Map // reflect.Type -> []*Member
}

// NewReflectResolver creates a resolver backed by reflection.
func NewReflectResolver() *ReflectResolver {
	return &ReflectResolver{}
}

// Members returns the fields, properties and methods of t. For a pointer to
// a struct the fields of the struct are included.
func (r *ReflectResolver) Members(t reflect.Type) []*Member {
	if t == nil {
		return nil
	}
	if cached, ok := r.cache.Load(t); ok {
		return cached.([]*Member)
	}
	members := reflectMembers(t)
	actual, _ := r.cache.LoadOrStore(t, members)
	return actual.([]*Member)
}

func reflectMembers(t reflect.Type) []*Member {
	var out []*Member

	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(st) {
			if f.Anonymous && f.Type.Kind() != reflect.Struct && f.Type.Kind() != reflect.Pointer {
				continue
			}
			out = append(out, &Member{
				Name:     f.Name,
				Kind:     KindField,
				Type:     f.Type,
				Owner:    t,
				Index:    f.Index,
				Exported: f.IsExported(),
				Tag:      parseTag(f.Tag),
			})
		}
	}

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		sig := m.Type
		if t.Kind() != reflect.Interface {
			sig = stripReceiver(sig)
		}
		if !validResults(sig) {
			continue
		}
		out = append(out, &Member{
			Name:     m.Name,
			Kind:     KindMethod,
			Sig:      sig,
			Owner:    t,
			Exported: true,
		})
		if sig.NumIn() == 0 && sig.NumOut() > 0 && (&Member{Sig: sig}).HasResult() {
			out = append(out, &Member{
				Name:     m.Name,
				Kind:     KindProperty,
				Type:     sig.Out(0),
				Sig:      sig,
				Owner:    t,
				Exported: true,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func stripReceiver(sig reflect.Type) reflect.Type {
	in := make([]reflect.Type, sig.NumIn()-1)
	for i := range in {
		in[i] = sig.In(i + 1)
	}
	out := make([]reflect.Type, sig.NumOut())
	for i := range out {
		out[i] = sig.Out(i)
	}
	return reflect.FuncOf(in, out, sig.IsVariadic())
}

// Find returns the members of t named name, restricted to the kinds given.
func Find(r Resolver, t reflect.Type, name string, caseSensitive bool, kinds ...Kind) []*Member {
	var out []*Member
	for _, m := range r.Members(t) {
		if !NameEqual(m.Name, name, caseSensitive) {
			continue
		}
		if len(kinds) > 0 && !hasKind(kinds, m.Kind) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func hasKind(kinds []Kind, k Kind) bool {
	for _, kk := range kinds {
		if kk == k {
			return true
		}
	}
	return false
}

// NameKey returns the lookup key of name: the name itself when case
// sensitive, its case fold otherwise.
func NameKey(name string, caseSensitive bool) string {
	if caseSensitive {
		return name
	}
	// A Caser keeps state; one per call keeps this safe for concurrent use.
	return cases.Fold().String(name)
}

// NameEqual compares two names under the case rule.
func NameEqual(a, b string, caseSensitive bool) bool {
	if caseSensitive || a == b {
		return a == b
	}
	return NameKey(a, false) == NameKey(b, false)
}
