package imports

import "reflect"

// Owner exposes the members of the owner object unqualified.
type Owner struct {
	Type     reflect.Type
	Access   Access
	Resolver Resolver
}

// NewOwner creates the owner import for t. A nil t means no owner.
func NewOwner(t reflect.Type, access Access, r Resolver) *Owner {
	if r == nil {
		r = NewReflectResolver()
	}
	return &Owner{Type: t, Access: access, Resolver: r}
}

// Lookup returns the owner members called name, of the kinds given.
// Inaccessible members are included; callers check Accessible so they can
// report access errors.
func (o *Owner) Lookup(name string, caseSensitive bool, kinds ...Kind) []*Member {
	if o == nil || o.Type == nil {
		return nil
	}
	return Find(o.Resolver, o.Type, name, caseSensitive, kinds...)
}

// Names returns the names of the accessible owner members.
func (o *Owner) Names() []string {
	if o == nil || o.Type == nil {
		return nil
	}
	var names []string
	seen := make(map[string]bool)
	for _, m := range o.Resolver.Members(o.Type) {
		if m.Accessible(o.Access) && !seen[m.Name] {
			seen[m.Name] = true
			names = append(names, m.Name)
		}
	}
	return names
}
