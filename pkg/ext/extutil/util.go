// Package extutil holds what the ext sub-packages share: the description
// of a function library and its registration into an import tree.
package extutil

import (
	"fmt"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/imports"
)

// Def is one overload of a library function. Fn is a Go func accepted by
// imports.Namespace.AddFunction.
type Def struct {
	Name string
	Fn   any
}

// Library is a named set of functions and constants.
type Library struct {
	// Name is the namespace the library is imported under.
	Name      string
	Defs      []Def
	Constants map[string]any
}

// Import registers the library in its own namespace below the root of im.
func (l Library) Import(im *imports.Imports) error {
	return l.ImportInto(im.Namespace(l.Name))
}

// ImportInto registers the library in ns. Importing into im.Root() makes
// the functions callable unqualified.
func (l Library) ImportInto(ns *imports.Namespace) error {
	for _, d := range l.Defs {
		if err := ns.AddFunction(d.Name, d.Fn); err != nil {
			return fmt.Errorf("library %s: %w", l.Name, err)
		}
	}
	for name, v := range l.Constants {
		if err := ns.AddConstant(name, v); err != nil {
			return fmt.Errorf("library %s: %w", l.Name, err)
		}
	}
	return nil
}

// Names returns the distinct function names of the library in
// registration order.
func (l Library) Names() []string {
	seen := make(map[string]bool, len(l.Defs))
	var out []string
	for _, d := range l.Defs {
		if !seen[d.Name] {
			seen[d.Name] = true
			out = append(out, d.Name)
		}
	}
	return out
}
