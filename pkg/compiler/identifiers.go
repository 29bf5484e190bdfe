package compiler

import (
	"github.com/caiosm1005/outsystems-formula-flee/pkg/imports"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/parser"
)

// identifierCollector gathers the names a member chain starts with.
type identifierCollector struct {
	names []*parser.Node
}

func (ic *identifierCollector) Enter(n *parser.Node) error {
	if n.Production != parser.ProdMember && n.Production != parser.ProdInCollection {
		return nil
	}
	first := n.Child(0)
	if first != nil && first.Production == parser.ProdMemberFunction && first.ChildCount() == 1 {
		ic.names = append(ic.names, first.Child(0))
	}
	return nil
}

func (ic *identifierCollector) Exit(*parser.Node) error { return nil }

// ParseIdentifiers returns the names text reads that are neither defined
// variables nor imported namespaces or types: the names a host has to
// supply. Each name is listed once, in order of first appearance.
func (c *Context) ParseIdentifiers(text string) ([]string, error) {
	c.mu.Lock()
	tree, err := c.parser.Parse(text)
	cs := c.opts.CaseSensitive
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ic := &identifierCollector{}
	if err := parser.Walk(tree, ic); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	for _, tok := range ic.names {
		name := identifier(tok.Image)
		key := imports.NameKey(name, cs)
		if seen[key] || c.variables.Contains(name) || c.isImportedScope(name, cs) {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out, nil
}

func (c *Context) isImportedScope(name string, cs bool) bool {
	for _, m := range c.imports.Lookup(name, cs) {
		if m.Kind == imports.KindNamespace || m.Kind == imports.KindType {
			return true
		}
	}
	return false
}
