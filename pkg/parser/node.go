package parser

import (
	"fmt"
	"strings"
)

// Node is a parse tree node: either a token (Production == 0) or a
// production with ordered children. Value holds the semantic value an
// Analyzer attaches while walking the tree.
type Node struct {
	Production ProductionID
	Token      TokenType
	Name       string
	Image      string
	Position   int
	Line       int
	Column     int
	Children   []*Node
	Value      any
}

// IsToken reports whether the node is a token leaf.
func (n *Node) IsToken() bool {
	return n.Production == 0
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int {
	return len(n.Children)
}

// Child returns the i-th child, or nil when out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// ChildValues returns the Value of every child that is not a token.
func (n *Node) ChildValues() []any {
	out := make([]any, 0, len(n.Children))
	for _, c := range n.Children {
		if !c.IsToken() {
			out = append(out, c.Value)
		}
	}
	return out
}

// String renders the subtree, one node per line.
func (n *Node) String() string {
	var b strings.Builder
	n.format(&b, 0)
	return b.String()
}

func (n *Node) format(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	if n.IsToken() {
		fmt.Fprintf(b, "%s %q (%d:%d)\n", n.Token, n.Image, n.Line, n.Column)
		return
	}
	fmt.Fprintf(b, "%s(%d)\n", n.Name, n.Production)
	for _, c := range n.Children {
		c.format(b, depth+1)
	}
}

// Analyzer visits parse tree nodes. Enter is called before the children of
// a node are visited, Exit after, so Exit sees every child already analyzed.
type Analyzer interface {
	Enter(n *Node) error
	Exit(n *Node) error
}

// Walk visits n depth-first with a. It stops at the first error.
func Walk(n *Node, a Analyzer) error {
	if err := a.Enter(n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := Walk(c, a); err != nil {
			return err
		}
	}
	return a.Exit(n)
}
