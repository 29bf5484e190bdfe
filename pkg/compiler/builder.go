package compiler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/convert"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/imports"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/parser"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// builder turns a parse tree into a typed element tree. It walks the tree
// bottom-up: when a node is left, the values of its children are ready.
type builder struct {
	opts      Options
	conv      *convert.Converter
	operators *convert.Operators
	imports   *imports.Imports
	variables *Variables
	owner     *imports.Owner
	resolver  imports.Resolver
}

// memberRef is a name in a member chain, not yet resolved.
type memberRef struct {
	name    string
	args    []Element
	hasArgs bool
}

// indexRef is a bracketed index in a member chain.
type indexRef struct {
	args []Element
}

// inListItems is the parenthesized list of an in expression.
type inListItems []Element

func (b *builder) build(root *parser.Node) (Element, error) {
	if err := parser.Walk(root, b); err != nil {
		return nil, err
	}
	el, ok := root.Value.(Element)
	if !ok {
		return nil, types.Errorf(types.ReasonSyntaxError, "expression has no value")
	}
	return el, nil
}

// Enter implements parser.Analyzer.
func (b *builder) Enter(*parser.Node) error { return nil }

// Exit implements parser.Analyzer.
func (b *builder) Exit(n *parser.Node) error {
	if n.IsToken() {
		return nil
	}
	v, err := b.exit(n)
	if err != nil {
		return positioned(err, n.Position)
	}
	n.Value = v
	return nil
}

func positioned(err error, pos int) error {
	var te *types.Error
	if errors.As(err, &te) {
		te.WithPosition(pos)
		return err
	}
	return types.NewError(types.ReasonTypeMismatch, err.Error(), pos).WithCause(err)
}

func (b *builder) exit(n *parser.Node) (any, error) {
	switch n.Production {
	case parser.ProdExpression, parser.ProdParen:
		return values(n)[0], nil
	case parser.ProdXor, parser.ProdOr, parser.ProdAnd:
		return b.chain(n, func(_ parser.TokenType, l, r Element) (Element, error) {
			return b.logical(logicalOperator(n.Production), l, r)
		})
	case parser.ProdNot:
		if n.Child(0).Token == parser.TokenNot {
			return b.not(n.Child(1).Value.(Element))
		}
		return n.Child(0).Value, nil
	case parser.ProdIn:
		if n.ChildCount() == 1 {
			return n.Child(0).Value, nil
		}
		operand := n.Child(0).Value.(Element)
		switch target := n.Child(2).Value.(type) {
		case inListItems:
			return b.inList(operand, target)
		case Element:
			return b.inCollection(operand, target)
		}
		return nil, types.Errorf(types.ReasonSyntaxError, "invalid in target")
	case parser.ProdInList:
		return inListItems(n.Child(1).Value.([]Element)), nil
	case parser.ProdInCollection, parser.ProdMember:
		return b.memberChain(n)
	case parser.ProdShift:
		return b.chain(n, func(tt parser.TokenType, l, r Element) (Element, error) {
			return b.shift(tt == parser.TokenShiftLeft, l, r)
		})
	case parser.ProdCompare:
		return b.chain(n, func(tt parser.TokenType, l, r Element) (Element, error) {
			return b.compare(tokenOperators[tt], l, r)
		})
	case parser.ProdAdditive, parser.ProdMult, parser.ProdPower:
		return b.chain(n, func(tt parser.TokenType, l, r Element) (Element, error) {
			return b.arithmetic(tokenOperators[tt], l, r)
		})
	case parser.ProdNegate:
		if n.Child(0).Token == parser.TokenMinus {
			return b.negate(n.Child(1).Value.(Element))
		}
		return n.Child(0).Value, nil
	case parser.ProdIf:
		vs := values(n)
		return b.conditional(vs[0].(Element), vs[1].(Element), vs[2].(Element))
	case parser.ProdCast:
		vs := values(n)
		return b.cast(vs[0].(Element), vs[1].(reflect.Type))
	case parser.ProdCastType:
		return b.castType(n)
	case parser.ProdMemberFunction:
		ref := &memberRef{name: identifier(n.Child(0).Image)}
		if n.ChildCount() > 1 {
			ref.hasArgs = true
			ref.args = n.Child(1).Value.([]Element)
		}
		return ref, nil
	case parser.ProdCallArguments:
		if n.ChildCount() == 3 {
			return n.Child(1).Value, nil
		}
		return []Element{}, nil
	case parser.ProdArgumentList:
		vs := values(n)
		args := make([]Element, len(vs))
		for i, v := range vs {
			args[i] = v.(Element)
		}
		return args, nil
	case parser.ProdMemberAccess:
		return n.Child(1).Value, nil
	case parser.ProdIndexAccess:
		return &indexRef{args: n.Child(1).Value.([]Element)}, nil
	}
	return nil, types.Errorf(types.ReasonSyntaxError, "unexpected %s", n.Name)
}

var tokenOperators = map[parser.TokenType]convert.Operator{
	parser.TokenPlus:         convert.OpAdd,
	parser.TokenMinus:        convert.OpSubtract,
	parser.TokenMult:         convert.OpMultiply,
	parser.TokenDiv:          convert.OpDivide,
	parser.TokenMod:          convert.OpModulo,
	parser.TokenPower:        convert.OpPower,
	parser.TokenEqual:        convert.OpEqual,
	parser.TokenNotEqual:     convert.OpNotEqual,
	parser.TokenLess:         convert.OpLess,
	parser.TokenLessEqual:    convert.OpLessEqual,
	parser.TokenGreater:      convert.OpGreater,
	parser.TokenGreaterEqual: convert.OpGreaterEqual,
}

func logicalOperator(p parser.ProductionID) convert.Operator {
	switch p {
	case parser.ProdAnd:
		return convert.OpAnd
	case parser.ProdOr:
		return convert.OpOr
	}
	return convert.OpXor
}

// values returns the values of the production children of n.
func values(n *parser.Node) []any {
	return n.ChildValues()
}

// identifier strips the verbatim marker of an identifier.
func identifier(image string) string {
	return strings.TrimPrefix(image, "@")
}

// chain folds a left-associative operator chain: operand (op operand)*.
func (b *builder) chain(n *parser.Node, apply func(tt parser.TokenType, l, r Element) (Element, error)) (any, error) {
	acc := n.Child(0).Value.(Element)
	for i := 1; i+1 < n.ChildCount(); i += 2 {
		op := n.Child(i)
		r := n.Child(i + 1).Value.(Element)
		var err error
		if acc, err = apply(op.Token, acc, r); err != nil {
			return nil, positioned(err, op.Position)
		}
	}
	return acc, nil
}

func (b *builder) castType(n *parser.Node) (reflect.Type, error) {
	var path []string
	slice := false
	for _, c := range n.Children {
		switch c.Token {
		case parser.TokenIdentifier:
			path = append(path, identifier(c.Image))
		case parser.TokenBracketOpen:
			slice = true
		}
	}
	t, ok := b.imports.ResolveType(path, b.opts.CaseSensitive)
	if !ok {
		name := strings.Join(path, ".")
		return nil, types.Errorf(types.ReasonUndefinedName, "type %q is not defined", name).WithToken(name)
	}
	if slice {
		t = reflect.SliceOf(t)
	}
	return t, nil
}

// memberChain resolves a primary expression followed by member accesses
// and indexers, left to right.
func (b *builder) memberChain(n *parser.Node) (Element, error) {
	var cur Element
	for i, c := range n.Children {
		var err error
		switch {
		case c.IsToken():
			cur, err = b.literalElement(c)
		case c.Production == parser.ProdMemberFunction && i == 0:
			cur, err = b.resolveFirst(c.Value.(*memberRef))
		case c.Production == parser.ProdMemberAccess:
			cur, err = b.resolveNext(cur, c.Value.(*memberRef))
		case c.Production == parser.ProdIndexAccess:
			cur, err = b.index(cur, c.Value.(*indexRef))
		default:
			cur = c.Value.(Element)
		}
		if err != nil {
			return nil, positioned(err, c.Position)
		}
	}

	switch ref := cur.(type) {
	case *namespaceRef:
		return nil, mismatch("%s is a namespace, not a value", ref.name).WithToken(ref.name)
	case *typeRef:
		return nil, mismatch("%s is a type, not a value", ref.name).WithToken(ref.name)
	}
	return cur, nil
}

func (b *builder) index(recv Element, ref *indexRef) (Element, error) {
	cur := recv
	for _, arg := range ref.args {
		t := cur.ResultType()
		if t == nil {
			return nil, mismatch("only values can be indexed")
		}
		elem, key, ok := elementType(t)
		if !ok {
			return nil, mismatch("a value of type %s cannot be indexed", types.Name(t))
		}
		if key != nil {
			var err error
			if arg, err = b.implicit(arg, key); err != nil {
				return nil, err
			}
		} else if !types.IsIntegral(arg.ResultType()) {
			return nil, mismatch("index must be an integer, got %s", types.Name(arg.ResultType()))
		}
		cur = &indexer{recv: cur, index: arg, typ: elem}
	}
	return cur, nil
}
