// Package compiler type-checks parsed expressions against a context of
// imports, variables, operators and an owner object, and generates the
// programs that evaluate them.
//
// # Example
//
//	ctx, _ := compiler.NewContext(nil)
//	_ = ctx.Variables().Define("a", types.Int32, int32(400))
//	expr, err := ctx.Compile("a + 20")
//	if err != nil {
//	    return err
//	}
//	v, _ := expr.Evaluate() // int32(420)
package compiler

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/convert"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/imports"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/parser"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// Context is the compile environment of expressions. Compiling takes a
// private snapshot of the imports and operators (unless NoClone is set);
// the variable store stays shared with every expression compiled from the
// context.
type Context struct {
	mu        sync.Mutex
	opts      Options
	imports   *imports.Imports
	variables *Variables
	operators *convert.Operators
	owner     any
	ownerType reflect.Type
	parser    *parser.Parser
}

// NewContext creates a context whose expressions read the members of
// owner unqualified. owner may be nil.
func NewContext(owner any, opts ...Option) (*Context, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Resolver == nil {
		o.Resolver = imports.NewReflectResolver()
	}
	p, err := parser.NewWithOptions(o.Parser)
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	return &Context{
		opts:      o,
		imports:   imports.New(),
		variables: NewVariables(o.CaseSensitive),
		operators: convert.NewOperators(),
		owner:     owner,
		ownerType: reflect.TypeOf(owner),
		parser:    p,
	}, nil
}

// Imports returns the import tree.
func (c *Context) Imports() *imports.Imports { return c.imports }

// Variables returns the variable store.
func (c *Context) Variables() *Variables { return c.variables }

// Operators returns the registry of user operators and conversions.
func (c *Context) Operators() *convert.Operators { return c.operators }

// Owner returns the owner object.
func (c *Context) Owner() any { return c.owner }

// Options returns a copy of the current options.
func (c *Context) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

// SetOptions changes options. Lexical options (c.Options().Parser) only
// take effect after RecreateParser.
func (c *Context) SetOptions(opts ...Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.opts.CaseSensitive
	for _, opt := range opts {
		opt(&c.opts)
	}
	if c.opts.CaseSensitive != prev {
		c.variables.setCaseSensitive(c.opts.CaseSensitive)
	}
}

// RecreateParser rebuilds the parser from the current lexical options.
func (c *Context) RecreateParser() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := parser.NewWithOptions(c.opts.Parser)
	if err != nil {
		return fmt.Errorf("recreate parser: %w", err)
	}
	c.parser = p
	c.opts.Logger.Debug("parser recreated",
		slog.String("dateTimeFormat", c.opts.Parser.DateTimeFormat),
		slog.String("decimalSeparator", string(c.opts.Parser.DecimalSeparator)),
		slog.String("argumentSeparator", string(c.opts.Parser.FunctionArgumentSeparator)))
	return nil
}

// Clone returns a context with copies of the imports and operators. The
// clone shares the variable store and the parser.
func (c *Context) Clone() *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cloneLocked()
}

func (c *Context) cloneLocked() *Context {
	return &Context{
		opts:      c.opts,
		imports:   c.imports.Clone(),
		variables: c.variables,
		operators: c.operators.Clone(),
		owner:     c.owner,
		ownerType: c.ownerType,
		parser:    c.parser,
	}
}

// Compile compiles text. opts override the context options for this
// compilation only; lexical options are ignored here.
func (c *Context) Compile(text string, opts ...Option) (*Expression, error) {
	start := time.Now()

	c.mu.Lock()
	o := c.opts
	for _, opt := range opts {
		opt(&o)
	}
	snapshot := c
	if !o.NoClone {
		snapshot = c.cloneLocked()
	}
	tree, err := c.parser.Parse(text)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	b := &builder{
		opts:      o,
		conv:      convert.New(snapshot.operators),
		operators: snapshot.operators,
		imports:   snapshot.imports,
		variables: snapshot.variables,
		owner:     imports.NewOwner(snapshot.ownerType, o.OwnerMemberAccess, o.Resolver),
		resolver:  o.Resolver,
	}
	root, err := b.build(tree)
	if err != nil {
		return nil, err
	}

	resultType := o.ResultType
	if resultType == nil {
		resultType = root.ResultType()
		if resultType == types.NullType {
			resultType = types.Object
		}
	}
	inferred := root.ResultType()
	if root, err = b.implicit(root, resultType); err != nil {
		return nil, types.Errorf(types.ReasonTypeMismatch, "expression of type %s cannot be returned as %s",
			types.Name(inferred), types.Name(resultType)).WithCause(err)
	}

	g := newGenerator(o.MaxInstructions)
	root.Emit(g)
	prog, err := g.Build()
	if err != nil {
		return nil, err
	}

	o.Logger.Debug("expression compiled",
		slog.String("text", text),
		slog.String("type", types.Name(resultType)),
		slog.Int("instructions", prog.Len()),
		slog.Duration("elapsed", time.Since(start)))

	return &Expression{
		text:       text,
		ctx:        snapshot,
		program:    prog,
		resultType: resultType,
		owner:      snapshot.owner,
	}, nil
}

// CompileAs compiles text with result type T.
func CompileAs[T any](c *Context, text string, opts ...Option) (*Expression, error) {
	return c.Compile(text, append(opts, WithResultType(reflect.TypeFor[T]()))...)
}
