package compiler

import (
	"log/slog"
	"reflect"

	"golang.org/x/text/cases"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/imports"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/parser"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/vm"
)

// StringComparison selects how string equality is decided.
type StringComparison uint8

// String comparison modes.
const (
	// CompareOrdinal compares strings byte by byte.
	CompareOrdinal StringComparison = iota
	// CompareIgnoreCase compares the Unicode case folds of both strings.
	CompareIgnoreCase
)

func (sc StringComparison) equal(a, b string) bool {
	if sc == CompareIgnoreCase {
		fold := cases.Fold()
		return fold.String(a) == fold.String(b)
	}
	return a == b
}

// Options configures how expressions are compiled.
type Options struct {
	// CaseSensitive makes names of variables, members and imports case
	// sensitive.
	CaseSensitive bool
	// IntegersAsDoubles types integer literals as double.
	IntegersAsDoubles bool
	// RealLiteralType is the type of real literals without a suffix:
	// double (the default), single or decimal.
	RealLiteralType reflect.Type
	// Checked makes integer arithmetic fail with types.ErrOverflow instead
	// of wrapping around.
	Checked bool
	// StringComparison decides string equality.
	StringComparison StringComparison
	// OwnerMemberAccess selects the owner members an expression may use
	// unqualified. Members of other types are always public-only.
	OwnerMemberAccess imports.Access
	// ResultType is the declared result type. Nil means the inferred type.
	ResultType reflect.Type
	// NoClone makes compiled expressions share the context instead of a
	// private snapshot.
	NoClone bool
	// MaxInstructions limits the size of a compiled program.
	MaxInstructions int
	// Logger receives debug records about compilation.
	Logger *slog.Logger
	// Resolver lists the members of host types.
	Resolver imports.Resolver
	// Parser holds the lexical options. Changes only apply after
	// Context.RecreateParser.
	Parser parser.Options
}

// DefaultOptions returns the default compile options.
func DefaultOptions() Options {
	return Options{
		RealLiteralType:   types.Double,
		OwnerMemberAccess: imports.AccessPublic,
		MaxInstructions:   vm.DefaultMaxInstructions,
		Parser:            parser.DefaultOptions(),
	}
}

// Option configures compile options.
type Option func(*Options)

// WithCaseSensitive toggles case-sensitive names.
func WithCaseSensitive(enabled bool) Option {
	return func(opts *Options) {
		opts.CaseSensitive = enabled
	}
}

// WithIntegersAsDoubles types integer literals as double.
func WithIntegersAsDoubles(enabled bool) Option {
	return func(opts *Options) {
		opts.IntegersAsDoubles = enabled
	}
}

// WithRealLiteralType sets the type of unsuffixed real literals. Only
// types.Double, types.Single and types.Decimal are accepted; other values
// are ignored.
func WithRealLiteralType(t reflect.Type) Option {
	return func(opts *Options) {
		switch t {
		case types.Double, types.Single, types.Decimal:
			opts.RealLiteralType = t
		}
	}
}

// WithChecked toggles overflow checking of integer arithmetic.
func WithChecked(enabled bool) Option {
	return func(opts *Options) {
		opts.Checked = enabled
	}
}

// WithStringComparison sets how strings are compared for equality.
func WithStringComparison(sc StringComparison) Option {
	return func(opts *Options) {
		opts.StringComparison = sc
	}
}

// WithOwnerMemberAccess sets which owner members are visible.
func WithOwnerMemberAccess(access imports.Access) Option {
	return func(opts *Options) {
		opts.OwnerMemberAccess = access
	}
}

// WithResultType declares the result type of compiled expressions.
func WithResultType(t reflect.Type) Option {
	return func(opts *Options) {
		opts.ResultType = t
	}
}

// WithNoClone makes compiled expressions share the context.
func WithNoClone() Option {
	return func(opts *Options) {
		opts.NoClone = true
	}
}

// WithMaxInstructions limits the size of compiled programs.
func WithMaxInstructions(n int) Option {
	return func(opts *Options) {
		opts.MaxInstructions = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithResolver sets the member resolver for host types.
func WithResolver(r imports.Resolver) Option {
	return func(opts *Options) {
		opts.Resolver = r
	}
}

// WithParserOptions applies lexical options.
func WithParserOptions(popts ...parser.Option) Option {
	return func(opts *Options) {
		for _, o := range popts {
			o(&opts.Parser)
		}
	}
}

// WithMaxDepth limits the nesting depth of parsed expressions.
func WithMaxDepth(depth int) Option {
	return WithParserOptions(parser.WithMaxDepth(depth))
}
