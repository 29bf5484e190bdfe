// Package ext provides optional function libraries for expressions beyond
// the built-in operators.
//
// The libraries live in sub-packages grouped by category:
//   - extmath     : Math.Abs, Math.Round, Math.Pow, Math.Median, …
//   - extstring   : Strings.Trim, Strings.PadLeft, Strings.CamelCase, …
//   - extdatetime : DateTime.Add, DateTime.Diff, DateTime.StartOf, …
//   - extcrypto   : Crypto.UUID, Crypto.Hash, Crypto.HMAC
//
// # Integration, all libraries at once
//
//	ctx, _ := compiler.NewContext(nil)
//	if err := ext.ImportAll(ctx.Imports()); err != nil { ... }
//	expr, _ := ctx.Compile(`Math.Round(Strings.Len("abc") / 2.0)`)
//
// # Integration, unqualified calls
//
//	_ = extstring.Library().ImportInto(ctx.Imports().Root())
//	expr, _ := ctx.Compile(`"  hi ".Trim().ToUpper()`)
package ext

import (
	"github.com/caiosm1005/outsystems-formula-flee/pkg/ext/extcrypto"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/ext/extdatetime"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/ext/extmath"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/ext/extstring"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/ext/extutil"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/imports"
)

// Libraries returns every library of the ext sub-packages.
func Libraries() []extutil.Library {
	return []extutil.Library{
		extmath.Library(),
		extstring.Library(),
		extdatetime.Library(),
		extcrypto.Library(),
	}
}

// ImportAll imports every library under its own namespace.
func ImportAll(im *imports.Imports) error {
	return Import(im, Libraries()...)
}

// Import imports the given libraries under their own namespaces.
func Import(im *imports.Imports, libs ...extutil.Library) error {
	for _, l := range libs {
		if err := l.Import(im); err != nil {
			return err
		}
	}
	return nil
}

// ByName returns the library imported under namespace name.
func ByName(name string) (extutil.Library, bool) {
	for _, l := range Libraries() {
		if l.Name == name {
			return l, true
		}
	}
	return extutil.Library{}, false
}
