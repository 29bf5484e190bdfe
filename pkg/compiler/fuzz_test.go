package compiler_test

import (
	"testing"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/compiler"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// FuzzCompile checks that arbitrary input compiles to an expression or fails
// with a typed error, and that compiled expressions evaluate without
// panicking.
func FuzzCompile(f *testing.F) {
	seeds := []string{
		"1 + 2 * 3",
		"a << 2",
		"1 << 40L",
		`1 >> "x"`,
		"cast(300, byte)",
		"if(a > b, a, 1.5)",
		"a in (1, 2L, 3.0)",
		`"s"[0] + 'c'`,
		"#01/02/2006# - #01/01/2006#",
		"not a and b or true xor false",
		"-2147483648 % -1",
		"list[5] + scores",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	ctx, err := compiler.NewContext(nil)
	if err != nil {
		f.Fatal(err)
	}
	vars := ctx.Variables()
	for name, v := range map[string]any{"a": int32(10), "b": int32(20), "list": []int32{1, 2, 3}} {
		if err := vars.Define(name, nil, v); err != nil {
			f.Fatal(err)
		}
	}
	if err := vars.Define("scores", types.Int64, int64(4)); err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, input string) {
		expr, err := ctx.Compile(input)
		if err != nil {
			if types.ReasonOf(err) == 0 {
				t.Fatalf("Compile(%q) returned error without a reason: %v", input, err)
			}
			return
		}
		_, _ = expr.Evaluate()
	})
}
