package compiler_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/compiler"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// newContext returns a context with a few variables used across tests.
func newContext(t *testing.T, owner any, opts ...compiler.Option) *compiler.Context {
	t.Helper()
	ctx, err := compiler.NewContext(owner, opts...)
	require.NoError(t, err)
	vars := ctx.Variables()
	require.NoError(t, vars.Define("a", types.Int32, int32(10)))
	require.NoError(t, vars.Define("b", types.Int32, int32(20)))
	require.NoError(t, vars.Define("list", nil, []int32{1, 2, 3}))
	require.NoError(t, vars.Define("scores", nil, map[string]int32{"x": 1}))
	return ctx
}

func eval(t *testing.T, ctx *compiler.Context, text string) any {
	t.Helper()
	expr, err := ctx.Compile(text)
	require.NoError(t, err, text)
	v, err := expr.Evaluate()
	require.NoError(t, err, text)
	return v
}

func TestCompile_Arithmetic(t *testing.T) {
	ctx := newContext(t, nil)

	tests := []struct {
		text string
		want any
	}{
		{"((a*2)+(b^2))-(100%5)", float64(420)},
		{"a + 20 * 2", int32(50)},
		{"(a + 20) * 2", int32(60)},
		{"a - b - 5", int32(-15)},
		{"7 / 2", int32(3)},
		{"7 % 3", int32(1)},
		{"7.0 / 2", 3.5},
		{"2 ^ 10", float64(1024)},
		{"-a", int32(-10)},
		{"10u + 5u", uint32(15)},
		{"5000000000 + 1", int64(5000000001)},
		{"1.5f * 2", float32(3)},
		{"1 << 4", int32(16)},
		{"256 >> 4", int32(16)},
		{"-16 >> 2", int32(-4)},
		{"1L << 40", int64(1) << 40},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, eval(t, ctx, tt.text))
		})
	}
}

func TestCompile_Literals(t *testing.T) {
	ctx := newContext(t, nil)

	tests := []struct {
		text string
		want any
	}{
		{"100", int32(100)},
		{"2147483648", uint32(2147483648)},
		{"5000000000", int64(5000000000)},
		{"10000000000000000000", uint64(10000000000000000000)},
		{"100u", uint32(100)},
		{"100L", int64(100)},
		{"100ul", uint64(100)},
		{"0xff", int32(255)},
		{"-2147483648", int32(math.MinInt32)},
		{"-2147483649", int64(-2147483649)},
		{"-9223372036854775808", int64(math.MinInt64)},
		{"1.5", 1.5},
		{"1.5f", float32(1.5)},
		{"2e3", float64(2000)},
		{"true", true},
		{"false", false},
		{"'a'", types.Char('a')},
		{`"hi\n"`, "hi\n"},
		{`"A"`, "A"},
		{"#25/12/2024#", time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)},
		{"##1.02:03:04#", 26*time.Hour + 3*time.Minute + 4*time.Second},
		{"##00:00:01.5#", 1500 * time.Millisecond},
		{"null", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			expr, err := ctx.Compile(tt.text)
			require.NoError(t, err)
			for range 3 {
				v, err := expr.Evaluate()
				require.NoError(t, err)
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestCompile_DecimalLiteral(t *testing.T) {
	ctx := newContext(t, nil)
	v := eval(t, ctx, "1.25m")
	require.IsType(t, decimal.Decimal{}, v)
	assert.True(t, decimal.RequireFromString("1.25").Equal(v.(decimal.Decimal)))

	ctx.SetOptions(compiler.WithRealLiteralType(types.Decimal))
	expr, err := ctx.Compile("0.1 + 0.2")
	require.NoError(t, err)
	assert.Equal(t, types.Decimal, expr.ResultType())
	v, err = expr.Evaluate()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.3").Equal(v.(decimal.Decimal)))
}

func TestCompile_LiteralErrors(t *testing.T) {
	ctx := newContext(t, nil)

	tests := []struct {
		text   string
		reason types.Reason
	}{
		{"99999999999999999999", types.ReasonConstantOverflow},
		{"-9223372036854775809", types.ReasonConstantOverflow},
		{"1e400", types.ReasonConstantOverflow},
		{"#31/02/2024#", types.ReasonInvalidFormat},
		{"1 +", types.ReasonSyntaxError},
		{"(1", types.ReasonSyntaxError},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := ctx.Compile(tt.text)
			require.Error(t, err)
			assert.Equal(t, tt.reason, types.ReasonOf(err), err.Error())
		})
	}
}

func TestCompile_ShiftErrors(t *testing.T) {
	ctx := newContext(t, nil)
	for _, text := range []string{"1 << 40L", "1 << 1.5", `1 >> "x"`, "1 << true", `"x" << 1`} {
		t.Run(text, func(t *testing.T) {
			_, err := ctx.Compile(text)
			assert.ErrorIs(t, err, types.ErrTypeMismatch)
		})
	}
	assert.Equal(t, int32(8), eval(t, ctx, "1 << 3"))
	assert.Equal(t, int64(4), eval(t, ctx, "16L >> 2"))
}

func TestCompile_IntegersAsDoubles(t *testing.T) {
	ctx := newContext(t, nil, compiler.WithIntegersAsDoubles(true))
	assert.Equal(t, float64(0), eval(t, ctx, "1 / (1 / 0)"))
	assert.Equal(t, 3.5, eval(t, ctx, "7 / 2"))
	assert.Equal(t, float64(-3), eval(t, ctx, "-3"))
}

func TestEvaluate_RuntimeErrors(t *testing.T) {
	tests := []struct {
		text string
		opts []compiler.Option
		want error
	}{
		{"1 / 0", nil, types.ErrDivideByZero},
		{"a % (b - 20)", nil, types.ErrDivideByZero},
		{"2147483647 + a", []compiler.Option{compiler.WithChecked(true)}, types.ErrOverflow},
		{"-9223372036854775808 - 1", []compiler.Option{compiler.WithChecked(true)}, types.ErrOverflow},
		{"4000000000u * 2u", []compiler.Option{compiler.WithChecked(true)}, types.ErrOverflow},
		{"list[3]", nil, types.ErrIndexOutOfRange},
		{"list[-1]", nil, types.ErrIndexOutOfRange},
		{`scores["y"]`, nil, types.ErrKeyNotFound},
		{`"abc"[3]`, nil, types.ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			ctx := newContext(t, nil, tt.opts...)
			expr, err := ctx.Compile(tt.text)
			require.NoError(t, err)
			_, err = expr.Evaluate()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEvaluate_UncheckedWraps(t *testing.T) {
	ctx := newContext(t, nil)
	assert.Equal(t, int32(math.MinInt32), eval(t, ctx, "2147483647 + 1"))
	assert.Equal(t, uint8(44), eval(t, ctx, "cast(300, byte)"))
}

func TestEvaluate_CheckedCasts(t *testing.T) {
	ctx := newContext(t, nil, compiler.WithChecked(true))

	for _, text := range []string{
		"cast(300, byte)",
		"cast(-1, uint)",
		"cast(1e20, int)",
		"cast(1.0 / 0.0, long)",
		"cast(0.0 / 0.0, int)",
		"cast(9223372036854775807L, int)",
		"cast(99999999999999999999m, long)",
		"cast(a - 11, ulong)",
	} {
		t.Run(text, func(t *testing.T) {
			expr, err := ctx.Compile(text)
			require.NoError(t, err)
			_, err = expr.Evaluate()
			assert.ErrorIs(t, err, types.ErrOverflow)
		})
	}

	assert.Equal(t, uint8(255), eval(t, ctx, "cast(255, byte)"))
	assert.Equal(t, int32(-3), eval(t, ctx, "cast(-3.99, int)"))
	assert.Equal(t, int64(12), eval(t, ctx, "cast(12.5m, long)"))
	assert.Equal(t, 300.0, eval(t, ctx, "cast(300, double)"))
}

func TestCompile_StringsAndComparison(t *testing.T) {
	ctx := newContext(t, nil)

	tests := []struct {
		text string
		want any
	}{
		{`"a" + 1`, "a1"},
		{`"x" + 1.5`, "x1.5"},
		{`"n=" + null`, "n="},
		{`"v" + true`, "vtrue"},
		{`"abc" = "abc"`, true},
		{`"abc" = "ABC"`, false},
		{`"a" <> "b"`, true},
		{`"a" = null`, false},
		{"1 < 2.5", true},
		{"a = 10", true},
		{"a <> 10", false},
		{"1 = 1.0", true},
		{"b >= a", true},
		{"10u > 3", true},
		{"'a' < 'b'", true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, eval(t, ctx, tt.text))
		})
	}

	_, err := ctx.Compile(`"a" < "b"`)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	ctx.SetOptions(compiler.WithStringComparison(compiler.CompareIgnoreCase))
	assert.Equal(t, true, eval(t, ctx, `"abc" = "ABC"`))
	assert.Equal(t, true, eval(t, ctx, `"Straße" = "STRASSE"`))
}

func TestCompile_Logical(t *testing.T) {
	ctx := newContext(t, nil)

	tests := []struct {
		text string
		want any
	}{
		{"true and false", false},
		{"true or false", true},
		{"true xor true", false},
		{"true xor false", true},
		{"not true", false},
		{"not (a > b)", true},
		{"a > 5 and b > 5 or false", true},
		{"a > 50 or b > 50 or a = 10", true},
		{"(a > 5 or b > 50) and (a < 5 or b < 50)", true},
		{"not 0", int32(-1)},
		{"12 and 10", int32(8)},
		{"12 or 3", int32(15)},
		{"12 xor 10", int32(6)},
		{"if(a > 5, \"big\", \"small\")", "big"},
		{"if(a > 50, \"big\", \"small\")", "small"},
		{"if(true, 1, 2.5)", float64(1)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, eval(t, ctx, tt.text))
		})
	}

	for _, text := range []string{"1 and true", "if(1, 2, 3)", `if(true, 1, "x")`, "not \"x\""} {
		_, err := ctx.Compile(text)
		assert.ErrorIs(t, err, types.ErrTypeMismatch, text)
	}
}

func TestCompile_ShortCircuit(t *testing.T) {
	ctx := newContext(t, nil)
	calls := 0
	require.NoError(t, ctx.Imports().AddFunction("Touch", func() bool {
		calls++
		return true
	}))

	tests := []struct {
		text  string
		want  bool
		calls int
	}{
		{"false and Touch()", false, 0},
		{"true or Touch()", true, 0},
		{"true and Touch()", true, 1},
		{"false or Touch()", true, 1},
		{"(a > 50 and Touch()) or (a < 50 or Touch())", true, 0},
		{"a = 10 and (b = 0 and Touch())", false, 0},
		{"Touch() and Touch() and Touch()", true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			calls = 0
			assert.Equal(t, tt.want, eval(t, ctx, tt.text))
			assert.Equal(t, tt.calls, calls)
		})
	}
}

func TestCompile_CastAndIn(t *testing.T) {
	ctx := newContext(t, nil)

	tests := []struct {
		text string
		want any
	}{
		{"cast(3.7, int)", int32(3)},
		{"cast(a, double)", float64(10)},
		{"cast(300, byte)", uint8(44)},
		{"cast(65, char)", types.Char('A')},
		{"3 in (1, 2, 3)", true},
		{"5 in (1, 2, 3)", false},
		{"a in (b, 10)", true},
		{`"b" in ("a", "b")`, true},
		{"2.0 in (1, 2)", true},
		{"2 in list", true},
		{"7 in list", false},
		{`"x" in scores`, true},
		{"list[1]", int32(2)},
		{`scores["x"]`, int32(1)},
		{`"héllo"[1]`, types.Char('é')},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, eval(t, ctx, tt.text))
		})
	}

	_, err := ctx.Compile(`cast("x", int)`)
	assert.ErrorIs(t, err, types.ErrInvalidExplicitCast)
	_, err = ctx.Compile("cast(1, Nope)")
	assert.ErrorIs(t, err, types.ErrUndefinedName)
	_, err = ctx.Compile(`list["x"]`)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
	_, err = ctx.Compile("a[0]")
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
}

func TestCompile_DecimalAndTime(t *testing.T) {
	ctx := newContext(t, nil)

	dec := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	for _, tt := range []struct {
		text string
		want decimal.Decimal
	}{
		{"1.5m + 2.25m", dec("3.75")},
		{"10m / 4", dec("2.5")},
		{"2m ^ 3", dec("8")},
		{"-1.5m * 2", dec("-3")},
		{"7m % 4m", dec("3")},
	} {
		t.Run(tt.text, func(t *testing.T) {
			v := eval(t, ctx, tt.text)
			require.IsType(t, decimal.Decimal{}, v)
			assert.True(t, tt.want.Equal(v.(decimal.Decimal)), "got %v", v)
		})
	}

	for _, tt := range []struct {
		text string
		want any
	}{
		{"1.5m > 1.25m", true},
		{"1.5m = 1.50m", true},
		{"#01/02/2024# + ##01:00#", time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC)},
		{"#02/01/2024# - ##1.00:00#", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"#02/01/2024# - #01/01/2024#", 24 * time.Hour},
		{"#02/01/2024# > #01/01/2024#", true},
		{"#02/01/2024# = #02/01/2024#", true},
		{"##01:00# + ##00:30#", 90 * time.Minute},
		{"##01:00# > ##00:30#", true},
		{"-##01:00#", -time.Hour},
	} {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, eval(t, ctx, tt.text))
		})
	}

	expr, err := ctx.Compile("1m / 0m")
	require.NoError(t, err)
	_, err = expr.Evaluate()
	assert.ErrorIs(t, err, types.ErrDivideByZero)
}

func TestCompile_Limits(t *testing.T) {
	ctx := newContext(t, nil, compiler.WithMaxInstructions(4))
	_, err := ctx.Compile("1 + 2 + 3")
	assert.ErrorIs(t, err, types.ErrTooComplex)

	ctx = newContext(t, nil, compiler.WithMaxDepth(16))
	deep := strings.Repeat("(", 64) + "1" + strings.Repeat(")", 64)
	_, err = ctx.Compile(deep)
	assert.ErrorIs(t, err, types.ErrTooComplex)

	_, err = ctx.Compile(strings.Repeat("-", 4096) + "1")
	require.Error(t, err)
}

func TestCompile_LongExpression(t *testing.T) {
	ctx := newContext(t, nil, compiler.WithMaxInstructions(1<<18))
	const terms = 50000
	text := strings.Repeat("1+", terms-1) + "1"

	start := time.Now()
	assert.Equal(t, int32(terms), eval(t, ctx, text))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCompile_ErrorPosition(t *testing.T) {
	ctx := newContext(t, nil)
	_, err := ctx.Compile(`a + "x" * 2`)
	var te *types.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, types.ReasonTypeMismatch, te.Reason)
	assert.Equal(t, 8, te.Position)
}

func TestCompile_ResultType(t *testing.T) {
	ctx := newContext(t, nil)

	expr, err := ctx.Compile("a + 1", compiler.WithResultType(types.Double))
	require.NoError(t, err)
	assert.Equal(t, types.Double, expr.ResultType())
	v, err := expr.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, float64(11), v)

	expr, err = compiler.CompileAs[int64](ctx, "a * 2")
	require.NoError(t, err)
	n, err := compiler.EvaluateAs[int64](expr)
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)

	_, err = compiler.CompileAs[int32](ctx, "1.5")
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	expr, err = ctx.Compile("null")
	require.NoError(t, err)
	assert.Equal(t, types.Object, expr.ResultType())
}
