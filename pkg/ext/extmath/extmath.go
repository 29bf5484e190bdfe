// Package extmath is a math library for expressions: rounding, powers,
// logarithms, trigonometry, overloaded Abs/Min/Max and a few statistics over
// variadic arguments.
//
//	_ = extmath.Library().Import(ctx.Imports())
//	expr, _ := ctx.Compile("Math.Round(Math.Sqrt(2), 3)")
package extmath

import (
	"errors"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/ext/extutil"
)

// Namespace is the default namespace of the library.
const Namespace = "Math"

var errNoValues = errors.New("no values")

// Library returns the math library.
func Library() extutil.Library {
	return extutil.Library{
		Name: Namespace,
		Defs: Defs(),
		Constants: map[string]any{
			"PI": math.Pi,
			"E":  math.E,
		},
	}
}

// Defs returns the function overloads of the library.
func Defs() []extutil.Def {
	return []extutil.Def{
		{Name: "Abs", Fn: func(x int32) int32 { return max(x, -x) }},
		{Name: "Abs", Fn: func(x int64) int64 { return max(x, -x) }},
		{Name: "Abs", Fn: math.Abs},
		{Name: "Abs", Fn: decimal.Decimal.Abs},

		{Name: "Sign", Fn: func(x int32) int32 { return sign(x) }},
		{Name: "Sign", Fn: func(x int64) int32 { return sign(x) }},
		{Name: "Sign", Fn: func(x float64) int32 { return sign(x) }},
		{Name: "Sign", Fn: func(x decimal.Decimal) int32 { return int32(x.Sign()) }},

		{Name: "Ceiling", Fn: math.Ceil},
		{Name: "Ceiling", Fn: decimal.Decimal.Ceil},
		{Name: "Floor", Fn: math.Floor},
		{Name: "Floor", Fn: decimal.Decimal.Floor},
		{Name: "Truncate", Fn: math.Trunc},
		{Name: "Truncate", Fn: func(x decimal.Decimal) decimal.Decimal { return x.Truncate(0) }},
		{Name: "Round", Fn: math.RoundToEven},
		{Name: "Round", Fn: Round},
		{Name: "Round", Fn: func(x decimal.Decimal, digits int32) decimal.Decimal { return x.RoundBank(digits) }},

		{Name: "Sqrt", Fn: math.Sqrt},
		{Name: "Pow", Fn: math.Pow},
		{Name: "Exp", Fn: math.Exp},
		{Name: "Log", Fn: math.Log},
		{Name: "Log", Fn: func(x, base float64) float64 { return math.Log(x) / math.Log(base) }},
		{Name: "Log10", Fn: math.Log10},

		{Name: "Sin", Fn: math.Sin},
		{Name: "Cos", Fn: math.Cos},
		{Name: "Tan", Fn: math.Tan},
		{Name: "Asin", Fn: math.Asin},
		{Name: "Acos", Fn: math.Acos},
		{Name: "Atan", Fn: math.Atan},
		{Name: "Atan2", Fn: math.Atan2},
		{Name: "Sinh", Fn: math.Sinh},
		{Name: "Cosh", Fn: math.Cosh},
		{Name: "Tanh", Fn: math.Tanh},

		{Name: "Min", Fn: func(a, b int32) int32 { return min(a, b) }},
		{Name: "Min", Fn: func(a, b int64) int64 { return min(a, b) }},
		{Name: "Min", Fn: func(a, b float64) float64 { return min(a, b) }},
		{Name: "Min", Fn: func(a, b decimal.Decimal) decimal.Decimal { return decimal.Min(a, b) }},
		{Name: "Max", Fn: func(a, b int32) int32 { return max(a, b) }},
		{Name: "Max", Fn: func(a, b int64) int64 { return max(a, b) }},
		{Name: "Max", Fn: func(a, b float64) float64 { return max(a, b) }},
		{Name: "Max", Fn: func(a, b decimal.Decimal) decimal.Decimal { return decimal.Max(a, b) }},
		{Name: "Clamp", Fn: Clamp},

		{Name: "Sum", Fn: Sum},
		{Name: "Avg", Fn: Avg},
		{Name: "Median", Fn: Median},
		{Name: "Variance", Fn: Variance},
		{Name: "StdDev", Fn: StdDev},
	}
}

func sign[T int32 | int64 | float64](x T) int32 {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	}
	return 0
}

// Round rounds x to digits fractional digits, halves to even.
func Round(x float64, digits int32) float64 {
	if digits <= 0 {
		return math.RoundToEven(x)
	}
	p := math.Pow(10, float64(digits))
	r := math.RoundToEven(x*p) / p
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return x
	}
	return r
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return min(max(x, lo), hi)
}

// Sum adds its arguments.
func Sum(xs ...float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}

// Avg returns the arithmetic mean of its arguments.
func Avg(xs ...float64) (float64, error) {
	if len(xs) == 0 {
		return 0, errNoValues
	}
	return Sum(xs...) / float64(len(xs)), nil
}

// Median returns the middle value, or the mean of the two middle values.
func Median(xs ...float64) (float64, error) {
	if len(xs) == 0 {
		return 0, errNoValues
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2, nil
	}
	return sorted[mid], nil
}

// Variance returns the population variance.
func Variance(xs ...float64) (float64, error) {
	mean, err := Avg(xs...)
	if err != nil {
		return 0, err
	}
	var v float64
	for _, x := range xs {
		d := x - mean
		v += d * d
	}
	return v / float64(len(xs)), nil
}

// StdDev returns the population standard deviation.
func StdDev(xs ...float64) (float64, error) {
	v, err := Variance(xs...)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}
