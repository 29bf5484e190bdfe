package compiler

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/convert"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// builtinOperators gives decimal, datetime and timespan their operators.
// User operators registered on a context are consulted first.
var builtinOperators = func() *convert.Operators {
	ops := convert.NewOperators()
	binary := map[convert.Operator][]any{
		convert.OpAdd: {
			decimal.Decimal.Add,
			func(t time.Time, d time.Duration) time.Time { return t.Add(d) },
			func(a, b time.Duration) time.Duration { return a + b },
		},
		convert.OpSubtract: {
			decimal.Decimal.Sub,
			func(t time.Time, d time.Duration) time.Time { return t.Add(-d) },
			time.Time.Sub,
			func(a, b time.Duration) time.Duration { return a - b },
		},
		convert.OpMultiply: {decimal.Decimal.Mul},
		convert.OpDivide:   {decimalDiv},
		convert.OpModulo:   {decimalMod},
		convert.OpPower: {
			func(a decimal.Decimal, n int32) decimal.Decimal { return a.Pow(decimal.NewFromInt32(n)) },
		},
		convert.OpEqual: {
			decimal.Decimal.Equal,
			time.Time.Equal,
			func(a, b time.Duration) bool { return a == b },
		},
		convert.OpNotEqual: {
			func(a, b decimal.Decimal) bool { return !a.Equal(b) },
			func(a, b time.Time) bool { return !a.Equal(b) },
			func(a, b time.Duration) bool { return a != b },
		},
		convert.OpLess: {
			decimal.Decimal.LessThan,
			time.Time.Before,
			func(a, b time.Duration) bool { return a < b },
		},
		convert.OpLessEqual: {
			decimal.Decimal.LessThanOrEqual,
			func(a, b time.Time) bool { return !a.After(b) },
			func(a, b time.Duration) bool { return a <= b },
		},
		convert.OpGreater: {
			decimal.Decimal.GreaterThan,
			time.Time.After,
			func(a, b time.Duration) bool { return a > b },
		},
		convert.OpGreaterEqual: {
			decimal.Decimal.GreaterThanOrEqual,
			func(a, b time.Time) bool { return !a.Before(b) },
			func(a, b time.Duration) bool { return a >= b },
		},
	}
	for op, fns := range binary {
		for _, fn := range fns {
			if err := ops.AddBinary(op, fn); err != nil {
				panic(fmt.Sprintf("builtin operator %s: %v", op, err))
			}
		}
	}
	for _, fn := range []any{
		decimal.Decimal.Neg,
		func(d time.Duration) time.Duration { return -d },
	} {
		if err := ops.AddUnary(convert.OpNegate, fn); err != nil {
			panic(fmt.Sprintf("builtin operator -: %v", err))
		}
	}
	return ops
}()

func decimalDiv(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, types.ErrDivideByZero
	}
	return a.Div(b), nil
}

func decimalMod(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, types.ErrDivideByZero
	}
	return a.Mod(b), nil
}
