package convert

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// integralRange holds the bounds of the integral types a checked cast can
// narrow to.
var integralRange = map[reflect.Type][2]*big.Int{
	types.Byte:     bounds(0, math.MaxUint8),
	types.SByte:    bounds(math.MinInt8, math.MaxInt8),
	types.Int16:    bounds(math.MinInt16, math.MaxInt16),
	types.UInt16:   bounds(0, math.MaxUint16),
	types.Int32:    bounds(math.MinInt32, math.MaxInt32),
	types.UInt32:   bounds(0, math.MaxUint32),
	types.Int64:    bounds(math.MinInt64, math.MaxInt64),
	types.Int:      bounds(math.MinInt64, math.MaxInt64),
	types.CharType: bounds(0, unicode.MaxRune),
	types.UInt64:   {big.NewInt(0), new(big.Int).SetUint64(math.MaxUint64)},
	types.UInt:     {big.NewInt(0), new(big.Int).SetUint64(math.MaxUint64)},
}

func bounds(lo, hi int64) [2]*big.Int {
	return [2]*big.Int{big.NewInt(lo), big.NewInt(hi)}
}

// CheckedExplicit is Explicit with overflow checking: a numeric cast to an
// integral type fails with types.ErrOverflow when the truncated value does
// not fit the target.
func (c *Converter) CheckedExplicit(from, to reflect.Type) (Func, bool) {
	fn, ok := c.Explicit(from, to)
	if !ok || fn == nil {
		return fn, ok
	}
	r, integral := integralRange[normalize(to)]
	if !integral || !(types.IsNumeric(from) || from == types.Decimal) || types.IsEnum(from) || types.IsEnum(to) {
		return fn, ok
	}
	if _, user := c.ops.ExplicitFunc(from, to); user {
		return fn, ok
	}
	if _, user := c.ops.ImplicitFunc(from, to); user {
		return fn, ok
	}
	return func(v any) (any, error) {
		n, finite := integerPart(v)
		if !finite || n.Cmp(r[0]) < 0 || n.Cmp(r[1]) > 0 {
			return nil, fmt.Errorf("cast to %s: %w", types.Name(to), types.ErrOverflow)
		}
		return fn(v)
	}, true
}

// integerPart returns v, a primitive numeric value, truncated toward zero.
// finite is false for NaN and infinities.
func integerPart(v any) (n *big.Int, finite bool) {
	switch x := v.(type) {
	case float32:
		return floatPart(float64(x))
	case float64:
		return floatPart(x)
	case decimal.Decimal:
		return x.Truncate(0).BigInt(), true
	case uint64:
		return new(big.Int).SetUint64(x), true
	case uint:
		return new(big.Int).SetUint64(uint64(x)), true
	}
	return big.NewInt(Int64Bits(v)), true
}

func floatPart(f float64) (*big.Int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	n, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	return n, true
}
