package convert

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/shopspring/decimal"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// Func converts a runtime value. A nil Func is the identity.
type Func func(v any) (any, error)

// Converter applies the conversion rules, builtin and user-registered.
type Converter struct {
	ops *Operators
}

// New creates a converter consulting ops for user conversions. ops may be nil.
func New(ops *Operators) *Converter {
	return &Converter{ops: ops}
}

// Operators returns the user registry, which may be nil.
func (c *Converter) Operators() *Operators {
	return c.ops
}

// CanImplicit reports whether a value of type from converts to to without a
// cast.
func (c *Converter) CanImplicit(from, to reflect.Type) bool {
	_, ok := c.Implicit(from, to)
	return ok
}

// Score rates the implicit conversion from from to to, lower being better.
// It returns ScoreNoConversion when there is none.
func (c *Converter) Score(from, to reflect.Type) int {
	switch {
	case from == to:
		return ScoreIdentity
	case from == types.NullType:
		if types.IsNullable(to) {
			return nullScore(to)
		}
		return ScoreNoConversion
	}
	if _, ok := c.ops.ImplicitFunc(from, to); ok {
		return ScoreUserConversion
	}
	if IsImplicitPrimitive(from, to) {
		return primitiveScore(from, to)
	}
	if to.Kind() == reflect.Interface && from.Implements(to) {
		return ScoreInterface
	}
	return ScoreNoConversion
}

// Implicit returns the runtime conversion from from to to. The Func is nil
// when no work is needed.
func (c *Converter) Implicit(from, to reflect.Type) (Func, bool) {
	switch {
	case from == to:
		return nil, true
	case from == types.NullType:
		if !types.IsNullable(to) {
			return nil, false
		}
		return nullTo(to), true
	}
	if fn, ok := c.ops.ImplicitFunc(from, to); ok {
		return userFunc(fn), true
	}
	if IsImplicitPrimitive(from, to) {
		return numericFunc(to), true
	}
	if to.Kind() == reflect.Interface && from.Implements(to) {
		return nil, true
	}
	return nil, false
}

// Explicit returns the runtime conversion performed by a cast from from to
// to.
func (c *Converter) Explicit(from, to reflect.Type) (Func, bool) {
	if fn, ok := c.Implicit(from, to); ok {
		return fn, true
	}
	if fn, ok := c.ops.ExplicitFunc(from, to); ok {
		return userFunc(fn), true
	}
	numeric := func(t reflect.Type) bool { return types.IsNumeric(t) || t == types.Decimal }
	switch {
	case numeric(from) && numeric(to):
		return numericFunc(to), true
	case types.IsEnum(from) && (numeric(to) || types.IsEnum(to)),
		types.IsEnum(to) && numeric(from):
		return enumFunc(to), true
	case from.Kind() == reflect.Interface:
		return assertFunc(to), true
	}
	return nil, false
}

func nullTo(to reflect.Type) Func {
	if to.Kind() == reflect.Interface {
		return func(any) (any, error) { return nil, nil }
	}
	zero := reflect.Zero(to).Interface()
	return func(any) (any, error) { return zero, nil }
}

func userFunc(fn reflect.Value) Func {
	in := fn.Type().In(0)
	return func(v any) (any, error) {
		return Invoke(fn, []reflect.Value{ValueOf(v, in)})
	}
}

// enumFunc converts between enum types and primitive numbers through the
// underlying integer.
func enumFunc(to reflect.Type) Func {
	target := numericFunc(to)
	return func(v any) (any, error) {
		rv := reflect.ValueOf(v)
		if !rv.IsValid() {
			return nil, types.ErrNilReference
		}
		if types.IsEnum(rv.Type()) {
			if rv.CanUint() {
				v = rv.Uint()
			} else {
				v = rv.Int()
			}
		}
		if target != nil {
			return target(v)
		}
		if u, ok := v.(uint64); ok {
			return reflect.ValueOf(u).Convert(to).Interface(), nil
		}
		return reflect.ValueOf(Int64Bits(v)).Convert(to).Interface(), nil
	}
}

func assertFunc(to reflect.Type) Func {
	return func(v any) (any, error) {
		if v == nil {
			if types.IsNullable(to) {
				return reflect.Zero(to).Interface(), nil
			}
			return nil, fmt.Errorf("cannot cast null to %s: %w", types.Name(to), types.ErrNilReference)
		}
		vt := reflect.TypeOf(v)
		if vt == to || (to.Kind() == reflect.Interface && vt.Implements(to)) {
			return v, nil
		}
		return nil, fmt.Errorf("cannot cast %s to %s", types.Name(vt), types.Name(to))
	}
}

func numericFunc(to reflect.Type) Func {
	switch to {
	case types.Byte:
		return func(v any) (any, error) { return uint8(Int64Bits(v)), nil }
	case types.SByte:
		return func(v any) (any, error) { return int8(Int64Bits(v)), nil }
	case types.Int16:
		return func(v any) (any, error) { return int16(Int64Bits(v)), nil }
	case types.UInt16:
		return func(v any) (any, error) { return uint16(Int64Bits(v)), nil }
	case types.Int32:
		return func(v any) (any, error) { return int32(Int64Bits(v)), nil }
	case types.UInt32:
		return func(v any) (any, error) { return uint32(Int64Bits(v)), nil }
	case types.Int64:
		return func(v any) (any, error) { return Int64Bits(v), nil }
	case types.UInt64:
		return func(v any) (any, error) { return Uint64Bits(v), nil }
	case types.Int:
		return func(v any) (any, error) { return int(Int64Bits(v)), nil }
	case types.UInt:
		return func(v any) (any, error) { return uint(Uint64Bits(v)), nil }
	case types.CharType:
		return func(v any) (any, error) { return types.Char(Int64Bits(v)), nil }
	case types.Single:
		return func(v any) (any, error) { return float32(Float64(v)), nil }
	case types.Double:
		return func(v any) (any, error) { return Float64(v), nil }
	case types.Decimal:
		return func(v any) (any, error) { return Decimal(v), nil }
	}
	return nil
}

// Int64Bits returns v, a primitive numeric value, as an int64. Unsigned
// values keep their bit pattern. Reals are truncated.
func Int64Bits(v any) int64 {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case int:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case uint:
		return int64(x)
	case types.Char:
		return int64(x)
	case float32:
		return int64(x)
	case float64:
		return int64(x)
	case decimal.Decimal:
		return x.IntPart()
	}
	return 0
}

// Uint64Bits returns v as a uint64, keeping the bit pattern of signed
// values.
func Uint64Bits(v any) uint64 {
	switch x := v.(type) {
	case uint64:
		return x
	case uint:
		return uint64(x)
	case float32:
		return uint64(x)
	case float64:
		return uint64(x)
	case decimal.Decimal:
		if x.IsNegative() {
			return uint64(x.IntPart())
		}
		return x.BigInt().Uint64()
	}
	return uint64(Int64Bits(v))
}

// Float64 returns v as a float64.
func Float64(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case uint64:
		return float64(x)
	case uint:
		return float64(x)
	case decimal.Decimal:
		return x.InexactFloat64()
	}
	return float64(Int64Bits(v))
}

// Decimal returns v as a decimal.
func Decimal(v any) decimal.Decimal {
	switch x := v.(type) {
	case decimal.Decimal:
		return x
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0)
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(x)), 0)
	case float32:
		return decimal.NewFromFloat32(x)
	case float64:
		return decimal.NewFromFloat(x)
	}
	return decimal.NewFromInt(Int64Bits(v))
}

// ValueOf wraps v for a reflective call with a parameter of type t. A nil v
// becomes the zero value of t.
func ValueOf(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}

// Invoke calls fn, which returns one value optionally followed by an error.
func Invoke(fn reflect.Value, args []reflect.Value) (any, error) {
	out := fn.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}
