package compiler

import (
	"cmp"
	"fmt"
	"math"
	"reflect"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/convert"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

type (
	signedInt   interface{ ~int32 | ~int64 }
	unsignedInt interface{ ~uint32 | ~uint64 }
	floating    interface{ ~float32 | ~float64 }
	integer     interface{ signedInt | unsignedInt }
)

// operandType widens the types the arithmetic tables promote to int.
func operandType(t reflect.Type) reflect.Type {
	switch t {
	case types.Byte, types.SByte, types.Int16, types.UInt16, types.CharType:
		return types.Int32
	case types.Int:
		return types.Int64
	case types.UInt:
		return types.UInt64
	}
	return t
}

// arithmeticFunc returns +, -, *, / or % over operands of type t, or nil
// when t has no builtin arithmetic.
func arithmeticFunc(op convert.Operator, t reflect.Type, checked bool) binaryFunc {
	switch t {
	case types.Int32:
		return wrapBinary(signedArith[int32](op, checked))
	case types.Int64:
		return wrapBinary(signedArith[int64](op, checked))
	case types.UInt32:
		return wrapBinary(unsignedArith[uint32](op, checked))
	case types.UInt64:
		return wrapBinary(unsignedArith[uint64](op, checked))
	case types.Single:
		return wrapBinary(floatArith[float32](op))
	case types.Double:
		return wrapBinary(floatArith[float64](op))
	}
	return nil
}

func wrapBinary[T, R any](fn func(a, b T) (R, error)) binaryFunc {
	if fn == nil {
		return nil
	}
	return func(x, y any) (any, error) {
		r, err := fn(x.(T), y.(T))
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

func wrapUnary[T, R any](fn func(a T) (R, error)) unaryFunc {
	return func(x any) (any, error) {
		r, err := fn(x.(T))
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

// minOf reports whether v is the smallest value of its signed type, the
// only one equal to its own negation besides zero.
func minOf[T signedInt](v T) bool {
	return v < 0 && -v == v
}

func signedArith[T signedInt](op convert.Operator, checked bool) func(a, b T) (T, error) {
	switch op {
	case convert.OpAdd:
		return func(a, b T) (T, error) {
			r := a + b
			if checked && (r > a) != (b > 0) {
				return 0, overflow(op)
			}
			return r, nil
		}
	case convert.OpSubtract:
		return func(a, b T) (T, error) {
			r := a - b
			if checked && (r < a) != (b > 0) {
				return 0, overflow(op)
			}
			return r, nil
		}
	case convert.OpMultiply:
		return func(a, b T) (T, error) {
			r := a * b
			if checked && a != 0 && (r/a != b || a == -1 && minOf(b)) {
				return 0, overflow(op)
			}
			return r, nil
		}
	case convert.OpDivide:
		return func(a, b T) (T, error) {
			if b == 0 {
				return 0, types.ErrDivideByZero
			}
			if checked && b == -1 && minOf(a) {
				return 0, overflow(op)
			}
			return a / b, nil
		}
	case convert.OpModulo:
		return func(a, b T) (T, error) {
			if b == 0 {
				return 0, types.ErrDivideByZero
			}
			return a % b, nil
		}
	}
	return nil
}

func unsignedArith[T unsignedInt](op convert.Operator, checked bool) func(a, b T) (T, error) {
	switch op {
	case convert.OpAdd:
		return func(a, b T) (T, error) {
			r := a + b
			if checked && r < a {
				return 0, overflow(op)
			}
			return r, nil
		}
	case convert.OpSubtract:
		return func(a, b T) (T, error) {
			if checked && a < b {
				return 0, overflow(op)
			}
			return a - b, nil
		}
	case convert.OpMultiply:
		return func(a, b T) (T, error) {
			r := a * b
			if checked && a != 0 && r/a != b {
				return 0, overflow(op)
			}
			return r, nil
		}
	case convert.OpDivide:
		return func(a, b T) (T, error) {
			if b == 0 {
				return 0, types.ErrDivideByZero
			}
			return a / b, nil
		}
	case convert.OpModulo:
		return func(a, b T) (T, error) {
			if b == 0 {
				return 0, types.ErrDivideByZero
			}
			return a % b, nil
		}
	}
	return nil
}

// floatArith follows IEEE 754: division by zero yields an infinity or NaN.
func floatArith[T floating](op convert.Operator) func(a, b T) (T, error) {
	switch op {
	case convert.OpAdd:
		return func(a, b T) (T, error) { return a + b, nil }
	case convert.OpSubtract:
		return func(a, b T) (T, error) { return a - b, nil }
	case convert.OpMultiply:
		return func(a, b T) (T, error) { return a * b, nil }
	case convert.OpDivide:
		return func(a, b T) (T, error) { return a / b, nil }
	case convert.OpModulo:
		return func(a, b T) (T, error) { return T(math.Mod(float64(a), float64(b))), nil }
	}
	return nil
}

func overflow(op convert.Operator) error {
	return fmt.Errorf("operator %s: %w", op, types.ErrOverflow)
}

// power raises doubles.
func power(a, b any) (any, error) {
	return math.Pow(a.(float64), b.(float64)), nil
}

// compareFunc returns a comparison over operands of type t.
func compareFunc(op convert.Operator, t reflect.Type) binaryFunc {
	switch t {
	case types.Int32:
		return wrapBinary(ordered[int32](op))
	case types.Int64:
		return wrapBinary(ordered[int64](op))
	case types.UInt32:
		return wrapBinary(ordered[uint32](op))
	case types.UInt64:
		return wrapBinary(ordered[uint64](op))
	case types.Single:
		return wrapBinary(ordered[float32](op))
	case types.Double:
		return wrapBinary(ordered[float64](op))
	}
	return nil
}

func ordered[T cmp.Ordered](op convert.Operator) func(a, b T) (bool, error) {
	switch op {
	case convert.OpEqual:
		return func(a, b T) (bool, error) { return a == b, nil }
	case convert.OpNotEqual:
		return func(a, b T) (bool, error) { return a != b, nil }
	case convert.OpLess:
		return func(a, b T) (bool, error) { return a < b, nil }
	case convert.OpLessEqual:
		return func(a, b T) (bool, error) { return a <= b, nil }
	case convert.OpGreater:
		return func(a, b T) (bool, error) { return a > b, nil }
	case convert.OpGreaterEqual:
		return func(a, b T) (bool, error) { return a >= b, nil }
	}
	return nil
}

// compareResult turns a three-way comparison into the outcome of op.
func compareResult(op convert.Operator, c int) bool {
	switch op {
	case convert.OpEqual:
		return c == 0
	case convert.OpNotEqual:
		return c != 0
	case convert.OpLess:
		return c < 0
	case convert.OpLessEqual:
		return c <= 0
	case convert.OpGreater:
		return c > 0
	}
	return c >= 0
}

// enumCompare orders two values of one enum type by their underlying
// integer.
func enumCompare(op convert.Operator) binaryFunc {
	return func(a, b any) (any, error) {
		x, y := reflect.ValueOf(a), reflect.ValueOf(b)
		if x.CanUint() {
			return compareResult(op, cmp.Compare(x.Uint(), y.Uint())), nil
		}
		return compareResult(op, cmp.Compare(x.Int(), y.Int())), nil
	}
}

// isNil reports whether v is nil or a typed nil.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// valuesEqual is reference equality for nil-able values and value equality
// for the rest.
func valuesEqual(a, b any) bool {
	na, nb := isNil(a), isNil(b)
	if na || nb {
		return na == nb
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}

// shiftFunc shifts a value of type t by an int count, masked to the width
// of t.
func shiftFunc(left bool, t reflect.Type) binaryFunc {
	switch t {
	case types.Int32:
		return shift[int32](left, 31)
	case types.UInt32:
		return shift[uint32](left, 31)
	case types.Int64:
		return shift[int64](left, 63)
	case types.UInt64:
		return shift[uint64](left, 63)
	}
	return nil
}

func shift[T integer](left bool, mask int32) binaryFunc {
	return func(a, b any) (any, error) {
		n := uint(b.(int32) & mask)
		if left {
			return a.(T) << n, nil
		}
		return a.(T) >> n, nil
	}
}

// shiftOperandType promotes the left operand of a shift.
func shiftOperandType(t reflect.Type) reflect.Type {
	switch t {
	case types.Int32, types.UInt32, types.Int64, types.UInt64:
		return t
	case types.Int:
		return types.Int64
	case types.UInt:
		return types.UInt64
	case types.Byte, types.SByte, types.Int16, types.UInt16, types.CharType:
		return types.Int32
	}
	return nil
}

// bitwiseFunc returns and, or or xor over integral operands of type t.
func bitwiseFunc(op convert.Operator, t reflect.Type) binaryFunc {
	switch t {
	case types.Int32:
		return bitwise[int32](op)
	case types.UInt32:
		return bitwise[uint32](op)
	case types.Int64:
		return bitwise[int64](op)
	case types.UInt64:
		return bitwise[uint64](op)
	}
	return nil
}

func bitwise[T integer](op convert.Operator) binaryFunc {
	return func(a, b any) (any, error) {
		x, y := a.(T), b.(T)
		switch op {
		case convert.OpAnd:
			return x & y, nil
		case convert.OpOr:
			return x | y, nil
		}
		return x ^ y, nil
	}
}

// negateType returns the type a negated operand of type t is promoted to.
func negateType(t reflect.Type) reflect.Type {
	switch t {
	case types.Byte, types.SByte, types.Int16, types.UInt16, types.CharType, types.Int32:
		return types.Int32
	case types.UInt32, types.Int64, types.Int:
		return types.Int64
	case types.Single, types.Double:
		return t
	}
	return nil
}

func negateFunc(t reflect.Type, checked bool) unaryFunc {
	switch t {
	case types.Int32:
		return wrapUnary(negateSigned[int32](checked))
	case types.Int64:
		return wrapUnary(negateSigned[int64](checked))
	case types.Single:
		return wrapUnary(func(a float32) (float32, error) { return -a, nil })
	case types.Double:
		return wrapUnary(func(a float64) (float64, error) { return -a, nil })
	}
	return nil
}

func negateSigned[T signedInt](checked bool) func(a T) (T, error) {
	return func(a T) (T, error) {
		if checked && minOf(a) {
			return 0, overflow(convert.OpNegate)
		}
		return -a, nil
	}
}

// complement is bitwise not; the operand keeps its type.
func complement(v any) (any, error) {
	switch x := v.(type) {
	case uint8:
		return ^x, nil
	case int8:
		return ^x, nil
	case int16:
		return ^x, nil
	case uint16:
		return ^x, nil
	case int32:
		return ^x, nil
	case uint32:
		return ^x, nil
	case int64:
		return ^x, nil
	case uint64:
		return ^x, nil
	case int:
		return ^x, nil
	case uint:
		return ^x, nil
	}
	return nil, fmt.Errorf("not: unsupported operand %T", v)
}
