// Package convert holds the implicit and explicit conversion rules of the
// expression language: which types convert to which, how well a conversion
// scores during overload resolution, the result type of binary numeric
// operators, and the runtime functions that perform conversions.
//
// Builtin rules cover the primitive types of package types. Host types take
// part through user conversions and operators registered in an Operators
// set.
package convert

import (
	"reflect"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// Conversion scores. Lower is better.
const (
	ScoreIdentity       = 0
	ScoreUserConversion = 1
	ScoreInterface      = 100
	ScoreNullToObject   = 1000
	ScoreNullToIface    = 900
	ScoreNullToNilable  = 800
	ScoreNoConversion   = -1
)

// implicitSources lists, per target, the primitive types that convert to it
// without a cast.
var implicitSources = map[reflect.Type][]reflect.Type{
	types.Int16:   {types.Byte, types.SByte},
	types.UInt16:  {types.CharType, types.Byte},
	types.Int32:   {types.CharType, types.Byte, types.SByte, types.Int16, types.UInt16},
	types.UInt32:  {types.CharType, types.Byte, types.SByte, types.Int16, types.UInt16},
	types.Int64:   {types.SByte, types.Int16, types.Int32, types.CharType, types.Byte, types.UInt16, types.UInt32},
	types.UInt64:  {types.CharType, types.Byte, types.UInt16, types.UInt32},
	types.Single:  {types.CharType, types.Byte, types.SByte, types.Int16, types.UInt16, types.Int32, types.UInt32, types.Int64, types.UInt64},
	types.Double:  {types.CharType, types.Byte, types.SByte, types.Int16, types.UInt16, types.Int32, types.UInt32, types.Int64, types.UInt64, types.Single},
	types.Decimal: {types.CharType, types.Byte, types.SByte, types.Int16, types.UInt16, types.Int32, types.UInt32, types.Int64, types.UInt64},
}

// normalize maps Go's platform-sized integers onto their 64-bit peers.
func normalize(t reflect.Type) reflect.Type {
	switch t {
	case types.Int:
		return types.Int64
	case types.UInt:
		return types.UInt64
	}
	return t
}

// IsImplicitPrimitive reports whether the builtin rules convert from to to
// implicitly.
func IsImplicitPrimitive(from, to reflect.Type) bool {
	if from == to {
		return true
	}
	nf, nt := normalize(from), normalize(to)
	if nf == nt {
		return true
	}
	for _, src := range implicitSources[nt] {
		if src == nf {
			return true
		}
	}
	return false
}

// BinaryResultType returns the type both operands of a binary numeric
// operator are converted to, or nil if the pair is not valid.
//
// The table is symmetric over char, the integers and the reals. Operands
// narrower than int are promoted to int. Char only combines with ushort and
// the types of int width or more.
func BinaryResultType(a, b reflect.Type) reflect.Type {
	a, b = normalize(a), normalize(b)
	if !types.IsNumeric(a) || !types.IsNumeric(b) {
		return nil
	}
	if a == b {
		switch a {
		case types.Int32, types.UInt32, types.Int64, types.UInt64, types.Single, types.Double:
			return a
		}
		return types.Int32
	}
	has := func(t reflect.Type) bool { return a == t || b == t }
	other := func(t reflect.Type) reflect.Type {
		if a == t {
			return b
		}
		return a
	}

	switch {
	case has(types.Double):
		return types.Double
	case has(types.Single):
		return types.Single
	case has(types.UInt64):
		switch other(types.UInt64) {
		case types.Byte, types.UInt16, types.CharType, types.UInt32:
			return types.UInt64
		}
		return nil
	case has(types.Int64):
		return types.Int64
	case has(types.UInt32):
		switch other(types.UInt32) {
		case types.Byte, types.UInt16, types.CharType:
			return types.UInt32
		}
		return types.Int64
	case has(types.CharType):
		switch other(types.CharType) {
		case types.UInt16:
			return types.UInt16
		case types.Int32:
			return types.Int32
		}
		return nil
	}
	return types.Int32
}

// BitwiseResultType returns the operand type of a bitwise and/or/xor, or nil
// when either side is not integral.
func BitwiseResultType(a, b reflect.Type) reflect.Type {
	if !types.IsIntegral(a) || !types.IsIntegral(b) {
		return nil
	}
	return BinaryResultType(a, b)
}

// primitiveScore scores a builtin conversion along the widening ladder.
func primitiveScore(from, to reflect.Type) int {
	rf, rt := types.Rank(from), types.Rank(to)
	if rf == 0 || rt == 0 {
		return ScoreNoConversion
	}
	return rt - rf
}

// nullScore scores converting the null literal to a nil-able type: the
// more specific the target, the better.
func nullScore(to reflect.Type) int {
	switch {
	case to == types.Object:
		return ScoreNullToObject
	case to.Kind() == reflect.Interface:
		return ScoreNullToIface
	}
	return ScoreNullToNilable
}
