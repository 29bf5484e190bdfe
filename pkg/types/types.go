// Package types defines the type catalog and the structured errors shared by
// the compiler packages.
//
// Expression types are plain reflect.Type values. The builtin types of the
// language map onto Go types:
//
//	boolean  bool            char      types.Char
//	byte     uint8           string    string
//	sbyte    int8            object    any
//	short    int16           single    float32
//	ushort   uint16          double    float64
//	int      int32           decimal   decimal.Decimal
//	uint     uint32          datetime  time.Time
//	long     int64           timespan  time.Duration
//	ulong    uint64
//
// The null literal has the static type [Null].
package types

import (
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Char is the character type. It is distinct from int32 so that characters
// follow their own conversion rules.
type Char rune

// String returns the character as a one-rune string.
func (c Char) String() string {
	return string(rune(c))
}

// Null is the static type of the null literal.
type Null struct{}

// Builtin types.
var (
	Bool           = reflect.TypeFor[bool]()
	Byte           = reflect.TypeFor[uint8]()
	SByte          = reflect.TypeFor[int8]()
	Int16          = reflect.TypeFor[int16]()
	UInt16         = reflect.TypeFor[uint16]()
	Int32          = reflect.TypeFor[int32]()
	UInt32         = reflect.TypeFor[uint32]()
	Int64          = reflect.TypeFor[int64]()
	UInt64         = reflect.TypeFor[uint64]()
	Int            = reflect.TypeFor[int]()
	UInt           = reflect.TypeFor[uint]()
	Single         = reflect.TypeFor[float32]()
	Double         = reflect.TypeFor[float64]()
	Decimal        = reflect.TypeFor[decimal.Decimal]()
	CharType       = reflect.TypeFor[Char]()
	String         = reflect.TypeFor[string]()
	Object         = reflect.TypeFor[any]()
	DateTime       = reflect.TypeFor[time.Time]()
	TimeSpan       = reflect.TypeFor[time.Duration]()
	NullType       = reflect.TypeFor[Null]()
	ErrorInterface = reflect.TypeFor[error]()
)

var builtinByName = map[string]reflect.Type{
	"boolean":  Bool,
	"byte":     Byte,
	"sbyte":    SByte,
	"short":    Int16,
	"ushort":   UInt16,
	"int":      Int32,
	"uint":     UInt32,
	"long":     Int64,
	"ulong":    UInt64,
	"single":   Single,
	"double":   Double,
	"decimal":  Decimal,
	"char":     CharType,
	"object":   Object,
	"string":   String,
	"datetime": DateTime,
	"timespan": TimeSpan,
}

var nameByType = map[reflect.Type]string{
	Bool:     "boolean",
	Byte:     "byte",
	SByte:    "sbyte",
	Int16:    "short",
	UInt16:   "ushort",
	Int32:    "int",
	UInt32:   "uint",
	Int64:    "long",
	UInt64:   "ulong",
	Single:   "single",
	Double:   "double",
	Decimal:  "decimal",
	CharType: "char",
	Object:   "object",
	String:   "string",
	DateTime: "datetime",
	TimeSpan: "timespan",
	NullType: "null",
}

// BuiltinType looks up a builtin type by its language name. The lookup is
// case-insensitive.
func BuiltinType(name string) (reflect.Type, bool) {
	t, ok := builtinByName[strings.ToLower(name)]
	return t, ok
}

// BuiltinNames returns the language names of all builtin types.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinByName))
	for n := range builtinByName {
		names = append(names, n)
	}
	return names
}

// Name returns the display name of t: the language name for builtin types,
// the Go type string otherwise.
func Name(t reflect.Type) string {
	if t == nil {
		return "void"
	}
	if n, ok := nameByType[t]; ok {
		return n
	}
	return t.String()
}

// IsIntegral reports whether t is one of the builtin integer types.
// Char is not integral.
func IsIntegral(t reflect.Type) bool {
	switch t {
	case Byte, SByte, Int16, UInt16, Int32, UInt32, Int64, UInt64, Int, UInt:
		return true
	}
	return false
}

// IsUnsigned reports whether t is an unsigned builtin integer type.
func IsUnsigned(t reflect.Type) bool {
	switch t {
	case Byte, UInt16, UInt32, UInt64, UInt:
		return true
	}
	return false
}

// IsReal reports whether t is float32 or float64.
func IsReal(t reflect.Type) bool {
	return t == Single || t == Double
}

// IsNumeric reports whether t takes part in the primitive numeric tables:
// integers, reals and char.
func IsNumeric(t reflect.Type) bool {
	return IsIntegral(t) || IsReal(t) || t == CharType
}

// IsNullable reports whether a value of type t can hold nil.
func IsNullable(t reflect.Type) bool {
	if t == NullType {
		return true
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

// IsEnum reports whether t is a named integer type declared outside the
// builtin catalog, the Go rendition of an enumeration (time.Weekday,
// time.Month, ...).
func IsEnum(t reflect.Type) bool {
	if t.PkgPath() == "" || t == CharType || t == TimeSpan {
		return false
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// BitSize returns the width of an integral type.
func BitSize(t reflect.Type) int {
	switch t {
	case Byte, SByte:
		return 8
	case Int16, UInt16:
		return 16
	case Int32, UInt32, CharType:
		return 32
	}
	return 64
}

// Rank returns the position of t on the widening ladder used to score
// primitive conversions, or 0 when t is not on the ladder.
func Rank(t reflect.Type) int {
	switch t {
	case Byte:
		return 1
	case SByte:
		return 2
	case CharType:
		return 3
	case Int16:
		return 4
	case UInt16:
		return 5
	case Int32:
		return 6
	case UInt32:
		return 7
	case Int64, Int:
		return 8
	case UInt64, UInt:
		return 9
	case Single:
		return 10
	case Double, Decimal:
		return 11
	case Bool:
		return 12
	case DateTime:
		return 13
	}
	return 0
}
