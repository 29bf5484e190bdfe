// Package extstring is a string library for expressions. Positions and
// lengths count runes, like the string indexer of the language.
//
// Every function takes the string first, so each can also be called as an
// extension on a string value once imported into the root namespace:
//
//	_ = extstring.Library().ImportInto(ctx.Imports().Root())
//	expr, _ := ctx.Compile(`Name.Trim().ToUpper()`)
package extstring

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/ext/extutil"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/types"
)

// Namespace is the default namespace of the library.
const Namespace = "Strings"

// Library returns the string library.
func Library() extutil.Library {
	return extutil.Library{Name: Namespace, Defs: Defs()}
}

// Defs returns the function overloads of the library.
func Defs() []extutil.Def {
	return []extutil.Def{
		{Name: "Len", Fn: Len},
		{Name: "ToUpper", Fn: ToUpper},
		{Name: "ToLower", Fn: ToLower},
		{Name: "Trim", Fn: strings.TrimSpace},
		{Name: "TrimStart", Fn: func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }},
		{Name: "TrimEnd", Fn: func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }},
		{Name: "Contains", Fn: strings.Contains},
		{Name: "StartsWith", Fn: strings.HasPrefix},
		{Name: "EndsWith", Fn: strings.HasSuffix},
		{Name: "IndexOf", Fn: IndexOf},
		{Name: "IndexOf", Fn: IndexOfFrom},
		{Name: "LastIndexOf", Fn: LastIndexOf},
		{Name: "Substring", Fn: Substring},
		{Name: "Substring", Fn: SubstringLen},
		{Name: "Replace", Fn: strings.ReplaceAll},
		{Name: "Repeat", Fn: Repeat},
		{Name: "PadLeft", Fn: PadLeft},
		{Name: "PadLeft", Fn: func(s string, width int32) string { return PadLeft(s, width, ' ') }},
		{Name: "PadRight", Fn: PadRight},
		{Name: "PadRight", Fn: func(s string, width int32) string { return PadRight(s, width, ' ') }},
		{Name: "Concat", Fn: Concat},
		{Name: "Join", Fn: Join},
		{Name: "Capitalize", Fn: Capitalize},
		{Name: "TitleCase", Fn: TitleCase},
		{Name: "CamelCase", Fn: CamelCase},
		{Name: "SnakeCase", Fn: SnakeCase},
		{Name: "KebabCase", Fn: KebabCase},
		{Name: "WordCount", Fn: func(s string) int32 { return int32(len(strings.Fields(s))) }},
	}
}

// Len returns the number of runes of s.
func Len(s string) int32 {
	return int32(utf8.RuneCountInString(s))
}

// ToUpper maps s to upper case with the Unicode default rules.
func ToUpper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// ToLower maps s to lower case with the Unicode default rules.
func ToLower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// IndexOf returns the rune position of the first sub in s, or -1.
func IndexOf(s, sub string) int32 {
	return IndexOfFrom(s, sub, 0)
}

// IndexOfFrom is IndexOf starting at rune position start.
func IndexOfFrom(s, sub string, start int32) int32 {
	runes := []rune(s)
	if start < 0 {
		start = 0
	}
	if int(start) > len(runes) {
		return -1
	}
	i := strings.Index(string(runes[start:]), sub)
	if i < 0 {
		return -1
	}
	return start + int32(utf8.RuneCountInString(string(runes[start:])[:i]))
}

// LastIndexOf returns the rune position of the last sub in s, or -1.
func LastIndexOf(s, sub string) int32 {
	i := strings.LastIndex(s, sub)
	if i < 0 {
		return -1
	}
	return int32(utf8.RuneCountInString(s[:i]))
}

// Substring returns s from rune position start to the end.
func Substring(s string, start int32) (string, error) {
	return SubstringLen(s, start, Len(s)-start)
}

// SubstringLen returns length runes of s from rune position start.
func SubstringLen(s string, start, length int32) (string, error) {
	runes := []rune(s)
	if start < 0 || length < 0 || int(start)+int(length) > len(runes) {
		return "", types.ErrIndexOutOfRange
	}
	return string(runes[start : start+length]), nil
}

// Repeat returns n copies of s.
func Repeat(s string, n int32) (string, error) {
	if n < 0 {
		return "", types.ErrIndexOutOfRange
	}
	return strings.Repeat(s, int(n)), nil
}

// PadLeft right-aligns s in width runes.
func PadLeft(s string, width int32, pad types.Char) string {
	if n := int(width) - utf8.RuneCountInString(s); n > 0 {
		return strings.Repeat(string(rune(pad)), n) + s
	}
	return s
}

// PadRight left-aligns s in width runes.
func PadRight(s string, width int32, pad types.Char) string {
	if n := int(width) - utf8.RuneCountInString(s); n > 0 {
		return s + strings.Repeat(string(rune(pad)), n)
	}
	return s
}

// Concat joins its arguments.
func Concat(parts ...string) string {
	return strings.Join(parts, "")
}

// Join joins parts with sep.
func Join(sep string, parts ...string) string {
	return strings.Join(parts, sep)
}

// Capitalize upper-cases the first rune and lower-cases the rest.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + ToLower(s[size:])
}

// TitleCase upper-cases the first letter of each word.
func TitleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

var wordBoundary = regexp.MustCompile(`[_\-\s]+|([\p{Ll}\d])(\p{Lu})`)

// words splits camelCase, snake_case, kebab-case and spaced text.
func words(s string) []string {
	return strings.Fields(wordBoundary.ReplaceAllString(s, "$1 $2"))
}

// CamelCase joins the words of s as camelCase.
func CamelCase(s string) string {
	var b strings.Builder
	for i, w := range words(s) {
		if i == 0 {
			b.WriteString(ToLower(w))
			continue
		}
		b.WriteString(Capitalize(w))
	}
	return b.String()
}

// SnakeCase joins the words of s as snake_case.
func SnakeCase(s string) string {
	return joinLower(s, "_")
}

// KebabCase joins the words of s as kebab-case.
func KebabCase(s string) string {
	return joinLower(s, "-")
}

func joinLower(s, sep string) string {
	ws := words(s)
	for i, w := range ws {
		ws[i] = ToLower(w)
	}
	return strings.Join(ws, sep)
}
