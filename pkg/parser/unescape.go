package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// Unescape processes the escape sequences of a string or char literal body:
// \\ \" \' \t \r \n and \uXXXX. A \u pair forming a UTF-16 surrogate pair is
// decoded to one rune.
func Unescape(s string) (string, error) {
	if !strings.Contains(s, "\\") {
		return s, nil
	}

	var result strings.Builder
	result.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			result.WriteByte(s[i])
			continue
		}

		i++
		if i >= len(s) {
			return "", fmt.Errorf("invalid escape sequence at end of literal")
		}

		switch s[i] {
		case 'n':
			result.WriteByte('\n')
		case 't':
			result.WriteByte('\t')
		case 'r':
			result.WriteByte('\r')
		case '\\':
			result.WriteByte('\\')
		case '"':
			result.WriteByte('"')
		case '\'':
			result.WriteByte('\'')
		case 'u', 'U':
			r, err := hex4(s, i+1)
			if err != nil {
				return "", err
			}
			i += 4
			if utf16.IsSurrogate(r) && strings.HasPrefix(s[i+1:], "\\u") {
				if low, err := hex4(s, i+3); err == nil {
					if dec := utf16.DecodeRune(r, low); dec != unicode.ReplacementChar {
						result.WriteRune(dec)
						i += 6
						continue
					}
				}
			}
			result.WriteRune(r)
		default:
			return "", fmt.Errorf("invalid escape sequence \\%c", s[i])
		}
	}

	return result.String(), nil
}

func hex4(s string, at int) (rune, error) {
	if at+4 > len(s) {
		return 0, fmt.Errorf("invalid \\u escape: not enough characters")
	}
	v, err := strconv.ParseUint(s[at:at+4], 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid \\u escape: %s", s[at:at+4])
	}
	return rune(v), nil
}
