package parser

import (
	"fmt"
	"strings"
	"time"
)

// dateSpecifiers maps day/month/year format specifiers to Go layout
// fragments, longest first so that "yyyy" wins over "yy".
var dateSpecifiers = []struct {
	spec   string
	layout string
}{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dddd", "Monday"},
	{"ddd", "Mon"},
	{"dd", "02"},
	{"d", "2"},
	{"HH", "15"},
	{"H", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"fffffff", "0000000"},
	{"ffffff", "000000"},
	{"fffff", "00000"},
	{"ffff", "0000"},
	{"fff", "000"},
	{"ff", "00"},
	{"f", "0"},
	{"tt", "PM"},
	{"zzz", "-07:00"},
	{"K", "Z07:00"},
}

// DateLayout converts a day/month/year style format ("dd/MM/yyyy HH:mm")
// into a Go time layout.
func DateLayout(format string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(format); {
		c := format[i]
		if c == '\'' {
			end := strings.IndexByte(format[i+1:], '\'')
			if end < 0 {
				return "", fmt.Errorf("date/time format %q: unterminated quote", format)
			}
			b.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}
		if isLetter(rune(c)) {
			matched := false
			for _, s := range dateSpecifiers {
				if strings.HasPrefix(format[i:], s.spec) {
					b.WriteString(s.layout)
					i += len(s.spec)
					matched = true
					break
				}
			}
			if !matched {
				return "", fmt.Errorf("date/time format %q: unknown specifier %q", format, c)
			}
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), nil
}

// ParseDateTime parses the body of a date/time literal with a format.
func ParseDateTime(text, format string) (time.Time, error) {
	layout, err := DateLayout(format)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(layout, strings.TrimSpace(text))
}

// ParseTimeSpan parses the body of a time span literal:
// [d.]hh:mm[:ss[.fffffff]].
func ParseTimeSpan(text string) (time.Duration, error) {
	var days, hours, minutes, seconds int64
	var fraction time.Duration

	rest := text
	if dot := strings.IndexByte(rest, '.'); dot >= 0 && dot < strings.IndexByte(rest, ':') {
		if _, err := fmt.Sscanf(rest[:dot], "%d", &days); err != nil {
			return 0, fmt.Errorf("time span %q: bad day count", text)
		}
		rest = rest[dot+1:]
	}

	parts := strings.Split(rest, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("time span %q: expected hh:mm[:ss]", text)
	}
	if _, err := fmt.Sscanf(parts[0], "%d", &hours); err != nil || hours > 23 {
		return 0, fmt.Errorf("time span %q: bad hours", text)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &minutes); err != nil || minutes > 59 {
		return 0, fmt.Errorf("time span %q: bad minutes", text)
	}
	if len(parts) == 3 {
		sec := parts[2]
		if dot := strings.IndexByte(sec, '.'); dot >= 0 {
			frac := sec[dot+1:]
			sec = sec[:dot]
			if len(frac) == 0 || len(frac) > 7 {
				return 0, fmt.Errorf("time span %q: bad fraction", text)
			}
			// ticks are 100ns; pad to seven digits
			ticks := frac + strings.Repeat("0", 7-len(frac))
			var n int64
			if _, err := fmt.Sscanf(ticks, "%d", &n); err != nil {
				return 0, fmt.Errorf("time span %q: bad fraction", text)
			}
			fraction = time.Duration(n) * 100
		}
		if _, err := fmt.Sscanf(sec, "%d", &seconds); err != nil || seconds > 59 {
			return 0, fmt.Errorf("time span %q: bad seconds", text)
		}
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		fraction
	return d, nil
}
