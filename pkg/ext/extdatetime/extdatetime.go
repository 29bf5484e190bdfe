// Package extdatetime is a date/time library for expressions working on
// datetime (time.Time) and timespan (time.Duration) values. Calendar units
// are named "year", "month", "day", "hour", "minute", "second" and
// "millisecond".
package extdatetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/ext/extutil"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/parser"
)

// Namespace is the default namespace of the library.
const Namespace = "DateTime"

// Now is the clock read by the Now and Today functions.
var Now = time.Now

// Library returns the date/time library.
func Library() extutil.Library {
	return extutil.Library{Name: Namespace, Defs: Defs()}
}

// Defs returns the function overloads of the library.
func Defs() []extutil.Def {
	return []extutil.Def{
		{Name: "Now", Fn: func() time.Time { return Now() }},
		{Name: "Today", Fn: func() time.Time { return StartOfUnit(Now(), "day") }},
		{Name: "Date", Fn: func(y, m, d int32) time.Time { return time.Date(int(y), time.Month(m), int(d), 0, 0, 0, 0, time.UTC) }},
		{Name: "Date", Fn: func(y, m, d, h, mi, s int32) time.Time {
			return time.Date(int(y), time.Month(m), int(d), int(h), int(mi), int(s), 0, time.UTC)
		}},
		{Name: "Year", Fn: func(t time.Time) int32 { return int32(t.Year()) }},
		{Name: "Month", Fn: func(t time.Time) int32 { return int32(t.Month()) }},
		{Name: "Day", Fn: func(t time.Time) int32 { return int32(t.Day()) }},
		{Name: "Hour", Fn: func(t time.Time) int32 { return int32(t.Hour()) }},
		{Name: "Minute", Fn: func(t time.Time) int32 { return int32(t.Minute()) }},
		{Name: "Second", Fn: func(t time.Time) int32 { return int32(t.Second()) }},
		{Name: "DayOfWeek", Fn: func(t time.Time) int32 { return int32(t.Weekday()) }},
		{Name: "DayOfYear", Fn: func(t time.Time) int32 { return int32(t.YearDay()) }},
		{Name: "DaysInMonth", Fn: func(y, m int32) int32 {
			return int32(time.Date(int(y), time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day())
		}},
		{Name: "Add", Fn: Add},
		{Name: "Diff", Fn: Diff},
		{Name: "StartOf", Fn: StartOf},
		{Name: "EndOf", Fn: EndOf},
		{Name: "Format", Fn: Format},
		{Name: "Parse", Fn: parser.ParseDateTime},
		{Name: "FromUnixMillis", Fn: func(ms int64) time.Time { return time.UnixMilli(ms).UTC() }},
		{Name: "ToUnixMillis", Fn: func(t time.Time) int64 { return t.UnixMilli() }},
		{Name: "TotalDays", Fn: func(d time.Duration) float64 { return d.Hours() / 24 }},
		{Name: "TotalHours", Fn: time.Duration.Hours},
		{Name: "TotalMinutes", Fn: time.Duration.Minutes},
		{Name: "TotalSeconds", Fn: time.Duration.Seconds},
		{Name: "TotalMilliseconds", Fn: func(d time.Duration) int64 { return d.Milliseconds() }},
	}
}

// Add adds amount units to t.
func Add(t time.Time, amount int32, unit string) (time.Time, error) {
	n := int(amount)
	switch strings.ToLower(unit) {
	case "year":
		return t.AddDate(n, 0, 0), nil
	case "month":
		return t.AddDate(0, n, 0), nil
	case "day":
		return t.AddDate(0, 0, n), nil
	}
	d, err := fixedUnit(unit)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(time.Duration(n) * d), nil
}

// Diff returns to - from counted in whole units.
func Diff(from, to time.Time, unit string) (int64, error) {
	switch strings.ToLower(unit) {
	case "year":
		y, _ := monthsBetween(from, to)
		return y, nil
	case "month":
		y, m := monthsBetween(from, to)
		return y*12 + m, nil
	case "day":
		return int64(to.Sub(from) / (24 * time.Hour)), nil
	}
	d, err := fixedUnit(unit)
	if err != nil {
		return 0, err
	}
	return int64(to.Sub(from) / d), nil
}

// StartOf truncates t to the start of unit.
func StartOf(t time.Time, unit string) (time.Time, error) {
	if _, err := unitRank(unit); err != nil {
		return time.Time{}, err
	}
	return StartOfUnit(t, unit), nil
}

// StartOfUnit is StartOf for a unit known to be valid.
func StartOfUnit(t time.Time, unit string) time.Time {
	rank, _ := unitRank(unit)
	parts := [7]int{t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()}
	for i := rank + 1; i < len(parts); i++ {
		switch i {
		case 1, 2:
			parts[i] = 1
		default:
			parts[i] = 0
		}
	}
	if rank == 6 {
		parts[6] = parts[6] / int(time.Millisecond) * int(time.Millisecond)
	}
	return time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], parts[6], t.Location())
}

// EndOf returns the last millisecond of the unit t falls in.
func EndOf(t time.Time, unit string) (time.Time, error) {
	start, err := StartOf(t, unit)
	if err != nil {
		return time.Time{}, err
	}
	next, err := Add(start, 1, unit)
	if err != nil {
		return time.Time{}, err
	}
	return next.Add(-time.Millisecond), nil
}

// Format renders t with a day/month/year format such as "dd/MM/yyyy HH:mm".
func Format(t time.Time, format string) (string, error) {
	layout, err := parser.DateLayout(format)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}

var units = []string{"year", "month", "day", "hour", "minute", "second", "millisecond"}

func unitRank(unit string) (int, error) {
	u := strings.ToLower(unit)
	for i, name := range units {
		if name == u {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unsupported unit %q", unit)
}

func fixedUnit(unit string) (time.Duration, error) {
	switch strings.ToLower(unit) {
	case "hour":
		return time.Hour, nil
	case "minute":
		return time.Minute, nil
	case "second":
		return time.Second, nil
	case "millisecond":
		return time.Millisecond, nil
	}
	return 0, fmt.Errorf("unsupported unit %q", unit)
}

// monthsBetween returns the whole years and remaining months from from to
// to.
func monthsBetween(from, to time.Time) (years, months int64) {
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	total := int64(y2-y1)*12 + int64(m2-m1)
	if d2 < d1 && total > 0 {
		total--
	}
	return total / 12, total % 12
}
