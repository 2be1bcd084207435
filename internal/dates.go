package internal

import (
	"encoding/json"
	"strings"
	"time"
)

// fixedLayouts are tried in order; the first calendar-valid parse wins.
// Day-first comes before month-first, so "03-04-2024" is the 3rd of April.
var fixedLayouts = []string{
	"2-1-2006", // dd-MM-yyyy
	"2006-1-2", // yyyy-MM-dd
	"2/1/2006", // dd/MM/yyyy
	"1/2/2006", // MM/dd/yyyy
	"2006/1/2", // yyyy/MM/dd
}

// fallbackLayouts cover timestamps and long-form dates the backend sometimes sends.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	time.DateTime,
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan 02 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

const (
	// DayKeyLayout is the lookup key format for canonical days.
	DayKeyLayout = "2006-01-02"
	// DisplayLayout is the dd-MM-yyyy format used in exports and the dashboard.
	DisplayLayout = "02-01-2006"
)

// Normalize converts a date-like value into a canonical day (local midnight).
// Supported inputs are string, json.Number, time.Time, *time.Time and nil.
// The second return value is false when no date could be resolved.
func Normalize(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case string:
		return NormalizeString(x)
	case json.Number:
		return NormalizeString(x.String())
	case time.Time:
		return NormalizeTime(x)
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return NormalizeTime(*x)
	default:
		return time.Time{}, false
	}
}

// NormalizeString parses s with the fixed layouts first, then the permissive fallbacks.
func NormalizeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fixedLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Midnight(t), true
		}
	}

	for _, layout := range fallbackLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err != nil {
			continue
		}
		// Instants carrying a zone land on the local calendar day
		return Midnight(t.In(time.Local)), true
	}

	return time.Time{}, false
}

// NormalizeTime truncates t to its local calendar day. The zero time is absent.
func NormalizeTime(t time.Time) (time.Time, bool) {
	if t.IsZero() {
		return time.Time{}, false
	}
	return Midnight(t.In(time.Local)), true
}

// Midnight returns the start of t's calendar day in t's location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayKey returns the canonical lookup key (yyyy-MM-dd) for t.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// FormatDisplay formats t as dd-MM-yyyy, or "" for the zero time.
func FormatDisplay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DisplayLayout)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DayKey(a) == DayKey(b)
}

// DaysBetween returns the number of whole calendar days from a to b.
// It works on calendar fields so DST transitions do not skew the count.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// Today returns the canonical current day.
func Today() time.Time {
	return Midnight(time.Now())
}
