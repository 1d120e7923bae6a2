package track

import (
	"fmt"
	"time"
)

// Layouts with an explicit offset. Fractional seconds are accepted by all of them.
var offsetLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05-07",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05-07",
}

// Layouts without an offset; these are read in the configured location.
var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses a stored timestamp. Values carrying an offset keep it;
// values without one are interpreted in loc (UTC when nil).
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// FormatTimestamp renders t in UTC with a numeric offset, e.g. 2025-02-19 06:46:54+0000.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05-0700")
}
