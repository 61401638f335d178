package schema

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// ParseDate accepts RFC 3339 timestamps, plain dates and space separated
// datetimes. Results are in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a recognised date", s)
}

// Clamp bounds v to [lo, hi].
func Clamp[N ~int | ~int64 | ~float64](v, lo, hi N) N {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
