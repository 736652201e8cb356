package models

import (
	"strings"
	"time"
)

// drawDateLayouts covers the formats observed in the outcome and
// prediction collections. Upstream writers are inconsistent about time
// suffixes and zone markers.
var drawDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDrawDate normalizes a stored date string to a calendar date
// (time-of-day discarded). The second return is false when the string
// matches none of the known layouts; callers fall back to string
// comparison rather than discarding the record.
func ParseDrawDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range drawDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// DateOnly strips any time suffix from a stored date string without
// parsing it. Used for the string-equality fallback when ParseDrawDate
// fails.
func DateOnly(s string) string {
	if idx := strings.IndexByte(s, 'T'); idx != -1 {
		return s[:idx]
	}
	return s
}
