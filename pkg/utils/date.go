package utils

import (
	"fmt"
	"strconv"
	"time"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseUnixMilli accepts epoch milliseconds or a UTC date in one of the
// supported layouts and returns epoch milliseconds.
func ParseUnixMilli(value string) (int64, error) {
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("time must not be negative: %d", ms)
		}
		return ms, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unrecognized time %q, use epoch milliseconds or YYYY-MM-DD", value)
}

// FormatUnixMilli renders epoch milliseconds as RFC3339 in UTC.
func FormatUnixMilli(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
