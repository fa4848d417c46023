package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// AlignToBucket truncates t down to the start of its bucket. Buckets are
// aligned to UTC midnight, so 4h buckets start at 00/04/08/12/16/20.
func AlignToBucket(t time.Time, bucket time.Duration) time.Time {
	if bucket <= 0 {
		return t
	}
	if bucket >= 24*time.Hour {
		u := t.UTC()
		return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t.UTC().Truncate(bucket)
}

// BucketEnd returns the exclusive end of the bucket containing t.
func BucketEnd(t time.Time, bucket time.Duration) time.Time {
	return AlignToBucket(t, bucket).Add(bucket)
}
