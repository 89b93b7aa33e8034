package util

import (
	"strconv"
	"time"
)

// MustParseUint returns 0 when s is not a valid unsigned integer.
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ParseDate parses a YYYY-MM-DD query value; an empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(DateFormat, s, time.UTC)
}

// Percent returns part/total*100 rounded to one decimal, or 0 when total is 0.
func Percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return Round1(float64(part) / float64(total) * 100)
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	if v < 0 {
		return -float64(int64(-v*10+0.5)) / 10
	}
	return float64(int64(v*10+0.5)) / 10
}
