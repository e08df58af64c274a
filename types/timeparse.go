package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// now is replaced in tests for deterministic relative timestamps.
var now = time.Now

var durationRegex = regexp.MustCompile(`^(\d+)([smhdwMy])`)

var durationUnits = map[string]int64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
	"w": 604800,
	"M": 2592000,  // 30 days
	"y": 31536000, // 365 days
}

// ParseDuration converts strings like "1h30m" or "2d" to seconds. A bare
// number is taken as minutes. The parts may appear in any order and are
// summed up.
func ParseDuration(input string) (int64, error) {
	if n, err := strconv.ParseInt(input, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("duration must not be negative")
		}
		return n * 60, nil
	}

	var total int64
	rest := input
	for rest != "" {
		match := durationRegex.FindStringSubmatch(rest)
		if match == nil {
			return 0, fmt.Errorf("unable to parse duration %q", input)
		}
		count, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("unable to parse duration %q", input)
		}
		total += count * durationUnits[match[2]]
		rest = rest[len(match[0]):]
	}
	return total, nil
}

// FormatDuration renders a number of seconds like "2h5m30s".
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	seconds %= 60
	if hours > 0 {
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

type timeFormat struct {
	layout   string
	timeOnly bool
}

var timeFormats = []timeFormat{
	{"2006-01-02 15:04:05", false},
	{"2006-01-02 15:04", false},
	{"200601021504", false},
	{"2006-01-02", false},
	{"20060102", false},
	{"15:04:05", true},
	{"15:04", true},
	{"1504", true},
}

// ParseTime converts a timestamp string to seconds since the epoch. It
// tries the fixed set of date/time patterns first, then a bare epoch
// integer, and finally interprets the input as a duration before now.
// Time-only inputs refer to today, or to yesterday if the result would lie
// in the future.
func ParseTime(input string) (int64, error) {
	if len(input) >= 4 {
		for _, format := range timeFormats {
			parsed, err := time.ParseInLocation(format.layout, input, time.Local)
			if err != nil {
				continue
			}
			if format.timeOnly {
				current := now()
				parsed = time.Date(current.Year(), current.Month(), current.Day(),
					parsed.Hour(), parsed.Minute(), parsed.Second(), 0, time.Local)
				if parsed.After(current) {
					parsed = parsed.AddDate(0, 0, -1)
				}
			}
			return parsed.Unix(), nil
		}
	}

	if n, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64); err == nil {
		return n, nil
	}

	if seconds, err := ParseDuration(input); err == nil {
		return now().Unix() - seconds, nil
	}

	return 0, fmt.Errorf("%q is no valid time", input)
}

// FormatTime renders seconds since the epoch as a local date and time.
func FormatTime(seconds int64) string {
	return time.Unix(seconds, 0).Local().Format("2006-01-02 15:04:05")
}
