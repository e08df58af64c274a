package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var sizeUnits = "KMGTPEZY"

var sizeRegex = regexp.MustCompile(`^(\d+)B?$|^(\d+(?:\.\d+)?)([` + sizeUnits + `])(IB|B)?$`)

// ParseSize converts a size string to a number of bytes. Single-letter
// units (K, M, ...) and the -iB forms are base 1024, the -B forms are base
// 1000. With si the default for single letters becomes 1000.
func ParseSize(input string, si bool) (int64, error) {
	upper := strings.ToUpper(input)

	match := sizeRegex.FindStringSubmatch(upper)
	if match == nil {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	if match[1] != "" {
		n, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size %q", input)
		}
		return n, nil
	}

	number, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	exp := strings.IndexByte(sizeUnits, match[3][0]) + 1

	var base float64
	switch match[4] {
	case "IB":
		base = 1024
	case "B":
		base = 1000
	default:
		if si {
			base = 1000
		} else {
			base = 1024
		}
	}

	for i := 0; i < exp; i++ {
		number *= base
	}
	return int64(number), nil
}

// FormatSize renders a number of bytes in a human readable form using the
// given base (1024 or 1000).
func FormatSize(number int64, base int64) string {
	if number < base {
		return strconv.FormatInt(number, 10)
	}

	value := float64(number)
	unit := ""
	for i := 0; i < len(sizeUnits) && value >= float64(base); i++ {
		value /= float64(base)
		unit = string(sizeUnits[i])
	}

	if base == 1000 {
		unit += "B"
	}

	if value < 10 {
		return fmt.Sprintf("%.1f%s", value, unit)
	}
	return fmt.Sprintf("%d%s", int64(value), unit)
}
