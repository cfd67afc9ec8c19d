// Package formatting converts byte sizes between counts and the
// human-readable strings used in configuration and error messages.
package formatting

import (
	"fmt"
	"strconv"
	"strings"
)

// Base-1024 units. "KiB"-style spellings parse to the same multiplier.
var units = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// FormatBytes renders n in the largest unit that keeps the value at or
// above one, with precision decimals. Negative precision is treated as 0.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)

	size := float64(n)
	i := 0
	for ; i < len(units)-1 && (size >= 1024 || size <= -1024); i++ {
		size /= 1024
	}
	if i == 0 {
		return strconv.FormatInt(n, 10) + " B"
	}
	return strconv.FormatFloat(size, 'f', precision, 64) + " " + units[i]
}

// ParseBytes reads sizes such as "10MB", "1.5 GiB" or "512". A bare number
// is bytes and unit case is ignored.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	end := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if end == -1 {
		end = len(s)
	}
	if end == 0 {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}

	value, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	unit := strings.ToUpper(strings.TrimSpace(s[end:]))
	unit = strings.Replace(unit, "IB", "B", 1)
	if unit == "" {
		unit = "B"
	}

	mult := int64(1)
	for _, u := range units {
		if u == unit {
			return int64(value * float64(mult)), nil
		}
		mult <<= 10
	}
	return 0, fmt.Errorf("unknown byte size unit %q", unit)
}
