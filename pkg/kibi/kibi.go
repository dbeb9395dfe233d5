package kibi

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var digitRegex = regexp.MustCompile(`^\d+`)
var ErrInvalidByteSizeString = fmt.Errorf("Invalid byte size string")

// Bytes formats a byte count using 1024-based units
func Bytes(b int64) string {
	switch {
	case b < 1024:
		return fmt.Sprintf("%v bytes", b)
	case b < 1024*1024:
		return fmt.Sprintf("%v KB", b/1024)
	case b < 1024*1024*1024:
		return fmt.Sprintf("%v MB", b/1024/1024)
	case b < 1024*1024*1024*1024:
		return fmt.Sprintf("%v GB", b/1024/1024/1024)
	default:
		return fmt.Sprintf("%v TB", b/1024/1024/1024/1024)
	}
}

// Parse reads a human byte size such as "50", "50 MB", "2gb", "512k".
// Suffixes may be the unit ("kb") or just the letter ("k"), case insensitive.
func Parse(v string) (int64, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	digits := digitRegex.FindString(v)
	if digits == "" {
		return 0, ErrInvalidByteSizeString
	}
	suffix := strings.TrimSpace(v[len(digits):])
	multiplier := int64(1)
	switch suffix {
	case "", "bytes":
	case "kb", "k":
		multiplier = 1024
	case "mb", "m":
		multiplier = 1024 * 1024
	case "gb", "g":
		multiplier = 1024 * 1024 * 1024
	case "tb", "t":
		multiplier = 1024 * 1024 * 1024 * 1024
	default:
		return 0, ErrInvalidByteSizeString
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, err
	}
	return value * multiplier, nil
}
