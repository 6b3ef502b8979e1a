package inventory

import (
	"fmt"
	"strconv"
)

// FormatLevel renders a reported level as the device state string.
// Whole numbers print without a fractional part.
func FormatLevel(level any) string {
	switch v := level.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
