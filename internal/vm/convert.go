package vm

import (
	"fmt"
	"strconv"
)

// NumberToString renders a Number the way the language prints it: no
// decimal point for integral values.
func NumberToString(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// BoolToString branches on the value: "true" for true, "false" for false.
func BoolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// StringToNumber parses a decimal number.
func StringToNumber(s string) (float64, error) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, Errf(ExInvalidArgumentType, "cannot parse %q as a number", s)
	}
	return n, nil
}
