package utils

import (
	"strconv"
)

// ParseID parses a positive numeric id, returning 0 when s is not one.
func ParseID(s string) uint {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

// StringToInt converts string to int, returns def if error
func StringToInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
