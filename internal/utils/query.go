// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"strconv"
	"strings"
)

// IntParam parses a query-string integer. Empty or malformed input yields
// def; parsed values are clamped to [lo, hi].
//
// Example:
//
//	n := utils.IntParam(c.Query("max_turns"), 10, 0, 200)
func IntParam(s string, def, lo, hi int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return min(max(n, lo), hi)
}

// OptionalString distinguishes an absent query parameter (nil) from an
// empty one.
func OptionalString(v string, present bool) *string {
	if !present {
		return nil
	}
	v = strings.TrimSpace(v)
	return &v
}
