// Package email normalizes and checks login identifiers.
package email

import (
	"regexp"
	"strings"
)

// pattern mirrors the check the mobile app runs before submitting:
// something@something.something with no whitespace.
var pattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Normalize trims and lowercases an address so lookups are case-insensitive.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsValidEmail reports whether address has a plausible email shape.
func IsValidEmail(address string) bool {
	return pattern.MatchString(address)
}
