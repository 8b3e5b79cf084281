package validation

import (
	"regexp"
	"unicode"
)

// Addresses: alphanumerics plus dot, dash, underscore; 3-64 chars.
var addressRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{2,63}$`)

func IsValidAddress(address string) bool {
	return addressRe.MatchString(address)
}

// IsValidProofKey enforces minimum strength for actor proof keys:
// - at least 8 characters
// - contains at least one letter
// - contains at least one number
// - contains at least one special character
func IsValidProofKey(key string) bool {
	if len(key) < 8 {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range key {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}
