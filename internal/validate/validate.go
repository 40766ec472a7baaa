// Package validate holds pure credential checks shared by every trust
// boundary. The same rules ship in interactive clients for feedback, but
// the server-side result is the authoritative one.
package validate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const specialChars = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?"

// Email reports whether s has the shape local@domain.tld: a non-whitespace
// local part, a single @, and a domain containing at least one dot.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// PasswordChecks carries the outcome of each password strength rule.
// A password is acceptable only when every flag is true.
type PasswordChecks struct {
	Length      bool `json:"length"`
	Uppercase   bool `json:"uppercase"`
	Lowercase   bool `json:"lowercase"`
	Digit       bool `json:"digit"`
	SpecialChar bool `json:"specialChar"`
}

// OK reports whether every strength rule passed.
func (c PasswordChecks) OK() bool {
	return c.Length && c.Uppercase && c.Lowercase && c.Digit && c.SpecialChar
}

// Password evaluates each strength rule against s.
func Password(s string) PasswordChecks {
	// Length counts characters, not bytes, so multibyte runes weigh one.
	checks := PasswordChecks{
		Length: utf8.RuneCountInString(s) >= 8,
	}
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			checks.Uppercase = true
		case unicode.IsLower(r):
			checks.Lowercase = true
		case unicode.IsDigit(r):
			checks.Digit = true
		}
		if strings.ContainsRune(specialChars, r) {
			checks.SpecialChar = true
		}
	}
	return checks
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
// Stored and looked-up emails always go through this.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
