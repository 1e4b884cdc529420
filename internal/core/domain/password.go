package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultMinPasswordLength applies when no minimum is configured.
const DefaultMinPasswordLength = 8

const passwordSpecials = "@$!%*?&"

// ValidatePasswordStrength checks that password is at least minLength long and
// mixes upper case, lower case, a digit and one of @$!%*?&.
func ValidatePasswordStrength(password string, minLength int) error {
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	if len([]rune(password)) < minLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, minLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return fmt.Errorf("%w: must contain upper case, lower case, a number and a special character (%s)", ErrWeakPassword, passwordSpecials)
	}
	return nil
}
