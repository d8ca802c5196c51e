// Package password holds the password strength rule and the random
// password generator used by the admin reset flow.
package password

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"
)

const (
	lowercase = "abcdefghijklmnopqrstuvwxyz"
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits    = "0123456789"

	// MinLength is the minimum accepted password length.
	MinLength = 8
)

// Validate enforces the strength rule: at least MinLength characters,
// containing at least one letter and one digit.
func Validate(pw string) error {
	if len(pw) < MinLength {
		return fmt.Errorf("password must be at least %d characters, including letters and numbers", MinLength)
	}
	var hasLetter, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("password must be at least %d characters, including letters and numbers", MinLength)
	}
	return nil
}

// Generate creates a random password of the given length (minimum 8) with
// at least one lowercase letter, one uppercase letter and one digit. The
// remaining characters are drawn from the full alphanumeric set and the
// result is shuffled so the guaranteed classes are not at fixed positions.
func Generate(length int) (string, error) {
	if length < MinLength {
		return "", fmt.Errorf("password length must be at least %d characters", MinLength)
	}

	all := lowercase + uppercase + digits
	chars := make([]byte, 0, length)

	for _, set := range []string{lowercase, uppercase, digits} {
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for len(chars) < length {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	if err := shuffle(chars); err != nil {
		return "", err
	}
	return string(chars), nil
}

func pick(set string) (byte, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, fmt.Errorf("generate password: %w", err)
	}
	return set[idx.Int64()], nil
}

// shuffle is a Fisher-Yates shuffle driven by crypto/rand.
func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("shuffle password: %w", err)
		}
		b[i], b[j.Int64()] = b[j.Int64()], b[i]
	}
	return nil
}
