package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	digits       = "0123456789"
)

func randomFrom(chars string, limit int) string {
	result := make([]byte, limit)
	max := big.NewInt(int64(len(chars)))
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		result[i] = chars[n.Int64()]
	}
	return string(result)
}

func GenerateRandomString(limit int) string {
	return randomFrom(alphanumeric, limit)
}

// GenerateNumericCode returns a random string of decimal digits, leading
// zeros included.
func GenerateNumericCode(limit int) string {
	return randomFrom(digits, limit)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsNumeric reports whether s is a non-empty string of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
