package utils

import (
	"testing"
)

func TestGenerateRandomString(t *testing.T) {
	a := GenerateRandomString(32)
	b := GenerateRandomString(32)

	if len(a) != 32 {
		t.Errorf("GenerateRandomString(32) has length %d", len(a))
	}
	if a == b {
		t.Errorf("two random strings should not collide: %q", a)
	}
}

func TestGenerateNumericCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateNumericCode(6)
		if len(code) != 6 || !IsNumeric(code) {
			t.Fatalf("GenerateNumericCode(6) = %q", code)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"Alice@Example.com", "alice@example.com"},
		{"  bob@example.com ", "bob@example.com"},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			actual := NormalizeEmail(tc.input)
			if actual != tc.expected {
				t.Errorf("NormalizeEmail(%q) = %q; want %q", tc.input, actual, tc.expected)
			}
		})
	}
}

func TestIsNumeric(t *testing.T) {
	testCases := []struct {
		input    string
		expected bool
	}{
		{"123456", true},
		{"000000", true},
		{"12a456", false},
		{"", false},
		{"-12", false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			actual := IsNumeric(tc.input)
			if actual != tc.expected {
				t.Errorf("IsNumeric(%q) = %v; want %v", tc.input, actual, tc.expected)
			}
		})
	}
}
