package password

import (
	"fmt"
	"strings"
	"unicode"

	"todoapp/internal/common"
	"todoapp/internal/database"
)

// Validator checks a candidate password. user may be nil when no account
// exists yet. A non-empty return value is a human-readable rejection.
type Validator interface {
	Validate(password string, user *database.User) string
}

type ValidatorFunc func(password string, user *database.User) string

func (f ValidatorFunc) Validate(password string, user *database.User) string {
	return f(password, user)
}

// Chain runs every validator and collects all rejections.
type Chain []Validator

func DefaultChain(minLength int) Chain {
	return Chain{
		UserAttributeSimilarity(),
		CommonPassword(),
		NotNumeric(),
		MinLength(minLength),
		ContainsClass("uppercase letter", unicode.IsUpper),
		ContainsClass("lowercase letter", unicode.IsLower),
		ContainsClass("digit", unicode.IsDigit),
		ContainsClass("special character", isSpecial),
	}
}

// Validate returns a *common.ValidationError wrapping common.ErrWeakPassword
// with every message reported under field, or nil.
func (c Chain) Validate(field, password string, user *database.User) error {
	verr := common.NewValidationError(common.ErrWeakPassword)
	for _, v := range c {
		if msg := v.Validate(password, user); msg != "" {
			verr.Add(field, msg)
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

func MinLength(n int) Validator {
	return ValidatorFunc(func(password string, _ *database.User) string {
		if len([]rune(password)) < n {
			return fmt.Sprintf("This password is too short. It must contain at least %d characters.", n)
		}
		return ""
	})
}

func ContainsClass(name string, match func(rune) bool) Validator {
	return ValidatorFunc(func(password string, _ *database.User) string {
		if strings.IndexFunc(password, match) < 0 {
			return fmt.Sprintf("The password must contain at least one %s.", name)
		}
		return ""
	})
}

func isSpecial(r rune) bool {
	return r == '_' || !(unicode.IsLetter(r) || unicode.IsDigit(r))
}

func NotNumeric() Validator {
	return ValidatorFunc(func(password string, _ *database.User) string {
		if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
			return "This password is entirely numeric."
		}
		return ""
	})
}

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "123456": {}, "12345678": {},
	"123456789": {}, "qwerty": {}, "qwerty123": {}, "abc123": {}, "letmein": {},
	"welcome": {}, "welcome1": {}, "admin": {}, "admin123": {}, "iloveyou": {},
	"monkey": {}, "dragon": {}, "football": {}, "baseball": {}, "sunshine": {},
	"princess": {}, "trustno1": {}, "passw0rd": {}, "p@ssw0rd": {}, "p@ssword1": {},
	"zaq12wsx": {}, "1q2w3e4r": {}, "qwertyuiop": {}, "starwars": {}, "master": {},
}

func CommonPassword() Validator {
	return ValidatorFunc(func(password string, _ *database.User) string {
		if _, ok := commonPasswords[strings.ToLower(password)]; ok {
			return "This password is too common."
		}
		return ""
	})
}

// UserAttributeSimilarity rejects passwords that contain the username or the
// local part of the email address.
func UserAttributeSimilarity() Validator {
	return ValidatorFunc(func(password string, user *database.User) string {
		if user == nil {
			return ""
		}

		lower := strings.ToLower(password)
		attrs := []string{user.Username}
		if local, _, ok := strings.Cut(user.Email, "@"); ok {
			attrs = append(attrs, local)
		}

		for _, attr := range attrs {
			attr = strings.ToLower(attr)
			if len(attr) >= 3 && strings.Contains(lower, attr) {
				return "The password is too similar to your account details."
			}
		}
		return ""
	})
}
