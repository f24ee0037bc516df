package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionErrorsAreUnauthorized(t *testing.T) {
	assert.ErrorIs(t, ErrDeviceMismatch, ErrUnauthorized)
	assert.ErrorIs(t, ErrSessionInactive, ErrUnauthorized)
	assert.NotErrorIs(t, ErrInvalidToken, ErrUnauthorized)
}

func TestValidationError(t *testing.T) {
	v := NewValidationError(ErrWeakPassword)
	assert.True(t, v.Empty())

	v.Add("new_password", "too short")
	v.Add("new_password", "needs a digit")
	v.Add("email", "required")

	assert.False(t, v.Empty())
	assert.Equal(t, []string{"too short", "needs a digit"}, v.Fields["new_password"])
	assert.Equal(t, "validation failed: email: required; new_password: too short needs a digit", v.Error())

	var err error = v
	assert.True(t, errors.Is(err, ErrWeakPassword))

	var target *ValidationError
	assert.True(t, errors.As(err, &target))
}

func TestFieldError(t *testing.T) {
	err := FieldError(ErrPasswordMismatch, "new_password2", "The two password fields didn't match.")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Equal(t, []string{"The two password fields didn't match."}, err.Fields["new_password2"])
}
