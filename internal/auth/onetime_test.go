package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoapp/internal/common"
	"todoapp/internal/database"
)

func testUser() *database.User {
	return &database.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
	}
}

func TestOneTimeTokenRoundTrip(t *testing.T) {
	tokens := NewOneTimeTokens(testSettings())
	user := testUser()

	for _, purpose := range []Purpose{PurposePasswordReset, PurposeEmailVerification} {
		token := tokens.Make(purpose, user)
		assert.True(t, tokens.Check(purpose, user, token), purpose)
	}
}

func TestOneTimeTokenIsPurposeBound(t *testing.T) {
	tokens := NewOneTimeTokens(testSettings())
	user := testUser()

	token := tokens.Make(PurposeEmailVerification, user)
	assert.False(t, tokens.Check(PurposePasswordReset, user, token))
}

func TestPasswordResetTokenInvalidatedByPasswordChange(t *testing.T) {
	tokens := NewOneTimeTokens(testSettings())
	user := testUser()

	token := tokens.Make(PurposePasswordReset, user)
	user.PasswordHash = "$argon2id$v=19$m=1024,t=1,p=1$b3RoZXI$aGFzaA"

	assert.False(t, tokens.Check(PurposePasswordReset, user, token))
}

func TestPasswordResetTokenInvalidatedByLogin(t *testing.T) {
	tokens := NewOneTimeTokens(testSettings())
	user := testUser()

	token := tokens.Make(PurposePasswordReset, user)
	now := time.Now()
	user.LastLogin = &now

	assert.False(t, tokens.Check(PurposePasswordReset, user, token))
}

func TestVerificationTokenInvalidatedOnceVerified(t *testing.T) {
	tokens := NewOneTimeTokens(testSettings())
	user := testUser()

	token := tokens.Make(PurposeEmailVerification, user)
	user.IsVerified = true

	assert.False(t, tokens.Check(PurposeEmailVerification, user, token))
}

func TestOneTimeTokenExpires(t *testing.T) {
	clock := newClock()
	tokens := NewOneTimeTokens(testSettings(), WithClock(clock.Now))
	user := testUser()

	token := tokens.Make(PurposePasswordReset, user)

	clock.Advance(24 * time.Hour)
	assert.True(t, tokens.Check(PurposePasswordReset, user, token))

	clock.Advance(time.Second)
	assert.False(t, tokens.Check(PurposePasswordReset, user, token))
}

func TestOneTimeTokenMalformed(t *testing.T) {
	tokens := NewOneTimeTokens(testSettings())
	user := testUser()

	for _, token := range []string{"", "nodash", "zz!-abc", "abc-def"} {
		assert.False(t, tokens.Check(PurposePasswordReset, user, token), token)
	}
	assert.False(t, tokens.Check(PurposePasswordReset, nil, "abc-def"))
}

func TestUIDEncoding(t *testing.T) {
	id := uuid.New()

	decoded, err := DecodeUID(EncodeUID(id))
	require.NoError(t, err)
	assert.Equal(t, id, decoded)

	_, err = DecodeUID("!!!")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = DecodeUID(EncodeUID(id)[:10])
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
