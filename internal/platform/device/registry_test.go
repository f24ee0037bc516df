package device

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"todoapp/internal/auth"
	"todoapp/internal/common"
	"todoapp/internal/config"
	"todoapp/internal/database"
	"todoapp/internal/database/databasetest"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func settings() config.AuthSettings {
	return config.AuthSettings{
		JWTSecret:            []byte("secret"),
		AccessTokenLifetime:  time.Hour,
		RefreshTokenLifetime: 7 * 24 * time.Hour,
		RememberMeLifetime:   30 * 24 * time.Hour,
		SessionLifetime:      24 * time.Hour,
	}
}

func setup(t *testing.T) (*Registry, *gorm.DB, *fakeClock, uuid.UUID) {
	t.Helper()

	db := databasetest.Open(t)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	issuer := auth.NewIssuer(settings(), auth.WithClock(clock.Now))
	registry := NewRegistry(db, issuer, settings(), WithClock(clock.Now))

	user := database.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	return registry, db, clock, user.ID
}

func countDevices(t *testing.T, db *gorm.DB, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&database.Device{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestUpsertReplacesExistingSession(t *testing.T) {
	r, db, _, userID := setup(t)
	ctx := context.Background()

	_, err := r.Upsert(ctx, userID, "phone", "first", false, r.TTL(false))
	require.NoError(t, err)
	_, err = r.Upsert(ctx, userID, "phone", "second", true, r.TTL(true))
	require.NoError(t, err)

	assert.Equal(t, int64(1), countDevices(t, db, userID))

	_, err = r.Find(ctx, userID, "phone", "first")
	assert.ErrorIs(t, err, common.ErrNotFound)

	d, err := r.Find(ctx, userID, "phone", "second")
	require.NoError(t, err)
	assert.True(t, d.RememberMe)
}

func TestFindRequiresExactMatch(t *testing.T) {
	r, _, _, userID := setup(t)
	ctx := context.Background()

	_, err := r.Upsert(ctx, userID, "phone", "token", false, time.Hour)
	require.NoError(t, err)

	_, err = r.Find(ctx, userID, "laptop", "token")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = r.Find(ctx, uuid.New(), "phone", "token")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = r.Find(ctx, userID, "phone", "token")
	assert.NoError(t, err)
}

func TestRotateIsSingleUse(t *testing.T) {
	r, _, clock, userID := setup(t)
	ctx := context.Background()

	pair, err := r.issuer.Issue(userID, true)
	require.NoError(t, err)
	_, err = r.Upsert(ctx, userID, "phone", pair.Refresh, true, r.TTL(true))
	require.NoError(t, err)

	d, err := r.Find(ctx, userID, "phone", pair.Refresh)
	require.NoError(t, err)
	stale := *d

	clock.Advance(time.Second)
	next, err := r.Rotate(ctx, d)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Refresh, next.Refresh)

	// A second rotation from the same read loses the compare-and-swap.
	_, err = r.Rotate(ctx, &stale)
	assert.ErrorIs(t, err, common.ErrDeviceMismatch)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = r.Find(ctx, userID, "phone", pair.Refresh)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = r.Find(ctx, userID, "phone", next.Refresh)
	assert.NoError(t, err)
}

func TestRotateSlidesOnlyRememberedSessions(t *testing.T) {
	r, _, clock, userID := setup(t)
	ctx := context.Background()
	start := clock.Now()

	remembered, err := r.Upsert(ctx, userID, "phone", "r1", true, r.TTL(true))
	require.NoError(t, err)
	session, err := r.Upsert(ctx, userID, "laptop", "s1", false, r.TTL(false))
	require.NoError(t, err)

	clock.Advance(10 * 24 * time.Hour)

	_, err = r.Rotate(ctx, remembered)
	require.NoError(t, err)
	assert.True(t, remembered.ExpiresAt.Equal(clock.Now().Add(30*24*time.Hour)))

	_, err = r.Rotate(ctx, session)
	require.NoError(t, err)
	assert.True(t, session.ExpiresAt.Equal(start.Add(24*time.Hour)))

	stored, err := r.Find(ctx, userID, "laptop", session.RefreshToken)
	require.NoError(t, err)
	assert.True(t, stored.ExpiresAt.Equal(start.Add(24*time.Hour)))
	assert.True(t, stored.Expired(clock.Now()))
}

func TestDeleteIsIdempotent(t *testing.T) {
	r, db, _, userID := setup(t)
	ctx := context.Background()

	_, err := r.Upsert(ctx, userID, "phone", "token", false, time.Hour)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, userID, "phone", "wrong"))
	assert.Equal(t, int64(1), countDevices(t, db, userID))

	require.NoError(t, r.Delete(ctx, userID, "phone", "token"))
	require.NoError(t, r.Delete(ctx, userID, "phone", "token"))
	assert.Equal(t, int64(0), countDevices(t, db, userID))
}

func TestDeleteAllExcept(t *testing.T) {
	r, db, _, userID := setup(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := r.Upsert(ctx, userID, id, "token-"+id, false, time.Hour)
		require.NoError(t, err)
	}

	n, err := r.DeleteAllExcept(ctx, userID, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	devices, err := r.ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "b", devices[0].DeviceID)

	n, err = r.DeleteAll(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(0), countDevices(t, db, userID))
}
