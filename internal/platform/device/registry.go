package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todoapp/internal/auth"
	"todoapp/internal/common"
	"todoapp/internal/config"
	"todoapp/internal/database"
)

// Registry stores one refresh-token session per (user, device).
type Registry struct {
	db              *gorm.DB
	issuer          *auth.Issuer
	rememberMe      time.Duration
	sessionLifetime time.Duration
	now             func() time.Time
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(db *gorm.DB, issuer *auth.Issuer, settings config.AuthSettings, opts ...Option) *Registry {
	r := &Registry{
		db:              db,
		issuer:          issuer,
		rememberMe:      settings.RememberMeLifetime,
		sessionLifetime: settings.SessionLifetime,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTL is how long a freshly written session row stays usable.
func (r *Registry) TTL(rememberMe bool) time.Duration {
	if rememberMe {
		return r.rememberMe
	}
	return r.sessionLifetime
}

// Upsert creates or overwrites the session for (userID, deviceID).
func (r *Registry) Upsert(ctx context.Context, userID uuid.UUID, deviceID, refreshToken string, rememberMe bool, ttl time.Duration) (*database.Device, error) {
	now := r.now()
	device := database.Device{
		UserID:       userID,
		DeviceID:     deviceID,
		RefreshToken: refreshToken,
		RememberMe:   rememberMe,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"refresh_token", "remember_me", "expires_at"}),
	}).Create(&device)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to upsert device: %w", result.Error)
	}

	return &device, nil
}

// Find returns the session matching all three values exactly.
func (r *Registry) Find(ctx context.Context, userID uuid.UUID, deviceID, refreshToken string) (*database.Device, error) {
	var device database.Device
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND device_id = ? AND refresh_token = ?", userID, deviceID, refreshToken).
		First(&device)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find device: %w", result.Error)
	}
	return &device, nil
}

// Rotate issues a new token pair for the session and swaps the stored refresh
// token, provided it still holds the value device was read with. Only
// remember-me sessions get their expiry pushed forward.
func (r *Registry) Rotate(ctx context.Context, device *database.Device) (auth.TokenPair, error) {
	pair, err := r.issuer.Issue(device.UserID, device.RememberMe)
	if err != nil {
		return auth.TokenPair{}, err
	}

	updates := map[string]any{"refresh_token": pair.Refresh}
	expiresAt := device.ExpiresAt
	if device.RememberMe {
		expiresAt = r.now().Add(r.rememberMe)
		updates["expires_at"] = expiresAt
	}

	result := r.db.WithContext(ctx).
		Model(&database.Device{}).
		Where("id = ? AND refresh_token = ?", device.ID, device.RefreshToken).
		Updates(updates)
	if result.Error != nil {
		return auth.TokenPair{}, fmt.Errorf("failed to rotate device token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return auth.TokenPair{}, common.ErrDeviceMismatch
	}

	device.RefreshToken = pair.Refresh
	device.ExpiresAt = expiresAt

	return pair, nil
}

// Delete removes the exact session if present. Deleting nothing is not an
// error.
func (r *Registry) Delete(ctx context.Context, userID uuid.UUID, deviceID, refreshToken string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND device_id = ? AND refresh_token = ?", userID, deviceID, refreshToken).
		Delete(&database.Device{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete device: %w", result.Error)
	}
	return nil
}

// DeleteAllExcept removes every session of the user except keepDeviceID. An
// empty keepDeviceID removes them all.
func (r *Registry) DeleteAllExcept(ctx context.Context, userID uuid.UUID, keepDeviceID string) (int64, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if keepDeviceID != "" {
		query = query.Where("device_id <> ?", keepDeviceID)
	}

	result := query.Delete(&database.Device{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete devices: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Registry) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.DeleteAllExcept(ctx, userID, "")
}

func (r *Registry) ListForUser(ctx context.Context, userID uuid.UUID) ([]database.Device, error) {
	var devices []database.Device
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&devices)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list devices: %w", result.Error)
	}
	return devices, nil
}
