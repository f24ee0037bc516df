package account

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"todoapp/internal/auth"
	"todoapp/internal/common"
	"todoapp/internal/database"
)

type LoginInput struct {
	Username   string
	Password   string
	RememberMe bool
	DeviceID   string
	IP         string
}

type LoginResult struct {
	User   *database.User
	Tokens auth.TokenPair
	// GeneratedDeviceID is set when the server picked the device id.
	GeneratedDeviceID string
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	allowed, err := s.lockout.Reserve(ctx, in.Username, in.IP)
	if err != nil {
		return nil, err
	}
	if !allowed {
		log.Warnw("Login rejected, too many failed attempts", "username", in.Username, "ip", in.IP)
		return nil, common.ErrLockedOut
	}

	user, err := s.authenticate(ctx, in.Username, in.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			failures, _ := s.lockout.Failures(ctx, in.Username, in.IP)
			log.Infow("Login failed", "username", in.Username, "ip", in.IP, "failures", failures)
		}
		return nil, err
	}

	if err := s.lockout.Reset(ctx, in.Username, in.IP); err != nil {
		return nil, err
	}

	if user.IsSuperuser {
		log.Warnw("Superuser login attempt through the API", "user_id", user.ID, "ip", in.IP)
		return nil, common.ErrForbidden
	}

	result := &LoginResult{User: user}

	deviceID := in.DeviceID
	if in.RememberMe && deviceID == "" {
		deviceID = uuid.NewString()
		result.GeneratedDeviceID = deviceID
	}

	result.Tokens, err = s.issuer.Issue(user.ID, in.RememberMe)
	if err != nil {
		return nil, err
	}

	if deviceID != "" {
		_, err := s.devices.Upsert(ctx, user.ID, deviceID, result.Tokens.Refresh, in.RememberMe, s.devices.TTL(in.RememberMe))
		if err != nil {
			return nil, err
		}
	}

	if err := s.users.RecordLogin(ctx, user, s.now()); err != nil {
		return nil, err
	}

	log.Infow("Login succeeded", "user_id", user.ID, "ip", in.IP, "remember_me", in.RememberMe)

	return result, nil
}

// authenticate returns ErrInvalidCredentials for unknown users, inactive
// users and wrong passwords alike.
func (s *Service) authenticate(ctx context.Context, username, password string) (*database.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.hasher.VerifyDummy(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) || !user.IsActive {
		return nil, common.ErrInvalidCredentials
	}

	return user, nil
}

func (s *Service) Refresh(ctx context.Context, deviceID, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return auth.TokenPair{}, err
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return auth.TokenPair{}, common.ErrInvalidToken
		}
		return auth.TokenPair{}, err
	}

	device, err := s.devices.Find(ctx, user.ID, deviceID, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			log.Warnw("Refresh rejected, unknown device or token", "user_id", user.ID, "device_id", deviceID)
			return auth.TokenPair{}, common.ErrDeviceMismatch
		}
		return auth.TokenPair{}, err
	}

	if device.Expired(s.now()) {
		return auth.TokenPair{}, common.ErrSessionInactive
	}

	return s.devices.Rotate(ctx, device)
}

// Logout removes the session if the token still identifies one. It only
// fails when the store does.
func (s *Service) Logout(ctx context.Context, deviceID, refreshToken string) error {
	userID, err := s.issuer.RefreshSubject(refreshToken)
	if err != nil {
		return nil
	}
	return s.devices.Delete(ctx, userID, deviceID, refreshToken)
}
