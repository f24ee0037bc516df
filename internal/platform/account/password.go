package account

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"

	"todoapp/internal/auth"
	"todoapp/internal/common"
	"todoapp/internal/database"
)

type ChangePasswordInput struct {
	OldPassword     string
	NewPassword1    string
	NewPassword2    string
	CurrentDeviceID string
}

// ChangePassword replaces the password of an authenticated user and drops
// every session except CurrentDeviceID.
func (s *Service) ChangePassword(ctx context.Context, user *database.User, in ChangePasswordInput) error {
	if !s.hasher.Verify(in.OldPassword, user.PasswordHash) {
		return common.FieldError(common.ErrInvalidOldPassword, "old_password",
			"Your old password was entered incorrectly. Please enter it again.")
	}

	if in.NewPassword1 != in.NewPassword2 {
		return common.FieldError(common.ErrPasswordMismatch, "new_password2",
			"The two password fields didn't match.")
	}

	if s.hasher.Verify(in.NewPassword1, user.PasswordHash) {
		return common.FieldError(common.ErrSamePassword, "new_password1",
			"The new password must be different from the old password.")
	}

	if err := s.policy.Validate("new_password1", in.NewPassword1, user); err != nil {
		return err
	}

	if err := s.setPassword(ctx, user, in.NewPassword1); err != nil {
		return err
	}

	removed, err := s.devices.DeleteAllExcept(ctx, user.ID, in.CurrentDeviceID)
	if err != nil {
		return err
	}

	log.Infow("Password changed", "user_id", user.ID, "sessions_revoked", removed)

	return nil
}

func (s *Service) setPassword(ctx context.Context, user *database.User, plain string) error {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, user, hash)
}

// RequestPasswordReset mails a reset link to active, verified accounts. The
// outcome is the same whether or not such an account exists.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}

	if !user.IsActive || !user.IsVerified {
		return nil
	}

	token := s.tokens.Make(auth.PurposePasswordReset, user)
	message := s.composer.PasswordReset(user.Email, user.Username, auth.EncodeUID(user.ID), token)
	if err := s.mailer.SendMail(ctx, message); err != nil {
		log.Errorw("Failed to send password reset mail", "user_id", user.ID, "error", err)
		return nil
	}

	log.Infow("Password reset requested", "user_id", user.ID)

	return nil
}

// CheckPasswordReset resolves a reset link to its user.
func (s *Service) CheckPasswordReset(ctx context.Context, uid, token string) (*database.User, error) {
	return s.resolveLink(ctx, auth.PurposePasswordReset, uid, token)
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, uid, token, newPassword, reNewPassword string) error {
	user, err := s.CheckPasswordReset(ctx, uid, token)
	if err != nil {
		return err
	}

	if newPassword != reNewPassword {
		return common.FieldError(common.ErrPasswordMismatch, "re_new_password",
			"The two password fields didn't match.")
	}

	if err := s.policy.Validate("new_password", newPassword, user); err != nil {
		return err
	}

	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}

	removed, err := s.devices.DeleteAll(ctx, user.ID)
	if err != nil {
		return err
	}

	log.Infow("Password reset", "user_id", user.ID, "sessions_revoked", removed)

	return nil
}

func (s *Service) resolveLink(ctx context.Context, purpose auth.Purpose, uid, token string) (*database.User, error) {
	userID, err := auth.DecodeUID(uid)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}

	if !s.tokens.Check(purpose, user, token) {
		return nil, common.ErrInvalidToken
	}

	return user, nil
}
