package account

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"

	"todoapp/internal/auth"
	"todoapp/internal/common"
	"todoapp/internal/database"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates an unverified account and mails its verification link.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*database.User, error) {
	candidate := &database.User{Username: in.Username, Email: in.Email}
	if err := s.policy.Validate("password", in.Password, candidate); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, in.Username, in.Email, hash)
	if err != nil {
		return nil, err
	}

	log.Infow("User registered", "user_id", user.ID)

	s.sendVerification(ctx, user)

	return user, nil
}

func (s *Service) sendVerification(ctx context.Context, user *database.User) {
	token := s.tokens.Make(auth.PurposeEmailVerification, user)
	message := s.composer.Verification(user.Email, user.Username, auth.EncodeUID(user.ID), token)
	if err := s.mailer.SendMail(ctx, message); err != nil {
		log.Errorw("Failed to send verification mail", "user_id", user.ID, "error", err)
	}
}

// VerifyEmail redeems a verification link. A link works once.
func (s *Service) VerifyEmail(ctx context.Context, uid, token string) (*database.User, error) {
	user, err := s.resolveLink(ctx, auth.PurposeEmailVerification, uid, token)
	if err != nil {
		return nil, err
	}

	changed, err := s.users.MarkVerified(ctx, user)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, common.ErrInvalidToken
	}

	log.Infow("Email verified", "user_id", user.ID)

	return user, nil
}

// ResendVerification mails a fresh link to an unverified account. Like the
// reset request it never reveals whether the address is known.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}

	if user.IsActive && !user.IsVerified {
		s.sendVerification(ctx, user)
	}

	return nil
}
