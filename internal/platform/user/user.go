package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"todoapp/internal/common"
	"todoapp/internal/database"
	"todoapp/pkg/utils"
)

type UserService struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) first(ctx context.Context, query string, arg any) (*database.User, error) {
	var user database.User
	result := s.db.WithContext(ctx).First(&user, query, arg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", result.Error)
	}
	return &user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*database.User, error) {
	return s.first(ctx, "id = ?", userID)
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*database.User, error) {
	return s.first(ctx, "username = ?", username)
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	return s.first(ctx, "email = ?", utils.NormalizeEmail(email))
}

// Create stores a new active, unverified account. A taken username or email
// yields a validation error naming the field.
func (s *UserService) Create(ctx context.Context, username, email, passwordHash string) (*database.User, error) {
	email = utils.NormalizeEmail(email)

	verr, err := s.taken(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if !verr.Empty() {
		return nil, verr
	}

	user := database.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		// Lost a race with a concurrent registration.
		verr, terr := s.taken(ctx, username, email)
		if terr != nil {
			return nil, terr
		}
		if verr.Empty() {
			return nil, fmt.Errorf("%w: %v", common.ErrConflict, err)
		}
		return nil, verr
	}

	return &user, nil
}

func (s *UserService) taken(ctx context.Context, username, email string) (*common.ValidationError, error) {
	verr := common.NewValidationError(common.ErrConflict)
	for _, field := range []struct{ name, value string }{{"username", username}, {"email", email}} {
		var n int64
		if err := s.db.WithContext(ctx).Model(&database.User{}).Where(field.name+" = ?", field.value).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to check %s: %w", field.name, err)
		}
		if n > 0 {
			verr.Add(field.name, fmt.Sprintf("A user with that %s already exists.", field.name))
		}
	}
	return verr, nil
}

func (s *UserService) SetPassword(ctx context.Context, user *database.User, passwordHash string) error {
	result := s.db.WithContext(ctx).Model(user).Update("password_hash", passwordHash)
	if result.Error != nil {
		return fmt.Errorf("failed to set password: %w", result.Error)
	}
	user.PasswordHash = passwordHash
	return nil
}

// MarkVerified flips is_verified once. It reports false when the account was
// already verified.
func (s *UserService) MarkVerified(ctx context.Context, user *database.User) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&database.User{}).
		Where("id = ? AND is_verified = ?", user.ID, false).
		Update("is_verified", true)
	if result.Error != nil {
		return false, fmt.Errorf("failed to verify user: %w", result.Error)
	}
	user.IsVerified = true
	return result.RowsAffected == 1, nil
}

func (s *UserService) RecordLogin(ctx context.Context, user *database.User, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&database.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"last_login":  at,
			"login_count": gorm.Expr("login_count + 1"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to record login: %w", result.Error)
	}
	user.LastLogin = &at
	user.LoginCount++
	return nil
}
