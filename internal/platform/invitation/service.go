package invitation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todoapp/internal/common"
	"todoapp/internal/database"
	"todoapp/internal/mail"
	"todoapp/internal/platform/group"
	"todoapp/internal/platform/permission"
	"todoapp/pkg/utils"
)

const (
	TokenLength           = 6
	DefaultExpirationDays = 7
	DefaultMaxUses        = 1

	tokenAttempts = 10
)

var errTokenSpace = errors.New("could not allocate a unique invitation token")

type CreateInput struct {
	GroupID        uint
	ExpirationDays int
	MaxUses        int
	Email          string
}

type Created struct {
	Invitation *database.Invitation
	InviteLink string
}

type AcceptResult struct {
	Group         database.Group
	AlreadyMember bool
}

func (r *AcceptResult) Message(username string) string {
	return "Invitation accepted successfully. User: " + username + " added to group: " + r.Group.Name
}

type Service struct {
	db       *gorm.DB
	groups   *group.Service
	mailer   mail.Mailer
	composer mail.Composer
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(db *gorm.DB, groups *group.Service, mailer mail.Mailer, composer mail.Composer, opts ...Option) *Service {
	s := &Service{
		db:       db,
		groups:   groups,
		mailer:   mailer,
		composer: composer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create issues an invitation code for a group actor administers. When an
// email address is given the code is mailed to it as well.
func (s *Service) Create(ctx context.Context, actor *database.User, in CreateInput) (*Created, error) {
	verr := common.NewValidationError(nil)
	if in.ExpirationDays < 1 {
		verr.Add("expiration_days", "Ensure this value is greater than or equal to 1.")
	}
	if in.MaxUses < 1 {
		verr.Add("max_uses", "Ensure this value is greater than or equal to 1.")
	}
	if !verr.Empty() {
		return nil, verr
	}

	roster, err := s.groups.Roster(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	if err := permission.Check(permission.IsGroupAdmin, actor, roster, permission.Write); err != nil {
		return nil, err
	}

	inv := &database.Invitation{
		GroupID:        roster.ID,
		InviterID:      actor.ID,
		ExpirationDate: s.now().Add(time.Duration(in.ExpirationDays) * 24 * time.Hour),
		MaxUses:        in.MaxUses,
	}
	if in.Email != "" {
		email := utils.NormalizeEmail(in.Email)
		inv.Email = &email
	}

	if err := s.insert(ctx, inv); err != nil {
		return nil, err
	}

	log.Infow("Invitation created", "group_id", roster.ID, "user_id", actor.ID, "max_uses", inv.MaxUses)

	if inv.Email != nil {
		message := s.composer.Invitation(*inv.Email, actor.Username, roster.Name, inv.Token)
		if err := s.mailer.SendMail(ctx, message); err != nil {
			log.Errorw("Failed to send invitation mail", "group_id", roster.ID, "error", err)
		}
	}

	return &Created{Invitation: inv, InviteLink: s.composer.InviteLink(inv.Token)}, nil
}

func (s *Service) insert(ctx context.Context, inv *database.Invitation) error {
	for range tokenAttempts {
		inv.ID = 0
		inv.Token = utils.GenerateNumericCode(TokenLength)

		err := s.db.WithContext(ctx).Create(inv).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to create invitation: %w", err)
		}
	}
	return errTokenSpace
}

func (s *Service) Get(ctx context.Context, token string) (*database.Invitation, error) {
	if len(token) != TokenLength || !utils.IsNumeric(token) {
		return nil, common.ErrNotFound
	}

	var inv database.Invitation
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}
	return &inv, nil
}

// Accept adds user to the invitation's group and counts one use. Accepting
// an invitation to a group the user already belongs to succeeds without
// spending a use. The use counter is bumped with a conditional update, so
// concurrent accepts never exceed MaxUses.
func (s *Service) Accept(ctx context.Context, user *database.User, token string) (*AcceptResult, error) {
	inv, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	if inv.Expired(s.now()) {
		return nil, common.ErrInvitationExpired
	}
	if inv.UsedUp() {
		return nil, common.ErrInvitationUsed
	}

	result := &AcceptResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&result.Group, inv.GroupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrNotFound
			}
			return err
		}

		joined, err := join(tx, inv.GroupID, user.ID)
		if err != nil {
			return err
		}
		if !joined {
			result.AlreadyMember = true
			return nil
		}

		spent := tx.Model(&database.Invitation{}).
			Where("id = ? AND uses < max_uses", inv.ID).
			Update("uses", gorm.Expr("uses + 1"))
		if spent.Error != nil {
			return spent.Error
		}
		if spent.RowsAffected == 0 {
			return common.ErrInvitationUsed
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrInvitationUsed) || errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	log.Infow("Invitation accepted", "group_id", inv.GroupID, "user_id", user.ID, "already_member", result.AlreadyMember)

	return result, nil
}

func join(tx *gorm.DB, groupID uint, userID uuid.UUID) (bool, error) {
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&database.GroupMember{GroupID: groupID, UserID: userID})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
