package group

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todoapp/internal/common"
	"todoapp/internal/database"
	"todoapp/internal/platform/permission"
)

var ErrLastAdmin = fmt.Errorf("%w: a group must keep at least one admin", common.ErrConflict)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Roster loads a group with its member and admin ids.
func (s *Service) Roster(ctx context.Context, groupID uint) (*database.GroupRoster, error) {
	return roster(s.db.WithContext(ctx), groupID)
}

func roster(tx *gorm.DB, groupID uint) (*database.GroupRoster, error) {
	var r database.GroupRoster
	if err := tx.First(&r.Group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load group: %w", err)
	}

	r.Members = []uuid.UUID{}
	if err := tx.Model(&database.GroupMember{}).Where("group_id = ?", groupID).Order("created_at").Pluck("user_id", &r.Members).Error; err != nil {
		return nil, fmt.Errorf("failed to load group members: %w", err)
	}

	r.Admins = []uuid.UUID{}
	if err := tx.Model(&database.GroupAdmin{}).Where("group_id = ?", groupID).Order("created_at").Pluck("user_id", &r.Admins).Error; err != nil {
		return nil, fmt.Errorf("failed to load group admins: %w", err)
	}

	return &r, nil
}

func (s *Service) authorize(ctx context.Context, actor *database.User, groupID uint, action permission.Action) (*database.GroupRoster, error) {
	r, err := s.Roster(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := permission.Check(permission.GroupAdminOrMemberReadOnly, actor, r, action); err != nil {
		return nil, err
	}
	return r, nil
}

func nameTaken() error {
	return common.FieldError(common.ErrConflict, "name", "group with this name already exists.")
}

// Create makes a group whose first member and admin is actor.
func (s *Service) Create(ctx context.Context, actor *database.User, name string) (*database.GroupRoster, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&database.Group{}).Where("name = ?", name).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("failed to check group name: %w", err)
	}
	if n > 0 {
		return nil, nameTaken()
	}

	group := database.Group{Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		if err := tx.Create(&database.GroupMember{GroupID: group.ID, UserID: actor.ID}).Error; err != nil {
			return err
		}
		return tx.Create(&database.GroupAdmin{GroupID: group.ID, UserID: actor.ID}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nameTaken()
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	log.Infow("Group created", "group_id", group.ID, "user_id", actor.ID)

	return &database.GroupRoster{
		Group:   group,
		Members: []uuid.UUID{actor.ID},
		Admins:  []uuid.UUID{actor.ID},
	}, nil
}

// ListForUser returns the groups userID belongs to, ordered by id.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]database.GroupRoster, error) {
	db := s.db.WithContext(ctx)

	var groups []database.Group
	err := db.
		Where("id IN (?)", db.Model(&database.GroupMember{}).Select("group_id").Where("user_id = ?", userID)).
		Order("id").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	rosters := make([]database.GroupRoster, 0, len(groups))
	if len(groups) == 0 {
		return rosters, nil
	}

	ids := make([]uint, len(groups))
	index := make(map[uint]int, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
		index[g.ID] = i
		rosters = append(rosters, database.GroupRoster{Group: g, Members: []uuid.UUID{}, Admins: []uuid.UUID{}})
	}

	var members []database.GroupMember
	if err := db.Where("group_id IN ?", ids).Order("created_at").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	for _, m := range members {
		r := &rosters[index[m.GroupID]]
		r.Members = append(r.Members, m.UserID)
	}

	var admins []database.GroupAdmin
	if err := db.Where("group_id IN ?", ids).Order("created_at").Find(&admins).Error; err != nil {
		return nil, fmt.Errorf("failed to list group admins: %w", err)
	}
	for _, a := range admins {
		r := &rosters[index[a.GroupID]]
		r.Admins = append(r.Admins, a.UserID)
	}

	return rosters, nil
}

func (s *Service) Get(ctx context.Context, actor *database.User, groupID uint) (*database.GroupRoster, error) {
	return s.authorize(ctx, actor, groupID, permission.Read)
}

func (s *Service) Rename(ctx context.Context, actor *database.User, groupID uint, name string) (*database.GroupRoster, error) {
	r, err := s.authorize(ctx, actor, groupID, permission.Write)
	if err != nil {
		return nil, err
	}
	if r.Name == name {
		return r, nil
	}

	result := s.db.WithContext(ctx).Model(&database.Group{}).Where("id = ?", groupID).Update("name", name)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, nameTaken()
		}
		return nil, fmt.Errorf("failed to rename group: %w", result.Error)
	}

	r.Name = name
	return r, nil
}

// Delete removes the group together with its tasks, invitations and roster.
func (s *Service) Delete(ctx context.Context, actor *database.User, groupID uint) error {
	if _, err := s.authorize(ctx, actor, groupID, permission.Write); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&database.ToDo{}, &database.Invitation{}, &database.GroupAdmin{}, &database.GroupMember{}} {
			if err := tx.Where("group_id = ?", groupID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&database.Group{}, groupID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	log.Infow("Group deleted", "group_id", groupID, "user_id", actor.ID)

	return nil
}

func (s *Service) userExists(ctx context.Context, userID uuid.UUID) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&database.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// AddMember puts userID on the roster. Adding an existing member is a conflict.
func (s *Service) AddMember(ctx context.Context, actor *database.User, groupID uint, userID uuid.UUID) error {
	if _, err := s.authorize(ctx, actor, groupID, permission.Write); err != nil {
		return err
	}
	if err := s.userExists(ctx, userID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&database.GroupMember{GroupID: groupID, UserID: userID})
	if result.Error != nil {
		return fmt.Errorf("failed to add member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrConflict
	}

	return nil
}

// RemoveMember takes userID off the roster. Admins may remove anyone and
// members may remove themselves. Removing an admin also revokes the role, so
// the last admin cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, actor *database.User, groupID uint, userID uuid.UUID) error {
	action := permission.Write
	if actor != nil && actor.ID == userID {
		action = permission.Read
	}
	if _, err := s.authorize(ctx, actor, groupID, action); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := demote(tx, groupID, userID); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}

		result := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&database.GroupMember{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove member: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return common.ErrNotFound
		}
		return nil
	})
}

// PromoteAdmin grants userID the admin role, adding them as a member first
// when needed.
func (s *Service) PromoteAdmin(ctx context.Context, actor *database.User, groupID uint, userID uuid.UUID) error {
	if _, err := s.authorize(ctx, actor, groupID, permission.Write); err != nil {
		return err
	}
	if err := s.userExists(ctx, userID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&database.GroupMember{GroupID: groupID, UserID: userID}).Error
		if err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&database.GroupAdmin{GroupID: groupID, UserID: userID})
		if result.Error != nil {
			return fmt.Errorf("failed to promote admin: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return common.ErrConflict
		}
		return nil
	})
}

// DemoteAdmin revokes the admin role. The last admin cannot be demoted.
func (s *Service) DemoteAdmin(ctx context.Context, actor *database.User, groupID uint, userID uuid.UUID) error {
	if _, err := s.authorize(ctx, actor, groupID, permission.Write); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return demote(tx, groupID, userID)
	})
}

// demote must run inside a transaction. The group row is locked so that
// concurrent demotions cannot leave the group without an admin.
func demote(tx *gorm.DB, groupID uint, userID uuid.UUID) error {
	var group database.Group
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrNotFound
		}
		return fmt.Errorf("failed to lock group: %w", err)
	}

	var admins []uuid.UUID
	if err := tx.Model(&database.GroupAdmin{}).Where("group_id = ?", groupID).Pluck("user_id", &admins).Error; err != nil {
		return fmt.Errorf("failed to load group admins: %w", err)
	}

	if !slices.Contains(admins, userID) {
		return common.ErrNotFound
	}
	if len(admins) == 1 {
		return ErrLastAdmin
	}

	if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&database.GroupAdmin{}).Error; err != nil {
		return fmt.Errorf("failed to demote admin: %w", err)
	}

	return nil
}
