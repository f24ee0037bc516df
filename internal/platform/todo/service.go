package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"todoapp/internal/common"
	"todoapp/internal/database"
	"todoapp/internal/platform/group"
	"todoapp/internal/platform/permission"
)

// orderings maps the accepted ordering parameter values to SQL.
var orderings = map[string]string{
	"priority":      "priority ASC",
	"-priority":     "priority DESC",
	"due_date":      "due_date ASC",
	"-due_date":     "due_date DESC",
	"created_at":    "created_at ASC",
	"-created_at":   "created_at DESC",
	"title":         "title ASC",
	"-title":        "title DESC",
	"is_completed":  "is_completed ASC",
	"-is_completed": "is_completed DESC",
}

type Filter struct {
	Priority int
	GroupID  uint
	Ordering string
}

type Input struct {
	Title       string
	Description string
	Priority    int
	Category    string
	DueDate     *time.Time
	IsCompleted bool

	// Assignment, only honored on create.
	UserID  *uuid.UUID
	GroupID *uint
}

type Service struct {
	db     *gorm.DB
	groups *group.Service
}

func NewService(db *gorm.DB, groups *group.Service) *Service {
	return &Service{db: db, groups: groups}
}

func (s *Service) filtered(ctx context.Context, f Filter) (*gorm.DB, error) {
	q := s.db.WithContext(ctx).Model(&database.ToDo{})

	if f.Priority != 0 {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.GroupID != 0 {
		q = q.Where("group_id = ?", f.GroupID)
	}

	order := "id ASC"
	if f.Ordering != "" {
		o, ok := orderings[f.Ordering]
		if !ok {
			return nil, common.FieldError(nil, "ordering", fmt.Sprintf("Invalid ordering %q.", f.Ordering))
		}
		order = o + ", id ASC"
	}

	return q.Order(order), nil
}

// List returns every task assigned to user.
func (s *Service) List(ctx context.Context, user *database.User, f Filter) ([]database.ToDo, error) {
	return s.list(ctx, f, "user_id = ?", user.ID)
}

// ListPersonal returns the tasks assigned to user outside any group.
func (s *Service) ListPersonal(ctx context.Context, user *database.User, f Filter) ([]database.ToDo, error) {
	f.GroupID = 0
	return s.list(ctx, f, "user_id = ? AND group_id IS NULL", user.ID)
}

// ListGroupTasks returns the tasks assigned to user through a group.
func (s *Service) ListGroupTasks(ctx context.Context, user *database.User, f Filter) ([]database.ToDo, error) {
	return s.list(ctx, f, "user_id = ? AND group_id IS NOT NULL", user.ID)
}

func (s *Service) list(ctx context.Context, f Filter, query string, args ...any) ([]database.ToDo, error) {
	q, err := s.filtered(ctx, f)
	if err != nil {
		return nil, err
	}

	todos := []database.ToDo{}
	if err := q.Where(query, args...).Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return todos, nil
}

func validate(in *Input) error {
	verr := common.NewValidationError(nil)
	if strings.TrimSpace(in.Title) == "" {
		verr.Add("title", "This field may not be blank.")
	}
	if in.Priority == 0 {
		in.Priority = database.PriorityMedium
	}
	if in.Priority < database.PriorityLow || in.Priority > database.PriorityHigh {
		verr.Add("priority", fmt.Sprintf("\"%d\" is not a valid choice.", in.Priority))
	}
	if !verr.Empty() {
		return verr
	}
	return nil
}

func (in *Input) apply(t *database.ToDo) {
	t.Title = in.Title
	t.Description = in.Description
	t.Priority = in.Priority
	t.Category = in.Category
	t.DueDate = in.DueDate
	t.IsCompleted = in.IsCompleted
}

// Create stores a task. A group admin assigning a task to a group gets one
// copy per member. Assigning to another user requires administering a group
// that user belongs to. Everybody else creates tasks for themselves only.
func (s *Service) Create(ctx context.Context, actor *database.User, in Input) ([]database.ToDo, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}

	if in.GroupID != nil {
		return s.createForGroup(ctx, actor, *in.GroupID, in)
	}

	owner := actor.ID
	if in.UserID != nil && *in.UserID != actor.ID {
		if err := s.canAssign(ctx, actor, *in.UserID); err != nil {
			return nil, err
		}
		owner = *in.UserID
	}

	t := database.ToDo{UserID: &owner}
	in.apply(&t)
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return []database.ToDo{t}, nil
}

func (s *Service) createForGroup(ctx context.Context, actor *database.User, groupID uint, in Input) ([]database.ToDo, error) {
	roster, err := s.groups.Roster(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := permission.Check(permission.IsGroupAdmin, actor, roster, permission.Write); err != nil {
		return nil, err
	}

	todos := make([]database.ToDo, len(roster.Members))
	for i := range roster.Members {
		todos[i] = database.ToDo{UserID: &roster.Members[i], GroupID: &roster.ID}
		in.apply(&todos[i])
	}
	if len(todos) == 0 {
		return todos, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&todos).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create group tasks: %w", err)
	}

	log.Infow("Group task created", "group_id", groupID, "user_id", actor.ID, "copies", len(todos))

	return todos, nil
}

func (s *Service) canAssign(ctx context.Context, actor *database.User, target uuid.UUID) error {
	db := s.db.WithContext(ctx)

	var n int64
	err := db.
		Model(&database.GroupMember{}).
		Where("user_id = ?", target).
		Where("group_id IN (?)", db.Model(&database.GroupAdmin{}).Select("group_id").Where("user_id = ?", actor.ID)).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("failed to check assignment: %w", err)
	}
	if n == 0 {
		return common.ErrForbidden
	}
	return nil
}

// Get returns one of user's tasks. Tasks of other users are reported as not
// found.
func (s *Service) Get(ctx context.Context, user *database.User, id uint) (*database.ToDo, error) {
	var t database.ToDo
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, user.ID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return &t, nil
}

// Update replaces the editable fields of one of user's tasks.
func (s *Service) Update(ctx context.Context, user *database.User, id uint, in Input) (*database.ToDo, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}

	t, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	in.apply(t)

	err = s.db.WithContext(ctx).
		Model(t).
		Select("title", "description", "priority", "category", "due_date", "is_completed").
		Updates(t).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return t, nil
}

func (s *Service) Delete(ctx context.Context, user *database.User, id uint) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, user.ID).Delete(&database.ToDo{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}
