package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"todoapp/internal/common"
	"todoapp/internal/database"
	"todoapp/internal/middleware"
	"todoapp/internal/platform/todo"
)

type todoQuery struct {
	Priority int    `json:"priority" query:"priority" validate:"omitempty,min=1,max=3"`
	GroupID  uint   `json:"group_id" query:"group_id"`
	Ordering string `json:"ordering" query:"ordering"`
}

type todoInput struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description"`
	Priority    int     `json:"priority" validate:"omitempty,min=1,max=3"`
	Category    string  `json:"category" validate:"max=100"`
	DueDate     *string `json:"due_date"`
	IsCompleted bool    `json:"is_completed"`
	User        *string `json:"user" validate:"omitempty,uuid"`
	Group       *uint   `json:"group"`
}

func (in *todoInput) toInput() (todo.Input, error) {
	out := todo.Input{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Category:    in.Category,
		IsCompleted: in.IsCompleted,
		GroupID:     in.Group,
	}

	if in.DueDate != nil && *in.DueDate != "" {
		due, err := parseDate(*in.DueDate)
		if err != nil {
			return out, common.FieldError(nil, "due_date", "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
		}
		out.DueDate = &due
	}

	if in.User != nil {
		id := uuid.MustParse(*in.User)
		out.UserID = &id
	}

	return out, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func todoID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return 0, common.ErrNotFound
	}
	return uint(id), nil
}

func (h *Handler) listTodos(c *fiber.Ctx, list func(*fiber.Ctx, todo.Filter) ([]database.ToDo, error)) error {
	var query todoQuery
	if err := c.QueryParser(&query); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "Invalid query parameters."})
	}
	if err := validate(&query); err != nil {
		return h.fail(c, err)
	}

	todos, err := list(c, todo.Filter{
		Priority: query.Priority,
		GroupID:  query.GroupID,
		Ordering: query.Ordering,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(todos)
}

func (h *Handler) ListTodos(c *fiber.Ctx) error {
	return h.listTodos(c, func(c *fiber.Ctx, f todo.Filter) ([]database.ToDo, error) {
		return h.Todos.List(c.UserContext(), middleware.CurrentUser(c), f)
	})
}

func (h *Handler) ListPersonalTodos(c *fiber.Ctx) error {
	return h.listTodos(c, func(c *fiber.Ctx, f todo.Filter) ([]database.ToDo, error) {
		return h.Todos.ListPersonal(c.UserContext(), middleware.CurrentUser(c), f)
	})
}

func (h *Handler) ListGroupTodos(c *fiber.Ctx) error {
	return h.listTodos(c, func(c *fiber.Ctx, f todo.Filter) ([]database.ToDo, error) {
		return h.Todos.ListGroupTasks(c.UserContext(), middleware.CurrentUser(c), f)
	})
}

// CreateTodo answers with the created task, or with every copy when the task
// was assigned to a group.
func (h *Handler) CreateTodo(c *fiber.Ctx) error {
	var input todoInput
	if err := bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	in, err := input.toInput()
	if err != nil {
		return h.fail(c, err)
	}

	created, err := h.Todos.Create(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return h.fail(c, err)
	}

	if in.GroupID != nil {
		return c.Status(fiber.StatusCreated).JSON(created)
	}
	return c.Status(fiber.StatusCreated).JSON(created[0])
}

func (h *Handler) GetTodo(c *fiber.Ctx) error {
	id, err := todoID(c)
	if err != nil {
		return h.fail(c, err)
	}

	t, err := h.Todos.Get(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(t)
}

func (h *Handler) UpdateTodo(c *fiber.Ctx) error {
	id, err := todoID(c)
	if err != nil {
		return h.fail(c, err)
	}

	var input todoInput
	if err := bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	in, err := input.toInput()
	if err != nil {
		return h.fail(c, err)
	}

	t, err := h.Todos.Update(c.UserContext(), middleware.CurrentUser(c), id, in)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(t)
}

func (h *Handler) DeleteTodo(c *fiber.Ctx) error {
	id, err := todoID(c)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.Todos.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return h.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
