package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"todoapp/internal/common"
	"todoapp/internal/middleware"
)

type groupInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

type memberInput struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

func groupID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return 0, common.ErrNotFound
	}
	return uint(id), nil
}

func userIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return uuid.Nil, common.ErrNotFound
	}
	return id, nil
}

func (h *Handler) ListGroups(c *fiber.Ctx) error {
	groups, err := h.Groups.ListForUser(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(groups)
}

func (h *Handler) CreateGroup(c *fiber.Ctx) error {
	var input groupInput
	if err := bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	group, err := h.Groups.Create(c.UserContext(), middleware.CurrentUser(c), input.Name)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(group)
}

func (h *Handler) GetGroup(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return h.fail(c, err)
	}

	group, err := h.Groups.Get(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(group)
}

func (h *Handler) RenameGroup(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return h.fail(c, err)
	}

	var input groupInput
	if err := bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	group, err := h.Groups.Rename(c.UserContext(), middleware.CurrentUser(c), id, input.Name)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(group)
}

func (h *Handler) DeleteGroup(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.Groups.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return h.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) rosterResponse(c *fiber.Ctx, id uint, status int) error {
	group, err := h.Groups.Roster(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(status).JSON(group)
}

func (h *Handler) AddGroupMember(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return h.fail(c, err)
	}

	var input memberInput
	if err := bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	if err := h.Groups.AddMember(c.UserContext(), middleware.CurrentUser(c), id, uuid.MustParse(input.UserID)); err != nil {
		return h.fail(c, err)
	}

	return h.rosterResponse(c, id, fiber.StatusCreated)
}

func (h *Handler) RemoveGroupMember(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return h.fail(c, err)
	}
	userID, err := userIDParam(c)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.Groups.RemoveMember(c.UserContext(), middleware.CurrentUser(c), id, userID); err != nil {
		return h.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) PromoteGroupAdmin(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return h.fail(c, err)
	}

	var input memberInput
	if err := bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	if err := h.Groups.PromoteAdmin(c.UserContext(), middleware.CurrentUser(c), id, uuid.MustParse(input.UserID)); err != nil {
		return h.fail(c, err)
	}

	return h.rosterResponse(c, id, fiber.StatusCreated)
}

func (h *Handler) DemoteGroupAdmin(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return h.fail(c, err)
	}
	userID, err := userIDParam(c)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.Groups.DemoteAdmin(c.UserContext(), middleware.CurrentUser(c), id, userID); err != nil {
		return h.fail(c, err)
	}

	return h.rosterResponse(c, id, fiber.StatusOK)
}
