package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"todoapp/internal/common"
	"todoapp/internal/middleware"
	"todoapp/internal/platform/invitation"
)

func (h *Handler) CreateInvitation(c *fiber.Ctx) error {
	type InvitationInput struct {
		GroupID        uint    `json:"group_id" validate:"required"`
		ExpirationDays *int    `json:"expiration_days" validate:"omitempty,gte=1"`
		MaxUses        *int    `json:"max_uses" validate:"omitempty,gte=1"`
		Email          *string `json:"email" validate:"omitempty,email"`
	}

	var input InvitationInput
	if err := bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	in := invitation.CreateInput{
		GroupID:        input.GroupID,
		ExpirationDays: invitation.DefaultExpirationDays,
		MaxUses:        invitation.DefaultMaxUses,
	}
	if input.ExpirationDays != nil {
		in.ExpirationDays = *input.ExpirationDays
	}
	if input.MaxUses != nil {
		in.MaxUses = *input.MaxUses
	}
	if input.Email != nil {
		in.Email = *input.Email
	}

	created, err := h.Invitations.Create(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Group not found"})
		}
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":         "Invitation created successfully",
		"invite_link":     created.InviteLink,
		"token":           created.Invitation.Token,
		"expiration_date": created.Invitation.ExpirationDate,
		"max_uses":        created.Invitation.MaxUses,
	})
}

func (h *Handler) AcceptInvitation(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	result, err := h.Invitations.Accept(c.UserContext(), user, c.Params("token"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Invitation not found"})
		}
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"message": result.Message(user.Username)})
}
