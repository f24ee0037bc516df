package handlers

import (
	"github.com/gofiber/fiber/v2"

	"todoapp/internal/middleware"
)

func (h *Handler) GetCurrentUser(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentUser(c))
}

// ListDevices returns the sessions of the current user.
func (h *Handler) ListDevices(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	devices, err := h.Accounts.Devices().ListForUser(c.UserContext(), user.ID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(devices)
}
