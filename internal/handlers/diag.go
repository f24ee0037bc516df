package handlers

import "github.com/gofiber/fiber/v2"

// GetClientIP reports the address login attempts are counted against.
func (h *Handler) GetClientIP(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ip": clientIP(c)})
}
