package handlers

import (
	"errors"
	"fmt"
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"todoapp/internal/common"
	"todoapp/internal/platform/group"
)

const permissionDenied = "You do not have permission to perform this action."

// fail translates a service error into the JSON error response for it.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var verr *common.ValidationError

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(verr.Fields)

	case errors.Is(err, errMalformedBody):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "Malformed request body."})

	case errors.Is(err, common.ErrInvalidCredentials):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid Credentials"})

	case errors.Is(err, common.ErrLockedOut):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"detail": h.lockoutMessage()})

	case errors.Is(err, common.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"detail": permissionDenied})

	case errors.Is(err, common.ErrDeviceMismatch):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Invalid refresh token or device association."})

	case errors.Is(err, common.ErrSessionInactive):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Session is not active."})

	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Token is invalid or expired"})

	case errors.Is(err, common.ErrInvitationExpired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invitation has expired"})

	case errors.Is(err, common.ErrInvitationUsed):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invitation has already been used the maximum number of times"})

	case errors.Is(err, common.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Not found."})

	case errors.Is(err, group.ErrLastAdmin):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"detail": "A group must keep at least one admin."})

	case errors.Is(err, common.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"detail": "Already exists."})
	}

	log.Errorw("Request failed", "path", c.Path(), "error", err)

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
	})
}

func (h *Handler) lockoutMessage() string {
	minutes := int(math.Ceil(h.LockoutCooldown.Minutes()))
	return fmt.Sprintf("Too many failed login attempts. Please try again in %d minutes.", minutes)
}

// ErrorHandler is the fiber fallback for errors no handler translated.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	if code == fiber.StatusInternalServerError {
		log.Errorw("Unhandled error", "path", c.Path(), "error", err)
		return c.Status(code).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.Status(code).JSON(fiber.Map{"detail": e.Message})
}
