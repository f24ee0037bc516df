package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"todoapp/internal/auth"
	"todoapp/internal/common"
	"todoapp/internal/database"
	"todoapp/internal/platform/user"
)

const LocalUser = "user"

func unauthorized(c *fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"detail": detail,
	})
}

// Auth accepts requests carrying a valid access token and stores the
// account it belongs to under LocalUser.
func Auth(issuer *auth.Issuer, users *user.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authentication credentials were not provided.")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Authentication credentials were not provided.")
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := issuer.VerifyAccess(token)
		if err != nil {
			return unauthorized(c, "Given token not valid for any token type")
		}

		u, err := users.GetUserByID(c.UserContext(), claims.UserID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return unauthorized(c, "User not found")
			}
			log.Errorw("Failed to load token user", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Internal server error",
			})
		}

		if !u.IsActive {
			return unauthorized(c, "User is inactive")
		}

		c.Locals(LocalUser, u)

		return c.Next()
	}
}

// CurrentUser returns the account stored by Auth.
func CurrentUser(c *fiber.Ctx) *database.User {
	u, _ := c.Locals(LocalUser).(*database.User)
	return u
}
