package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"todoapp/internal/common"
	"todoapp/internal/middleware"
	"todoapp/internal/platform/account"
)

func (h *Handler) SignUp(c *fiber.Ctx) error {
	type RegisterInput struct {
		Username string `json:"username" validate:"required,max=150"`
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required"`
	}

	var input RegisterInput
	if err := bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	user, err := h.Accounts.Register(c.UserContext(), account.RegisterInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *Handler) Login(c *fiber.Ctx) error {
	type LoginInput struct {
		Username   string `json:"username" validate:"required"`
		Password   string `json:"password" validate:"required"`
		RememberMe bool   `json:"remember_me"`
		DeviceID   string `json:"device_id" validate:"max=255"`
	}

	var input LoginInput
	if err := bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	result, err := h.Accounts.Login(c.UserContext(), account.LoginInput{
		Username:   input.Username,
		Password:   input.Password,
		RememberMe: input.RememberMe,
		DeviceID:   input.DeviceID,
		IP:         clientIP(c),
	})
	if err != nil {
		if errors.Is(err, common.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Superuser accounts cannot log in through the API.",
			})
		}
		return h.fail(c, err)
	}

	response := fiber.Map{
		"access":  result.Tokens.Access,
		"refresh": result.Tokens.Refresh,
	}
	if result.GeneratedDeviceID != "" {
		response["device_id"] = result.GeneratedDeviceID
	}

	return c.JSON(response)
}

type sessionInput struct {
	DeviceID     string `json:"device_id"`
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) RefreshToken(c *fiber.Ctx) error {
	var input sessionInput
	if err := c.BodyParser(&input); err != nil || input.DeviceID == "" || input.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Refresh token and device ID are required.",
		})
	}

	tokens, err := h.Accounts.Refresh(c.UserContext(), input.DeviceID, input.RefreshToken)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(tokens)
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	var input sessionInput
	_ = c.BodyParser(&input)

	if err := h.Accounts.Logout(c.UserContext(), input.DeviceID, input.RefreshToken); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"detail": "Successfully logged out."})
}

func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	type ChangePasswordInput struct {
		OldPassword     string `json:"old_password" validate:"required"`
		NewPassword1    string `json:"new_password1" validate:"required"`
		NewPassword2    string `json:"new_password2" validate:"required"`
		CurrentDeviceID string `json:"current_device_id"`
	}

	var input ChangePasswordInput
	if err := bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	err := h.Accounts.ChangePassword(c.UserContext(), middleware.CurrentUser(c), account.ChangePasswordInput{
		OldPassword:     input.OldPassword,
		NewPassword1:    input.NewPassword1,
		NewPassword2:    input.NewPassword2,
		CurrentDeviceID: input.CurrentDeviceID,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"detail": "New password has been saved."})
}

type emailInput struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) RequestPasswordReset(c *fiber.Ctx) error {
	var input emailInput
	if err := bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	if err := h.Accounts.RequestPasswordReset(c.UserContext(), input.Email); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "If an account with this email exists, a password reset link has been sent.",
	})
}

func invalidLink(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid or expired link.",
	})
}

func (h *Handler) CheckPasswordReset(c *fiber.Ctx) error {
	uid, token := c.Params("uid"), c.Params("token")

	if _, err := h.Accounts.CheckPasswordReset(c.UserContext(), uid, token); err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return invalidLink(c)
		}
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Token is valid.",
		"uid":     uid,
		"token":   token,
	})
}

func (h *Handler) ConfirmPasswordReset(c *fiber.Ctx) error {
	type ResetInput struct {
		NewPassword   string `json:"new_password" validate:"required"`
		ReNewPassword string `json:"re_new_password" validate:"required"`
	}

	var input ResetInput
	if err := bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	err := h.Accounts.ConfirmPasswordReset(c.UserContext(), c.Params("uid"), c.Params("token"),
		input.NewPassword, input.ReNewPassword)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return invalidLink(c)
		}
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password has been reset."})
}

func (h *Handler) VerifyEmail(c *fiber.Ctx) error {
	if _, err := h.Accounts.VerifyEmail(c.UserContext(), c.Params("uid"), c.Params("token")); err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return invalidLink(c)
		}
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"message": "Email verified successfully."})
}

func (h *Handler) ResendVerification(c *fiber.Ctx) error {
	var input emailInput
	if err := bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	if err := h.Accounts.ResendVerification(c.UserContext(), input.Email); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "If the account exists and is not verified yet, a new verification link has been sent.",
	})
}
