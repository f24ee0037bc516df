package handlers

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"todoapp/internal/common"
	"todoapp/internal/config"
	"todoapp/internal/middleware"
	"todoapp/internal/platform/account"
	"todoapp/internal/platform/group"
	"todoapp/internal/platform/invitation"
	"todoapp/internal/platform/todo"
)

var errMalformedBody = errors.New("malformed request body")

type Handler struct {
	Accounts    *account.Service
	Groups      *group.Service
	Invitations *invitation.Service
	Todos       *todo.Service

	LockoutCooldown time.Duration
}

// Mount registers every API route on router.
func (h *Handler) Mount(router fiber.Router) {
	requireAuth := middleware.Auth(h.Accounts.Issuer(), h.Accounts.Users())

	router.Get("/diag/ip", h.GetClientIP)

	router.Post("/register", h.SignUp)
	router.Post("/login", h.Login)

	token := router.Group("/token")
	token.Post("/refresh", h.RefreshToken)
	token.Post("/logout", h.Logout)

	router.Post("/password/change", requireAuth, h.ChangePassword)
	router.Post("/password-reset", h.RequestPasswordReset)
	router.Get("/password-reset-confirm/:uid/:token", h.CheckPasswordReset)
	router.Post("/password-reset-confirm/:uid/:token", h.ConfirmPasswordReset)

	router.Post("/verify-email/resend", h.ResendVerification)
	router.Get("/verify-email/:uid/:token", h.VerifyEmail)

	user := router.Group("/user", requireAuth)
	user.Get("/me", h.GetCurrentUser)
	user.Get("/devices", h.ListDevices)

	invitations := router.Group("/invitations", requireAuth)
	invitations.Post("/create", h.CreateInvitation)
	invitations.Post("/:token/accept", h.AcceptInvitation)

	groups := router.Group("/groups", requireAuth)
	groups.Get("/", h.ListGroups)
	groups.Post("/create", h.CreateGroup)
	groups.Get("/:id", h.GetGroup)
	groups.Put("/:id", h.RenameGroup)
	groups.Delete("/:id", h.DeleteGroup)
	groups.Post("/:id/members", h.AddGroupMember)
	groups.Delete("/:id/members/:user_id", h.RemoveGroupMember)
	groups.Post("/:id/admins", h.PromoteGroupAdmin)
	groups.Delete("/:id/admins/:user_id", h.DemoteGroupAdmin)

	todos := router.Group("/todos", requireAuth)
	todos.Get("/user", h.ListPersonalTodos)
	todos.Get("/groups", h.ListGroupTodos)
	todos.Get("/", h.ListTodos)
	todos.Post("/", h.CreateTodo)
	todos.Get("/:id", h.GetTodo)
	todos.Put("/:id", h.UpdateTodo)
	todos.Delete("/:id", h.DeleteTodo)
}

// bind parses the request body into input and validates it.
func bind(c *fiber.Ctx, input any) error {
	if err := c.BodyParser(input); err != nil {
		return errMalformedBody
	}
	return validate(input)
}

func validate(input any) error {
	err := config.Validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := common.NewValidationError(nil)
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fieldMessage(fe))
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return "Ensure this field has no more than " + fe.Param() + " characters."
	case "min", "gte":
		return "Ensure this value is greater than or equal to " + fe.Param() + "."
	case "oneof":
		return "Select a valid choice."
	default:
		return "Enter a valid value."
	}
}

// clientIP is the address login attempts are counted against. Forwarded
// headers only count when the app was configured to trust the peer.
func clientIP(c *fiber.Ctx) string {
	return c.IP()
}
