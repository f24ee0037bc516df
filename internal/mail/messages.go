package mail

import (
	"fmt"
	"strings"
)

// Composer builds the transactional messages the application sends.
type Composer struct {
	From        string
	FrontendURL string

	// UseTemplates sends through the named Mailgun templates instead of the
	// plain text bodies.
	UseTemplates bool
}

func (c Composer) template(e *Email, name string) *Email {
	if c.UseTemplates {
		e.Template = name
	}
	return e
}

func (c Composer) link(parts ...string) string {
	return strings.TrimRight(c.FrontendURL, "/") + "/" + strings.Join(parts, "/") + "/"
}

func (c Composer) Verification(to, username, uid, token string) *Email {
	link := c.link("verify-email", uid, token)
	return c.template(&Email{
		From:    c.From,
		To:      []string{to},
		Subject: "Confirm your email address",
		Body: fmt.Sprintf("Hi %s,\n\nPlease confirm your email address by opening the link below:\n\n%s\n",
			username, link),
		TemplateVars: map[string]any{"username": username, "link": link},
	}, "verify-email")
}

func (c Composer) PasswordReset(to, username, uid, token string) *Email {
	link := c.link("password-reset-confirm", uid, token)
	return c.template(&Email{
		From:    c.From,
		To:      []string{to},
		Subject: "Reset your password",
		Body: fmt.Sprintf("Hi %s,\n\nYou requested a password reset. Open the link below to choose a new password:\n\n%s\n\nIf you did not request this, you can ignore this email.\n",
			username, link),
		TemplateVars: map[string]any{"username": username, "link": link},
	}, "password-reset")
}

// InviteLink is the frontend URL a group invitation is accepted at.
func (c Composer) InviteLink(token string) string {
	return c.link("accept-invitation", token)
}

func (c Composer) Invitation(to, inviter, group, token string) *Email {
	link := c.InviteLink(token)
	return c.template(&Email{
		From:    c.From,
		To:      []string{to},
		Subject: fmt.Sprintf("%s invited you to %s", inviter, group),
		Body: fmt.Sprintf("%s invited you to join the group %q.\n\nYour invitation code is %s, or open:\n\n%s\n",
			inviter, group, token, link),
		TemplateVars: map[string]any{"inviter": inviter, "group": group, "token": token, "link": link},
	}, "group-invitation")
}
