package mail

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposerLinks(t *testing.T) {
	c := Composer{From: "Todo <no-reply@example.com>", FrontendURL: "https://app.example.com/"}

	v := c.Verification("alice@example.com", "alice", "dWlk", "abc-123")
	assert.Equal(t, []string{"alice@example.com"}, v.To)
	assert.Equal(t, "https://app.example.com/verify-email/dWlk/abc-123/", v.TemplateVars["link"])
	assert.Contains(t, v.Body, "https://app.example.com/verify-email/dWlk/abc-123/")

	r := c.PasswordReset("alice@example.com", "alice", "dWlk", "abc-123")
	assert.Equal(t, "https://app.example.com/password-reset-confirm/dWlk/abc-123/", r.TemplateVars["link"])

	assert.Equal(t, "https://app.example.com/accept-invitation/042913/", c.InviteLink("042913"))

	i := c.Invitation("bob@example.com", "alice", "Family", "042913")
	assert.Equal(t, "alice invited you to Family", i.Subject)
	assert.Contains(t, i.Body, "042913")
}

func TestLogMailerOmitsBody(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	c := Composer{From: "test@example.com", FrontendURL: "https://app.example.com"}
	e := c.PasswordReset("x@example.com", "alice", "dWlk", "secret-token")
	require.Contains(t, e.Body, "secret-token")

	var m Mailer = LogMailer{}
	assert.NoError(t, m.SendMail(context.Background(), e))
	assert.Contains(t, buf.String(), "x@example.com")
	assert.NotContains(t, buf.String(), "secret-token")
}
