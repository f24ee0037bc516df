package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/mailgun/mailgun-go/v4"
)

type Email struct {
	Subject      string
	Body         string
	From         string
	To           []string
	Template     string
	TemplateVars map[string]any
}

type Mailer interface {
	SendMail(ctx context.Context, e *Email) error
}

type Mailgun struct {
	mg *mailgun.MailgunImpl
}

func NewMailer(domain, apiKey, apiBase string) *Mailgun {
	mg := mailgun.NewMailgun(domain, apiKey)
	if apiBase != "" {
		mg.SetAPIBase(apiBase)
	}
	return &Mailgun{mg: mg}
}

// SendMail sends e as plain text, or through its Mailgun template when one
// is set.
func (m *Mailgun) SendMail(ctx context.Context, e *Email) error {
	message := mailgun.NewMessage(e.From, e.Subject, e.Body, e.To...)
	if e.Template != "" {
		message.SetTemplate(e.Template)
		for k, v := range e.TemplateVars {
			if err := message.AddTemplateVariable(k, v); err != nil {
				return fmt.Errorf("failed to add template variable %s: %w", k, err)
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	_, id, err := m.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	log.Debugw("Mail sent", "id", id, "subject", e.Subject)

	return nil
}

// LogMailer records that mail was dropped instead of delivering it. Bodies
// carry reset and verification links and are never logged.
type LogMailer struct{}

func (LogMailer) SendMail(_ context.Context, e *Email) error {
	log.Infow("Mail not delivered, no mail provider configured",
		"to", e.To,
		"subject", e.Subject,
	)
	return nil
}
