package dispatcher

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blockedby/resume-refresh/internal/composer"
	"github.com/blockedby/resume-refresh/internal/mailer"
)

// Transport delivers a message and reports the provider message id.
type Transport interface {
	Send(ctx context.Context, m *mailer.Message) (string, error)
	Verify(ctx context.Context) error
}

// Outgoing is everything needed to build one resume update message.
type Outgoing struct {
	To          string
	Subject     string
	JobTitle    string
	CompanyName string
	Interactive bool
	Documents   composer.Documents
	FormURL     string
}

// EmailSender turns composed documents into transport messages.
type EmailSender struct {
	transport   Transport
	fromAddress string
}

// NewEmailSender creates a sender that sends from fromAddress.
func NewEmailSender(transport Transport, fromAddress string) *EmailSender {
	return &EmailSender{
		transport:   transport,
		fromAddress: fromAddress,
	}
}

// BuildMessage always carries the static document; the AMP part is added only for interactive recipients.
func (s *EmailSender) BuildMessage(o Outgoing) *mailer.Message {
	m := &mailer.Message{
		FromName:    o.CompanyName + " - Resume Update",
		FromAddress: s.fromAddress,
		To:          o.To,
		Subject:     o.Subject,
		Text:        plainText(o),
		HTML:        o.Documents.Static,
		Headers: map[string]string{
			"X-Email-Type":    "Resume-Update-Request",
			"X-Company":       o.CompanyName,
			"X-Position":      o.JobTitle,
			"X-AMP-Supported": strconv.FormatBool(o.Interactive),
		},
	}
	if o.Interactive {
		m.AMP = o.Documents.Interactive
	}
	return m
}

// Send hands m to the transport.
func (s *EmailSender) Send(ctx context.Context, m *mailer.Message) (string, error) {
	return s.transport.Send(ctx, m)
}

// Verify checks the transport without sending.
func (s *EmailSender) Verify(ctx context.Context) error {
	return s.transport.Verify(ctx)
}

func plainText(o Outgoing) string {
	return fmt.Sprintf("%s is asking you to update your resume for the %s position.\n\nUpdate it here: %s\n",
		o.CompanyName, o.JobTitle, o.FormURL)
}
