// Package mailer delivers composed notifications over SMTP.
package mailer

import (
	"fmt"
	"sort"

	"github.com/wneessen/go-mail"
)

// TypeAMPHTML is the MIME type of the AMP for email part.
const TypeAMPHTML mail.ContentType = "text/x-amp-html"

// Message is a transport independent outbound email.
type Message struct {
	FromName    string
	FromAddress string
	To          string
	Subject     string
	// Text is an optional plain text part placed first.
	Text string
	// HTML is the static rendering and is always attached.
	HTML string
	// AMP is attached as an alternative only when set.
	AMP     string
	Headers map[string]string
}

// HasInteractive reports whether the message carries an AMP part.
func (m *Message) HasInteractive() bool {
	return m.AMP != ""
}

// build converts m into a go-mail message. Part order follows the AMP for email
// guidance: plain text, then AMP, then HTML last so clients that show only the
// last part show the static rendering.
func (m *Message) build() (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.FromFormat(m.FromName, m.FromAddress); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetMessageID()

	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		msg.SetGenHeader(mail.Header(k), m.Headers[k])
	}

	switch {
	case m.Text != "":
		msg.SetBodyString(mail.TypeTextPlain, m.Text)
		if m.HasInteractive() {
			msg.AddAlternativeString(TypeAMPHTML, m.AMP)
		}
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	case m.HasInteractive():
		msg.SetBodyString(TypeAMPHTML, m.AMP)
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	default:
		msg.SetBodyString(mail.TypeTextHTML, m.HTML)
	}

	return msg, nil
}

// messageID returns the Message-ID header assigned by build.
func messageID(msg *mail.Msg) string {
	ids := msg.GetGenHeader(mail.HeaderMessageID)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
