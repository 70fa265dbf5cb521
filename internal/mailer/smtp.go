package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/blockedby/resume-refresh/internal/apperr"
	"github.com/blockedby/resume-refresh/internal/logger"
)

// Transport error codes recorded in the ledger.
const (
	CodeAuth       = "EAUTH"
	CodeConnection = "ECONNECTION"
	CodeTimeout    = "ETIMEDOUT"
	CodeEnvelope   = "EENVELOPE"
	CodeMessage    = "EMESSAGE"
	CodeUnknown    = "UNKNOWN"
)

// Config holds SMTP connection settings.
type Config struct {
	Host string
	Port int
	// Secure selects implicit TLS. When false STARTTLS is used opportunistically.
	Secure        bool
	Username      string
	Password      string
	TLSSkipVerify bool
	Timeout       time.Duration
}

// SMTPTransport sends messages through a single SMTP relay.
// A new connection is dialed per send; the client holds only settings.
type SMTPTransport struct {
	cfg Config
	log *logger.Logger
}

// NewSMTPTransport creates a transport. It does not connect.
func NewSMTPTransport(cfg Config, log *logger.Logger) *SMTPTransport {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPTransport{cfg: cfg, log: log}
}

func (t *SMTPTransport) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(t.cfg.Port),
		mail.WithTimeout(t.cfg.Timeout),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         t.cfg.Host,
			InsecureSkipVerify: t.cfg.TLSSkipVerify, //nolint:gosec // opt-in for local relays
			MinVersion:         tls.VersionTLS12,
		}),
	}
	if t.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}

	c, err := mail.NewClient(t.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return c, nil
}

// Send delivers m and returns the Message-ID it was sent with.
// Failures are returned as *apperr.TransportError.
func (t *SMTPTransport) Send(ctx context.Context, m *Message) (string, error) {
	msg, err := m.build()
	if err != nil {
		return "", &apperr.TransportError{Code: CodeEnvelope, Err: err}
	}

	c, err := t.client()
	if err != nil {
		return "", &apperr.TransportError{Code: CodeConnection, Err: err}
	}

	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return "", classify(err)
	}

	id := messageID(msg)
	t.log.Debug().
		Str("recipient", m.To).
		Str("message_id", id).
		Bool("amp", m.HasInteractive()).
		Msg("smtp message accepted")

	return id, nil
}

// Verify dials and authenticates without sending anything.
func (t *SMTPTransport) Verify(ctx context.Context) error {
	c, err := t.client()
	if err != nil {
		return &apperr.TransportError{Code: CodeConnection, Err: err}
	}
	if err := c.DialWithContext(ctx); err != nil {
		return classify(err)
	}
	if err := c.Close(); err != nil {
		t.log.Warn().Err(err).Msg("close smtp connection after verify")
	}
	return nil
}

// classify maps a go-mail or network error onto a TransportError code.
func classify(err error) *apperr.TransportError {
	te := &apperr.TransportError{Code: CodeUnknown, Err: err}

	var sendErr *mail.SendError
	if errors.As(err, &sendErr) {
		te.Temporary = sendErr.IsTemp()
		switch sendErr.Reason {
		case mail.ErrSMTPMailFrom, mail.ErrSMTPRcptTo, mail.ErrGetSender, mail.ErrGetRcpts:
			te.Code = CodeEnvelope
		case mail.ErrSMTPData, mail.ErrSMTPDataClose, mail.ErrWriteContent:
			te.Code = CodeMessage
		case mail.ErrConnCheck:
			te.Code = CodeConnection
		}
		return te
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		te.Code = CodeTimeout
		te.Temporary = true
	case errors.As(err, &netErr) && netErr.Timeout():
		te.Code = CodeTimeout
		te.Temporary = true
	case errors.As(err, &netErr):
		te.Code = CodeConnection
		te.Temporary = true
	case isAuthFailure(err):
		te.Code = CodeAuth
	case strings.Contains(strings.ToLower(err.Error()), "dial"):
		te.Code = CodeConnection
		te.Temporary = true
	}
	return te
}

func isAuthFailure(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "auth") || strings.Contains(msg, "535")
}
