package account

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

// VerificationLink builds the URL embedded in verification emails.
func VerificationLink(webBaseURL, token string) string {
	return fmt.Sprintf("%s/verify?token=%s", webBaseURL, url.QueryEscape(token))
}

// SMTPMailer delivers account emails through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger Logger
}

// NewSMTPMailer creates a mailer for the given SMTP relay. The from address
// is used verbatim in the From header.
func NewSMTPMailer(host string, port int, username, password, from string, logger Logger) *SMTPMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		logger: logger,
	}
}

// SendVerificationEmail sends the email verification message with the given
// link to the recipient.
func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, email, link string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Verify your email address")
	msg.SetBody("text/html", fmt.Sprintf(
		`Please click the link to verify your email: <a href="%s">Verify Email</a>`,
		link,
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to send verification email").
			WithMetadata(map[string]any{
				"to": email,
			})
	}

	m.logger.Debug("verification email sent", "to", email)
	return nil
}

type noopMailer struct{}

func (noopMailer) SendVerificationEmail(context.Context, string, string) error {
	return nil
}

func normalizeMailer(m Mailer) Mailer {
	if m == nil {
		return noopMailer{}
	}
	return m
}

var _ Mailer = (*SMTPMailer)(nil)
