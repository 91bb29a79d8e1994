package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	domain "trailhead/backend/internal/domain/auth"
	usecase "trailhead/backend/internal/usecase/auth"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPMailer delivers transactional mail over SMTP.
type SMTPMailer struct {
	cfg Config
}

// Ensure SMTPMailer implements the Notifier interface.
var _ usecase.Notifier = (*SMTPMailer)(nil)

// NewSMTPMailer constructs a mailer from config.
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendPasswordResetLink mails the reset URL to the identity. The link is
// valid for ten minutes; the body says so.
func (m *SMTPMailer) SendPasswordResetLink(ctx context.Context, identity *domain.Identity, url string) error {
	subject := "Your password reset link (valid for 10 minutes)"
	body := fmt.Sprintf(
		"Hi %s,\n\nForgot your password? Open the link below to choose a new one:\n\n%s\n\nIf you didn't request a reset, ignore this email and your password stays as it is.\n",
		firstName(identity.Name), url,
	)
	return m.send(ctx, identity.Email, subject, body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

func firstName(full string) string {
	full = strings.TrimSpace(full)
	if full == "" {
		return "there"
	}
	if idx := strings.IndexByte(full, ' '); idx > 0 {
		return full[:idx]
	}
	return full
}
