package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ErrMailDisabled is returned when no SMTP host is configured.
var ErrMailDisabled = errors.New("email not configured")

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailConfig holds SMTP settings.
type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	WebsiteURL string
}

// Mailer sends password reset links.
type Mailer struct {
	cfg    MailConfig
	send   SendFunc
	logger zerolog.Logger
}

// NewMailer returns a mailer using smtp.SendMail, which upgrades to STARTTLS
// when the server offers it.
func NewMailer(cfg MailConfig, logger zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail, logger: logger}
}

// WithSender replaces the SMTP transport.
func (m *Mailer) WithSender(f SendFunc) *Mailer {
	m.send = f
	return m
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != ""
}

// ResetLink is the URL a user follows to choose a new password.
func ResetLink(websiteURL, token string) string {
	return strings.TrimRight(websiteURL, "/") + "/reset_password/" + token
}

// SendPasswordReset mails the reset link for token to addr.
func (m *Mailer) SendPasswordReset(ctx context.Context, addr, token string) error {
	if !m.Enabled() {
		return ErrMailDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	port := m.cfg.Port
	if port == 0 {
		port = 587
	}
	server := net.JoinHostPort(m.cfg.Host, strconv.Itoa(port))
	msg := resetMessage(from, addr, ResetLink(m.cfg.WebsiteURL, token))
	if err := m.send(server, auth, from, []string{addr}, msg); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	m.logger.Info().Str("to", addr).Msg("password reset email sent")
	return nil
}

func resetMessage(from, to, link string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Password Reset - Irrigation PO System\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	fmt.Fprintf(&b, `<html><body style="font-family: Arial, sans-serif; padding: 20px;">
<h2>Password Reset Request</h2>
<p>You requested a password reset for your Irrigation PO System account.</p>
<p><a href="%[1]s">Reset Password</a></p>
<p>Or copy this link: %[1]s</p>
<p>This link will expire in 1 hour.<br>If you didn't request this, please ignore this email.</p>
</body></html>`, link)
	b.WriteString("\r\n")
	return []byte(b.String())
}
