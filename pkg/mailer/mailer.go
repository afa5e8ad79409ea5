// Package mailer provides a thin SMTP sender for OTP and account emails.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/bsorms/bsorms-api/pkg/config"
)

// Mailer sends plain-text email.
type Mailer struct {
	cfg  config.MailerConfig
	addr string
	auth smtp.Auth
}

// New constructs a Mailer from SMTP configuration.
func New(cfg config.MailerConfig) *Mailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Mailer{
		cfg:  cfg,
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
	}
}

// Configured reports whether the transport has enough settings to send.
func (m *Mailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.From != ""
}

// Send delivers a plain-text message to the recipients.
func (m *Mailer) Send(to []string, subject, body string) error {
	if !m.Configured() {
		return fmt.Errorf("smtp transport not configured")
	}

	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}

	msg := strings.Join([]string{
		"To: " + strings.Join(to, ", "),
		"From: " + from,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(m.addr, m.auth, m.cfg.From, to, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
