package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"text/template"
	"time"

	"github.com/redlobsta/portalauth/ports"
)

// DefaultTemplate is the login email body. It can be overridden per
// deployment through Config.Template.
const DefaultTemplate = `Hi {{.Email}},

Use this link to sign in to {{.SiteName}}:

{{.Link}}

The link can be used once and expires in {{printf "%.f" .TTL.Minutes}} minutes.

If you did not request it, you can ignore this email.
`

// templateParams is passed as data when executing the email template.
type templateParams struct {
	Email    string
	SiteName string
	Link     string
	TTL      time.Duration
}

// Config holds SMTP delivery settings.
type Config struct {
	Addr     string // host:port of the SMTP server
	From     string
	SiteName string
	Username string
	Password string
	Template string // optional body override, DefaultTemplate when empty
}

// SMTPMailer delivers magic-link emails over SMTP.
type SMTPMailer struct {
	cfg  Config
	tmpl *template.Template
}

// NewSMTPMailer creates a mailer from cfg, parsing the body template once.
func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	body := cfg.Template
	if body == "" {
		body = DefaultTemplate
	}
	tmpl, err := template.New("magiclink").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse email template: %w", err)
	}
	return &SMTPMailer{cfg: cfg, tmpl: tmpl}, nil
}

// SendMagicLink sends the login email to the given address.
func (m *SMTPMailer) SendMagicLink(ctx context.Context, email, link string, ttl time.Duration) error {
	var body bytes.Buffer
	fmt.Fprintf(&body, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&body, "To: %s\r\n", email)
	fmt.Fprintf(&body, "Subject: Your %s login link\r\n", m.cfg.SiteName)
	body.WriteString("\r\n")

	err := m.tmpl.Execute(&body, templateParams{
		Email:    email,
		SiteName: m.cfg.SiteName,
		Link:     link,
		TTL:      ttl,
	})
	if err != nil {
		return fmt.Errorf("execute email template: %w", err)
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		host, _, splitErr := net.SplitHostPort(m.cfg.Addr)
		if splitErr != nil {
			return fmt.Errorf("smtp addr: %w", splitErr)
		}
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, host)
	}

	if err := smtp.SendMail(m.cfg.Addr, auth, m.cfg.From, []string{email}, body.Bytes()); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

var _ ports.Mailer = (*SMTPMailer)(nil)

// LogMailer logs the link instead of delivering it. Development only:
// it writes the raw link, which must never happen in production.
type LogMailer struct {
	Log *slog.Logger
}

func (m LogMailer) SendMagicLink(ctx context.Context, email, link string, ttl time.Duration) error {
	m.Log.Info("magic link issued (mail delivery disabled)",
		"email", email, "link", link, "ttl", ttl)
	return nil
}
