package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var ErrNoRecipient = errors.New("no_recipient")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	if len(to) == 0 {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if p.cfg.Username != "" {
		auth = smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	return smtp.SendMail(addr, auth, p.cfg.From, to, buildMessage(p.cfg.From, to[0], subject, htmlBody))
}

func (p *SMTPProvider) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	subject, body, err := Render(templateName, data)
	if err != nil {
		return err
	}
	return p.Send(ctx, to, subject, body)
}

// Render executes the named template. The subject comes from data["subject"]
// when present.
func Render(templateName string, data map[string]any) (string, string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, templateName+".html", data); err != nil {
		return "", "", fmt.Errorf("failed to execute template: %w", err)
	}

	subject := "Notification from Storeline"
	if subj, ok := data["subject"].(string); ok && subj != "" {
		subject = subj
	} else if templateName == "refund_requested" {
		subject = "Your order has been cancelled"
	}
	return subject, body.String(), nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	mime := "MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n"
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n%s\r\n%s", from, to, subject, mime, htmlBody))
}
