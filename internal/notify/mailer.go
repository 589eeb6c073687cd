package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/prudhvinik1/medsync/internal/config"
)

// Sender delivers a verification link. Implementations may block on the network.
type Sender interface {
	SendVerificationLink(ctx context.Context, email, token string) error
}

const verificationSubject = "Verify Your Email - MedSync"

var verificationTemplate = template.Must(template.New("verification").Parse(`<p>Welcome to {{.AppName}}.</p>
<p>Click the link to verify your email:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>This link will expire in {{.ExpiresIn}}.</p>
`))

type verificationData struct {
	AppName   string
	Link      string
	ExpiresIn string
}

// SMTPMailer sends mail over STARTTLS.
type SMTPMailer struct {
	cfg         config.SMTPConfig
	frontendURL string
	tokenExpiry time.Duration
	timeout     time.Duration
}

func NewSMTPMailer(cfg config.SMTPConfig, frontendURL string, tokenExpiry time.Duration) *SMTPMailer {
	return &SMTPMailer{
		cfg:         cfg,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		tokenExpiry: tokenExpiry,
		timeout:     30 * time.Second,
	}
}

func (m *SMTPMailer) VerificationLink(token string) string {
	return m.frontendURL + "/verify-email?token=" + url.QueryEscape(token)
}

func (m *SMTPMailer) SendVerificationLink(ctx context.Context, email, token string) error {
	var body bytes.Buffer
	err := verificationTemplate.Execute(&body, verificationData{
		AppName:   m.cfg.FromName,
		Link:      m.VerificationLink(token),
		ExpiresIn: humanizeDuration(m.tokenExpiry),
	})
	if err != nil {
		return fmt.Errorf("failed to render verification template: %w", err)
	}
	return m.send(ctx, email, verificationSubject, body.String())
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}

	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	dialer := &net.Dialer{Timeout: m.timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", m.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server %s: %w", m.cfg.Addr(), err)
	}
	deadline := time.Now().Add(m.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	netConn.SetDeadline(deadline)

	client, err := smtp.NewClient(netConn, m.cfg.Host)
	if err != nil {
		netConn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write([]byte(msg.String())); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

func humanizeDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
