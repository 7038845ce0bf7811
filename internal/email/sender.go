// AngelaMos | 2026
// sender.go

package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/ophrus/immo-api/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

const dialTimeout = 10 * time.Second

// Sender delivers transactional mail over SMTP. When email is disabled in
// the config every send becomes a logged no-op, which keeps local
// development free of SMTP credentials.
type Sender struct {
	cfg       config.EmailConfig
	app       config.AppConfig
	logger    *slog.Logger
	templates *template.Template
}

func NewSender(
	cfg config.EmailConfig,
	app config.AppConfig,
	logger *slog.Logger,
) (*Sender, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	return &Sender{
		cfg:       cfg,
		app:       app,
		logger:    logger,
		templates: templates,
	}, nil
}

type welcomeData struct {
	AppName     string
	Name        string
	FrontendURL string
}

type resetCodeData struct {
	AppName       string
	Name          string
	Code          string
	ExpiryMinutes int
}

func (s *Sender) SendWelcome(ctx context.Context, to, name string) error {
	return s.send(ctx, to,
		fmt.Sprintf("Welcome to %s", s.app.Name),
		"welcome.html",
		welcomeData{
			AppName:     s.app.Name,
			Name:        name,
			FrontendURL: s.app.FrontendURL,
		},
	)
}

func (s *Sender) SendPasswordResetCode(
	ctx context.Context,
	to, name, code string,
) error {
	return s.send(ctx, to,
		fmt.Sprintf("%s password reset code", s.app.Name),
		"reset_code.html",
		resetCodeData{
			AppName:       s.app.Name,
			Name:          name,
			Code:          code,
			ExpiryMinutes: 10,
		},
	)
}

func (s *Sender) send(
	ctx context.Context,
	to, subject, templateName string,
	data any,
) error {
	if !s.cfg.Enabled {
		s.logger.Info("email disabled, skipping send",
			"to", to,
			"subject", subject,
		)
		return nil
	}

	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("render email template: %w", err)
	}

	msg := buildMessage(s.cfg.FromName, s.cfg.From, to, subject, body.Bytes())

	if err := s.deliver(ctx, to, msg); err != nil {
		return fmt.Errorf("deliver email: %w", err)
	}

	return nil
}

func (s *Sender) deliver(ctx context.Context, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	dialer := &net.Dialer{Timeout: dialTimeout}

	var conn net.Conn
	var err error

	if s.cfg.UseTLS {
		tlsDialer := &tls.Dialer{
			NetDialer: dialer,
			Config:    &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12},
		}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if !s.cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			tlsCfg := &tls.Config{
				ServerName: s.cfg.Host,
				MinVersion: tls.VersionTLS12,
			}
			if err := client.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write(msg); err != nil {
		writer.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	return client.Quit()
}

func buildMessage(fromName, from, to, subject string, body []byte) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s <%s>\r\n", fromName, from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.Write(body)

	return buf.Bytes()
}
