package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/thinx/internal/config"
	"github.com/harunnryd/thinx/internal/errors"

	gomail "github.com/wneessen/go-mail"
)

const (
	msgNotConfigured = "Email credentials not configured. Check .env file."
	msgAuthFailed    = "Authentication failed. Check Gmail app password."
)

// Result is what callers show to the user. Delivery problems are reported
// here instead of as errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Transport interface {
	Send(ctx context.Context, msg *gomail.Msg) error
}

type smtpTransport struct {
	host     string
	port     int
	username string
	password string
	timeout  time.Duration
}

func (t smtpTransport) Send(ctx context.Context, msg *gomail.Msg) error {
	client, err := gomail.NewClient(t.host,
		gomail.WithPort(t.port),
		gomail.WithSSL(),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(t.username),
		gomail.WithPassword(t.password),
		gomail.WithTimeout(t.timeout),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Transient(err.Error())
	}
	return nil
}

type Sender struct {
	cfg       config.MailConfig
	transport Transport
	now       func() time.Time
	newUID    func() string
}

func NewSender(cfg config.MailConfig) *Sender {
	timeout, err := config.DurationOrDefault(cfg.Timeout, config.DefaultMailTimeout)
	if err != nil {
		slog.Warn("Invalid mail timeout, using default", "value", cfg.Timeout, "error", err)
		timeout, _ = config.DurationOrDefault("", config.DefaultMailTimeout)
	}
	return &Sender{
		cfg: cfg,
		transport: smtpTransport{
			host:     cfg.Host,
			port:     cfg.Port,
			username: cfg.Address,
			password: cfg.AppPassword,
			timeout:  timeout,
		},
		now:    time.Now,
		newUID: newEventUID,
	}
}

// WithTransport swaps the delivery backend.
func (s *Sender) WithTransport(t Transport) *Sender {
	s.transport = t
	return s
}

func (s *Sender) Configured() bool {
	return strings.TrimSpace(s.cfg.Address) != "" && s.cfg.AppPassword != ""
}

// Send mails a single-part message to one recipient.
func (s *Sender) Send(ctx context.Context, to, subject, body string, html bool) Result {
	if !s.Configured() {
		return Result{Success: false, Message: msgNotConfigured}
	}

	msg, err := s.newMessage(to, subject)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Failed to send email: %v", err)}
	}
	contentType := gomail.TypeTextPlain
	if html {
		contentType = gomail.TypeTextHTML
	}
	msg.SetBodyString(contentType, body)

	if err := s.transport.Send(ctx, msg); err != nil {
		return s.failure("Failed to send email", err)
	}
	return Result{Success: true, Message: fmt.Sprintf("Email sent to %s", to)}
}

func (s *Sender) newMessage(to, subject string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.Address); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("recipient address %q: %v", to, err))
	}
	msg.Subject(subject)
	msg.SetDate()
	return msg, nil
}

func (s *Sender) failure(prefix string, err error) Result {
	if isAuthError(err) {
		return Result{Success: false, Message: msgAuthFailed}
	}
	slog.Warn("Mail delivery failed", "category", errors.Category(err), "error", err)
	return Result{Success: false, Message: fmt.Sprintf("%s: %v", prefix, err)}
}

func isAuthError(err error) bool {
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "535") ||
		strings.Contains(text, "authentication failed") ||
		strings.Contains(text, "username and password not accepted")
}
