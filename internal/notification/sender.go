package notification

import (
	"context"
	"fmt"

	"tourvisit_backend/platform/config"
	"tourvisit_backend/platform/logger"

	"github.com/wneessen/go-mail"
)

// Sender delivers one composed message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers messages over SMTP using go-mail.
type SMTPSender struct {
	client   *mail.Client
	fromName string
	fromAddr string
}

// NewSMTPSender builds the SMTP sender from config. Returns an error when
// the SMTP settings are incomplete.
func NewSMTPSender(cfg config.EmailConfig) (*SMTPSender, error) {
	if cfg.GetSMTPHost() == "" {
		return nil, fmt.Errorf("SMTP_HOST is required when email is enabled")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.GetSMTPPort()),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.GetSMTPUsername() != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.GetSMTPUsername()),
			mail.WithPassword(cfg.GetSMTPPassword()),
		)
	}

	client, err := mail.NewClient(cfg.GetSMTPHost(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}

	return &SMTPSender{
		client:   client,
		fromName: cfg.GetEmailFromName(),
		fromAddr: cfg.GetEmailFromAddress(),
	}, nil
}

// Send delivers one message.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.FromFormat(s.fromName, s.fromAddr); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(msg.Recipient); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	return s.client.DialAndSendWithContext(ctx, m)
}

// LogSender is used when email delivery is disabled. Messages are logged and
// marked sent so the outbox does not grow unbounded in dev environments.
type LogSender struct {
	log *logger.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the message instead of delivering it.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("email delivery disabled, dropping notification",
		"recipient", msg.Recipient, "subject", msg.Subject)
	return nil
}
