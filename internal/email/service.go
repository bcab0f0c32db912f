package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

const defaultSubject = "Appointment update"

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
}

// SMTPMessenger delivers plain-text messages through an SMTP relay.
type SMTPMessenger struct {
	dialer  *gomail.Dialer
	from    string
	subject string
}

func NewSMTPMessenger(cfg SMTPConfig) *SMTPMessenger {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = "no-reply@clinic.local"
	}
	subject := cfg.Subject
	if subject == "" {
		subject = defaultSubject
	}
	return &SMTPMessenger{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    from,
		subject: subject,
	}
}

func (m *SMTPMessenger) Send(ctx context.Context, to, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := m.buildMessage(to, text)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func (m *SMTPMessenger) buildMessage(to, text string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", m.subject)
	msg.SetBody("text/plain", text)
	return msg
}

// LogMessenger writes messages to the log instead of delivering them.
type LogMessenger struct {
	log *logger.Logger
}

func NewLogMessenger(log *logger.Logger) *LogMessenger {
	return &LogMessenger{log: log}
}

func (m *LogMessenger) Send(_ context.Context, to, text string) error {
	m.log.Info("outbound message", "to", to, "text", text)
	return nil
}
