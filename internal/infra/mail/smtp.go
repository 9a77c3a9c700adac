package mail

import (
	"context"
	"fmt"
	"os"

	gomail "gopkg.in/mail.v2"

	"github.com/bryanwahyu/callscore/internal/domain/report"
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender delivers report mails over SMTP with STARTTLS.
type Sender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSender(cfg Config) *Sender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.StartTLSPolicy = gomail.MandatoryStartTLS
	return &Sender{dialer: d, from: cfg.From}
}

// Send builds the message and dials the server. The PDF is attached only
// when it exists on disk.
func (s *Sender) Send(ctx context.Context, m report.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(s.from, m)
	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send report mail to %s: %w", m.To, err)
	}
	return nil
}

func buildMessage(from string, m report.Mail) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)

	if m.AttachmentPath != "" {
		if _, err := os.Stat(m.AttachmentPath); err == nil {
			msg.Attach(m.AttachmentPath)
		}
	}
	return msg
}
