package mailer

import (
	"context"
	"fmt"

	"github.com/vibast-solutions/ms-go-hr-auth/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	dialer     dialer
	from       string
	senderName string
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer:     gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:       cfg.From,
		senderName: cfg.SenderName,
	}
}

func newSMTPMailerWithDialer(d dialer, from, senderName string) *SMTPMailer {
	return &SMTPMailer{dialer: d, from: from, senderName: senderName}
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	if s.senderName != "" {
		m.SetAddressHeader("From", s.from, s.senderName)
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	logrus.WithField("to", msg.To).Debug("Email sent via SMTP")
	return nil
}
