// Package mailer delivers account emails through a pluggable transport.
package mailer

import (
	"context"
	"fmt"

	"github.com/vibast-solutions/ms-go-hr-auth/config"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the transport selected by cfg.Mail.Transport. The returned close
// function releases any connection the transport holds.
func New(cfg *config.Config) (Mailer, func(), error) {
	switch cfg.Mail.Transport {
	case "smtp":
		return NewSMTPMailer(cfg.Mail), func() {}, nil
	case "nats":
		conn, err := nats.Connect(cfg.NATS.URL, nats.Name(cfg.App.Name+"-mailer"))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to nats: %w", err)
		}
		m, err := NewNATSMailer(conn, cfg.Mail.NATSSubject)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return m, func() {
			if err := conn.Drain(); err != nil {
				logrus.WithError(err).Warn("Failed to drain nats connection")
			}
		}, nil
	case "log":
		return NewLogMailer(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported mail transport %q", cfg.Mail.Transport)
	}
}
