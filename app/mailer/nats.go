package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSMailer hands messages to a delivery worker over a NATS subject.
type NATSMailer struct {
	pub     publisher
	subject string
}

func NewNATSMailer(pub publisher, subject string) (*NATSMailer, error) {
	if pub == nil {
		return nil, errors.New("nats connection cannot be nil")
	}
	if subject == "" {
		return nil, errors.New("nats subject cannot be empty")
	}
	return &NATSMailer{pub: pub, subject: subject}, nil
}

func (m *NATSMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal mail message: %w", err)
	}
	if err := m.pub.Publish(m.subject, data); err != nil {
		return fmt.Errorf("failed to publish mail message to %s: %w", m.subject, err)
	}
	return nil
}
