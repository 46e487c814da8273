package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogMailer records that a message would have been sent. Bodies carry
// single-use tokens and are not logged.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (LogMailer) Send(_ context.Context, msg Message) error {
	logrus.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Email delivery skipped (log transport)")
	return nil
}
