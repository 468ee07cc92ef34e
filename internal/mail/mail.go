// Package mail abstracts outgoing email.
//
// Actual delivery (SMTP, a transactional provider, templating) is an external
// collaborator — this layer only needs "send this user a reset link". The
// default implementation logs the message instead of sending it, which is
// exactly what local development wants and keeps the dependency injectable
// for tests.
package mail

import "log/slog"

// Sender delivers transactional email.
type Sender interface {
	SendPasswordReset(to, resetURL string) error
}

// LogSender writes would-be emails to the structured log.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendPasswordReset(to, resetURL string) error {
	s.logger.Info("password reset email",
		slog.String("to", to),
		slog.String("resetURL", resetURL),
	)
	return nil
}

var _ Sender = (*LogSender)(nil)
