// Package notify delivers outbound SMS replies and owns the delayed
// security-warning follow-up.
package notify

import (
	"context"
	"log/slog"
)

// Notifier sends an SMS to a phone number. Failures are reported, never
// thrown past the operation boundary.
type Notifier interface {
	Send(ctx context.Context, to, content string) error
}

// LoggerNotifier is a stub implementation that writes messages to the
// logger. Used when no SMS gateway is configured and in tests.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, to, content string) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("sms notification", "to", to, "content", content)
	return nil
}
