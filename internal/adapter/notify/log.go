package notify

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log. Used when no broker is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the recipient and subject at info level.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "notification",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("html_bytes", len(msg.HTML)))
	return nil
}

// Close is a no-op.
func (s *LogSender) Close() error { return nil }
