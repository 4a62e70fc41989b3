package notify

import (
	"context"
	"log/slog"
)

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	From   string
	Logger *slog.Logger
}

func (m LogMailer) Send(ctx context.Context, msg Message) error {
	m.Logger.InfoContext(ctx, "email",
		slog.String("from", m.From),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Text),
	)
	return nil
}
