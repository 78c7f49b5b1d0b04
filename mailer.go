package promptgate

import (
	"context"
	"log/slog"
)

type logMailer struct {
	logger *slog.Logger
}

// NewLogMailer returns a Mailer that logs verification links instead of
// sending them. It is used for local development and when no mail provider
// is configured.
func NewLogMailer(logger *slog.Logger) Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return logMailer{logger: logger}
}

func (m logMailer) SendVerification(ctx context.Context, to, link string) error {
	m.logger.InfoContext(ctx, "verification email not sent; no mail provider configured",
		"to", to, "link", link)
	return nil
}
