// Package notify delivers operational alerts (settled sales, archive runs) to
// configured channels. Delivery is fan-out and best-effort: one channel
// failing never blocks the others, and callers treat any error as advisory.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sender is one delivery channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Service fans a notification out to every configured sender.
type Service struct {
	senders []Sender
	logger  *slog.Logger
}

// NewService creates a Service over the given senders. A Service with no
// senders is valid and silently drops everything, so call sites need no nil
// checks.
func NewService(senders []Sender, logger *slog.Logger) *Service {
	return &Service{
		senders: senders,
		logger:  logger.With(slog.String("component", "notify")),
	}
}

// Notify delivers to all senders and returns a combined error naming the
// channels that failed.
func (s *Service) Notify(ctx context.Context, title, message string) error {
	if len(s.senders) == 0 {
		return nil
	}

	var failed []string
	for _, snd := range s.senders {
		if err := snd.Send(ctx, title, message); err != nil {
			s.logger.ErrorContext(ctx, "notification delivery failed",
				slog.String("channel", snd.Name()),
				slog.String("error", err.Error()),
			)
			failed = append(failed, fmt.Sprintf("%s: %v", snd.Name(), err))
			continue
		}
		s.logger.DebugContext(ctx, "notification delivered",
			slog.String("channel", snd.Name()),
			slog.String("title", title),
		)
	}
	if len(failed) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(failed, "; "))
	}
	return nil
}
