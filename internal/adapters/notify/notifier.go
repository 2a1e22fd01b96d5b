package notify

import (
	"context"
	"errors"
	"fmt"

	"cryptoSignalBot/internal/ports"
)

// LogNotifier writes reports to the application log. It is the fallback
// when no chat destination is configured.
type LogNotifier struct {
	logger ports.Logger
}

// NewLogNotifier creates a notifier that logs at Info level.
func NewLogNotifier(logger ports.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the report.
func (n *LogNotifier) Notify(ctx context.Context, title, body string) error {
	n.logger.Info(ctx, title, map[string]interface{}{"report": body})
	return nil
}

// Multi fans a report out to several notifiers. Every notifier is tried;
// the joined error lists each failure.
type Multi []ports.Notifier

// Notify delivers to every notifier in order.
func (m Multi) Notify(ctx context.Context, title, body string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ports.ErrDeliveryFailed, errors.Join(errs...))
	}
	return nil
}
