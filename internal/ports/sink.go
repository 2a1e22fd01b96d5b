package ports

import (
	"context"

	"cryptoSignalBot/internal/domain"
)

// SignalRecorder stores computed signals for later inspection.
type SignalRecorder interface {
	RecordSignal(ctx context.Context, result domain.SignalResult) error
}

// Notifier pushes a finished report to an external destination.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}
