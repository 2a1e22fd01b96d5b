package app

import (
	"context"
	"errors"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// Recorders fans a signal out to several recorders. Every recorder is tried.
type Recorders []ports.SignalRecorder

// RecordSignal records result everywhere and joins the failures.
func (r Recorders) RecordSignal(ctx context.Context, result domain.SignalResult) error {
	var errs []error
	for _, rec := range r {
		if err := rec.RecordSignal(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
