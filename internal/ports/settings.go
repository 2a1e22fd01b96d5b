package ports

import (
	"context"

	"cryptoSignalBot/internal/domain"
)

// SettingsBackend persists the whole user settings mapping.
type SettingsBackend interface {
	// LoadAll returns every stored user's settings. A missing store yields an empty map.
	LoadAll(ctx context.Context) (map[string]domain.UserSettings, error)
	// SaveAll overwrites the stored mapping with the given one.
	SaveAll(ctx context.Context, all map[string]domain.UserSettings) error
}
