package settings

import (
	"context"
	"fmt"
	"sync"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// Store keeps per-user settings in memory and persists them through a backend.
//
// The map is safe for concurrent use, but an edit is a Get, modify, Put,
// Persist sequence: two concurrent edits for the same user are last-write-wins.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.UserSettings
	defaults domain.UserSettings
	backend  ports.SettingsBackend
	logger   ports.Logger
}

// Config holds the dependencies of a Store.
type Config struct {
	Backend  ports.SettingsBackend
	Defaults domain.UserSettings
	Logger   ports.Logger
}

// NewStore creates an empty store. Call Load to read persisted settings.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("settings backend is required: %w", ports.ErrConfigurationError)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for settings store")
	}
	if err := Validate(cfg.Defaults); err != nil {
		return nil, fmt.Errorf("invalid default settings: %w", err)
	}
	return &Store{
		users:    make(map[string]domain.UserSettings),
		defaults: cfg.Defaults,
		backend:  cfg.Backend,
		logger:   cfg.Logger,
	}, nil
}

// Defaults returns the settings new users start with.
func (s *Store) Defaults() domain.UserSettings {
	return s.defaults
}

// Load replaces the in-memory mapping with the backend's contents.
// Entries that fail validation are reset to defaults.
func (s *Store) Load(ctx context.Context) error {
	all, err := s.backend.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if all == nil {
		all = make(map[string]domain.UserSettings)
	}
	for id, us := range all {
		if err := Validate(us); err != nil {
			s.logger.Warn(ctx, "Invalid stored settings replaced with defaults", map[string]interface{}{"user": id, "error": err.Error()})
			all[id] = s.defaults
		}
	}

	s.mu.Lock()
	s.users = all
	s.mu.Unlock()

	s.logger.Debug(ctx, "Settings loaded", map[string]interface{}{"users": len(all)})
	return nil
}

// Persist writes the full mapping to the backend.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.RLock()
	snapshot := make(map[string]domain.UserSettings, len(s.users))
	for id, us := range s.users {
		snapshot[id] = us
	}
	s.mu.RUnlock()

	if err := s.backend.SaveAll(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	return nil
}

// Get returns the settings for userID, false when the user has none yet.
func (s *Store) Get(userID string) (domain.UserSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	us, ok := s.users[userID]
	return us, ok
}

// GetOrCreate returns the user's settings, creating them from defaults on first use.
// The bool reports whether the entry was created.
func (s *Store) GetOrCreate(userID string) (domain.UserSettings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if us, ok := s.users[userID]; ok {
		return us, false
	}
	s.users[userID] = s.defaults
	return s.defaults, true
}

// Put replaces the settings for userID after validating them.
func (s *Store) Put(userID string, us domain.UserSettings) error {
	if err := Validate(us); err != nil {
		return err
	}
	s.mu.Lock()
	s.users[userID] = us
	s.mu.Unlock()
	return nil
}

// Reset restores userID's settings to defaults.
func (s *Store) Reset(userID string) domain.UserSettings {
	s.mu.Lock()
	s.users[userID] = s.defaults
	s.mu.Unlock()
	return s.defaults
}
