package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// Store keeps all user settings in one JSON document:
//
//	{"<user id>": {"strategy": {...}, "timeframe": "15m"}}
type Store struct {
	path   string
	logger ports.Logger
}

// New creates a JSON file backend at path.
func New(path string, logger ports.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("settings file path is required: %w", ports.ErrConfigurationError)
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for JSON settings store")
	}
	return &Store{path: path, logger: logger}, nil
}

// LoadAll reads the document. A missing or empty file yields an empty map.
func (s *Store) LoadAll(ctx context.Context) (map[string]domain.UserSettings, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info(ctx, "Settings file not found, starting empty", map[string]interface{}{"path": s.path})
		return map[string]domain.UserSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w: %w", s.path, ports.ErrQueryFailed, err)
	}
	all, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return all, nil
}

// SaveAll rewrites the document atomically through a temporary file.
func (s *Store) SaveAll(ctx context.Context, all map[string]domain.UserSettings) error {
	data, err := Encode(all)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w: %w", dir, ports.ErrUpdateFailed, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w: %w", ports.ErrUpdateFailed, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w: %w", ports.ErrUpdateFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w: %w", ports.ErrUpdateFailed, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w: %w", s.path, ports.ErrUpdateFailed, err)
	}

	s.logger.Debug(ctx, "Settings file written", map[string]interface{}{"path": s.path, "users": len(all)})
	return nil
}

// Decode parses a settings document. Keys missing from a user's entry
// keep their default value.
func Decode(data []byte) (map[string]domain.UserSettings, error) {
	all := map[string]domain.UserSettings{}
	if len(bytes.TrimSpace(data)) == 0 {
		return all, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("settings document is not a JSON object: %w", err)
	}
	for userID, entry := range raw {
		us := domain.DefaultUserSettings()
		if err := json.Unmarshal(entry, &us); err != nil {
			return nil, fmt.Errorf("settings for user %s: %w", userID, err)
		}
		all[userID] = us
	}
	return all, nil
}

// Encode renders the settings document with two-space indentation.
func Encode(all map[string]domain.UserSettings) ([]byte, error) {
	if all == nil {
		all = map[string]domain.UserSettings{}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return append(data, '\n'), nil
}
