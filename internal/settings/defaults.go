package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"cryptoSignalBot/internal/domain"
)

// LoadDefaults returns the built-in defaults, overridden by the YAML file at
// path when path is not empty. Keys missing from the file keep their built-in value.
func LoadDefaults(path string) (domain.UserSettings, error) {
	defaults := domain.DefaultUserSettings()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("failed to read defaults file: %w", err)
	}
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return domain.DefaultUserSettings(), fmt.Errorf("failed to parse defaults file: %w", err)
	}
	if err := Validate(defaults); err != nil {
		return domain.DefaultUserSettings(), fmt.Errorf("invalid defaults file %s: %w", path, err)
	}
	return defaults, nil
}
