package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectSettings is the per-repository configuration in
// <repo>/.loom/settings.yaml.
type ProjectSettings struct {
	Build      string          `yaml:"build,omitempty"`
	Bin        []BinEntry      `yaml:"bin,omitempty"`
	MainBranch string          `yaml:"mainBranch,omitempty"`
	Database   *DatabaseConfig `yaml:"database,omitempty"`
}

// BinEntry maps an executable name to its path inside a workspace.
type BinEntry struct {
	Name   string `yaml:"name"`
	Target string `yaml:"target"`
}

// Validate checks that the ProjectSettings are valid.
func (s *ProjectSettings) Validate() error {
	seen := make(map[string]bool, len(s.Bin))
	for i, entry := range s.Bin {
		if err := ValidateBinName(entry.Name); err != nil {
			return fmt.Errorf("bin[%d]: %w", i, err)
		}
		if seen[entry.Name] {
			return fmt.Errorf("bin[%d]: duplicate executable name %q", i, entry.Name)
		}
		seen[entry.Name] = true
		if entry.Target == "" {
			return fmt.Errorf("bin[%d]: target is required", i)
		}
		if filepath.IsAbs(entry.Target) {
			return fmt.Errorf("bin[%d]: target must be relative to the workspace (got %q)", i, entry.Target)
		}
	}
	if s.Database != nil {
		if err := s.Database.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoadProjectSettings loads settings for the repository at repoDir. A
// missing settings file yields empty settings.
func LoadProjectSettings(repoDir string) (*ProjectSettings, error) {
	path := SettingsPath(repoDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ProjectSettings{}, nil
		}
		return nil, fmt.Errorf("failed to read project settings: %w", err)
	}

	var settings ProjectSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse project settings %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project settings %s: %w", path, err)
	}

	return &settings, nil
}

// SaveProjectSettings writes settings for the repository at repoDir.
func SaveProjectSettings(repoDir string, settings *ProjectSettings) error {
	path := SettingsPath(repoDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal project settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write project settings: %w", err)
	}
	return nil
}
