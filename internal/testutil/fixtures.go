package testutil

import (
	"embed"
	"encoding/json"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/firefly-engineering/loom/internal/config"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// LoadProjectSettingsFixture loads a project settings fixture without
// validating it.
func LoadProjectSettingsFixture(name string) (*config.ProjectSettings, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	var settings config.ProjectSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// LoadConfigFixture loads a global config fixture over the defaults.
func LoadConfigFixture(name string) (*config.Config, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	cfg := config.DefaultConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLoomMetadataFixture loads a loom metadata fixture.
func LoadLoomMetadataFixture(name string) (*config.LoomMetadata, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	var meta config.LoomMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ValidProjectSettings returns the valid project settings fixture.
func ValidProjectSettings() (*config.ProjectSettings, error) {
	return LoadProjectSettingsFixture("valid_settings.yaml")
}

// InvalidProjectSettings returns the invalid project settings fixture.
func InvalidProjectSettings() (*config.ProjectSettings, error) {
	return LoadProjectSettingsFixture("invalid_settings.yaml")
}

// ValidConfig returns the valid global config fixture.
func ValidConfig() (*config.Config, error) {
	return LoadConfigFixture("valid_config.toml")
}

// ValidLoomMetadata returns the valid loom metadata fixture.
func ValidLoomMetadata() (*config.LoomMetadata, error) {
	return LoadLoomMetadataFixture("valid_loom_metadata.json")
}
