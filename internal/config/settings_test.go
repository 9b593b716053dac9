package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProjectSettings_Missing(t *testing.T) {
	settings, err := LoadProjectSettings(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, settings.Bin)
	assert.Nil(t, settings.Database)
}

func TestLoadProjectSettings(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".loom"), 0755))
	content := `build: go build -o dist/hb ./cmd/hb
mainBranch: develop
bin:
  - name: hb
    target: dist/hb
database:
  provider: sqlite
  source: data/dev.db
`
	require.NoError(t, os.WriteFile(SettingsPath(repo), []byte(content), 0644))

	settings, err := LoadProjectSettings(repo)
	require.NoError(t, err)

	assert.Equal(t, "go build -o dist/hb ./cmd/hb", settings.Build)
	assert.Equal(t, "develop", settings.MainBranch)
	assert.Equal(t, []BinEntry{{Name: "hb", Target: "dist/hb"}}, settings.Bin)
	require.NotNil(t, settings.Database)
	assert.Equal(t, ProviderSQLite, settings.Database.Provider)
}

func TestProjectSettings_RoundTrip(t *testing.T) {
	repo := t.TempDir()
	want := &ProjectSettings{
		Build: "make",
		Bin: []BinEntry{
			{Name: "hb", Target: "bin/hb"},
			{Name: "hb-admin", Target: "bin/admin"},
		},
	}

	require.NoError(t, SaveProjectSettings(repo, want))
	got, err := LoadProjectSettings(repo)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestProjectSettings_Validate(t *testing.T) {
	tests := []struct {
		name     string
		settings ProjectSettings
		wantErr  bool
	}{
		{"empty", ProjectSettings{}, false},
		{"valid", ProjectSettings{Bin: []BinEntry{{Name: "hb", Target: "dist/hb"}}}, false},
		{"bad name", ProjectSettings{Bin: []BinEntry{{Name: "a/b", Target: "x"}}}, true},
		{"duplicate", ProjectSettings{Bin: []BinEntry{{Name: "hb", Target: "x"}, {Name: "hb", Target: "y"}}}, true},
		{"missing target", ProjectSettings{Bin: []BinEntry{{Name: "hb"}}}, true},
		{"absolute target", ProjectSettings{Bin: []BinEntry{{Name: "hb", Target: "/usr/bin/hb"}}}, true},
		{"bad provider", ProjectSettings{Database: &DatabaseConfig{Provider: "mongo"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
