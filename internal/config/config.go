package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// binNameRegex validates executable names from project settings.
// Names must start with a letter or digit, followed by letters, digits, dots,
// underscores, or hyphens.
var binNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,62}$`)

// ValidateBinName checks if an executable name is valid.
func ValidateBinName(name string) error {
	if name == "" {
		return fmt.Errorf("executable name cannot be empty")
	}

	if !binNameRegex.MatchString(name) {
		return fmt.Errorf("invalid executable name %q: must start with a letter or digit, contain only letters, digits, dots, underscores, or hyphens, and be at most 63 characters", name)
	}

	return nil
}

// safePath validates that a constructed path stays within the base directory.
// This prevents path traversal attacks where names like "../../../etc/passwd"
// could escape the intended directory.
func safePath(baseDir, name, suffix string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}

	// Reject absolute paths in name
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("name cannot be an absolute path")
	}

	// Reject names containing path separators
	if filepath.Dir(name) != "." {
		return "", fmt.Errorf("name cannot contain path separators")
	}

	path := filepath.Join(baseDir, name+suffix)

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("invalid base directory: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	// Add separator to prevent prefix matching (e.g., /state/looms vs /state/looms-evil)
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory")
	}

	return path, nil
}

const (
	AppName           = "loom"
	ConfigFileName    = "config.toml"
	SettingsDirName   = ".loom"
	SettingsFileName  = "settings.yaml"
	DefaultMainBranch = "main"

	ProviderNone   = "none"
	ProviderSQLite = "sqlite"
)

// Config is the user-global configuration loaded from config.toml.
type Config struct {
	BinDir     string         `toml:"bin_dir"`
	StateDir   string         `toml:"state_dir"`
	MainBranch string         `toml:"main_branch"`
	Teardown   TeardownConfig `toml:"teardown"`
	Database   DatabaseConfig `toml:"database"`
}

// TeardownConfig holds the defaults for cleanup flags.
type TeardownConfig struct {
	DeleteBranch     bool `toml:"delete_branch"`
	CheckMergeSafety bool `toml:"check_merge_safety"`
}

// DatabaseConfig selects the database branch provider.
type DatabaseConfig struct {
	Provider string `toml:"provider" yaml:"provider"`
	Source   string `toml:"source" yaml:"source"`
}

// Enabled reports whether a provider is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Provider != "" && d.Provider != ProviderNone
}

// Validate checks that the DatabaseConfig is valid.
func (d DatabaseConfig) Validate() error {
	switch d.Provider {
	case "", ProviderNone:
		return nil
	case ProviderSQLite:
		if d.Source == "" {
			return fmt.Errorf("database source is required for provider %q", d.Provider)
		}
		return nil
	default:
		return fmt.Errorf("unknown database provider %q (must be %s or %s)", d.Provider, ProviderSQLite, ProviderNone)
	}
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		MainBranch: DefaultMainBranch,
		Teardown: TeardownConfig{
			DeleteBranch:     true,
			CheckMergeSafety: true,
		},
	}
}

// Validate checks that the Config is valid.
func (c *Config) Validate() error {
	if c.MainBranch == "" {
		return fmt.Errorf("main_branch cannot be empty")
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	return nil
}

// WithProject returns a copy of c with project settings layered on top.
func (c *Config) WithProject(s *ProjectSettings) *Config {
	merged := *c
	if s == nil {
		return &merged
	}
	if s.MainBranch != "" {
		merged.MainBranch = s.MainBranch
	}
	if s.Database != nil {
		merged.Database = *s.Database
	}
	return &merged
}

// LoadConfig loads the global configuration from path. A missing file
// yields DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path as TOML.
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Paths holds the resolved on-disk locations.
type Paths struct {
	Home          string
	ConfigDir     string
	ConfigFile    string
	StateDir      string
	LoomsDir      string
	DBBranchesDir string
	AuditDir      string
	BinDir        string
}

// DefaultPaths resolves paths from the process environment.
func DefaultPaths() *Paths {
	return ResolvePaths(os.Getenv)
}

// ResolvePaths resolves paths from HOME and the XDG base directory variables
// returned by getenv.
func ResolvePaths(getenv func(string) string) *Paths {
	home := getenv("HOME")

	configHome := getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}
	stateHome := getenv("XDG_STATE_HOME")
	if stateHome == "" {
		stateHome = filepath.Join(home, ".local", "state")
	}

	configDir := filepath.Join(configHome, AppName)
	p := &Paths{
		Home:       home,
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, ConfigFileName),
		BinDir:     filepath.Join(home, "."+AppName, "bin"),
	}
	p.setStateDir(filepath.Join(stateHome, AppName))
	return p
}

func (p *Paths) setStateDir(dir string) {
	p.StateDir = dir
	p.LoomsDir = filepath.Join(dir, "looms")
	p.DBBranchesDir = filepath.Join(dir, "db-branches")
	p.AuditDir = filepath.Join(dir, "audit")
}

// Apply overrides bin and state directories with values from cfg.
func (p *Paths) Apply(cfg *Config) {
	if cfg.BinDir != "" {
		p.BinDir = expandHome(cfg.BinDir, p.Home)
	}
	if cfg.StateDir != "" {
		p.setStateDir(expandHome(cfg.StateDir, p.Home))
	}
}

// SettingsPath returns the project settings file for a repository.
func SettingsPath(repoDir string) string {
	return filepath.Join(repoDir, SettingsDirName, SettingsFileName)
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
