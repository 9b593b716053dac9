// Package app provides the per-invocation context for loom.
// It allows dependency injection for testing.
package app

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/firefly-engineering/loom/internal/audit"
	"github.com/firefly-engineering/loom/internal/binlink"
	"github.com/firefly-engineering/loom/internal/config"
	"github.com/firefly-engineering/loom/internal/database"
	"github.com/firefly-engineering/loom/internal/errors"
	"github.com/firefly-engineering/loom/internal/lifecycle"
	"github.com/firefly-engineering/loom/internal/logging"
	"github.com/firefly-engineering/loom/internal/registry"
	"github.com/firefly-engineering/loom/internal/system"
	"github.com/firefly-engineering/loom/internal/teardown"
	"github.com/firefly-engineering/loom/internal/tracker"
	"github.com/firefly-engineering/loom/internal/tui"
	"github.com/firefly-engineering/loom/internal/vcs"
)

// App holds the dependencies of one command invocation.
type App struct {
	// ID identifies this invocation in log output
	ID string

	// Paths holds the resolved on-disk locations
	Paths *config.Paths

	// Config is the global config with project settings layered on top
	Config *config.Config

	// Settings is the current repository's project settings
	Settings *config.ProjectSettings

	// Repo is the git repository containing the working directory. It is
	// nil outside a repository; RequireRepo reports why.
	Repo *vcs.Repository

	Registry *registry.Registry
	Bins     *binlink.Manager
	Database database.Provider
	Tracker  tracker.Tracker
	Metadata *config.MetadataStore
	Prompter teardown.Prompter
	Audit    *audit.Logger

	// Interactive is true when stdin and stdout are terminals
	Interactive bool

	// JSON selects machine-readable output
	JSON bool

	Logger *slog.Logger

	workDir     string
	configFile  string
	exec        system.CommandExecutor
	fs          system.FileSystem
	interactive *bool
	stdin       io.Reader
	stdout      io.Writer
	repoErr     error
}

// Option is a function that configures the App
type Option func(*App)

// WithPaths sets custom paths
func WithPaths(paths *config.Paths) Option {
	return func(a *App) {
		a.Paths = paths
	}
}

// WithConfig sets the global config instead of loading it
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithConfigFile loads the global config from path
func WithConfigFile(path string) Option {
	return func(a *App) {
		a.configFile = path
	}
}

// WithWorkDir sets the directory the repository is discovered from
func WithWorkDir(dir string) Option {
	return func(a *App) {
		a.workDir = dir
	}
}

// WithExecutor sets the command executor
func WithExecutor(exec system.CommandExecutor) Option {
	return func(a *App) {
		a.exec = exec
	}
}

// WithFileSystem sets the filesystem implementation
func WithFileSystem(fsys system.FileSystem) Option {
	return func(a *App) {
		a.fs = fsys
	}
}

// WithPrompter sets the confirmation prompter
func WithPrompter(p teardown.Prompter) Option {
	return func(a *App) {
		a.Prompter = p
	}
}

// WithInteractive overrides terminal detection
func WithInteractive(interactive bool) Option {
	return func(a *App) {
		a.interactive = &interactive
	}
}

// WithJSON selects machine-readable output
func WithJSON(jsonOutput bool) Option {
	return func(a *App) {
		a.JSON = jsonOutput
	}
}

// WithIO sets the streams used for prompts
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.stdin = in
		a.stdout = out
	}
}

// New builds the invocation context. A working directory outside a git
// repository is not an error; commands that need one call RequireRepo.
func New(ctx context.Context, opts ...Option) (*App, error) {
	a := &App{
		ID:     uuid.NewString(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.Paths == nil {
		a.Paths = config.DefaultPaths()
	}
	if a.exec == nil {
		a.exec = system.DefaultExecutor()
	}
	if a.fs == nil {
		a.fs = system.DefaultFS()
	}
	if a.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		a.workDir = wd
	}
	a.Logger = logging.With("invocation", a.ID)

	if a.Config == nil {
		path := a.configFile
		if path == "" {
			path = a.Paths.ConfigFile
		}
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return nil, errors.ConfigError("failed to load config", err)
		}
		a.Config = cfg
	}
	a.Paths.Apply(a.Config)

	repo, err := vcs.Discover(ctx, a.workDir, a.exec)
	if err != nil {
		a.repoErr = err
		a.Logger.Debug("no git repository", "dir", a.workDir, "error", err)
		a.Settings = &config.ProjectSettings{}
	} else {
		a.Repo = repo
		a.Registry = registry.New(repo)
		settings, err := config.LoadProjectSettings(repo.Dir())
		if err != nil {
			return nil, errors.ConfigError("failed to load project settings", err)
		}
		a.Settings = settings
	}

	a.Config = a.Config.WithProject(a.Settings)
	if err := a.Config.Validate(); err != nil {
		return nil, errors.ConfigError("invalid configuration", err)
	}

	a.Bins = binlink.NewManager(a.Paths.BinDir,
		binlink.WithFileSystem(a.fs),
		binlink.WithBuilder(binlink.NewCommandBuilder(a.Settings.Build, a.exec)),
	)

	baseDir := a.workDir
	if a.Repo != nil {
		baseDir = a.Repo.Dir()
	}
	db, err := database.New(a.Config.Database, baseDir, a.Paths.DBBranchesDir)
	if err != nil {
		return nil, err
	}
	a.Database = db

	a.Metadata = config.NewMetadataStore(a.Paths.LoomsDir)
	a.Tracker = tracker.NewMetadataTracker(a.Paths.LoomsDir, a.fs)
	a.Audit = audit.NewLogger(a.Paths.AuditDir, a.ID)

	if a.interactive != nil {
		a.Interactive = *a.interactive
	} else {
		a.Interactive = term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	}
	if a.Prompter == nil {
		a.Prompter = tui.NewTerminalPrompter(a.stdin, a.stdout)
	}

	a.Logger.Debug("invocation ready",
		"repo", baseDir,
		"binDir", a.Paths.BinDir,
		"stateDir", a.Paths.StateDir,
		"database", a.Config.Database.Provider,
		"interactive", a.Interactive)

	return a, nil
}

// RequireRepo returns an error when the working directory is not inside a
// git repository.
func (a *App) RequireRepo() error {
	if a.Repo == nil {
		return errors.VCSError("loom must be run inside a git repository", a.repoErr)
	}
	return nil
}

// Teardown returns a teardown engine wired to this invocation.
func (a *App) Teardown() (*teardown.Engine, error) {
	if err := a.RequireRepo(); err != nil {
		return nil, err
	}
	return teardown.New(a.Repo,
		teardown.WithExecutables(a.Bins),
		teardown.WithDatabase(a.Database),
		teardown.WithTracker(a.Tracker),
		teardown.WithMetadata(a.Metadata),
		teardown.WithPrompter(a.Prompter),
		teardown.WithFileSystem(a.fs),
		teardown.WithMainBranch(a.Config.MainBranch),
		teardown.WithInteractive(a.Interactive),
		teardown.WithJSON(a.JSON),
	), nil
}

// Coordinator returns a cleanup coordinator wired to this invocation.
func (a *App) Coordinator() (*lifecycle.Coordinator, error) {
	engine, err := a.Teardown()
	if err != nil {
		return nil, err
	}
	return lifecycle.New(a.Registry, engine,
		lifecycle.WithRecords(a.Metadata),
		lifecycle.WithPrompter(a.Prompter),
		lifecycle.WithInteractive(a.Interactive),
		lifecycle.WithJSON(a.JSON),
	), nil
}

// Record appends ev to the audit journal. A journal that cannot be written
// never fails the command.
func (a *App) Record(ev audit.Event) {
	if err := a.Audit.Log(ev); err != nil {
		a.Logger.Debug("failed to write audit event", "loom", ev.Loom, "type", ev.Type, "error", err)
	}
}
