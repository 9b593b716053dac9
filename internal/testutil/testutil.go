// Package testutil provides test utilities for integration tests
package testutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/firefly-engineering/loom/internal/app"
	"github.com/firefly-engineering/loom/internal/config"
)

// TestEnv holds the test environment: a real git repository with a main
// worktree, and loom state directories under one temp dir.
type TestEnv struct {
	T       *testing.T
	TmpDir  string
	RepoDir string
	Paths   *config.Paths
	Config  *config.Config
}

// RequireGit skips the test if git is not available
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH, skipping test")
	}
}

// NewTestEnv creates a repository on branch main with one commit.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	RequireGit(t)

	tmpDir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	home := filepath.Join(tmpDir, "home")
	paths := config.ResolvePaths(func(key string) string {
		if key == "HOME" {
			return home
		}
		return ""
	})

	env := &TestEnv{
		T:       t,
		TmpDir:  tmpDir,
		RepoDir: filepath.Join(tmpDir, "app"),
		Paths:   paths,
		Config:  config.DefaultConfig(),
	}

	env.Git(tmpDir, "init", "-b", "main", env.RepoDir)
	env.Git(env.RepoDir, "config", "user.email", "test@test.com")
	env.Git(env.RepoDir, "config", "user.name", "Test User")
	env.Git(env.RepoDir, "config", "commit.gpgsign", "false")
	env.Commit(env.RepoDir, "README.md", "# Test\n", "Initial commit")

	return env
}

// Git runs git in dir and fails the test on error.
func (e *TestEnv) Git(dir string, args ...string) string {
	e.T.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		e.T.Fatalf("git %v: %s: %v", args, output, err)
	}
	return string(output)
}

// Commit writes file in dir and commits it.
func (e *TestEnv) Commit(dir, file, content, message string) {
	e.T.Helper()

	e.WriteFile(filepath.Join(dir, file), content)
	e.Git(dir, "add", file)
	e.Git(dir, "commit", "-m", message)
}

// WriteFile writes content to path, creating parent directories.
func (e *TestEnv) WriteFile(path, content string) {
	e.T.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		e.T.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		e.T.Fatalf("Failed to write %s: %v", path, err)
	}
}

// AddLoom creates a worktree named name on a new branch and returns its path.
func (e *TestEnv) AddLoom(name, branch string) string {
	e.T.Helper()

	path := filepath.Join(e.TmpDir, "app-looms", name)
	e.Git(e.RepoDir, "worktree", "add", "-b", branch, path)
	return path
}

// AddMetadata records a loom metadata entry.
func (e *TestEnv) AddMetadata(meta *config.LoomMetadata) {
	e.T.Helper()

	if meta.CreatedAt == "" {
		meta.CreatedAt = "2026-10-01T09:00:00Z"
	}
	if err := config.SaveLoomMetadata(e.Paths.LoomsDir, meta); err != nil {
		e.T.Fatalf("Failed to save loom metadata: %v", err)
	}
}

// WriteSettings writes the repository's project settings.
func (e *TestEnv) WriteSettings(settings *config.ProjectSettings) {
	e.T.Helper()

	if err := config.SaveProjectSettings(e.RepoDir, settings); err != nil {
		e.T.Fatalf("Failed to write project settings: %v", err)
	}
}

// BranchExists reports whether branch exists in the repository.
func (e *TestEnv) BranchExists(branch string) bool {
	e.T.Helper()

	cmd := exec.Command("git", "-C", e.RepoDir, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return cmd.Run() == nil
}

// AppOptions returns app options pointing at this environment.
func (e *TestEnv) AppOptions() []app.Option {
	return []app.Option{
		app.WithPaths(e.Paths),
		app.WithConfig(e.Config),
		app.WithWorkDir(e.RepoDir),
		app.WithInteractive(false),
	}
}

// NewApp builds an invocation context for this environment.
func (e *TestEnv) NewApp(opts ...app.Option) *app.App {
	e.T.Helper()

	a, err := app.New(context.Background(), append(e.AppOptions(), opts...)...)
	if err != nil {
		e.T.Fatalf("app.New: %v", err)
	}
	return a
}
