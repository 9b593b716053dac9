// Package database provides ephemeral per-loom database branches.
//
// A Provider copies a source database into a named branch when a loom starts
// and deletes the branch on teardown. Branch names come from git branch
// names and are sanitized before use.
package database

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/firefly-engineering/loom/internal/config"
	"github.com/firefly-engineering/loom/internal/errors"
)

// Provider manages database branches.
type Provider interface {
	// Name identifies the provider in logs and results.
	Name() string

	// CreateBranch creates a branch for the git branch and returns the
	// sanitized branch name.
	CreateBranch(ctx context.Context, branch string) (string, error)

	// DeleteBranch removes the branch. Deleting a missing branch is not an error.
	DeleteBranch(ctx context.Context, branch string) error

	// BranchExists reports whether the branch exists.
	BranchExists(ctx context.Context, branch string) (bool, error)
}

// OwnerReporter is implemented by providers that remember which git branch
// created each database branch. Sanitizing is lossy ("feat/x" and "feat_x"
// share a name), so teardown checks the owner before deleting.
type OwnerReporter interface {
	// Owner returns the git branch that created the database branch, or ""
	// when it is unknown.
	Owner(ctx context.Context, branch string) (string, error)
}

var invalidBranchChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeBranchName maps a git branch name to a database branch name:
// "/" becomes "_" and any other character outside [A-Za-z0-9._-] becomes "-".
func SanitizeBranchName(branch string) string {
	name := strings.ReplaceAll(strings.TrimSpace(branch), "/", "_")
	return invalidBranchChars.ReplaceAllString(name, "-")
}

// New returns the provider selected by cfg, or nil when no provider is
// configured. Relative sources resolve against baseDir.
func New(cfg config.DatabaseConfig, baseDir, branchesDir string) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigError("invalid database configuration", err)
	}
	if !cfg.Enabled() {
		return nil, nil
	}

	switch cfg.Provider {
	case config.ProviderSQLite:
		source := cfg.Source
		if !filepath.IsAbs(source) {
			source = filepath.Join(baseDir, source)
		}
		return NewSQLiteProvider(source, branchesDir), nil
	}
	return nil, errors.ConfigError("unsupported database provider "+cfg.Provider, nil)
}
