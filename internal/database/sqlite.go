package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/firefly-engineering/loom/internal/errors"
	"github.com/firefly-engineering/loom/internal/logging"
)

// SQLiteProvider branches a SQLite database by copying it into
// <dir>/<branch>.db. The creating git branch is written next to it in
// <dir>/<branch>.db.owner.
type SQLiteProvider struct {
	source string
	dir    string
}

// NewSQLiteProvider returns a provider copying source into dir.
func NewSQLiteProvider(source, dir string) *SQLiteProvider {
	return &SQLiteProvider{source: source, dir: dir}
}

// Name returns "sqlite".
func (p *SQLiteProvider) Name() string {
	return "sqlite"
}

// Path returns the file backing a branch.
func (p *SQLiteProvider) Path(branch string) (string, error) {
	name := SanitizeBranchName(branch)
	if name == "" || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid database branch name %q", branch)
	}
	return filepath.Join(p.dir, name+".db"), nil
}

// CreateBranch snapshots the source database with VACUUM INTO, which
// produces a consistent copy even while the source is in use.
func (p *SQLiteProvider) CreateBranch(ctx context.Context, branch string) (string, error) {
	path, err := p.Path(branch)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		if owner := p.readOwner(path); owner != "" && owner != branch {
			return "", errors.New(errors.ExitConflict,
				fmt.Sprintf("database branch %s already belongs to %s", SanitizeBranchName(branch), owner))
		}
		return "", errors.Conflict("database branch " + SanitizeBranchName(branch))
	}
	if _, err := os.Stat(p.source); err != nil {
		return "", errors.ConfigError("database source "+p.source+" is not readable", err)
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("create database branch directory: %w", err)
	}

	db, err := sql.Open("sqlite", p.source)
	if err != nil {
		return "", fmt.Errorf("open sqlite source: %w", err)
	}
	defer db.Close()

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return "", fmt.Errorf("set busy_timeout: %w", err)
	}

	quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"
	if _, err := db.ExecContext(ctx, "VACUUM INTO "+quoted); err != nil {
		return "", fmt.Errorf("copy %s into branch %s: %w", p.source, SanitizeBranchName(branch), err)
	}

	if err := os.WriteFile(path+".owner", []byte(branch+"\n"), 0o644); err != nil {
		logging.Warn("failed to record database branch owner", "path", path, "error", err)
	}

	logging.Debug("created database branch", "provider", p.Name(), "path", path)
	return SanitizeBranchName(branch), nil
}

// Owner returns the git branch recorded when the branch was created.
func (p *SQLiteProvider) Owner(ctx context.Context, branch string) (string, error) {
	path, err := p.Path(branch)
	if err != nil {
		return "", err
	}
	return p.readOwner(path), nil
}

func (p *SQLiteProvider) readOwner(path string) string {
	data, err := os.ReadFile(path + ".owner")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// DeleteBranch removes the branch file, its WAL side files and its owner.
func (p *SQLiteProvider) DeleteBranch(ctx context.Context, branch string) error {
	path, err := p.Path(branch)
	if err != nil {
		return err
	}
	for _, f := range []string{path, path + "-wal", path + "-shm", path + ".owner"} {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", f, err)
		}
	}
	logging.Debug("deleted database branch", "provider", p.Name(), "path", path)
	return nil
}

// BranchExists reports whether the branch file exists.
func (p *SQLiteProvider) BranchExists(ctx context.Context, branch string) (bool, error) {
	path, err := p.Path(branch)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
