package binlink

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/loom/internal/errors"
	"github.com/firefly-engineering/loom/internal/logging"
	"github.com/firefly-engineering/loom/internal/system"
)

// BinEntry maps an executable name to a path relative to the workspace root.
type BinEntry struct {
	Name   string
	Target string
}

// SetupOptions controls Setup.
type SetupOptions struct {
	// Force replaces an existing non-symlink file at the link path.
	Force bool
}

// OrphanedSymlink is a versioned executable whose target no longer resolves.
type OrphanedSymlink struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	BrokenTarget string `json:"brokenTarget"`
}

// Manager owns the shared bin directory.
type Manager struct {
	binDir  string
	fs      system.FileSystem
	builder Builder
	pathEnv string
	shell   string
	advised sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithFileSystem sets the filesystem implementation.
func WithFileSystem(fsys system.FileSystem) Option {
	return func(m *Manager) {
		m.fs = fsys
	}
}

// WithBuilder sets the build step run before linking.
func WithBuilder(b Builder) Option {
	return func(m *Manager) {
		m.builder = b
	}
}

// WithEnvironment sets the PATH and login shell used for the PATH advisory.
func WithEnvironment(pathEnv, shell string) Option {
	return func(m *Manager) {
		m.pathEnv = pathEnv
		m.shell = shell
	}
}

// NewManager returns a Manager for binDir.
func NewManager(binDir string, opts ...Option) *Manager {
	m := &Manager{
		binDir:  binDir,
		fs:      system.DefaultFS(),
		pathEnv: os.Getenv("PATH"),
		shell:   os.Getenv("SHELL"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BinDir returns the managed directory.
func (m *Manager) BinDir() string {
	return m.binDir
}

// LinkName returns the versioned name for an executable.
func LinkName(name, id string) string {
	return name + "-" + id
}

type plannedLink struct {
	name    string
	target  string
	path    string
	replace bool
}

// Setup builds the workspace and links each entry as <name>-<id> in the bin
// directory. Every target is validated before any link is written or any
// file is replaced. The returned names follow entry order.
func (m *Manager) Setup(ctx context.Context, workspacePath, id string, entries []BinEntry, opts SetupOptions) ([]string, error) {
	if id == "" {
		return nil, errors.ValidationError("executable id cannot be empty")
	}

	if m.builder != nil {
		logging.Debug("building workspace", "path", workspacePath)
		if err := m.builder.Build(ctx, workspacePath); err != nil {
			return nil, errors.BuildFailed(workspacePath, err)
		}
	}

	if err := m.fs.MkdirAll(m.binDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bin directory %s: %w", m.binDir, err)
	}

	plan := make([]plannedLink, 0, len(entries))
	for _, entry := range entries {
		target, err := securejoin.SecureJoin(workspacePath, entry.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s in %s: %w", entry.Target, workspacePath, err)
		}

		info, err := m.fs.Stat(target)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, errors.TargetMissing(target)
			}
			return nil, fmt.Errorf("failed to stat %s: %w", target, err)
		}
		if info.IsDir() || info.Mode().Perm()&0111 == 0 {
			return nil, errors.TargetNotExecutable(target)
		}

		name := LinkName(entry.Name, id)
		linkPath := filepath.Join(m.binDir, name)
		replace := false
		if existing, err := m.fs.Lstat(linkPath); err == nil && existing.Mode()&fs.ModeSymlink == 0 {
			if !opts.Force {
				return nil, errors.Conflict(linkPath)
			}
			replace = true
		}

		plan = append(plan, plannedLink{name: name, target: target, path: linkPath, replace: replace})
	}

	linked := make([]string, 0, len(plan))
	for _, p := range plan {
		if p.replace {
			if err := m.fs.RemoveAll(p.path); err != nil {
				return linked, fmt.Errorf("failed to replace %s: %w", p.path, err)
			}
		}
		if err := m.link(p.target, p.path); err != nil {
			return linked, err
		}
		logging.Debug("linked executable", "name", p.name, "target", p.target)
		linked = append(linked, p.name)
	}

	m.advisePath()
	return linked, nil
}

// link points path at target by renaming a temporary link into place, so a
// concurrent reader sees either the old link or the new one.
func (m *Manager) link(target, path string) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp-"+strconv.Itoa(os.Getpid()))
	_ = m.fs.Remove(tmp)

	if err := m.fs.Symlink(target, tmp); err != nil {
		return fmt.Errorf("failed to create link %s: %w", path, err)
	}
	if err := m.fs.Rename(tmp, path); err != nil {
		_ = m.fs.Remove(tmp)
		return fmt.Errorf("failed to install link %s: %w", path, err)
	}
	return nil
}

// CleanupVersionedExecutables removes every entry whose name ends with
// "-<id>". It never fails; entries that vanish concurrently are skipped
// silently and other failures are logged. Only entries actually removed are
// returned.
func (m *Manager) CleanupVersionedExecutables(id string) []string {
	if id == "" {
		return nil
	}

	entries, err := m.fs.ReadDir(m.binDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.Warn("failed to list bin directory", "dir", m.binDir, "error", err)
		}
		return nil
	}

	suffix := "-" + id
	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || len(name) <= len(suffix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		if err := m.fs.Remove(filepath.Join(m.binDir, name)); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logging.Warn("failed to remove versioned executable", "name", name, "error", err)
			}
			continue
		}
		removed = append(removed, name)
	}
	return removed
}

// FindOrphanedSymlinks lists links in the bin directory whose targets no
// longer resolve. Regular files are ignored. A missing bin directory yields
// no orphans.
func (m *Manager) FindOrphanedSymlinks() ([]OrphanedSymlink, error) {
	entries, err := m.fs.ReadDir(m.binDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list bin directory %s: %w", m.binDir, err)
	}

	var orphans []OrphanedSymlink
	for _, entry := range entries {
		if entry.Type()&fs.ModeSymlink == 0 {
			continue
		}
		path := filepath.Join(m.binDir, entry.Name())
		target, err := m.fs.Readlink(path)
		if err != nil {
			logging.Debug("skipping unreadable link", "path", path, "error", err)
			continue
		}
		if _, err := m.fs.Stat(path); err == nil {
			continue
		}
		orphans = append(orphans, OrphanedSymlink{
			Name:         entry.Name(),
			Path:         path,
			BrokenTarget: target,
		})
	}
	return orphans, nil
}

// CleanupOrphanedSymlinks removes every orphaned link and returns how many
// were removed.
func (m *Manager) CleanupOrphanedSymlinks() (int, error) {
	orphans, err := m.FindOrphanedSymlinks()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, o := range orphans {
		if err := m.fs.Remove(o.Path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logging.Warn("failed to remove orphaned link", "name", o.Name, "error", err)
			}
			continue
		}
		logging.Debug("removed orphaned link", "name", o.Name, "target", o.BrokenTarget)
		count++
	}
	return count, nil
}

// OnPath reports whether the bin directory is listed in PATH.
func (m *Manager) OnPath() bool {
	want := filepath.Clean(m.binDir)
	for _, dir := range filepath.SplitList(m.pathEnv) {
		if dir != "" && filepath.Clean(dir) == want {
			return true
		}
	}
	return false
}

func (m *Manager) advisePath() {
	if m.OnPath() {
		return
	}
	m.advised.Do(func() {
		logging.UserWarning("%s is not on your PATH", m.binDir)
		for _, line := range PathAdvice(m.binDir, m.shell) {
			logging.UserInfo("  %s", line)
		}
	})
}

// PathAdvice returns shell-specific instructions for adding binDir to PATH.
func PathAdvice(binDir, shell string) []string {
	quoted := shellquote.Join(binDir)
	export := fmt.Sprintf("export PATH=%s:$PATH", quoted)

	switch filepath.Base(shell) {
	case "zsh":
		return []string{"Add this line to ~/.zshrc:", export}
	case "bash":
		return []string{"Add this line to ~/.bashrc:", export}
	case "fish":
		return []string{"Run once in fish:", "fish_add_path " + quoted}
	default:
		return []string{"Add this line to your shell profile:", export}
	}
}
