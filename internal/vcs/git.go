package vcs

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/firefly-engineering/loom/internal/system"
)

// Worktree is one entry of `git worktree list --porcelain`.
type Worktree struct {
	Path       string `json:"path"`
	Branch     string `json:"branch,omitempty"`
	CommitHash string `json:"commitHash,omitempty"`
	Bare       bool   `json:"bare,omitempty"`
	Detached   bool   `json:"detached,omitempty"`
	Locked     bool   `json:"locked,omitempty"`
	Prunable   bool   `json:"prunable,omitempty"`
}

// Name returns the final path element of the worktree directory.
func (w Worktree) Name() string {
	return filepath.Base(w.Path)
}

// Repository runs git against one repository. Repository-wide commands run
// in dir; per-worktree queries take the worktree path explicitly.
type Repository struct {
	dir  string
	exec system.CommandExecutor
}

// NewRepository returns a Repository targeting dir. A nil executor uses the
// OS executor.
func NewRepository(dir string, exec system.CommandExecutor) *Repository {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	return &Repository{dir: dir, exec: exec}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Discover returns a Repository for the git checkout containing dir.
func Discover(ctx context.Context, dir string, exec system.CommandExecutor) (*Repository, error) {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	out, err := exec.ExecuteInDir(ctx, dir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not inside a git repository (%s): %s: %w", dir, strings.TrimSpace(string(out)), err)
	}
	return NewRepository(strings.TrimSpace(string(out)), exec), nil
}

func (r *Repository) run(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := r.exec.ExecuteInDir(ctx, dir, "git", args...)
	if err != nil {
		return "", fmt.Errorf("git %s in %s: %w (output: %s)",
			strings.Join(args, " "), dir, err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// ListWorktrees enumerates the repository's worktrees. The main worktree is
// always the first entry.
func (r *Repository) ListWorktrees(ctx context.Context) ([]Worktree, error) {
	out, err := r.run(ctx, r.dir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return ParseWorktreeList(out), nil
}

// ParseWorktreeList parses `git worktree list --porcelain` output.
func ParseWorktreeList(output string) []Worktree {
	var (
		worktrees []Worktree
		current   *Worktree
	)
	flush := func() {
		if current != nil {
			worktrees = append(worktrees, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			flush()
			continue
		}
		key, value, _ := strings.Cut(line, " ")
		switch key {
		case "worktree":
			flush()
			current = &Worktree{Path: value}
		case "HEAD":
			if current != nil {
				current.CommitHash = value
			}
		case "branch":
			if current != nil {
				current.Branch = strings.TrimPrefix(value, "refs/heads/")
			}
		case "bare":
			if current != nil {
				current.Bare = true
			}
		case "detached":
			if current != nil {
				current.Detached = true
			}
		case "locked":
			if current != nil {
				current.Locked = true
			}
		case "prunable":
			if current != nil {
				current.Prunable = true
			}
		}
	}
	flush()
	return worktrees
}

// RemoveWorktree removes the worktree at path. With force, git discards
// local modifications and ignores the lock.
func (r *Repository) RemoveWorktree(ctx context.Context, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		// Two --force flags are needed to remove a locked worktree.
		args = append(args, "--force", "--force")
	}
	args = append(args, path)
	if _, err := r.run(ctx, r.dir, args...); err != nil {
		return err
	}
	return nil
}

// PruneWorktrees drops administrative records for worktrees whose
// directories are gone.
func (r *Repository) PruneWorktrees(ctx context.Context) error {
	_, err := r.run(ctx, r.dir, "worktree", "prune")
	return err
}

// BranchExists reports whether refs/heads/<branch> exists.
func (r *Repository) BranchExists(ctx context.Context, branch string) (bool, error) {
	out, err := r.exec.ExecuteInDir(ctx, r.dir, "git", "branch", "--list", branch)
	if err != nil {
		return false, fmt.Errorf("git branch --list %s: %w (output: %s)", branch, err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// DeleteBranch deletes a local branch. Without force git refuses to delete
// branches that are not merged.
func (r *Repository) DeleteBranch(ctx context.Context, branch string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := r.run(ctx, r.dir, "branch", flag, branch)
	return err
}

// HasUncommittedChanges reports whether the worktree at dir has staged,
// unstaged, or untracked changes.
func (r *Repository) HasUncommittedChanges(ctx context.Context, dir string) (bool, error) {
	out, err := r.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// UnpushedCommits returns how many commits the worktree at dir has ahead of
// its upstream. A branch without an upstream reports zero and hasUpstream
// false.
func (r *Repository) UnpushedCommits(ctx context.Context, dir string) (count int, hasUpstream bool, err error) {
	if _, err := r.exec.ExecuteInDir(ctx, dir, "git", "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}"); err != nil {
		return 0, false, nil
	}
	out, err := r.run(ctx, dir, "rev-list", "--count", "@{u}..HEAD")
	if err != nil {
		return 0, true, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, true, fmt.Errorf("parse rev-list count %q: %w", strings.TrimSpace(out), err)
	}
	return n, true, nil
}

// IsMerged reports whether every commit on branch is reachable from into.
func (r *Repository) IsMerged(ctx context.Context, branch, into string) (bool, error) {
	out, err := r.exec.ExecuteInDir(ctx, r.dir, "git", "merge-base", "--is-ancestor", branch, into)
	if err == nil {
		return true, nil
	}
	// Exit status 1 means "not an ancestor"; anything with output is a real failure.
	if strings.TrimSpace(string(out)) == "" {
		return false, nil
	}
	return false, fmt.Errorf("git merge-base --is-ancestor %s %s: %w (output: %s)", branch, into, err, strings.TrimSpace(string(out)))
}

// DefaultBranch returns the branch origin/HEAD points at, or fallback when
// the remote head is unknown.
func (r *Repository) DefaultBranch(ctx context.Context, fallback string) string {
	out, err := r.exec.ExecuteInDir(ctx, r.dir, "git", "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err != nil {
		return fallback
	}
	ref := strings.TrimSpace(string(out))
	if _, branch, ok := strings.Cut(ref, "/"); ok && branch != "" {
		return branch
	}
	return fallback
}
