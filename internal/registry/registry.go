// Package registry is the query layer over the live set of loom workspaces.
//
// Nothing is cached: every lookup re-lists the repository's worktrees so
// safety checks never act on stale data. The Match* functions are pure and
// operate on a listing the caller already has; the identifier resolver uses
// them directly so classification stays free of side effects.
package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/firefly-engineering/loom/internal/vcs"
)

// Workspace is a git worktree viewed as a loom.
type Workspace = vcs.Worktree

// Lister enumerates worktrees. *vcs.Repository satisfies it.
type Lister interface {
	ListWorktrees(ctx context.Context) ([]vcs.Worktree, error)
}

// Registry answers workspace queries against the live repository state.
type Registry struct {
	lister Lister
}

// New returns a Registry backed by lister.
func New(lister Lister) *Registry {
	return &Registry{lister: lister}
}

// ListWorkspaces returns every worktree, main first.
func (r *Registry) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	workspaces, err := r.lister.ListWorktrees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	return workspaces, nil
}

// FindByIssue returns the workspace for an issue id, or nil.
func (r *Registry) FindByIssue(ctx context.Context, id string) (*Workspace, error) {
	workspaces, err := r.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	return MatchIssue(workspaces, id), nil
}

// FindByPR returns the workspace for a pull request, or nil. branchHint, when
// known, also matches a workspace checked out on that branch.
func (r *Registry) FindByPR(ctx context.Context, number int, branchHint string) (*Workspace, error) {
	workspaces, err := r.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	return MatchPR(workspaces, number, branchHint), nil
}

// FindByBranch returns the workspace checked out on branch, or nil.
func (r *Registry) FindByBranch(ctx context.Context, branch string) (*Workspace, error) {
	workspaces, err := r.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	return MatchBranch(workspaces, branch), nil
}

// FindByPath returns the workspace rooted at path, or nil.
func (r *Registry) FindByPath(ctx context.Context, path string) (*Workspace, error) {
	workspaces, err := r.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	clean := filepath.Clean(path)
	for i := range workspaces {
		if filepath.Clean(workspaces[i].Path) == clean {
			return &workspaces[i], nil
		}
	}
	return nil, nil
}

// FindByIssueOrPR returns every non-main workspace whose directory name or
// branch carries id as a whole token. Used by issue-scoped batch teardown.
func (r *Registry) FindByIssueOrPR(ctx context.Context, id string) ([]Workspace, error) {
	workspaces, err := r.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	if len(workspaces) == 0 {
		return nil, nil
	}
	return MatchNumber(workspaces[1:], id), nil
}

// IsMainWorkspace reports whether ws is the repository's main worktree.
func (r *Registry) IsMainWorkspace(ctx context.Context, ws Workspace) (bool, error) {
	workspaces, err := r.ListWorkspaces(ctx)
	if err != nil {
		return false, err
	}
	return IsMain(workspaces, ws), nil
}

// IsMain reports whether ws is the first (main) entry of workspaces or a
// bare repository.
func IsMain(workspaces []Workspace, ws Workspace) bool {
	if ws.Bare {
		return true
	}
	if len(workspaces) == 0 {
		return false
	}
	return filepath.Clean(workspaces[0].Path) == filepath.Clean(ws.Path)
}

// MatchPR finds the workspace for pull request number: a directory named
// like "<anything>_pr_<n>", or a workspace on branchHint.
func MatchPR(workspaces []Workspace, number int, branchHint string) *Workspace {
	pattern := regexp.MustCompile(`(?i)(?:^|[_-])pr[_-]` + strconv.Itoa(number) + `$`)
	for i := range workspaces {
		if pattern.MatchString(workspaces[i].Name()) {
			return &workspaces[i]
		}
	}
	if branchHint != "" {
		return MatchBranch(workspaces, branchHint)
	}
	return nil
}

// MatchIssue finds the workspace for an issue id. Numeric ids must appear as
// "issue-<n>" in the branch or directory name; alphanumeric ids such as
// "ENG-42" may also appear bare.
func MatchIssue(workspaces []Workspace, id string) *Workspace {
	quoted := regexp.QuoteMeta(id)
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:^|[/_-])issue[-_]?` + quoted + `(?:$|[/_-])`),
	}
	if !isDigits(id) {
		patterns = append(patterns, regexp.MustCompile(`(?i)(?:^|[/_-])`+quoted+`(?:$|[/_-])`))
	}
	for _, p := range patterns {
		for i := range workspaces {
			if p.MatchString(workspaces[i].Branch) || p.MatchString(workspaces[i].Name()) {
				return &workspaces[i]
			}
		}
	}
	return nil
}

// MatchBranch finds the workspace checked out on exactly branch.
func MatchBranch(workspaces []Workspace, branch string) *Workspace {
	for i := range workspaces {
		if workspaces[i].Branch != "" && workspaces[i].Branch == branch {
			return &workspaces[i]
		}
	}
	return nil
}

// MatchNumber returns all workspaces whose directory name or branch contains
// id delimited by non-alphanumerics, so "25" matches "issue-25" and
// "feat_pr_25" but not "issue-125".
func MatchNumber(workspaces []Workspace, id string) []Workspace {
	pattern := regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9])` + regexp.QuoteMeta(id) + `(?:$|[^A-Za-z0-9])`)
	var matches []Workspace
	for _, ws := range workspaces {
		if pattern.MatchString(ws.Name()) || pattern.MatchString(ws.Branch) {
			matches = append(matches, ws)
		}
	}
	return matches
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
