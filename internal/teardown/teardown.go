package teardown

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/firefly-engineering/loom/internal/config"
	"github.com/firefly-engineering/loom/internal/database"
	"github.com/firefly-engineering/loom/internal/errors"
	"github.com/firefly-engineering/loom/internal/identifier"
	"github.com/firefly-engineering/loom/internal/logging"
	"github.com/firefly-engineering/loom/internal/registry"
	"github.com/firefly-engineering/loom/internal/system"
	"github.com/firefly-engineering/loom/internal/tracker"
	"github.com/firefly-engineering/loom/internal/vcs"
)

// VCS is the subset of git operations teardown needs. *vcs.Repository
// satisfies it.
type VCS interface {
	ListWorktrees(ctx context.Context) ([]vcs.Worktree, error)
	RemoveWorktree(ctx context.Context, path string, force bool) error
	PruneWorktrees(ctx context.Context) error
	BranchExists(ctx context.Context, branch string) (bool, error)
	DeleteBranch(ctx context.Context, branch string, force bool) error
	HasUncommittedChanges(ctx context.Context, dir string) (bool, error)
	UnpushedCommits(ctx context.Context, dir string) (count int, hasUpstream bool, err error)
	IsMerged(ctx context.Context, branch, into string) (bool, error)
}

// Executables removes a loom's versioned executables. *binlink.Manager
// satisfies it.
type Executables interface {
	CleanupVersionedExecutables(id string) []string
}

// Metadata stores loom records. *config.MetadataStore satisfies it.
type Metadata interface {
	List() ([]*config.LoomMetadata, error)
	Exists(branch string) bool
	Delete(branch string) error
}

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(message string) (bool, error)
}

// Options controls a teardown run.
type Options struct {
	DryRun           bool
	Force            bool
	DeleteBranch     bool
	KeepDatabase     bool
	CheckMergeSafety bool
	// SkipConfirm suppresses the per-loom prompt, for batches that already
	// confirmed once.
	SkipConfirm bool
}

// Request describes one loom to tear down. Workspace may carry a loom the
// caller already located.
type Request struct {
	Identifier identifier.Identifier
	Workspace  *vcs.Worktree
	Options    Options
}

// State is the terminal state of a run.
type State string

const (
	StateCompleted           State = "completed"
	StateCompletedWithErrors State = "completed_with_errors"
	StateCancelled           State = "cancelled"
	StateRefused             State = "refused"
	StateFailed              State = "failed"
)

// OperationType names a resource action.
type OperationType string

const (
	OpWorktree    OperationType = "worktree"
	OpBranch      OperationType = "branch"
	OpDatabase    OperationType = "database"
	OpExecutables OperationType = "executables"
	OpMetadata    OperationType = "metadata"
)

// Operation records the outcome of one resource action.
type Operation struct {
	Type    OperationType `json:"type"`
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Error   string        `json:"error,omitempty"`
	// Deleted is set when the action ran for real: true if something was
	// removed, false if the resource was already gone.
	Deleted *bool `json:"deleted,omitempty"`
}

// Result is the structured outcome of a run.
type Result struct {
	Identifier       identifier.Description `json:"identifier"`
	Workspace        string                 `json:"workspace,omitempty"`
	Branch           string                 `json:"branch,omitempty"`
	State            State                  `json:"state"`
	Success          bool                   `json:"success"`
	DryRun           bool                   `json:"dryRun"`
	Operations       []Operation            `json:"operations"`
	Errors           []string               `json:"errors"`
	RollbackRequired bool                   `json:"rollbackRequired"`
}

// Failed returns the number of failed operations.
func (r *Result) Failed() int {
	n := 0
	for _, op := range r.Operations {
		if !op.Success {
			n++
		}
	}
	return n
}

// Deleted reports whether an operation of type t removed something.
func (r *Result) Deleted(t OperationType) bool {
	for _, op := range r.Operations {
		if op.Type == t && op.Success && op.Deleted != nil && *op.Deleted {
			return true
		}
	}
	return false
}

// Engine tears looms down.
type Engine struct {
	vcs         VCS
	executables Executables
	database    database.Provider
	tracker     tracker.Tracker
	metadata    Metadata
	prompter    Prompter
	fs          system.FileSystem
	mainBranch  string
	interactive bool
	jsonOutput  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithExecutables enables versioned executable cleanup.
func WithExecutables(x Executables) Option {
	return func(e *Engine) { e.executables = x }
}

// WithDatabase enables database branch deletion. A nil provider disables it.
func WithDatabase(p database.Provider) Option {
	return func(e *Engine) { e.database = p }
}

// WithTracker enables the dependent-loom checks.
func WithTracker(t tracker.Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithMetadata enables metadata lookup and removal.
func WithMetadata(m Metadata) Option {
	return func(e *Engine) { e.metadata = m }
}

// WithPrompter sets the confirmation prompter.
func WithPrompter(p Prompter) Option {
	return func(e *Engine) { e.prompter = p }
}

// WithFileSystem lets the engine notice workspaces whose directory was
// deleted behind git's back.
func WithFileSystem(fsys system.FileSystem) Option {
	return func(e *Engine) { e.fs = fsys }
}

// WithMainBranch sets the merge target used when a loom has no recorded
// parent branch.
func WithMainBranch(branch string) Option {
	return func(e *Engine) { e.mainBranch = branch }
}

// WithInteractive marks the session as attached to a terminal.
func WithInteractive(interactive bool) Option {
	return func(e *Engine) { e.interactive = interactive }
}

// WithJSON marks the session as producing machine-readable output.
func WithJSON(jsonOutput bool) Option {
	return func(e *Engine) { e.jsonOutput = jsonOutput }
}

// New returns an Engine using v for git operations.
func New(v VCS, opts ...Option) *Engine {
	e := &Engine{vcs: v, mainBranch: config.DefaultMainBranch}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// target is the loom a run acts on. exists is false when the workspace is
// already gone; path and branch may then come from its metadata record.
// orphaned is set when git still lists the workspace but its directory is
// gone.
type target struct {
	path     string
	branch   string
	exists   bool
	orphaned bool
	isMain   bool
	record   *config.LoomMetadata
}

// Run tears down the loom in req. Validation failures return before any
// resource is touched. Once execution starts every action is attempted and
// recorded; a run with failed actions returns its Result together with a
// TeardownFailed error.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Identifier == nil {
		return nil, errors.ValidationError("teardown requires an identifier")
	}
	opts := req.Options
	label := identifier.String(req.Identifier)
	log := logging.With("loom", label)

	res := &Result{
		Identifier: identifier.Describe(req.Identifier),
		DryRun:     opts.DryRun,
		Operations: []Operation{},
		Errors:     []string{},
	}

	t, err := e.resolve(ctx, req)
	if err != nil {
		res.State = StateFailed
		res.Errors = append(res.Errors, err.Error())
		return res, err
	}
	res.Workspace = t.path
	res.Branch = t.branch
	log.Debug("resolved loom", "path", t.path, "branch", t.branch, "exists", t.exists)

	if refused, err := e.checkChildren(ctx, t, res); refused || err != nil {
		return res, err
	}

	if e.shouldConfirm(opts) {
		ok, err := e.prompter.Confirm(confirmMessage(label, t, opts))
		if err != nil {
			res.State = StateFailed
			res.Errors = append(res.Errors, err.Error())
			return res, fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			log.Debug("teardown declined")
			res.State = StateCancelled
			return res, nil
		}
	}

	// Re-check: a child may have appeared while the prompt was open.
	if refused, err := e.checkChildren(ctx, t, res); refused || err != nil {
		return res, err
	}

	if violations := e.validate(ctx, t, opts); len(violations) > 0 {
		res.State = StateFailed
		res.Errors = append(res.Errors, violations...)
		return res, errors.SafetyViolation(fmt.Sprintf("cannot tear down %s: %s", label, strings.Join(violations, "; ")))
	}

	e.execute(ctx, req.Identifier, t, opts, res, log)

	failed := res.Failed()
	res.Success = failed == 0
	if failed > 0 {
		res.State = StateCompletedWithErrors
		return res, errors.TeardownFailed(label, failed)
	}
	res.State = StateCompleted
	return res, nil
}

func (e *Engine) resolve(ctx context.Context, req Request) (*target, error) {
	workspaces, err := e.vcs.ListWorktrees(ctx)
	if err != nil {
		return nil, errors.VCSError("failed to list workspaces", err)
	}

	t := &target{}
	var ws *registry.Workspace
	if req.Workspace != nil {
		for i := range workspaces {
			if filepath.Clean(workspaces[i].Path) == filepath.Clean(req.Workspace.Path) {
				ws = &workspaces[i]
				break
			}
		}
		if ws == nil {
			t.path = req.Workspace.Path
			t.branch = req.Workspace.Branch
		}
	} else {
		ws = identifier.Locate(req.Identifier, workspaces)
	}

	if ws != nil {
		t.path = ws.Path
		t.branch = ws.Branch
		t.exists = true
		t.orphaned = ws.Prunable || e.directoryGone(ws.Path)
		t.isMain = registry.IsMain(workspaces, *ws)
	}

	if e.metadata != nil {
		records, err := e.metadata.List()
		if err != nil {
			logging.Debug("failed to list loom metadata", "error", err)
		}
		t.record = findRecord(req.Identifier, t, records)
		if t.record != nil && t.branch == "" {
			t.branch = t.record.Branch
			if t.path == "" {
				t.path = t.record.Path
			}
		}
	}

	if t.branch == "" && !t.exists {
		switch v := req.Identifier.(type) {
		case identifier.PullRequest:
			t.branch = v.Branch
		case identifier.Branch:
			t.branch = v.Name
		case identifier.Issue:
		}
	}
	return t, nil
}

func (e *Engine) directoryGone(path string) bool {
	if e.fs == nil {
		return false
	}
	_, err := e.fs.Stat(path)
	return errors.Is(err, fs.ErrNotExist)
}

// findRecord returns the metadata record for the loom: by branch when the
// branch is known, otherwise by matching the identifier against the recorded
// paths and branches.
func findRecord(id identifier.Identifier, t *target, records []*config.LoomMetadata) *config.LoomMetadata {
	if t.branch != "" {
		for _, rec := range records {
			if rec.Branch == t.branch {
				return rec
			}
		}
		return nil
	}
	if t.exists {
		return nil
	}
	ghosts := make([]registry.Workspace, 0, len(records))
	for _, rec := range records {
		ghosts = append(ghosts, registry.Workspace{Path: rec.Path, Branch: rec.Branch})
	}
	ghost := identifier.Locate(id, ghosts)
	if ghost == nil {
		return nil
	}
	for _, rec := range records {
		if rec.Branch == ghost.Branch && rec.Path == ghost.Path {
			return rec
		}
	}
	return nil
}

func (e *Engine) checkChildren(ctx context.Context, t *target, res *Result) (bool, error) {
	if e.tracker == nil || t.branch == "" {
		return false, nil
	}
	children, err := e.tracker.Children(ctx, t.branch)
	if err != nil {
		res.State = StateFailed
		res.Errors = append(res.Errors, err.Error())
		return true, fmt.Errorf("failed to check dependent looms of %s: %w", t.branch, err)
	}
	if len(children) > 0 {
		refusal := errors.Refused(t.branch, children)
		res.State = StateRefused
		res.Errors = append(res.Errors, refusal.Error())
		return true, refusal
	}
	return false, nil
}

func (e *Engine) shouldConfirm(opts Options) bool {
	if opts.Force || opts.SkipConfirm || opts.DryRun {
		return false
	}
	return e.interactive && !e.jsonOutput && e.prompter != nil
}

func confirmMessage(label string, t *target, opts Options) string {
	msg := fmt.Sprintf("Tear down %s", label)
	if t.exists {
		msg += fmt.Sprintf(" at %s", t.path)
	}
	if opts.DeleteBranch && t.branch != "" {
		msg += fmt.Sprintf(" and delete branch %s", t.branch)
	}
	return msg + "?"
}

func boolPtr(b bool) *bool {
	return &b
}

func opFailure(t OperationType, msg string, err error) Operation {
	return Operation{Type: t, Success: false, Message: msg, Error: err.Error()}
}

func opDone(t OperationType, msg string, deleted bool) Operation {
	return Operation{Type: t, Success: true, Message: msg, Deleted: boolPtr(deleted)}
}

func opDryRun(t OperationType, msg string) Operation {
	return Operation{Type: t, Success: true, Message: "[DRY RUN] " + msg}
}
