package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/firefly-engineering/loom/internal/config"
	"github.com/firefly-engineering/loom/internal/errors"
	"github.com/firefly-engineering/loom/internal/identifier"
	"github.com/firefly-engineering/loom/internal/logging"
	"github.com/firefly-engineering/loom/internal/registry"
	"github.com/firefly-engineering/loom/internal/teardown"
)

// Teardown runs one loom teardown. *teardown.Engine satisfies it.
type Teardown interface {
	Run(ctx context.Context, req teardown.Request) (*teardown.Result, error)
}

// Records lists loom metadata. *config.MetadataStore satisfies it.
type Records interface {
	List() ([]*config.LoomMetadata, error)
}

// WorkspaceEntry is one workspace in list mode.
type WorkspaceEntry struct {
	Name       string                 `json:"name"`
	Path       string                 `json:"path"`
	Branch     string                 `json:"branch,omitempty"`
	Main       bool                   `json:"main"`
	Identifier identifier.Description `json:"identifier"`
}

// Summary aggregates the results of a run.
type Summary struct {
	Targets           int `json:"targets"`
	WorkspacesRemoved int `json:"workspacesRemoved"`
	BranchesDeleted   int `json:"branchesDeleted"`
	DatabasesDeleted  int `json:"databasesDeleted"`
	Failed            int `json:"failed"`
}

// Outcome is the structured result of a coordinator run.
type Outcome struct {
	Mode       Mode               `json:"mode"`
	DryRun     bool               `json:"dryRun"`
	Cancelled  bool               `json:"cancelled,omitempty"`
	Workspaces []WorkspaceEntry   `json:"workspaces,omitempty"`
	Results    []*teardown.Result `json:"results,omitempty"`
	Summary    *Summary           `json:"summary,omitempty"`
}

// Coordinator dispatches cleanup requests to the teardown engine.
type Coordinator struct {
	registry    *registry.Registry
	teardown    Teardown
	records     Records
	prompter    teardown.Prompter
	interactive bool
	jsonOutput  bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRecords lets single-loom cleanup resolve looms whose workspace is
// already gone.
func WithRecords(r Records) Option {
	return func(c *Coordinator) { c.records = r }
}

// WithPrompter sets the batch confirmation prompter.
func WithPrompter(p teardown.Prompter) Option {
	return func(c *Coordinator) { c.prompter = p }
}

// WithInteractive marks the session as attached to a terminal.
func WithInteractive(interactive bool) Option {
	return func(c *Coordinator) { c.interactive = interactive }
}

// WithJSON marks the session as producing machine-readable output.
func WithJSON(jsonOutput bool) Option {
	return func(c *Coordinator) { c.jsonOutput = jsonOutput }
}

// New creates a Coordinator.
func New(reg *registry.Registry, td Teardown, opts ...Option) *Coordinator {
	c := &Coordinator{registry: reg, teardown: td}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the cleanup described by in. The Outcome is returned even
// when err is non-nil so callers can render partial batches.
func (c *Coordinator) Run(ctx context.Context, in Input) (*Outcome, error) {
	mode, err := ParseMode(in)
	if err != nil {
		return nil, err
	}
	logging.Debug("cleanup", "mode", mode, "dryRun", in.DryRun, "force", in.Force)

	switch mode {
	case ModeList:
		return c.list(ctx)
	case ModeSingle:
		return c.single(ctx, in)
	case ModeIssue:
		issue := normalizeIssue(in.Issue)
		targets, err := c.registry.FindByIssueOrPR(ctx, issue)
		if err != nil {
			return nil, errors.VCSError("failed to list workspaces", err)
		}
		if len(targets) == 0 {
			return nil, errors.NotFound(in.Issue)
		}
		return c.batch(ctx, mode, in, targets)
	case ModeAll:
		workspaces, err := c.registry.ListWorkspaces(ctx)
		if err != nil {
			return nil, errors.VCSError("failed to list workspaces", err)
		}
		var targets []registry.Workspace
		for _, ws := range workspaces {
			if !registry.IsMain(workspaces, ws) {
				targets = append(targets, ws)
			}
		}
		return c.batch(ctx, mode, in, targets)
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}

func (c *Coordinator) list(ctx context.Context) (*Outcome, error) {
	workspaces, err := c.registry.ListWorkspaces(ctx)
	if err != nil {
		return nil, errors.VCSError("failed to list workspaces", err)
	}

	out := &Outcome{Mode: ModeList, Workspaces: []WorkspaceEntry{}}
	for _, ws := range workspaces {
		out.Workspaces = append(out.Workspaces, WorkspaceEntry{
			Name:       ws.Name(),
			Path:       ws.Path,
			Branch:     ws.Branch,
			Main:       registry.IsMain(workspaces, ws),
			Identifier: identifier.Describe(identifier.FromWorkspace(ws)),
		})
	}
	return out, nil
}

func (c *Coordinator) single(ctx context.Context, in Input) (*Outcome, error) {
	workspaces, err := c.registry.ListWorkspaces(ctx)
	if err != nil {
		return nil, errors.VCSError("failed to list workspaces", err)
	}

	id, err := identifier.Resolve(in.Identifier, workspaces)
	if errors.HasCode(err, errors.ExitNotFound) {
		id, err = c.resolveRecorded(in.Identifier, err)
	}
	if err != nil {
		return nil, err
	}
	logging.Debug("resolved identifier", "input", in.Identifier, "identifier", identifier.String(id))

	out := &Outcome{Mode: ModeSingle, DryRun: in.DryRun}
	res, err := c.teardown.Run(ctx, teardown.Request{Identifier: id, Options: options(in)})
	if res != nil {
		out.Results = []*teardown.Result{res}
		out.Cancelled = res.State == teardown.StateCancelled
	}
	out.Summary = summarize(out.Results)
	return out, err
}

// resolveRecorded retries resolution against metadata records so a
// partially torn down loom can be finished.
func (c *Coordinator) resolveRecorded(input string, notFound error) (identifier.Identifier, error) {
	if c.records == nil {
		return nil, notFound
	}
	records, err := c.records.List()
	if err != nil || len(records) == 0 {
		return nil, notFound
	}
	ghosts := make([]registry.Workspace, 0, len(records))
	for _, rec := range records {
		ghosts = append(ghosts, registry.Workspace{Path: rec.Path, Branch: rec.Branch})
	}
	id, err := identifier.Resolve(input, ghosts)
	if err != nil {
		return nil, notFound
	}
	logging.Debug("resolved identifier from loom metadata", "input", input)
	return id, nil
}

func (c *Coordinator) batch(ctx context.Context, mode Mode, in Input, targets []registry.Workspace) (*Outcome, error) {
	out := &Outcome{Mode: mode, DryRun: in.DryRun, Results: []*teardown.Result{}}
	if len(targets) == 0 {
		logging.UserInfo("No looms to clean up")
		out.Summary = summarize(nil)
		return out, nil
	}

	if c.shouldConfirm(in) {
		ok, err := c.prompter.Confirm(batchMessage(targets, in))
		if err != nil {
			return nil, fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			out.Cancelled = true
			out.Summary = summarize(nil)
			return out, nil
		}
	}

	opts := options(in)
	opts.SkipConfirm = true
	for _, ws := range c.childrenFirst(targets) {
		id := identifier.FromWorkspace(ws)
		res, err := c.teardown.Run(ctx, teardown.Request{Identifier: id, Workspace: &ws, Options: opts})
		if err != nil {
			logging.Warn("teardown failed", "workspace", ws.Path, "error", err)
		}
		if res == nil && err != nil {
			res = &teardown.Result{
				Identifier: identifier.Describe(id),
				Workspace:  ws.Path,
				Branch:     ws.Branch,
				State:      teardown.StateFailed,
				DryRun:     in.DryRun,
				Operations: []teardown.Operation{},
				Errors:     []string{err.Error()},
			}
		}
		if res != nil {
			out.Results = append(out.Results, res)
		}
	}

	out.Summary = summarize(out.Results)
	if out.Summary.Failed > 0 {
		return out, errors.New(errors.ExitTeardownFailed,
			fmt.Sprintf("%d of %d looms failed to clean up", out.Summary.Failed, out.Summary.Targets))
	}
	return out, nil
}

// childrenFirst orders targets so that a loom forked from another target is
// torn down before its parent, which would otherwise be refused. Unrelated
// targets keep their order.
func (c *Coordinator) childrenFirst(targets []registry.Workspace) []registry.Workspace {
	if c.records == nil || len(targets) < 2 {
		return targets
	}
	records, err := c.records.List()
	if err != nil {
		logging.Debug("loom metadata unavailable; keeping batch order", "error", err)
		return targets
	}

	parent := make(map[string]string, len(records))
	for _, rec := range records {
		if rec.ParentBranch != "" {
			parent[rec.Branch] = rec.ParentBranch
		}
	}
	inBatch := make(map[string]bool, len(targets))
	for _, ws := range targets {
		if ws.Branch != "" {
			inBatch[ws.Branch] = true
		}
	}

	// depth counts ancestors that are also in the batch; bounded so a
	// cyclic record cannot loop.
	depth := make(map[string]int, len(targets))
	for _, ws := range targets {
		d := 0
		for b, n := parent[ws.Branch], 0; b != "" && n < len(targets); b, n = parent[b], n+1 {
			if inBatch[b] {
				d++
			}
		}
		depth[ws.Branch] = d
	}

	ordered := append([]registry.Workspace(nil), targets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return depth[ordered[i].Branch] > depth[ordered[j].Branch]
	})
	return ordered
}

func (c *Coordinator) shouldConfirm(in Input) bool {
	if in.Force || in.DryRun {
		return false
	}
	return c.interactive && !c.jsonOutput && c.prompter != nil
}

func batchMessage(targets []registry.Workspace, in Input) string {
	names := make([]string, 0, len(targets))
	for _, ws := range targets {
		names = append(names, ws.Name())
	}
	msg := fmt.Sprintf("Tear down %d loom(s): %s", len(targets), strings.Join(names, ", "))
	if in.DeleteBranch {
		msg += " and delete their branches"
	}
	return msg + "?"
}

func options(in Input) teardown.Options {
	return teardown.Options{
		DryRun:           in.DryRun,
		Force:            in.Force,
		DeleteBranch:     in.DeleteBranch,
		KeepDatabase:     in.KeepDatabase,
		CheckMergeSafety: in.CheckMergeSafety,
	}
}

func summarize(results []*teardown.Result) *Summary {
	s := &Summary{Targets: len(results)}
	for _, res := range results {
		if res.State != teardown.StateCancelled && !res.Success {
			s.Failed++
		}
		if res.Deleted(teardown.OpWorktree) {
			s.WorkspacesRemoved++
		}
		if res.Deleted(teardown.OpBranch) {
			s.BranchesDeleted++
		}
		if res.Deleted(teardown.OpDatabase) {
			s.DatabasesDeleted++
		}
	}
	return s
}
