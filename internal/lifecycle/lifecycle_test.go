package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/firefly-engineering/loom/internal/config"
	"github.com/firefly-engineering/loom/internal/errors"
	"github.com/firefly-engineering/loom/internal/identifier"
	"github.com/firefly-engineering/loom/internal/registry"
	"github.com/firefly-engineering/loom/internal/teardown"
	"github.com/firefly-engineering/loom/internal/vcs"
)

type staticLister struct {
	worktrees []vcs.Worktree
}

func (l *staticLister) ListWorktrees(ctx context.Context) ([]vcs.Worktree, error) {
	return append([]vcs.Worktree(nil), l.worktrees...), nil
}

type fakeTeardown struct {
	reqs []teardown.Request
	fail map[string]bool

	// parentOf maps a child branch to its parent; a parent is refused
	// while any child has not been torn down.
	parentOf map[string]string
	removed  map[string]bool
}

func (f *fakeTeardown) Run(ctx context.Context, req teardown.Request) (*teardown.Result, error) {
	f.reqs = append(f.reqs, req)

	res := &teardown.Result{
		Identifier: identifier.Describe(req.Identifier),
		State:      teardown.StateCompleted,
		Success:    true,
		DryRun:     req.Options.DryRun,
		Operations: []teardown.Operation{},
		Errors:     []string{},
	}
	if req.Workspace != nil {
		res.Workspace = req.Workspace.Path
	}

	if req.Workspace != nil {
		for child, parent := range f.parentOf {
			if parent == req.Workspace.Branch && !f.removed[child] {
				res.State = teardown.StateRefused
				res.Success = false
				return res, errors.Refused(parent, []string{child})
			}
		}
	}

	yes := true
	if f.fail[res.Workspace] {
		res.Operations = append(res.Operations, teardown.Operation{Type: teardown.OpWorktree, Message: "Failed to remove workspace", Error: "locked"})
		res.State = teardown.StateCompletedWithErrors
		res.Success = false
		return res, errors.TeardownFailed(res.Workspace, 1)
	}
	res.Operations = append(res.Operations, teardown.Operation{Type: teardown.OpWorktree, Success: true, Message: "Removed workspace", Deleted: &yes})
	if req.Options.DeleteBranch {
		res.Operations = append(res.Operations, teardown.Operation{Type: teardown.OpBranch, Success: true, Message: "Deleted branch", Deleted: &yes})
	}
	if req.Workspace != nil {
		if f.removed == nil {
			f.removed = map[string]bool{}
		}
		f.removed[req.Workspace.Branch] = true
	}
	return res, nil
}

type countingPrompter struct {
	answer bool
	asked  []string
}

func (p *countingPrompter) Confirm(message string) (bool, error) {
	p.asked = append(p.asked, message)
	return p.answer, nil
}

type staticRecords []*config.LoomMetadata

func (r staticRecords) List() ([]*config.LoomMetadata, error) {
	return r, nil
}

func testWorktrees() []vcs.Worktree {
	return []vcs.Worktree{
		{Path: "/src/app", Branch: "main"},
		{Path: "/src/app-looms/issue-25", Branch: "issue-25-cache"},
		{Path: "/src/app-looms/issue-125", Branch: "issue-125-auth"},
		{Path: "/src/app-looms/feat_pr_25", Branch: "feat/pr-25-followup"},
		{Path: "/src/app-looms/spike", Branch: "spike"},
	}
}

func newTestCoordinator(td *fakeTeardown, opts ...Option) *Coordinator {
	reg := registry.New(&staticLister{worktrees: testWorktrees()})
	return New(reg, td, opts...)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		want    Mode
		wantErr string
	}{
		{name: "identifier", in: Input{Identifier: "42"}, want: ModeSingle},
		{name: "issue", in: Input{Issue: "#25"}, want: ModeIssue},
		{name: "all", in: Input{All: true, Force: true}, want: ModeAll},
		{name: "list", in: Input{List: true}, want: ModeList},
		{name: "list with identifier", in: Input{List: true, Identifier: "42"}, wantErr: "--list"},
		{name: "list with force", in: Input{List: true, Force: true}, wantErr: "--list"},
		{name: "list with all", in: Input{List: true, All: true}, wantErr: "--list"},
		{name: "list with issue", in: Input{List: true, Issue: "25"}, wantErr: "--list"},
		{name: "list with dry run", in: Input{List: true, DryRun: true}, wantErr: "--list"},
		{name: "all with identifier", in: Input{All: true, Identifier: "42"}, wantErr: "--all"},
		{name: "all with issue", in: Input{All: true, Issue: "25"}, wantErr: "--all"},
		{name: "identifier with issue", in: Input{Identifier: "42", Issue: "25"}, wantErr: "not both"},
		{name: "nothing", in: Input{}, wantErr: "specify"},
		{name: "blank identifier", in: Input{Identifier: "  ", DryRun: true}, wantErr: "specify"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ParseMode() error = %v, want containing %q", err, tt.wantErr)
				}
				if code := errors.GetExitCode(err); code != errors.ExitGeneralError {
					t.Errorf("exit code = %d, want %d", code, errors.ExitGeneralError)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseMode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRun_List(t *testing.T) {
	td := &fakeTeardown{}
	out, err := newTestCoordinator(td).Run(context.Background(), Input{List: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Workspaces) != 5 {
		t.Fatalf("workspaces = %d, want 5", len(out.Workspaces))
	}
	if !out.Workspaces[0].Main || out.Workspaces[1].Main {
		t.Errorf("only the first workspace should be main: %+v", out.Workspaces)
	}
	if got := out.Workspaces[1].Identifier.String(); got != "issue #25" {
		t.Errorf("identifier = %q", got)
	}
	if len(td.reqs) != 0 {
		t.Error("list must not tear anything down")
	}
}

func TestRun_Single(t *testing.T) {
	td := &fakeTeardown{}
	out, err := newTestCoordinator(td).Run(context.Background(), Input{
		Identifier:       "#125",
		DeleteBranch:     true,
		CheckMergeSafety: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(td.reqs) != 1 {
		t.Fatalf("teardown calls = %d, want 1", len(td.reqs))
	}

	req := td.reqs[0]
	if diff := cmp.Diff(identifier.Identifier(identifier.Issue{ID: "125", Input: "#125"}), req.Identifier); diff != "" {
		t.Errorf("identifier mismatch (-want +got):\n%s", diff)
	}
	wantOpts := teardown.Options{DeleteBranch: true, CheckMergeSafety: true}
	if diff := cmp.Diff(wantOpts, req.Options); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
	if out.Summary.Targets != 1 || out.Summary.BranchesDeleted != 1 {
		t.Errorf("summary = %+v", out.Summary)
	}
}

func TestRun_SingleNotFound(t *testing.T) {
	td := &fakeTeardown{}
	_, err := newTestCoordinator(td).Run(context.Background(), Input{Identifier: "404"})
	if !errors.HasCode(err, errors.ExitNotFound) {
		t.Fatalf("error = %v, want NotFound", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should carry the input: %v", err)
	}
	if len(td.reqs) != 0 {
		t.Error("teardown should not run")
	}
}

func TestRun_SingleResumesFromRecords(t *testing.T) {
	td := &fakeTeardown{}
	records := staticRecords{{Branch: "issue-77-gone", Path: "/src/app-looms/issue-77"}}

	_, err := newTestCoordinator(td, WithRecords(records)).Run(context.Background(), Input{Identifier: "77"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(td.reqs) != 1 {
		t.Fatalf("teardown calls = %d, want 1", len(td.reqs))
	}
	if got, ok := td.reqs[0].Identifier.(identifier.Issue); !ok || got.ID != "77" {
		t.Errorf("identifier = %#v", td.reqs[0].Identifier)
	}
}

func TestRun_IssueMatchesWholeNumber(t *testing.T) {
	td := &fakeTeardown{}
	out, err := newTestCoordinator(td).Run(context.Background(), Input{Issue: "25", Force: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var paths []string
	for _, req := range td.reqs {
		paths = append(paths, req.Workspace.Path)
		if !req.Options.SkipConfirm {
			t.Error("batch teardowns must skip the per-loom prompt")
		}
	}
	want := []string{"/src/app-looms/issue-25", "/src/app-looms/feat_pr_25"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}
	if out.Summary.Targets != 2 || out.Summary.WorkspacesRemoved != 2 {
		t.Errorf("summary = %+v", out.Summary)
	}
}

func TestRun_BatchTearsDownChildrenFirst(t *testing.T) {
	td := &fakeTeardown{parentOf: map[string]string{"feat/pr-25-followup": "issue-25-cache"}}
	records := staticRecords{
		{Branch: "issue-25-cache", Path: "/src/app-looms/issue-25", ParentBranch: "main"},
		{Branch: "feat/pr-25-followup", Path: "/src/app-looms/feat_pr_25", ParentBranch: "issue-25-cache"},
	}

	out, err := newTestCoordinator(td, WithRecords(records)).Run(context.Background(), Input{Issue: "25", Force: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var paths []string
	for _, req := range td.reqs {
		paths = append(paths, req.Workspace.Path)
	}
	want := []string{"/src/app-looms/feat_pr_25", "/src/app-looms/issue-25"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("teardown order mismatch (-want +got):\n%s", diff)
	}
	for _, res := range out.Results {
		if res.State == teardown.StateRefused {
			t.Errorf("%s was refused", res.Workspace)
		}
	}
	if out.Summary.Failed != 0 || out.Summary.WorkspacesRemoved != 2 {
		t.Errorf("summary = %+v", out.Summary)
	}
}

func TestRun_BatchKeepsOrderWithoutRecords(t *testing.T) {
	td := &fakeTeardown{parentOf: map[string]string{"feat/pr-25-followup": "issue-25-cache"}}

	out, err := newTestCoordinator(td).Run(context.Background(), Input{Issue: "25", Force: true})
	if !errors.HasCode(err, errors.ExitTeardownFailed) {
		t.Fatalf("error = %v, want TeardownFailed", err)
	}
	if out.Results[0].State != teardown.StateRefused {
		t.Errorf("first result = %+v, want the parent refused", out.Results[0])
	}
}

func TestRun_IssueNoMatch(t *testing.T) {
	_, err := newTestCoordinator(&fakeTeardown{}).Run(context.Background(), Input{Issue: "999"})
	if !errors.HasCode(err, errors.ExitNotFound) {
		t.Errorf("error = %v, want NotFound", err)
	}
}

func TestRun_BatchContinuesPastFailure(t *testing.T) {
	td := &fakeTeardown{fail: map[string]bool{"/src/app-looms/issue-125": true}}

	out, err := newTestCoordinator(td).Run(context.Background(), Input{All: true, Force: true, DeleteBranch: true})
	if !errors.HasCode(err, errors.ExitTeardownFailed) {
		t.Fatalf("error = %v, want TeardownFailed", err)
	}
	if len(td.reqs) != 4 {
		t.Fatalf("teardown calls = %d, want 4 (every non-main loom)", len(td.reqs))
	}
	for _, req := range td.reqs {
		if req.Workspace.Path == "/src/app" {
			t.Error("main workspace must not be targeted")
		}
	}
	want := &Summary{Targets: 4, WorkspacesRemoved: 3, BranchesDeleted: 3, Failed: 1}
	if diff := cmp.Diff(want, out.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_BatchConfirmation(t *testing.T) {
	tests := []struct {
		name      string
		opts      []Option
		in        Input
		answer    bool
		wantAsked int
		wantCalls int
	}{
		{"accepted", []Option{WithInteractive(true)}, Input{Issue: "25"}, true, 1, 2},
		{"declined", []Option{WithInteractive(true)}, Input{Issue: "25"}, false, 1, 0},
		{"force", []Option{WithInteractive(true)}, Input{Issue: "25", Force: true}, false, 0, 2},
		{"dry run", []Option{WithInteractive(true)}, Input{Issue: "25", DryRun: true}, false, 0, 2},
		{"json", []Option{WithInteractive(true), WithJSON(true)}, Input{Issue: "25"}, false, 0, 2},
		{"non-interactive", nil, Input{Issue: "25"}, false, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := &fakeTeardown{}
			p := &countingPrompter{answer: tt.answer}
			c := newTestCoordinator(td, append(tt.opts, WithPrompter(p))...)

			out, err := c.Run(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(p.asked) != tt.wantAsked {
				t.Errorf("prompts = %d, want %d", len(p.asked), tt.wantAsked)
			}
			if len(td.reqs) != tt.wantCalls {
				t.Errorf("teardown calls = %d, want %d", len(td.reqs), tt.wantCalls)
			}
			if out.Cancelled != (tt.wantAsked == 1 && !tt.answer) {
				t.Errorf("Cancelled = %v", out.Cancelled)
			}
		})
	}
}

func TestRender(t *testing.T) {
	td := &fakeTeardown{fail: map[string]bool{"/src/app-looms/feat_pr_25": true}}
	out, _ := newTestCoordinator(td).Run(context.Background(), Input{Issue: "25", Force: true, DeleteBranch: true})

	var buf bytes.Buffer
	Render(&buf, out)
	text := buf.String()

	for _, want := range []string{"issue #25", "✓ Removed workspace", "✗ Failed to remove workspace: locked", "Summary: 2 loom(s)", "1 failed"} {
		if !strings.Contains(text, want) {
			t.Errorf("render missing %q:\n%s", want, text)
		}
	}
}

func TestRender_List(t *testing.T) {
	out, err := newTestCoordinator(&fakeTeardown{}).Run(context.Background(), Input{List: true})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	Render(&buf, out)
	if !strings.Contains(buf.String(), "app (main)") || !strings.Contains(buf.String(), "issue-125-auth") {
		t.Errorf("list render:\n%s", buf.String())
	}
}

func TestRenderJSON(t *testing.T) {
	out, err := newTestCoordinator(&fakeTeardown{}).Run(context.Background(), Input{Issue: "25", DryRun: true})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := RenderJSON(&buf, out); err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}

	var decoded struct {
		Mode    string `json:"mode"`
		DryRun  bool   `json:"dryRun"`
		Results []struct {
			Identifier struct {
				Type string `json:"type"`
			} `json:"identifier"`
		} `json:"results"`
		Summary Summary `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if decoded.Mode != "issue" || !decoded.DryRun || decoded.Summary.Targets != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Results[1].Identifier.Type != "pr" {
		t.Errorf("second target should classify as a PR: %+v", decoded.Results[1])
	}
}
