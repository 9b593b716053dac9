package identifier

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/firefly-engineering/loom/internal/errors"
	"github.com/firefly-engineering/loom/internal/registry"
)

func workspaces() []registry.Workspace {
	return []registry.Workspace{
		{Path: "/src/app", Branch: "main"},
		{Path: "/src/app-looms/issue-42", Branch: "issue-42-fix-login"},
		{Path: "/src/app-looms/feat_pr_66", Branch: "feat/new-parser"},
		{Path: "/src/app-looms/issue-66", Branch: "issue-66-docs"},
		{Path: "/src/app-looms/eng-7", Branch: "feat/ENG-7-sso"},
		{Path: "/src/app-looms/spike", Branch: "spike/cache-layer"},
		{Path: "/src/app-looms/review", Branch: "review/pr-81-fixups"},
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Identifier
	}{
		{"numeric issue", "42", Issue{ID: "42", Input: "42"}},
		{"hash prefix", "#42", Issue{ID: "42", Input: "#42"}},
		{"surrounding space", "  # 42 ", Issue{ID: "42", Input: "  # 42 "}},
		{"pull request wins over issue", "66", PullRequest{Number: 66, Branch: "feat/new-parser", Input: "66"}},
		{"alphanumeric issue", "ENG-7", Issue{ID: "ENG-7", Input: "ENG-7"}},
		{"alphanumeric case insensitive", "eng-7", Issue{ID: "eng-7", Input: "eng-7"}},
		{"plain branch", "spike/cache-layer", Branch{Name: "spike/cache-layer", Input: "spike/cache-layer"}},
		{"branch with issue marker", "issue-42-fix-login", Issue{ID: "42", Input: "issue-42-fix-login"}},
		{"branch with pr marker", "review/pr-81-fixups", PullRequest{Number: 81, Branch: "review/pr-81-fixups", Input: "review/pr-81-fixups"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.input, workspaces())
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	inputs := []string{"", "#", "999", "ENG-8", "no-such-branch", "99999999999999999999999"}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Resolve(input, workspaces())
			if err == nil {
				t.Fatalf("Resolve(%q) should fail", input)
			}
			if !errors.HasCode(err, errors.ExitNotFound) {
				t.Errorf("Resolve(%q) exit code = %d, want %d", input, errors.GetExitCode(err), errors.ExitNotFound)
			}
		})
	}
}

func TestResolve_NotFoundKeepsInput(t *testing.T) {
	_, err := Resolve("#404", workspaces())
	if err == nil || err.Error() != "no loom found for identifier: #404" {
		t.Errorf("error = %v", err)
	}
}

func TestMarkers(t *testing.T) {
	prTests := []struct {
		name string
		want int
		ok   bool
	}{
		{"pr-66", 66, true},
		{"feat/pr_66-parser", 66, true},
		{"review/PR/66", 66, true},
		{"sprint-66", 0, false},
		{"approve-12", 0, false},
	}
	for _, tt := range prTests {
		got, ok := PRNumberFromBranch(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("PRNumberFromBranch(%q) = %d, %v; want %d, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}

	issueTests := []struct {
		name string
		want string
		ok   bool
	}{
		{"issue-42-login", "42", true},
		{"fix/issue_7", "7", true},
		{"feat/ENG-42-login", "ENG-42", true},
		{"fix-12", "", false},
		{"tissue-3", "", false},
	}
	for _, tt := range issueTests {
		got, ok := IssueIDFromBranch(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("IssueIDFromBranch(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFromWorkspace(t *testing.T) {
	tests := []struct {
		ws   registry.Workspace
		want Identifier
	}{
		{
			registry.Workspace{Path: "/l/feat_pr_66", Branch: "feat/new-parser"},
			PullRequest{Number: 66, Branch: "feat/new-parser", Input: "feat/new-parser"},
		},
		{
			registry.Workspace{Path: "/l/issue-25", Branch: "issue-25-retry"},
			Issue{ID: "25", Input: "issue-25-retry"},
		},
		{
			registry.Workspace{Path: "/l/issue-9", Branch: "cleanup"},
			Issue{ID: "9", Input: "cleanup"},
		},
		{
			registry.Workspace{Path: "/l/spike", Branch: "spike/cache"},
			Branch{Name: "spike/cache", Input: "spike/cache"},
		},
		{
			registry.Workspace{Path: "/l/scratch", Detached: true},
			Branch{Name: "scratch", Input: "scratch"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.ws.Name(), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FromWorkspace(tt.ws)); diff != "" {
				t.Errorf("FromWorkspace mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLocate(t *testing.T) {
	list := workspaces()

	tests := []struct {
		id   Identifier
		want string
	}{
		{Issue{ID: "42"}, "/src/app-looms/issue-42"},
		{PullRequest{Number: 66}, "/src/app-looms/feat_pr_66"},
		{PullRequest{Number: 81, Branch: "review/pr-81-fixups"}, "/src/app-looms/review"},
		{Branch{Name: "spike/cache-layer"}, "/src/app-looms/spike"},
		{Branch{Name: "gone"}, ""},
	}

	for _, tt := range tests {
		got := Locate(tt.id, list)
		if tt.want == "" {
			if got != nil {
				t.Errorf("Locate(%#v) = %+v, want nil", tt.id, got)
			}
			continue
		}
		if got == nil || got.Path != tt.want {
			t.Errorf("Locate(%#v) = %+v, want %s", tt.id, got, tt.want)
		}
	}
}

func TestLoomID(t *testing.T) {
	tests := []struct {
		id   Identifier
		want string
	}{
		{Issue{ID: "42"}, "42"},
		{Issue{ID: "ENG-7"}, "ENG-7"},
		{PullRequest{Number: 66}, "pr-66"},
		{Branch{Name: "spike/cache-layer"}, "spike-cache-layer"},
	}

	for _, tt := range tests {
		if got := LoomID(tt.id); got != tt.want {
			t.Errorf("LoomID(%#v) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestDescribe_JSON(t *testing.T) {
	tests := []struct {
		id   Identifier
		want string
	}{
		{Issue{ID: "42", Input: "#42"}, `{"type":"issue","number":42,"issueId":"42","originalInput":"#42"}`},
		{Issue{ID: "ENG-7", Input: "ENG-7"}, `{"type":"issue","issueId":"ENG-7","originalInput":"ENG-7"}`},
		{PullRequest{Number: 66, Branch: "feat/x", Input: "66"}, `{"type":"pr","number":66,"branchName":"feat/x","originalInput":"66"}`},
		{Branch{Name: "spike", Input: "spike"}, `{"type":"branch","branchName":"spike","originalInput":"spike"}`},
	}

	for _, tt := range tests {
		data, err := json.Marshal(Describe(tt.id))
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(data) != tt.want {
			t.Errorf("Describe(%#v) = %s, want %s", tt.id, data, tt.want)
		}
	}
}

func TestString(t *testing.T) {
	if got := String(Issue{ID: "42"}); got != "issue #42" {
		t.Errorf("String = %q", got)
	}
	if got := String(Issue{ID: "ENG-7"}); got != "issue ENG-7" {
		t.Errorf("String = %q", got)
	}
	if got := String(PullRequest{Number: 66}); got != "PR #66" {
		t.Errorf("String = %q", got)
	}
	if got := String(Branch{Name: "spike"}); got != "branch spike" {
		t.Errorf("String = %q", got)
	}
	if got := OriginalInput(Branch{Name: "spike", Input: " spike"}); got != " spike" {
		t.Errorf("OriginalInput = %q", got)
	}
}

func TestDescription_String(t *testing.T) {
	for _, id := range []Identifier{
		Issue{ID: "42", Input: "#42"},
		Issue{ID: "ENG-7", Input: "ENG-7"},
		PullRequest{Number: 66, Branch: "feat/x", Input: "66"},
		Branch{Name: "spike", Input: "spike"},
	} {
		if got, want := Describe(id).String(), String(id); got != want {
			t.Errorf("Describe(%#v).String() = %q, want %q", id, got, want)
		}
	}
}
