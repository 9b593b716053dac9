// Package identifier classifies free-form user input into a unit of work.
//
// An Identifier is one of Issue, PullRequest or Branch. The set is closed:
// consumers switch over the three concrete types and nothing else can
// implement the interface.
package identifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/firefly-engineering/loom/internal/errors"
	"github.com/firefly-engineering/loom/internal/registry"
)

// Identifier is a classified unit of work.
type Identifier interface {
	isIdentifier()
}

// Issue identifies work on a tracker issue. ID is numeric ("42") or
// alphanumeric ("ENG-42").
type Issue struct {
	ID    string
	Input string
}

// PullRequest identifies work on a pull request. Branch is the branch of the
// matched workspace.
type PullRequest struct {
	Number int
	Branch string
	Input  string
}

// Branch identifies an ad hoc branch with no issue or pull request.
type Branch struct {
	Name  string
	Input string
}

func (Issue) isIdentifier()       {}
func (PullRequest) isIdentifier() {}
func (Branch) isIdentifier()      {}

var (
	alphanumericIssue = regexp.MustCompile(`^[A-Za-z]{2,}-\d+$`)
	prMarker          = regexp.MustCompile(`(?i)(?:^|[/_-])pr[-_/](\d+)(?:$|[/_-])`)
	issueMarker       = regexp.MustCompile(`(?i)(?:^|[/_-])issue[-_/]?(\d+)(?:$|[/_-])`)
	trackerKeyMarker  = regexp.MustCompile(`(?:^|/)([A-Z]{2,}-\d+)(?:$|[/_-])`)
)

// Resolve classifies input against a workspace listing. It performs no I/O.
// Purely numeric input is checked against the pull request naming pattern
// before the issue pattern.
func Resolve(input string, workspaces []registry.Workspace) (Identifier, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimSpace(strings.TrimPrefix(s, "#"))
	if s == "" {
		return nil, errors.NotFound(input)
	}

	if isDigits(s) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.NotFound(input)
		}
		if ws := registry.MatchPR(workspaces, n, ""); ws != nil {
			return PullRequest{Number: n, Branch: ws.Branch, Input: input}, nil
		}
		if ws := registry.MatchIssue(workspaces, s); ws != nil {
			return Issue{ID: s, Input: input}, nil
		}
		return nil, errors.NotFound(input)
	}

	if alphanumericIssue.MatchString(s) {
		if ws := registry.MatchIssue(workspaces, s); ws != nil {
			return Issue{ID: s, Input: input}, nil
		}
		return nil, errors.NotFound(input)
	}

	ws := registry.MatchBranch(workspaces, s)
	if ws == nil {
		return nil, errors.NotFound(input)
	}
	return classifyBranch(s, input), nil
}

// FromWorkspace classifies a workspace that is already known, using the
// markers embedded in its branch or directory name.
func FromWorkspace(ws registry.Workspace) Identifier {
	input := ws.Branch
	if input == "" {
		input = ws.Name()
	}
	if n, ok := PRNumberFromBranch(ws.Name()); ok {
		return PullRequest{Number: n, Branch: ws.Branch, Input: input}
	}
	if ws.Branch != "" {
		if id := classifyBranch(ws.Branch, input); !isPlainBranch(id) {
			return id
		}
	}
	if id, ok := IssueIDFromBranch(ws.Name()); ok {
		return Issue{ID: id, Input: input}
	}
	if ws.Branch != "" {
		return Branch{Name: ws.Branch, Input: input}
	}
	return Branch{Name: ws.Name(), Input: input}
}

func isPlainBranch(id Identifier) bool {
	_, ok := id.(Branch)
	return ok
}

func classifyBranch(branch, input string) Identifier {
	if n, ok := PRNumberFromBranch(branch); ok {
		return PullRequest{Number: n, Branch: branch, Input: input}
	}
	if id, ok := IssueIDFromBranch(branch); ok {
		return Issue{ID: id, Input: input}
	}
	return Branch{Name: branch, Input: input}
}

// PRNumberFromBranch extracts a pull request number from names such as
// "pr-66", "feat/pr_66-parser" or "review/PR/66".
func PRNumberFromBranch(name string) (int, bool) {
	m := prMarker.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IssueIDFromBranch extracts an issue id from names such as "issue-42-login"
// or "feat/ENG-42-login". Tracker keys must be upper case.
func IssueIDFromBranch(name string) (string, bool) {
	if m := issueMarker.FindStringSubmatch(name); m != nil {
		return m[1], true
	}
	if m := trackerKeyMarker.FindStringSubmatch(name); m != nil {
		return m[1], true
	}
	return "", false
}

// Locate returns the workspace id refers to, or nil when none exists.
func Locate(id Identifier, workspaces []registry.Workspace) *registry.Workspace {
	switch v := id.(type) {
	case Issue:
		return registry.MatchIssue(workspaces, v.ID)
	case PullRequest:
		return registry.MatchPR(workspaces, v.Number, v.Branch)
	case Branch:
		return registry.MatchBranch(workspaces, v.Name)
	}
	return nil
}

// LoomID returns the suffix used for a workspace's versioned executables and
// other per-loom resources.
func LoomID(id Identifier) string {
	switch v := id.(type) {
	case Issue:
		return v.ID
	case PullRequest:
		return "pr-" + strconv.Itoa(v.Number)
	case Branch:
		return strings.ReplaceAll(v.Name, "/", "-")
	}
	return ""
}

// OriginalInput returns the raw string the identifier was resolved from.
func OriginalInput(id Identifier) string {
	switch v := id.(type) {
	case Issue:
		return v.Input
	case PullRequest:
		return v.Input
	case Branch:
		return v.Input
	}
	return ""
}

// Description is the flattened, serializable form of an Identifier.
type Description struct {
	Type          string `json:"type"`
	Number        int    `json:"number,omitempty"`
	IssueID       string `json:"issueId,omitempty"`
	BranchName    string `json:"branchName,omitempty"`
	OriginalInput string `json:"originalInput"`
}

// Describe flattens id for JSON output.
func Describe(id Identifier) Description {
	switch v := id.(type) {
	case Issue:
		d := Description{Type: "issue", IssueID: v.ID, OriginalInput: v.Input}
		if n, err := strconv.Atoi(v.ID); err == nil {
			d.Number = n
		}
		return d
	case PullRequest:
		return Description{Type: "pr", Number: v.Number, BranchName: v.Branch, OriginalInput: v.Input}
	case Branch:
		return Description{Type: "branch", BranchName: v.Name, OriginalInput: v.Input}
	}
	return Description{}
}

// String renders d the way String renders the identifier it came from.
func (d Description) String() string {
	switch d.Type {
	case "issue":
		return String(Issue{ID: d.IssueID})
	case "pr":
		return String(PullRequest{Number: d.Number})
	case "branch":
		return String(Branch{Name: d.BranchName})
	}
	return d.OriginalInput
}

// String renders id for humans: "issue #42", "PR #66", "branch feat/x".
func String(id Identifier) string {
	switch v := id.(type) {
	case Issue:
		if isDigits(v.ID) {
			return "issue #" + v.ID
		}
		return "issue " + v.ID
	case PullRequest:
		return "PR #" + strconv.Itoa(v.Number)
	case Branch:
		return "branch " + v.Name
	}
	return ""
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
