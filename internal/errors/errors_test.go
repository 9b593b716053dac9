package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestLoomError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *LoomError
		wantMsg string
	}{
		{
			name:    "without cause",
			err:     New(ExitGeneralError, "something went wrong"),
			wantMsg: "something went wrong",
		},
		{
			name:    "with cause",
			err:     Wrap(ExitGeneralError, "operation failed", fmt.Errorf("underlying error")),
			wantMsg: "operation failed: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestLoomError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ExitGeneralError, "wrapped", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := New(ExitGeneralError, "no cause")
	if unwrapped := errNoCause.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}

func TestConstructors(t *testing.T) {
	cause := fmt.Errorf("exit status 1")

	tests := []struct {
		name     string
		err      *LoomError
		wantCode int
		contains string
	}{
		{"not found", NotFound("#66"), ExitNotFound, "#66"},
		{"conflict", Conflict("/bin/hb-42"), ExitConflict, "/bin/hb-42"},
		{"safety violation", SafetyViolation("uncommitted changes"), ExitSafetyViolation, "uncommitted"},
		{"refused", Refused("feat/parent", []string{"feat/child"}), ExitRefused, "1 child loom"},
		{"build failed", BuildFailed("/ws", cause), ExitBuildFailed, "build failed in /ws"},
		{"config error", ConfigError("bad config", cause), ExitConfigError, "bad config"},
		{"vcs error", VCSError("worktree list", cause), ExitVCSError, "worktree list"},
		{"target missing", TargetMissing("/ws/dist/cli"), ExitTargetMissing, "does not exist"},
		{"target not executable", TargetNotExecutable("/ws/dist/cli"), ExitTargetNotExecutable, "not executable"},
		{"teardown failed", TeardownFailed("42", 2), ExitTeardownFailed, "2 failed"},
		{"validation", ValidationError("bad flags"), ExitGeneralError, "bad flags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", tt.err.Code, tt.wantCode)
			}
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("Error() = %q, want it to contain %q", tt.err.Error(), tt.contains)
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "LoomError",
			err:      NotFound("test"),
			wantCode: ExitNotFound,
		},
		{
			name:     "wrapped LoomError",
			err:      fmt.Errorf("outer: %w", Refused("main", []string{"child"})),
			wantCode: ExitRefused,
		},
		{
			name:     "regular error",
			err:      fmt.Errorf("some error"),
			wantCode: ExitGeneralError,
		},
		{
			name:     "nil error",
			err:      nil,
			wantCode: ExitGeneralError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.wantCode {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("teardown: %w", SafetyViolation("dirty"))

	if !HasCode(err, ExitSafetyViolation) {
		t.Error("HasCode should find the wrapped safety violation")
	}
	if HasCode(err, ExitRefused) {
		t.Error("HasCode should not match a different code")
	}
	if HasCode(fmt.Errorf("plain"), ExitGeneralError) {
		t.Error("HasCode should be false for non-LoomError")
	}
}

func TestErrorChaining(t *testing.T) {
	root := fmt.Errorf("root cause")
	middle := Wrap(ExitConfigError, "config error", root)
	outer := fmt.Errorf("operation failed: %w", middle)

	if !errors.Is(outer, root) {
		t.Error("errors.Is should find root cause")
	}

	var loomErr *LoomError
	if !As(outer, &loomErr) {
		t.Fatal("As should find LoomError")
	}
	if loomErr.Code != ExitConfigError {
		t.Errorf("Code = %d, want %d", loomErr.Code, ExitConfigError)
	}
	if !Is(outer, root) {
		t.Error("Is should find root cause")
	}
}
