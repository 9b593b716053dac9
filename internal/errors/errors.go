package errors

import (
	"errors"
	"fmt"
)

// Exit codes for loom
const (
	ExitSuccess             = 0
	ExitGeneralError        = 1
	ExitNotFound            = 2
	ExitConflict            = 3
	ExitSafetyViolation     = 4
	ExitRefused             = 5
	ExitBuildFailed         = 6
	ExitConfigError         = 7
	ExitVCSError            = 8
	ExitTargetMissing       = 9
	ExitTargetNotExecutable = 10
	ExitTeardownFailed      = 11
)

// LoomError is the base error type for loom
type LoomError struct {
	Code    int
	Message string
	Cause   error
}

func (e *LoomError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *LoomError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *LoomError) ExitCode() int {
	return e.Code
}

// New creates a new LoomError
func New(code int, message string) *LoomError {
	return &LoomError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a LoomError
func Wrap(code int, message string, cause error) *LoomError {
	return &LoomError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// NotFound returns an error for an identifier that matches no workspace.
// The raw input is kept verbatim in the message.
func NotFound(input string) *LoomError {
	return New(ExitNotFound, fmt.Sprintf("no loom found for identifier: %s", input))
}

// Conflict returns an error for an existing resource that blocks provisioning
func Conflict(resource string) *LoomError {
	return New(ExitConflict, fmt.Sprintf("%s already exists (use --force to replace it)", resource))
}

// SafetyViolation returns an error for a failed pre-teardown safety check
func SafetyViolation(message string) *LoomError {
	return New(ExitSafetyViolation, message)
}

// Refused returns an error for a loom that still has child looms
func Refused(branch string, children []string) *LoomError {
	return New(ExitRefused, fmt.Sprintf("cannot tear down %s: %d child loom(s) depend on it: %v", branch, len(children), children))
}

// BuildFailed returns an error for a failed workspace build step
func BuildFailed(workspacePath string, cause error) *LoomError {
	return Wrap(ExitBuildFailed, fmt.Sprintf("build failed in %s", workspacePath), cause)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *LoomError {
	return Wrap(ExitConfigError, message, cause)
}

// VCSError returns an error for git operations
func VCSError(message string, cause error) *LoomError {
	return Wrap(ExitVCSError, message, cause)
}

// TargetMissing returns an error for an executable entry whose target does not exist
func TargetMissing(path string) *LoomError {
	return New(ExitTargetMissing, fmt.Sprintf("executable target does not exist: %s", path))
}

// TargetNotExecutable returns an error for an executable entry whose target lacks an execute bit
func TargetNotExecutable(path string) *LoomError {
	return New(ExitTargetNotExecutable, fmt.Sprintf("executable target is not executable: %s", path))
}

// TeardownFailed returns an error summarizing failed teardown actions
func TeardownFailed(identifier string, failed int) *LoomError {
	return New(ExitTeardownFailed, fmt.Sprintf("teardown of %s completed with %d failed operation(s)", identifier, failed))
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *LoomError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var loomErr *LoomError
	if errors.As(err, &loomErr) {
		return loomErr.ExitCode()
	}
	return ExitGeneralError
}

// HasCode reports whether err carries a LoomError with the given code
func HasCode(err error, code int) bool {
	var loomErr *LoomError
	return errors.As(err, &loomErr) && loomErr.Code == code
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
