// Package errors provides typed errors with exit codes for loom.
//
// # Error Types
//
// LoomError is the base error type that wraps an error with an exit code:
//
//	type LoomError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
//	ExitSuccess             = 0  // Success (also a declined confirmation)
//	ExitGeneralError        = 1  // General/unknown errors, usage errors
//	ExitNotFound            = 2  // Identifier resolves to no loom
//	ExitConflict            = 3  // Existing resource blocks provisioning
//	ExitSafetyViolation     = 4  // A pre-teardown safety check failed
//	ExitRefused             = 5  // Loom has child looms; never bypassable
//	ExitBuildFailed         = 6  // Workspace build step failed
//	ExitConfigError         = 7  // Configuration error
//	ExitVCSError            = 8  // git operation failed
//	ExitTargetMissing       = 9  // Executable target does not exist
//	ExitTargetNotExecutable = 10 // Executable target lacks an execute bit
//	ExitTeardownFailed      = 11 // One or more teardown actions failed
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
