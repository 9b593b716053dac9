// Package logging provides logging utilities for loom.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("resolving identifier", "input", input)
//	logging.Warn("orphan removal failed", "path", path, "error", err)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Removing loom %s...", name)
//	logging.UserSuccess("Removed loom %s", name)
//	logging.UserWarning("%s is not on your PATH", binDir)
//	logging.UserError("Teardown failed: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// Setup with JSON output enabled discards user output entirely, so
// machine-readable results on stdout are never interleaved with narration.
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
