package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// User-facing output functions with status prefixes.
// These write to stdout/stderr for CLI output,
// separate from the structured debug logging.

var (
	userMu  sync.Mutex
	userOut io.Writer = os.Stdout
	userErr io.Writer = os.Stderr
)

// SetUserOutput redirects user-facing output. Nil writers discard.
func SetUserOutput(out, errOut io.Writer) {
	userMu.Lock()
	defer userMu.Unlock()
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	userOut = out
	userErr = errOut
}

func userPrintf(toErr bool, prefix, format string, args ...interface{}) {
	userMu.Lock()
	defer userMu.Unlock()
	w := userOut
	if toErr {
		w = userErr
	}
	fmt.Fprintf(w, prefix+format+"\n", args...)
}

// UserInfo prints an info message to stdout.
func UserInfo(format string, args ...interface{}) {
	userPrintf(false, "ℹ ", format, args...)
}

// UserSuccess prints a success message to stdout.
func UserSuccess(format string, args ...interface{}) {
	userPrintf(false, "✓ ", format, args...)
}

// UserWarning prints a warning message to stderr.
func UserWarning(format string, args ...interface{}) {
	userPrintf(true, "⚠ ", format, args...)
}

// UserError prints an error message to stderr.
func UserError(format string, args ...interface{}) {
	userPrintf(true, "✗ ", format, args...)
}
