package cmd

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/loom/internal/app"
)

// testAppOptions are appended to every invocation's options by tests.
var testAppOptions []app.Option

// newApp builds the invocation context for cmd.
func newApp(cmd *cobra.Command) (*app.App, error) {
	opts := []app.Option{
		app.WithJSON(jsonOutput),
		app.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
	}
	if configPath != "" {
		opts = append(opts, app.WithConfigFile(configPath))
	}
	opts = append(opts, testAppOptions...)
	return app.New(cmd.Context(), opts...)
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
