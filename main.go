package main

import (
	"os"

	"github.com/firefly-engineering/loom/cmd"
	"github.com/firefly-engineering/loom/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
