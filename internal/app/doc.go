// Package app provides the per-invocation context for loom.
//
// An App is built once per command invocation and passed down explicitly;
// there is no process-wide default instance. It resolves paths, loads the
// global config and the repository's project settings, and wires the
// registry, executable manager, database provider, dependency tracker and
// prompter that the teardown engine consumes.
//
// # Creating an App
//
// Use New with functional options:
//
//	// Production usage
//	a, err := app.New(ctx, app.WithConfigFile(path), app.WithJSON(jsonOutput))
//
//	// Testing with custom dependencies
//	a, err := app.New(ctx,
//	    app.WithPaths(testPaths),
//	    app.WithConfig(config.DefaultConfig()),
//	    app.WithExecutor(system.NewMockExecutor()),
//	    app.WithInteractive(false),
//	)
//
// # Available Options
//
//	WithPaths(paths)            // Custom path configuration
//	WithConfig(cfg)             // Use cfg instead of loading config.toml
//	WithConfigFile(path)        // Load config.toml from path
//	WithWorkDir(dir)            // Discover the repository from dir
//	WithExecutor(exec)          // Custom command executor
//	WithFileSystem(fs)          // Custom filesystem
//	WithPrompter(p)             // Custom confirmation prompter
//	WithInteractive(bool)       // Override terminal detection
//	WithJSON(bool)              // Machine-readable output
//	WithIO(in, out)             // Streams for the terminal prompter
//
// Outside a git repository New still succeeds so that repository-independent
// commands (`loom bin cleanup`, `loom bin gc`) work; Teardown and
// Coordinator return a VCSError in that case.
package app
