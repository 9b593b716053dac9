// Package config provides configuration types and loading for loom.
//
// # Configuration Files
//
// The package handles three kinds of on-disk state:
//
//   - Config: user-global settings loaded from $XDG_CONFIG_HOME/loom/config.toml
//   - ProjectSettings: per-repository settings loaded from <repo>/.loom/settings.yaml
//   - LoomMetadata: per-loom records stored in <stateDir>/looms/*.json
//
// # Global Configuration
//
//	bin_dir     = "~/.loom/bin"
//	state_dir   = "~/.local/state/loom"
//	main_branch = "main"
//
//	[teardown]
//	delete_branch      = true
//	check_merge_safety = true
//
//	[database]
//	provider = "sqlite"   # or "none"
//	source   = "/path/to/dev.db"
//
// A missing config file is not an error; DefaultConfig is used instead.
//
// # Project Settings
//
//	build: go build -o dist/hb ./cmd/hb
//	bin:
//	  - name: hb
//	    target: dist/hb
//	mainBranch: develop
//
// Project settings override the global main branch and database provider.
//
// # Loom Metadata
//
// LoomMetadata records the parent branch a loom was forked from and the
// resources it owns. Records are keyed by branch with "/" replaced by "--".
// The dependency tracker reads them; teardown deletes them last.
//
// # Validation
//
// All configuration types implement Validate(). Loading functions validate
// after parsing.
package config
