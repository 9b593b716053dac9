// Package testutil provides test fixtures and utilities.
//
// This package contains embedded fixtures for the three on-disk formats loom
// reads, and a git-backed test environment for integration tests.
//
// # Fixtures
//
// Fixtures are embedded using go:embed:
//
//	fixtures/valid_settings.yaml
//	fixtures/invalid_settings.yaml
//	fixtures/valid_config.toml
//	fixtures/valid_loom_metadata.json
//
// Helper functions load and parse fixtures into typed config objects:
//
//	settings, err := testutil.ValidProjectSettings()
//	cfg, err := testutil.ValidConfig()
//	meta, err := testutil.ValidLoomMetadata()
//
// # Test Environment
//
// NewTestEnv creates a real repository on branch main (skipping the test
// when git is missing) with state directories under the same temp dir:
//
//	env := testutil.NewTestEnv(t)
//	path := env.AddLoom("issue-42", "issue-42-fix-login")
//	a := env.NewApp()
package testutil
