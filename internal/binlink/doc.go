// Package binlink manages versioned executables for looms.
//
// Every loom can expose its own build of a project's command-line tools.
// Links live in one shared bin directory and carry the loom id as a suffix:
//
//	~/.loom/bin/hb-42      -> /src/app-looms/issue-42/dist/hb
//	~/.loom/bin/hb-pr-66   -> /src/app-looms/feat_pr_66/dist/hb
//
// Concurrent looms never write the same name, so no locking is needed.
// Links are installed by renaming a temporary link into place.
//
// # Lifecycle
//
//	m := binlink.NewManager(binDir, binlink.WithBuilder(builder))
//	names, err := m.Setup(ctx, wsPath, "42", entries, binlink.SetupOptions{})
//	removed := m.CleanupVersionedExecutables("42")
//
// Links left behind by a loom that was deleted without teardown are
// orphans; FindOrphanedSymlinks and CleanupOrphanedSymlinks sweep them.
package binlink
