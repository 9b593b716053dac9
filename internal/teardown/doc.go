// Package teardown removes a loom and the resources it owns.
//
// A run moves through fixed stages:
//
//	resolve -> child check -> confirm -> validate -> execute -> report
//
// Resolution never fails because a loom is already gone: every action then
// reports a no-op success, so a partially failed teardown can simply be run
// again. A loom with active child looms is refused, even with force. The
// safety checks run before anything is deleted, in dry runs too:
//
//  1. no uncommitted changes
//  2. no commits ahead of the upstream branch
//  3. branch merged into its parent (when deleting the branch with the
//     merge check on)
//  4. not the main workspace
//  5. no dependent looms
//
// Force waives checks 1 to 3 only.
//
// Execution removes, in order: the worktree, the branch, the database
// branch, the versioned executables and the metadata record. Each action is
// attempted even if an earlier one failed, and each is recorded as an
// Operation in the Result:
//
//	engine := teardown.New(repo,
//	    teardown.WithExecutables(bins),
//	    teardown.WithDatabase(provider),
//	    teardown.WithTracker(tracker),
//	    teardown.WithMetadata(store),
//	)
//	res, err := engine.Run(ctx, teardown.Request{
//	    Identifier: identifier.Issue{ID: "42"},
//	    Options:    teardown.Options{DeleteBranch: true, CheckMergeSafety: true},
//	})
package teardown
