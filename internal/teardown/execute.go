package teardown

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firefly-engineering/loom/internal/database"
	"github.com/firefly-engineering/loom/internal/identifier"
	"github.com/firefly-engineering/loom/internal/logging"
)

// validate runs the pre-deletion safety checks and returns every violation.
// Force waives the checks that guard against losing work; the main
// workspace is never torn down.
func (e *Engine) validate(ctx context.Context, t *target, opts Options) []string {
	var violations []string

	if t.isMain {
		violations = append(violations, fmt.Sprintf("%s is the main workspace", t.path))
	}
	if opts.DeleteBranch && t.branch != "" && t.branch == e.mainBranch {
		violations = append(violations, fmt.Sprintf("branch %s is the main branch", t.branch))
	}

	if opts.Force {
		return violations
	}

	// An orphaned workspace has no working tree left to lose.
	if t.exists && !t.orphaned {
		dirty, err := e.vcs.HasUncommittedChanges(ctx, t.path)
		switch {
		case err != nil:
			violations = append(violations, fmt.Sprintf("could not check %s for uncommitted changes: %v", t.path, err))
		case dirty:
			violations = append(violations, fmt.Sprintf("%s has uncommitted changes", t.path))
		}

		ahead, _, err := e.vcs.UnpushedCommits(ctx, t.path)
		switch {
		case err != nil:
			violations = append(violations, fmt.Sprintf("could not count unpushed commits in %s: %v", t.path, err))
		case ahead > 0:
			violations = append(violations, fmt.Sprintf("branch %s has %d unpushed commit(s)", t.branch, ahead))
		}
	}

	if opts.CheckMergeSafety && opts.DeleteBranch && t.branch != "" {
		exists, err := e.vcs.BranchExists(ctx, t.branch)
		if err != nil {
			violations = append(violations, fmt.Sprintf("could not look up branch %s: %v", t.branch, err))
		} else if exists {
			into := e.mergeTarget(t)
			merged, err := e.vcs.IsMerged(ctx, t.branch, into)
			switch {
			case err != nil:
				violations = append(violations, fmt.Sprintf("could not check whether %s is merged into %s: %v", t.branch, into, err))
			case !merged:
				violations = append(violations, fmt.Sprintf("branch %s is not merged into %s", t.branch, into))
			}
		}
	}

	return violations
}

func (e *Engine) mergeTarget(t *target) string {
	if t.record != nil && t.record.ParentBranch != "" {
		return t.record.ParentBranch
	}
	return e.mainBranch
}

// execute runs every resource action in order: workspace, branch, database,
// executables, metadata. A failure is recorded and the next action still
// runs. The metadata record is kept when anything failed so a retry can
// find the loom's branch.
func (e *Engine) execute(ctx context.Context, id identifier.Identifier, t *target, opts Options, res *Result, log *slog.Logger) {
	mutated := false
	record := func(op Operation) {
		res.Operations = append(res.Operations, op)
		if !op.Success {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", op.Type, op.Error))
			if mutated {
				res.RollbackRequired = true
			}
			log.Warn("teardown action failed", "type", op.Type, "error", op.Error)
			return
		}
		if op.Deleted != nil && *op.Deleted {
			mutated = true
		}
		log.Debug(op.Message, "type", op.Type)
	}

	record(e.removeWorktree(ctx, t, opts))
	if opts.DeleteBranch {
		record(e.deleteBranch(ctx, t, opts))
	}
	if e.database != nil && !opts.KeepDatabase {
		record(e.deleteDatabase(ctx, t, opts))
	}
	if e.executables != nil {
		record(e.removeExecutables(identifier.LoomID(id), opts))
	}
	if e.metadata != nil {
		record(e.removeMetadata(t, opts, res.Failed() > 0))
	}
}

func (e *Engine) removeWorktree(ctx context.Context, t *target, opts Options) Operation {
	if !t.exists {
		return opDone(OpWorktree, "Workspace already removed", false)
	}
	if t.orphaned {
		if opts.DryRun {
			return opDryRun(OpWorktree, fmt.Sprintf("Would prune the record of deleted workspace %s", t.path))
		}
		if err := e.vcs.PruneWorktrees(ctx); err != nil {
			return opFailure(OpWorktree, fmt.Sprintf("Failed to prune the record of deleted workspace %s", t.path), err)
		}
		return opDone(OpWorktree, fmt.Sprintf("Workspace %s already removed; pruned its record", t.path), false)
	}
	if opts.DryRun {
		return opDryRun(OpWorktree, fmt.Sprintf("Would remove workspace %s", t.path))
	}
	if err := e.vcs.RemoveWorktree(ctx, t.path, opts.Force); err != nil {
		return opFailure(OpWorktree, fmt.Sprintf("Failed to remove workspace %s", t.path), err)
	}
	if err := e.vcs.PruneWorktrees(ctx); err != nil {
		logging.Debug("failed to prune worktrees", "error", err)
	}
	return opDone(OpWorktree, fmt.Sprintf("Removed workspace %s", t.path), true)
}

func (e *Engine) deleteBranch(ctx context.Context, t *target, opts Options) Operation {
	if t.branch == "" {
		return opDone(OpBranch, "No branch to delete", false)
	}
	exists, err := e.vcs.BranchExists(ctx, t.branch)
	if err != nil {
		return opFailure(OpBranch, fmt.Sprintf("Failed to look up branch %s", t.branch), err)
	}
	if !exists {
		return opDone(OpBranch, fmt.Sprintf("Branch %s already deleted", t.branch), false)
	}
	if opts.DryRun {
		return opDryRun(OpBranch, fmt.Sprintf("Would delete branch %s", t.branch))
	}
	// Merge status was already verified against the loom's parent branch.
	force := opts.Force || opts.CheckMergeSafety
	if err := e.vcs.DeleteBranch(ctx, t.branch, force); err != nil {
		return opFailure(OpBranch, fmt.Sprintf("Failed to delete branch %s", t.branch), err)
	}
	return opDone(OpBranch, fmt.Sprintf("Deleted branch %s", t.branch), true)
}

func (e *Engine) deleteDatabase(ctx context.Context, t *target, opts Options) Operation {
	branch := t.branch
	if t.record != nil && t.record.DatabaseBranch != "" {
		branch = t.record.DatabaseBranch
	}
	if branch == "" {
		return opDone(OpDatabase, "No database branch to delete", false)
	}
	exists, err := e.database.BranchExists(ctx, branch)
	if err != nil {
		return opFailure(OpDatabase, fmt.Sprintf("Failed to look up %s database branch %s", e.database.Name(), branch), err)
	}
	if !exists {
		return opDone(OpDatabase, fmt.Sprintf("Database branch %s already deleted", branch), false)
	}
	if owner, ok := e.database.(database.OwnerReporter); ok && t.branch != "" {
		if o, err := owner.Owner(ctx, branch); err == nil && o != "" && o != t.branch {
			return opDone(OpDatabase, fmt.Sprintf("Database branch %s belongs to %s; left in place", branch, o), false)
		}
	}
	if opts.DryRun {
		return opDryRun(OpDatabase, fmt.Sprintf("Would delete %s database branch %s", e.database.Name(), branch))
	}
	if err := e.database.DeleteBranch(ctx, branch); err != nil {
		return opFailure(OpDatabase, fmt.Sprintf("Failed to delete %s database branch %s", e.database.Name(), branch), err)
	}
	return opDone(OpDatabase, fmt.Sprintf("Deleted %s database branch %s", e.database.Name(), branch), true)
}

func (e *Engine) removeExecutables(id string, opts Options) Operation {
	if id == "" {
		return opDone(OpExecutables, "No executable id", false)
	}
	if opts.DryRun {
		return opDryRun(OpExecutables, fmt.Sprintf("Would remove versioned executables ending in -%s", id))
	}
	removed := e.executables.CleanupVersionedExecutables(id)
	if len(removed) == 0 {
		return opDone(OpExecutables, "No versioned executables to remove", false)
	}
	return opDone(OpExecutables, fmt.Sprintf("Removed %d versioned executable(s): %v", len(removed), removed), true)
}

func (e *Engine) removeMetadata(t *target, opts Options, keep bool) Operation {
	if t.branch == "" || !e.metadata.Exists(t.branch) {
		return opDone(OpMetadata, "No loom metadata to remove", false)
	}
	if keep {
		return opDone(OpMetadata, fmt.Sprintf("Kept loom metadata for %s until the teardown succeeds", t.branch), false)
	}
	if opts.DryRun {
		return opDryRun(OpMetadata, fmt.Sprintf("Would remove loom metadata for %s", t.branch))
	}
	if err := e.metadata.Delete(t.branch); err != nil {
		return opFailure(OpMetadata, fmt.Sprintf("Failed to remove loom metadata for %s", t.branch), err)
	}
	return opDone(OpMetadata, fmt.Sprintf("Removed loom metadata for %s", t.branch), true)
}
