// Package vcs provides typed access to the git CLI for loom workspaces.
//
// A loom is a git worktree. Repository wraps the handful of git commands the
// teardown engine needs, all run through system.CommandExecutor so tests can
// substitute canned output:
//
//	repo := vcs.NewRepository("/src/app", nil)
//	worktrees, err := repo.ListWorktrees(ctx)
//	// git worktree list --porcelain
//
//	repo.RemoveWorktree(ctx, "/src/app-looms/issue-42", false)
//	// git worktree remove /src/app-looms/issue-42
//
//	repo.DeleteBranch(ctx, "issue-42-fix-login", false)
//	// git branch -d issue-42-fix-login
//
// Safety queries used before teardown:
//
//	repo.HasUncommittedChanges(ctx, worktreePath) // git status --porcelain
//	repo.UnpushedCommits(ctx, worktreePath)       // git rev-list --count @{u}..HEAD
//	repo.IsMerged(ctx, branch, "main")            // git merge-base --is-ancestor
//
// Nothing here caches: every call reflects the repository as it is now.
package vcs
