package land

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/alanmeadows/land/internal/provider"
	"github.com/alanmeadows/land/internal/repo"
)

// DetectWorkspace describes the working tree containing dir.
func DetectWorkspace(ctx context.Context, git Git, dir string) (*Workspace, error) {
	top, err := git.TopLevel(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("not inside a git repository: %w", err)
	}

	primary, err := git.PrimaryWorktree(ctx, top)
	if err != nil {
		return nil, &ExternalError{Op: "find primary worktree", Err: err}
	}

	ws := &Workspace{
		Dir:         top,
		PrimaryPath: primary.Path,
	}
	if !samePath(top, ws.PrimaryPath) {
		ws.Isolated = true
		ws.WorktreePath = top
	}

	branch, err := git.CurrentBranch(ctx, top)
	switch {
	case errors.Is(err, repo.ErrDetachedHead):
	case err != nil:
		return nil, &ExternalError{Op: "read current branch", Err: err}
	default:
		ws.Branch = branch
	}

	paths, _, err := dirtyPaths(ctx, git, top)
	if err != nil {
		return nil, err
	}
	ws.Clean = len(paths) == 0
	ws.DirtyPaths = paths
	return ws, nil
}

// dirtyPaths lists uncommitted paths in dir along with their staged,
// modified and untracked split. The summary is nil for a clean tree.
func dirtyPaths(ctx context.Context, git Git, dir string) ([]string, *DirtySummary, error) {
	entries, err := git.Status(ctx, dir)
	if err != nil {
		return nil, nil, &ExternalError{Op: "read working tree status", Err: err}
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths, summarizeStatus(entries), nil
}

func summarizeStatus(entries []repo.StatusEntry) *DirtySummary {
	if len(entries) == 0 {
		return nil
	}
	s := &DirtySummary{}
	for _, e := range entries {
		switch {
		case e.Untracked():
			s.Untracked = append(s.Untracked, e.Path)
			continue
		case e.Staged():
			name := e.Path
			if e.OrigPath != "" {
				name = e.OrigPath + " -> " + e.Path
			}
			s.Staged = append(s.Staged, name)
		}
		if e.Modified() {
			s.Modified = append(s.Modified, e.Path)
		}
	}
	return s
}

// branchMismatch reports an isolated worktree that is checked out on a
// branch other than the one the pull request merges.
func branchMismatch(ws *Workspace, ref *provider.PRInfo) (Failure, bool) {
	if ws == nil || !ws.Isolated || ws.Branch == ref.SourceBranch {
		return Failure{}, false
	}
	current := ws.Branch
	if current == "" {
		current = "a detached HEAD"
	}
	return Failure{
		Dimension: DimensionBranch,
		Reason:    fmt.Sprintf("this worktree is on %s but #%d merges %s", current, ref.Number, ref.SourceBranch),
		Essential: true,
	}, true
}

// dirtyError is the error a dirty workspace tied to ref blocks the merge with.
func dirtyError(ws *Workspace, ref *provider.PRInfo, c *Cleanliness) *PreconditionError {
	return &PreconditionError{
		Path:       ws.Dir,
		DirtyPaths: c.DirtyPaths,
		Changes:    c.Changes,
		Recovery: []string{
			fmt.Sprintf("commit and push the changes to %s, then re-run land", ref.SourceBranch),
			"re-run with --stash to stash them first (restore later with git stash pop)",
			"re-run with --keep-worktree to merge without removing this worktree or the remote branch",
		},
	}
}

func samePath(a, b string) bool {
	if ra, err := filepath.EvalSymlinks(a); err == nil {
		a = ra
	}
	if rb, err := filepath.EvalSymlinks(b); err == nil {
		b = rb
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

// WorkspaceReconciler guards the merge on a clean workspace and tears the
// workspace down after a verified merge.
type WorkspaceReconciler struct {
	git          Git
	remote       string
	stash        bool
	keepWorktree bool
	runID        string
	log          *slog.Logger
}

// NewWorkspaceReconciler creates a reconciler from pipeline options.
func NewWorkspaceReconciler(git Git, opts Options, runID string, log *slog.Logger) *WorkspaceReconciler {
	remote := opts.Remote
	if remote == "" {
		remote = "origin"
	}
	return &WorkspaceReconciler{
		git:          git,
		remote:       remote,
		stash:        opts.Stash,
		keepWorktree: opts.KeepWorktree,
		runID:        runID,
		log:          log,
	}
}

// Inspect re-derives cleanliness without changing anything.
func (w *WorkspaceReconciler) Inspect(ctx context.Context, ws *Workspace, ref *provider.PRInfo) (*Cleanliness, error) {
	paths, summary, err := dirtyPaths(ctx, w.git, ws.Dir)
	if err != nil {
		return nil, err
	}
	return &Cleanliness{
		Clean:      len(paths) == 0,
		DirtyPaths: paths,
		Changes:    summary,
		Gated:      ws.TiedTo(ref) && !w.keepWorktree,
	}, nil
}

// CheckPrecondition must run before the merge. A dirty workspace tied to
// the PR blocks the pipeline unless --stash stashes the changes or
// --keep-worktree takes teardown off the table.
func (w *WorkspaceReconciler) CheckPrecondition(ctx context.Context, ws *Workspace, ref *provider.PRInfo) (*Cleanliness, error) {
	c, err := w.Inspect(ctx, ws, ref)
	if err != nil {
		return nil, err
	}
	if c.Clean || !ws.TiedTo(ref) {
		return c, nil
	}

	if w.keepWorktree {
		c.Kept = true
		w.log.Warn("worktree has uncommitted changes; keeping it", "path", ws.Dir, "paths", len(c.DirtyPaths))
		return c, nil
	}

	if w.stash {
		msg := fmt.Sprintf("land: before merging #%d (run %s)", ref.Number, w.runID)
		if err := w.git.Stash(ctx, ws.Dir, msg); err != nil {
			return nil, &ExternalError{Op: "stash uncommitted changes", Err: err}
		}
		w.log.Info("stashed uncommitted changes", "path", ws.Dir, "message", msg)

		after, err := w.Inspect(ctx, ws, ref)
		if err != nil {
			return nil, err
		}
		if after.Clean {
			after.Stashed = true
			after.StashMessage = msg
			return after, nil
		}
		c = after
	}

	return c, dirtyError(ws, ref, c)
}

// Teardown reconciles the local workspace after a verified merge. Steps run
// in order; a failed step skips the steps that depend on it. Nothing is
// forced and nothing is discarded.
func (w *WorkspaceReconciler) Teardown(ctx context.Context, ws *Workspace, ref *provider.PRInfo, outcome *MergeOutcome) *TeardownOutcome {
	td := &TeardownOutcome{}
	add := func(step StepName, status StepStatus, detail string) {
		td.Steps = append(td.Steps, StepResult{Step: step, Status: status, Detail: detail})
		w.log.Debug("teardown step", "step", step, "status", status, "detail", detail)
	}
	skipAll := func(reason string) *TeardownOutcome {
		for _, s := range []StepName{StepSwitch, StepSync, StepVerify, StepRemove, StepPrune, StepDeleteBranch} {
			add(s, StepSkipped, reason)
		}
		return td
	}

	switch {
	case w.keepWorktree:
		return skipAll("--keep-worktree")
	case !ws.TiedTo(ref):
		return skipAll(fmt.Sprintf("workspace is not on %s", ref.SourceBranch))
	}

	primary := ws.PrimaryPath
	target := ref.TargetBranch

	// switch
	switched := false
	if err := w.git.Checkout(ctx, primary, target); err != nil {
		add(StepSwitch, StepFailed, err.Error())
		td.Recovery = append(td.Recovery, fmt.Sprintf("git -C %s checkout %s", primary, target))
	} else {
		add(StepSwitch, StepOK, fmt.Sprintf("%s is on %s", primary, target))
		switched = true
	}

	// sync
	synced := false
	switch {
	case !switched:
		add(StepSync, StepSkipped, "switch failed")
	default:
		err := w.git.Fetch(ctx, primary, w.remote)
		if err == nil {
			err = w.git.Pull(ctx, primary, w.remote, target)
		}
		if err != nil {
			add(StepSync, StepFailed, err.Error())
			td.Recovery = append(td.Recovery, fmt.Sprintf("git -C %s pull --ff-only %s %s", primary, w.remote, target))
		} else {
			add(StepSync, StepOK, fmt.Sprintf("%s fast-forwarded from %s", target, w.remote))
			synced = true
		}
	}

	// verify
	verified := false
	switch {
	case !synced:
		add(StepVerify, StepSkipped, "sync did not complete")
	default:
		ok, err := w.git.ContainsCommit(ctx, primary, outcome.SHA, target)
		switch {
		case err != nil:
			add(StepVerify, StepFailed, err.Error())
		case !ok:
			add(StepVerify, StepFailed, fmt.Sprintf("merge commit %s is not on local %s", outcome.SHA, target))
		default:
			add(StepVerify, StepOK, fmt.Sprintf("%s contains %s", target, outcome.SHA))
			verified = true
		}
		if !verified {
			td.Recovery = append(td.Recovery, fmt.Sprintf("check that %s/%s contains %s before removing anything", w.remote, target, outcome.SHA))
		}
	}

	// remove
	removed := false
	switch {
	case !ws.Isolated:
		add(StepRemove, StepSkipped, "not an isolated worktree")
		removed = verified
	case !verified:
		add(StepRemove, StepSkipped, "merge commit not verified locally")
	default:
		err := w.git.RemoveWorktree(ctx, primary, ws.WorktreePath)
		switch {
		case repo.IsDirtyWorktreeError(err):
			add(StepRemove, StepFailed, "worktree gained uncommitted changes; left intact")
			td.Recovery = append(td.Recovery,
				fmt.Sprintf("save the changes in %s, then run: git -C %s worktree remove %s", ws.WorktreePath, primary, ws.WorktreePath))
		case err != nil:
			add(StepRemove, StepFailed, err.Error())
			td.Recovery = append(td.Recovery, fmt.Sprintf("git -C %s worktree remove %s", primary, ws.WorktreePath))
		default:
			add(StepRemove, StepOK, ws.WorktreePath)
			removed = true
		}
	}

	// prune
	switch {
	case !removed:
		add(StepPrune, StepSkipped, "worktree was not removed")
	default:
		if err := w.git.PruneWorktrees(ctx, primary); err != nil {
			add(StepPrune, StepFailed, err.Error())
			td.Recovery = append(td.Recovery, fmt.Sprintf("git -C %s worktree prune", primary))
		} else {
			add(StepPrune, StepOK, "")
		}
	}

	// delete-branch
	switch {
	case !removed:
		add(StepDeleteBranch, StepSkipped, "worktree was not removed")
	default:
		if err := w.git.DeleteBranch(ctx, primary, ref.SourceBranch); err != nil {
			add(StepDeleteBranch, StepWarning, fmt.Sprintf("local branch %s kept: %v", ref.SourceBranch, err))
			td.Recovery = append(td.Recovery, fmt.Sprintf("git -C %s branch -D %s", primary, ref.SourceBranch))
		} else {
			add(StepDeleteBranch, StepOK, ref.SourceBranch)
		}
	}

	return td
}
