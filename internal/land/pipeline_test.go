package land

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanmeadows/land/internal/provider"
)

func testOptions() Options {
	return Options{
		Strategy:     provider.MergeMethodMerge,
		AssumeYes:    true,
		DeleteBranch: true,
		Feedback:     testRules,
		Logger:       discardLogger(),
	}
}

// landingFixture is PR #42 from feature-42, run from its own worktree.
func landingFixture() (*fakeBackend, *fakeGit) {
	b := newFakeBackend()
	b.addPR(samplePR(42, "feature-42"))
	return b, newIsolatedGit("feature-42")
}

func TestPipeline_HappyPath(t *testing.T) {
	b, g := landingFixture()

	res := New(b, g, testOptions()).Run(context.Background(), "")
	require.NoError(t, res.Err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, ExitOK, res.ExitCode())
	assert.NotEmpty(t, res.RunID)

	require.Len(t, b.mergeCalls, 1)
	assert.Equal(t, "head-42", b.mergeCalls[0].SHA)
	assert.True(t, b.mergeCalls[0].DeleteBranch)

	require.NotNil(t, res.Outcome)
	assert.True(t, res.Outcome.Verified)
	assert.Equal(t, "merge-42", res.Outcome.SHA)
	assert.Empty(t, res.Teardown.FailedSteps())
	assert.Contains(t, g.mutations(), "RemoveWorktree /src/widgets /src/widgets-wt/feature-42")
	assert.Contains(t, g.mutations(), "DeleteBranch /src/widgets feature-42")
}

func TestPipeline_DirtyWorktreeBlocksMerge(t *testing.T) {
	b, g := landingFixture()
	g.setDirty("wip.go")

	res := New(b, g, testOptions()).Run(context.Background(), "")
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StatePreconditionCheck, res.FailedAt)
	assert.Equal(t, ExitValidation, res.ExitCode())

	var preErr *PreconditionError
	require.ErrorAs(t, res.Err, &preErr)
	assert.Equal(t, []string{"wip.go"}, preErr.DirtyPaths)
	assert.Empty(t, b.mergeCalls)
	assert.Empty(t, g.mutations())
}

func TestPipeline_DirtyWorktreeStashed(t *testing.T) {
	b, g := landingFixture()
	g.setDirty("wip.go")
	opts := testOptions()
	opts.Stash = true

	res := New(b, g, opts).Run(context.Background(), "")
	require.NoError(t, res.Err)
	assert.Equal(t, StateDone, res.State)
	assert.True(t, res.Cleanliness.Stashed)
	assert.Len(t, b.mergeCalls, 1)
	assert.Equal(t, "Stash /src/widgets-wt/feature-42", g.mutations()[0])
}

func TestPipeline_KeepWorktree(t *testing.T) {
	b, g := landingFixture()
	g.setDirty("wip.go")
	opts := testOptions()
	opts.KeepWorktree = true

	res := New(b, g, opts).Run(context.Background(), "")
	require.NoError(t, res.Err)
	assert.Equal(t, StateDone, res.State)
	require.Len(t, b.mergeCalls, 1)
	assert.False(t, b.mergeCalls[0].DeleteBranch)
	assert.Empty(t, g.mutations())
	assert.NotEmpty(t, res.Warnings)
}

func TestPipeline_FailingCheck(t *testing.T) {
	b, g := landingFixture()
	b.setChecks(
		provider.CheckInfo{Name: "build", Result: provider.CISuccess},
		provider.CheckInfo{Name: "integration-tests", Result: provider.CIFailing},
	)

	res := New(b, g, testOptions()).Run(context.Background(), "")
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StateValidating, res.FailedAt)
	assert.Equal(t, ExitValidation, res.ExitCode())
	assert.Contains(t, res.Error, "integration-tests")
	assert.Equal(t, []string{"integration-tests"}, res.Report.FailingChecks)
	assert.Empty(t, b.mergeCalls)
	assert.Empty(t, g.mutations())
}

func TestPipeline_ForcePastFailingCheck(t *testing.T) {
	b, g := landingFixture()
	b.setChecks(provider.CheckInfo{Name: "flaky", Result: provider.CIFailing})
	opts := testOptions()
	opts.Force = true

	res := New(b, g, opts).Run(context.Background(), "")
	require.NoError(t, res.Err)
	assert.Equal(t, StateDone, res.State)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "flaky")
}

func TestPipeline_ForceCannotSkipConflicts(t *testing.T) {
	b, g := landingFixture()
	b.mergeab.Conflict = provider.ConflictConflicted
	opts := testOptions()
	opts.Force = true

	res := New(b, g, opts).Run(context.Background(), "")
	assert.Equal(t, ExitValidation, res.ExitCode())
	assert.Empty(t, b.mergeCalls)
}

func TestPipeline_DryRun(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		b, g := landingFixture()
		opts := testOptions()
		opts.DryRun = true
		opts.AssumeYes = false

		res := New(b, g, opts).Run(context.Background(), "")
		require.NoError(t, res.Err)
		assert.Equal(t, StateDryRunReported, res.State)
		assert.Equal(t, ExitOK, res.ExitCode())
		assert.True(t, res.Report.Passing())
		assert.Empty(t, b.mergeCalls)
		assert.Empty(t, b.autoCalls)
		assert.Empty(t, g.mutations())
	})

	t.Run("reports every blocker", func(t *testing.T) {
		b, g := landingFixture()
		b.setChecks(provider.CheckInfo{Name: "build", Result: provider.CIFailing})
		g.setDirty("wip.go")
		opts := testOptions()
		opts.DryRun = true

		res := New(b, g, opts).Run(context.Background(), "")
		assert.Equal(t, StateDryRunReported, res.State)
		assert.Equal(t, ExitValidation, res.ExitCode())

		var valErr *ValidationError
		var preErr *PreconditionError
		assert.ErrorAs(t, res.Err, &valErr)
		require.ErrorAs(t, res.Err, &preErr)
		assert.Len(t, preErr.Recovery, 3, "same recovery options as a real run")
		assert.False(t, res.Cleanliness.Clean)
		assert.Empty(t, b.mergeCalls)
		assert.Empty(t, g.mutations())
	})

	t.Run("feedback is reported without pausing", func(t *testing.T) {
		b, g := landingFixture()
		b.setComments(provider.Comment{Author: "coderabbitai[bot]", Body: "security: secret in log"})
		opts := testOptions()
		opts.DryRun = true

		res := New(b, g, opts).Run(context.Background(), "")
		assert.Equal(t, StateDryRunReported, res.State)
		assert.Equal(t, AwaitingNothing, res.Awaiting)
		assert.Len(t, res.Feedback, 1)
	})
}

func TestPipeline_RerunAfterMerge(t *testing.T) {
	b, g := landingFixture()

	first := New(b, g, testOptions()).Run(context.Background(), "")
	require.Equal(t, StateDone, first.State)

	// The worktree survived, for example because removal was interrupted.
	g.calls = nil
	second := New(b, g, testOptions()).Run(context.Background(), "")
	require.NoError(t, second.Err)
	assert.Equal(t, StateDone, second.State)
	assert.Len(t, b.mergeCalls, 1, "no second merge")
	assert.True(t, second.Report.AlreadyMerged)
	assert.True(t, second.Outcome.AlreadyMerged)
	assert.Equal(t, "merge-42", second.Outcome.SHA)
	assert.Contains(t, g.mutations(), "RemoveWorktree /src/widgets /src/widgets-wt/feature-42")
}

func TestPipeline_ExplicitIdentifier(t *testing.T) {
	b := newFakeBackend()
	b.addPR(samplePR(42, "feature-42"))
	b.addPR(samplePR(7, "docs-7"))
	g := newPrimaryGit("feature-42")

	res := New(b, g, testOptions()).Run(context.Background(), "7")
	require.NoError(t, res.Err)
	assert.Equal(t, 7, res.Ref.Number)
	assert.Equal(t, 0, b.callCount("FindPRsByBranch"))
	assert.Equal(t, provider.PRStateOpen, b.prs[42].State)
	assert.Equal(t, provider.PRStateMerged, b.prs[7].State)
	assert.Empty(t, g.mutations(), "workspace is not on the merged branch")
}

func TestPipeline_Confirmation(t *testing.T) {
	newPaused := func(t *testing.T) (*Pipeline, *fakeBackend, *Result) {
		b, g := landingFixture()
		opts := testOptions()
		opts.AssumeYes = false
		p := New(b, g, opts)
		res := p.Run(context.Background(), "")
		require.Equal(t, AwaitingConfirmation, res.Awaiting)
		require.Equal(t, StateConfirming, res.State)
		return p, b, res
	}

	t.Run("paused", func(t *testing.T) {
		_, b, res := newPaused(t)
		assert.Equal(t, ExitInput, res.ExitCode())
		assert.Equal(t, 0, b.callCount("GetPipelineStatus"))
	})

	t.Run("proceed", func(t *testing.T) {
		p, b, _ := newPaused(t)
		res := p.Resume(context.Background(), DecisionProceed)
		require.NoError(t, res.Err)
		assert.Equal(t, StateDone, res.State)
		assert.Len(t, b.mergeCalls, 1)
	})

	t.Run("abort", func(t *testing.T) {
		p, b, _ := newPaused(t)
		res := p.Resume(context.Background(), DecisionAbort)
		assert.ErrorIs(t, res.Err, ErrAborted)
		assert.Equal(t, StateConfirming, res.FailedAt)
		assert.Equal(t, ExitInput, res.ExitCode())
		assert.Empty(t, b.mergeCalls)
	})

	t.Run("resume without a pause", func(t *testing.T) {
		b, g := landingFixture()
		res := New(b, g, testOptions()).Resume(context.Background(), DecisionProceed)
		assert.Error(t, res.Err)
	})
}

func TestPipeline_FeedbackPause(t *testing.T) {
	critical := provider.Comment{Author: "coderabbitai[bot]", Body: "Possible security issue", Kind: provider.CommentInline, FilePath: "auth.go", Line: 12}

	newPaused := func(t *testing.T) (*Pipeline, *fakeBackend, *Result) {
		b, g := landingFixture()
		b.setComments(critical)
		p := New(b, g, testOptions())
		res := p.Run(context.Background(), "")
		require.Equal(t, AwaitingFeedback, res.Awaiting)
		return p, b, res
	}

	t.Run("paused", func(t *testing.T) {
		_, b, res := newPaused(t)
		assert.Equal(t, StateFeedbackPending, res.State)
		assert.Equal(t, ExitValidation, res.ExitCode())
		require.Len(t, res.Feedback, 1)
		assert.Equal(t, SeverityCritical, res.Feedback[0].Severity)
		assert.Empty(t, b.mergeCalls)
	})

	t.Run("recheck after fixes", func(t *testing.T) {
		p, b, _ := newPaused(t)
		b.setComments()
		before := b.callCount("GetPipelineStatus")

		res := p.Resume(context.Background(), DecisionRecheck)
		require.NoError(t, res.Err)
		assert.Equal(t, StateDone, res.State)
		assert.Equal(t, before+1, b.callCount("GetPipelineStatus"), "validation re-ran")
	})

	t.Run("recheck with feedback still present", func(t *testing.T) {
		p, b, _ := newPaused(t)
		res := p.Resume(context.Background(), DecisionRecheck)
		assert.Equal(t, AwaitingFeedback, res.Awaiting)
		assert.Empty(t, b.mergeCalls)
	})

	t.Run("recheck sees new failures", func(t *testing.T) {
		p, b, _ := newPaused(t)
		b.setChecks(provider.CheckInfo{Name: "build", Result: provider.CIFailing})
		res := p.Resume(context.Background(), DecisionRecheck)
		assert.Equal(t, ExitValidation, res.ExitCode())
		assert.Equal(t, StateValidating, res.FailedAt)
	})

	t.Run("proceed", func(t *testing.T) {
		p, b, _ := newPaused(t)
		res := p.Resume(context.Background(), DecisionProceed)
		require.NoError(t, res.Err)
		assert.Equal(t, StateDone, res.State)
		assert.Len(t, b.mergeCalls, 1)
		assert.NotEmpty(t, res.Warnings)
	})

	t.Run("abort", func(t *testing.T) {
		p, b, _ := newPaused(t)
		res := p.Resume(context.Background(), DecisionAbort)
		assert.ErrorIs(t, res.Err, ErrAborted)
		assert.Equal(t, StateFeedbackPending, res.FailedAt)
		assert.Empty(t, b.mergeCalls)
	})

	t.Run("halt to address the comments", func(t *testing.T) {
		p, b, _ := newPaused(t)
		res := p.Resume(context.Background(), DecisionHalt)
		assert.Equal(t, StateFailed, res.State)
		assert.Equal(t, StateFeedbackPending, res.FailedAt)
		assert.Equal(t, ExitValidation, res.ExitCode())
		assert.NotErrorIs(t, res.Err, ErrAborted)

		var fbErr *FeedbackPendingError
		require.ErrorAs(t, res.Err, &fbErr)
		assert.Equal(t, 1, fbErr.Items)
		assert.Equal(t, 1, fbErr.Critical)
		assert.Len(t, res.Feedback, 1)
		assert.Empty(t, b.mergeCalls)
	})

	t.Run("disabled", func(t *testing.T) {
		b, g := landingFixture()
		b.setComments(critical)
		opts := testOptions()
		opts.Feedback.Enabled = false

		res := New(b, g, opts).Run(context.Background(), "")
		assert.Equal(t, StateDone, res.State)
		assert.Equal(t, 0, b.callCount("GetComments"))
	})
}

func TestPipeline_BranchChangedWhilePaused(t *testing.T) {
	assertBlocked := func(t *testing.T, res *Result, b *fakeBackend, g *fakeGit) {
		t.Helper()
		assert.Equal(t, StateFailed, res.State)
		assert.Equal(t, StateValidating, res.FailedAt)
		assert.Equal(t, ExitValidation, res.ExitCode())

		var valErr *ValidationError
		require.ErrorAs(t, res.Err, &valErr)
		require.NotEmpty(t, valErr.Failures)
		assert.Equal(t, DimensionBranch, valErr.Failures[0].Dimension)
		assert.False(t, valErr.Failures[0].Forced)
		assert.Equal(t, "other-work", res.Workspace.Branch)
		assert.Empty(t, b.mergeCalls)
		assert.Empty(t, g.mutations())
	}

	t.Run("at confirmation", func(t *testing.T) {
		b, g := landingFixture()
		opts := testOptions()
		opts.AssumeYes = false
		opts.Force = true
		p := New(b, g, opts)
		require.Equal(t, AwaitingConfirmation, p.Run(context.Background(), "").Awaiting)

		g.branch = "other-work"
		g.setDirty("unrelated.go")
		assertBlocked(t, p.Resume(context.Background(), DecisionProceed), b, g)
	})

	t.Run("at feedback", func(t *testing.T) {
		b, g := landingFixture()
		b.setComments(provider.Comment{Author: "coderabbitai[bot]", Body: "Possible security issue"})
		p := New(b, g, testOptions())
		require.Equal(t, AwaitingFeedback, p.Run(context.Background(), "").Awaiting)

		g.branch = "other-work"
		assertBlocked(t, p.Resume(context.Background(), DecisionProceed), b, g)
	})
}

func TestPipeline_PreconditionRechecksBranch(t *testing.T) {
	b, g := landingFixture()
	p := New(b, g, testOptions())
	p.res = &Result{
		State:     StateValidating,
		Ref:       b.prs[42],
		Workspace: &Workspace{Dir: "/src/widgets-wt/feature-42", Isolated: true, Branch: "feature-42"},
		Report:    &ReadinessReport{HeadSHA: "head-42"},
	}
	g.branch = "other-work"

	res := p.precondition(context.Background())
	assert.Equal(t, StatePreconditionCheck, res.FailedAt)
	assert.Equal(t, ExitValidation, res.ExitCode())
	var valErr *ValidationError
	require.ErrorAs(t, res.Err, &valErr)
	assert.Equal(t, DimensionBranch, valErr.Failures[0].Dimension)
	assert.Empty(t, b.mergeCalls)
	assert.Empty(t, g.mutations())
}

func TestPipeline_AutoMerge(t *testing.T) {
	b, g := landingFixture()
	opts := testOptions()
	opts.Auto = true
	opts.Strategy = provider.MergeMethodSquash

	res := New(b, g, opts).Run(context.Background(), "")
	require.NoError(t, res.Err)
	assert.Equal(t, StateDone, res.State)
	assert.True(t, res.Outcome.AutoMerge)
	assert.Empty(t, b.mergeCalls)
	assert.Equal(t, 1, b.callCount("EnableAutoMerge 42 squash"))
	assert.Nil(t, res.Teardown)
	assert.Empty(t, g.mutations())
}

func TestPipeline_MergeRejected(t *testing.T) {
	b, g := landingFixture()
	b.mergeErr = errors.New("409 head sha mismatch")

	res := New(b, g, testOptions()).Run(context.Background(), "")
	assert.Equal(t, StateMerging, res.FailedAt)
	assert.Equal(t, ExitMerge, res.ExitCode())
	assert.Empty(t, g.mutations())
}

func TestPipeline_UnverifiedMerge(t *testing.T) {
	b, g := landingFixture()
	b.skipMergeState = true

	res := New(b, g, testOptions()).Run(context.Background(), "")
	assert.Equal(t, StateVerifying, res.FailedAt)
	assert.Equal(t, ExitMerge, res.ExitCode())
	var mergeErr *MergeError
	require.ErrorAs(t, res.Err, &mergeErr)
	assert.Equal(t, UnverifiedMerge, mergeErr.Kind)
	assert.Empty(t, g.mutations(), "no teardown without a verified merge")
}

func TestPipeline_CleanupFailure(t *testing.T) {
	b, g := landingFixture()
	g.errs["RemoveWorktree"] = dirtyRemoveError("/src/widgets-wt/feature-42")

	res := New(b, g, testOptions()).Run(context.Background(), "")
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StateCleaningUp, res.FailedAt)
	assert.Equal(t, ExitMerge, res.ExitCode())
	assert.True(t, res.Outcome.Verified)

	var cleanupErr *CleanupError
	require.ErrorAs(t, res.Err, &cleanupErr)
	assert.Equal(t, []StepName{StepRemove}, cleanupErr.Steps)
	assert.NotEmpty(t, cleanupErr.Recovery)
}

func TestPipeline_ResolutionFailures(t *testing.T) {
	t.Run("ambiguous", func(t *testing.T) {
		b, g := landingFixture()
		b.addPR(samplePR(43, "feature-42"))
		res := New(b, g, testOptions()).Run(context.Background(), "")
		assert.Equal(t, StateResolving, res.FailedAt)
		assert.Equal(t, ExitInput, res.ExitCode())
	})

	t.Run("platform unavailable", func(t *testing.T) {
		b, g := landingFixture()
		b.findErr = errors.New("connection refused")
		res := New(b, g, testOptions()).Run(context.Background(), "")
		assert.Equal(t, ExitExternal, res.ExitCode())
	})

	t.Run("not a repository", func(t *testing.T) {
		b, g := landingFixture()
		g.errs["TopLevel"] = errors.New("fatal: not a git repository")
		res := New(b, g, testOptions()).Run(context.Background(), "")
		assert.Equal(t, StateResolving, res.FailedAt)
		assert.Equal(t, ExitInput, res.ExitCode())
	})
}
