package land

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanmeadows/land/internal/provider"
)

// Validator aggregates review, conflict, CI and protection state.
type Validator struct {
	backend provider.PRBackend
	force   bool
	now     func() time.Time
}

// NewValidator creates a validator. force downgrades review, CI and gate
// failures to warnings; PR state, branch match and conflicts stay essential.
func NewValidator(backend provider.PRBackend, force bool) *Validator {
	return &Validator{backend: backend, force: force, now: time.Now}
}

// Validate re-queries every readiness signal for ref. It returns the report
// together with a *ValidationError naming every blocking failure.
func (v *Validator) Validate(ctx context.Context, ref *provider.PRInfo, ws *Workspace) (*ReadinessReport, error) {
	fresh, err := v.backend.GetPR(ctx, ref.Ref())
	if err != nil {
		return nil, &ExternalError{Op: "refresh pull request " + ref.Ref(), Err: err}
	}

	report := &ReadinessReport{
		HeadSHA:   fresh.HeadSHA,
		CheckedAt: v.now(),
	}

	switch fresh.State {
	case provider.PRStateMerged:
		report.AlreadyMerged = true
		report.MergeCommitSHA = fresh.MergeCommitSHA
		return report, nil
	case provider.PRStateClosed:
		report.Failures = append(report.Failures, Failure{
			Dimension: DimensionState,
			Reason:    fmt.Sprintf("#%d is closed without being merged", fresh.Number),
			Essential: true,
		})
		return report, &ValidationError{Failures: report.Failures}
	}

	if f, ok := branchMismatch(ws, fresh); ok {
		report.Failures = append(report.Failures, f)
	}

	var (
		review  provider.ReviewDecision
		mergeab *provider.Mergeability
		ci      *provider.PipelineStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := v.backend.GetReviewDecision(gctx, fresh)
		if err != nil {
			return &ExternalError{Op: "query review decision", Err: err}
		}
		review = d
		return nil
	})
	g.Go(func() error {
		m, err := v.backend.GetMergeability(gctx, fresh)
		if err != nil {
			return &ExternalError{Op: "query mergeability", Err: err}
		}
		mergeab = m
		return nil
	})
	g.Go(func() error {
		s, err := v.backend.GetPipelineStatus(gctx, fresh)
		if err != nil {
			return &ExternalError{Op: "query checks", Err: err}
		}
		ci = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Review = review
	report.Conflict = mergeab.Conflict
	report.Gate = mergeab.Gate
	report.GateReason = mergeab.Reason
	report.CI = ci.State
	report.FailingChecks = ci.Failing()
	report.PendingChecks = ci.Pending()

	switch review {
	case provider.ReviewChangesRequested:
		report.Failures = append(report.Failures, v.soft(DimensionReview, "changes were requested"))
	case provider.ReviewRequired:
		report.Failures = append(report.Failures, v.soft(DimensionReview, "an approving review is required"))
	}

	switch mergeab.Conflict {
	case provider.ConflictConflicted:
		report.Failures = append(report.Failures, Failure{
			Dimension: DimensionConflicts,
			Reason:    fmt.Sprintf("%s conflicts with %s", fresh.SourceBranch, fresh.TargetBranch),
			Essential: true,
		})
	case provider.ConflictUnknown:
		report.Failures = append(report.Failures, Failure{
			Dimension: DimensionConflicts,
			Reason:    "mergeability is still being computed; try again shortly",
			Essential: true,
		})
	}

	switch ci.State {
	case provider.CIFailing:
		report.Failures = append(report.Failures, v.soft(DimensionCI, "failing checks: "+strings.Join(report.FailingChecks, ", ")))
	case provider.CIPending:
		report.Failures = append(report.Failures, v.soft(DimensionCI, "pending checks: "+strings.Join(report.PendingChecks, ", ")))
	}

	switch mergeab.Gate {
	case provider.GateBlocked:
		report.Failures = append(report.Failures, v.soft(DimensionGate, "branch protection blocks the merge ("+mergeab.Reason+")"))
	case provider.GateUnknown:
		report.Failures = append(report.Failures, v.soft(DimensionGate, "branch protection state is unknown"))
	}

	if blocking := report.Blocking(); len(blocking) > 0 {
		return report, &ValidationError{Failures: blocking}
	}
	return report, nil
}

// soft builds a failure that --force may downgrade.
func (v *Validator) soft(d Dimension, reason string) Failure {
	return Failure{Dimension: d, Reason: reason, Forced: v.force}
}
