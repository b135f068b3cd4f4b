package land

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanmeadows/land/internal/provider"
)

// Executor performs and verifies the platform-side merge.
type Executor struct {
	backend      provider.PRBackend
	deleteBranch bool
	log          *slog.Logger
}

// NewExecutor creates an executor. deleteBranch bundles remote head-branch
// deletion into the merge.
func NewExecutor(backend provider.PRBackend, deleteBranch bool, log *slog.Logger) *Executor {
	return &Executor{backend: backend, deleteBranch: deleteBranch, log: log}
}

// Execute merges ref with strategy, guarded on the head SHA from report.
// A failed merge is not compensated: the PR and branch are left as found.
func (e *Executor) Execute(ctx context.Context, ref *provider.PRInfo, report *ReadinessReport, strategy provider.MergeMethod) (*MergeOutcome, error) {
	e.log.Info("merging pull request", "pr", ref.Number, "strategy", strategy, "head", report.HeadSHA)

	res, err := e.backend.Merge(ctx, ref, provider.MergeOptions{
		Method:       strategy,
		SHA:          report.HeadSHA,
		DeleteBranch: e.deleteBranch,
	})
	if err != nil {
		return nil, &MergeError{Kind: MergeFailed, Number: ref.Number, Err: err}
	}
	for _, w := range res.Warnings {
		e.log.Warn(w, "pr", ref.Number)
	}

	return &MergeOutcome{
		Merged:        res.Merged,
		SHA:           res.SHA,
		Strategy:      strategy,
		BranchDeleted: res.BranchDeleted,
	}, nil
}

// Verify re-queries the PR and confirms a merge commit is attached. The
// platform's answer wins over the SHA returned by the merge call.
func (e *Executor) Verify(ctx context.Context, ref *provider.PRInfo, outcome *MergeOutcome) (*MergeOutcome, error) {
	fresh, err := e.backend.GetPR(ctx, ref.Ref())
	if err != nil {
		return nil, &MergeError{Kind: UnverifiedMerge, Number: ref.Number, Err: err}
	}
	if fresh.State != provider.PRStateMerged {
		return nil, &MergeError{Kind: UnverifiedMerge, Number: ref.Number, Err: fmt.Errorf("platform reports state %q", fresh.State)}
	}
	if fresh.MergeCommitSHA == "" {
		return nil, &MergeError{Kind: UnverifiedMerge, Number: ref.Number, Err: errors.New("no merge commit is attached")}
	}

	verified := *outcome
	verified.Merged = true
	verified.Verified = true
	verified.SHA = fresh.MergeCommitSHA
	e.log.Info("merge verified", "pr", ref.Number, "sha", verified.SHA)
	return &verified, nil
}

// Register enables platform-side auto-merge instead of merging now. The
// request is pinned to the head SHA from report.
func (e *Executor) Register(ctx context.Context, ref *provider.PRInfo, report *ReadinessReport, strategy provider.MergeMethod) (*MergeOutcome, error) {
	e.log.Info("enabling auto-merge", "pr", ref.Number, "strategy", strategy)
	target := *ref
	target.HeadSHA = report.HeadSHA
	if err := e.backend.EnableAutoMerge(ctx, &target, strategy); err != nil {
		return nil, &MergeError{Kind: MergeFailed, Number: ref.Number, Err: err}
	}
	return &MergeOutcome{Strategy: strategy, AutoMerge: true}, nil
}
