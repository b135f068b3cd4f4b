package land

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alanmeadows/land/internal/provider"
)

// Result is the pipeline's terminal or suspended record.
type Result struct {
	RunID    string   `json:"run_id" yaml:"run_id"`
	State    State    `json:"state" yaml:"state"`
	FailedAt State    `json:"failed_at,omitempty" yaml:"failed_at,omitempty"`
	Awaiting Awaiting `json:"awaiting,omitempty" yaml:"awaiting,omitempty"`
	Err      error    `json:"-" yaml:"-"`
	// Error mirrors Err for machine-readable output.
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
	DryRun      bool             `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Ref         *provider.PRInfo `json:"pull_request,omitempty" yaml:"pull_request,omitempty"`
	Workspace   *Workspace       `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	Report      *ReadinessReport `json:"readiness,omitempty" yaml:"readiness,omitempty"`
	Feedback    []FeedbackItem   `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	Cleanliness *Cleanliness     `json:"cleanliness,omitempty" yaml:"cleanliness,omitempty"`
	Outcome     *MergeOutcome    `json:"merge,omitempty" yaml:"merge,omitempty"`
	Teardown    *TeardownOutcome `json:"teardown,omitempty" yaml:"teardown,omitempty"`
	Warnings    []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ExitCode maps the result to the process exit status.
func (r *Result) ExitCode() int {
	if r.Err != nil {
		return ExitCode(r.Err)
	}
	switch r.Awaiting {
	case AwaitingFeedback:
		return ExitValidation
	case AwaitingConfirmation:
		return ExitInput
	}
	return ExitOK
}

// Pipeline drives one landing from resolution to teardown. Only the
// pipeline mutates its state; stages return fresh values.
type Pipeline struct {
	backend provider.PRBackend
	git     Git
	opts    Options
	runID   string
	log     *slog.Logger

	resolver  *Resolver
	validator *Validator
	feedback  *Reconciler
	executor  *Executor
	workspace *WorkspaceReconciler

	res          *Result
	skipFeedback bool
}

// New creates a pipeline with its own run ID.
func New(backend provider.PRBackend, git Git, opts Options) *Pipeline {
	if opts.Strategy == "" {
		opts.Strategy = provider.MergeMethodMerge
	}
	runID := uuid.NewString()
	base := opts.Logger
	if base == nil {
		base = slog.Default()
	}
	log := base.With("run_id", runID)

	return &Pipeline{
		backend:   backend,
		git:       git,
		opts:      opts,
		runID:     runID,
		log:       log,
		resolver:  NewResolver(backend),
		validator: NewValidator(backend, opts.Force),
		feedback:  NewReconciler(backend, opts.Feedback),
		executor:  NewExecutor(backend, opts.DeleteBranch && !opts.KeepWorktree, log),
		workspace: NewWorkspaceReconciler(git, opts, runID, log),
	}
}

// RunID identifies this pipeline in logs.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run starts the pipeline. explicitID, when set, is used verbatim as the
// target PR. The returned result is either terminal or awaiting a Decision.
func (p *Pipeline) Run(ctx context.Context, explicitID string) *Result {
	p.res = &Result{RunID: p.runID, DryRun: p.opts.DryRun}
	p.skipFeedback = false
	p.transition(StateResolving)

	ws, err := DetectWorkspace(ctx, p.git, p.opts.Dir)
	if err != nil {
		return p.fail(err)
	}
	p.res.Workspace = ws

	ref, err := p.resolver.Resolve(ctx, explicitID, ws.Branch)
	if err != nil {
		return p.fail(err)
	}
	p.res.Ref = ref
	p.log.Info("resolved pull request", "pr", ref.Number, "source", ref.SourceBranch, "target", ref.TargetBranch)

	p.transition(StateConfirming)
	if p.opts.DryRun || p.opts.AssumeYes {
		return p.validate(ctx)
	}
	return p.await(AwaitingConfirmation)
}

// Resume continues a suspended pipeline with the caller's decision.
// Abort never has side effects.
func (p *Pipeline) Resume(ctx context.Context, d Decision) *Result {
	if p.res == nil || p.res.Awaiting == AwaitingNothing {
		return &Result{RunID: p.runID, State: StateFailed, Err: errors.New("pipeline is not waiting for input")}
	}

	awaiting := p.res.Awaiting
	p.res.Awaiting = AwaitingNothing
	p.log.Debug("resuming", "awaiting", awaiting, "decision", d)

	if d == DecisionAbort || (d == DecisionHalt && awaiting != AwaitingFeedback) {
		return p.fail(ErrAborted)
	}

	switch awaiting {
	case AwaitingConfirmation:
		return p.validate(ctx)
	case AwaitingFeedback:
		if d == DecisionHalt {
			p.log.Info("halting to address automated review feedback", "items", len(p.res.Feedback))
			return p.fail(&FeedbackPendingError{Items: len(p.res.Feedback), Critical: CountCritical(p.res.Feedback)})
		}
		p.skipFeedback = d == DecisionProceed
		if p.skipFeedback {
			p.warn(fmt.Sprintf("proceeding past %d automated review comment(s)", len(p.res.Feedback)))
		}
		return p.validate(ctx)
	}
	return p.fail(fmt.Errorf("unknown pause %q", awaiting))
}

// validate always regenerates the report; nothing from before a pause is
// reused, including the workspace the branch check reads.
func (p *Pipeline) validate(ctx context.Context) *Result {
	p.transition(StateValidating)
	p.res.Feedback = nil

	ws, err := DetectWorkspace(ctx, p.git, p.res.Workspace.Dir)
	if err != nil {
		return p.fail(err)
	}
	p.res.Workspace = ws

	report, err := p.validator.Validate(ctx, p.res.Ref, ws)
	p.res.Report = report
	if report != nil {
		for _, f := range report.Warnings() {
			p.warn(fmt.Sprintf("forced past %s: %s", f.Dimension, f.Reason))
		}
	}
	if err != nil {
		var valErr *ValidationError
		if p.opts.DryRun && errors.As(err, &valErr) {
			return p.dryRunReport(ctx, err)
		}
		return p.fail(err)
	}

	if report.AlreadyMerged {
		p.log.Info("pull request is already merged", "pr", p.res.Ref.Number, "sha", report.MergeCommitSHA)
		if p.opts.DryRun {
			return p.dryRunReport(ctx, nil)
		}
		return p.precondition(ctx)
	}

	if p.opts.Feedback.Enabled && !p.skipFeedback {
		items, err := p.feedback.Analyze(ctx, p.res.Ref)
		if err != nil {
			return p.fail(err)
		}
		p.res.Feedback = items
		if len(items) > 0 && !p.opts.DryRun {
			p.transition(StateFeedbackPending)
			p.log.Info("automated review feedback found", "items", len(items), "critical", CountCritical(items))
			return p.await(AwaitingFeedback)
		}
	}

	if p.opts.DryRun {
		return p.dryRunReport(ctx, nil)
	}
	return p.precondition(ctx)
}

// precondition is the hard gate in front of every mutation.
func (p *Pipeline) precondition(ctx context.Context) *Result {
	p.transition(StatePreconditionCheck)

	// Re-derive right before the mutation it gates.
	ws, err := DetectWorkspace(ctx, p.git, p.res.Workspace.Dir)
	if err != nil {
		return p.fail(err)
	}
	p.res.Workspace = ws

	if !p.res.Report.AlreadyMerged {
		if f, ok := branchMismatch(ws, p.res.Ref); ok {
			return p.fail(&ValidationError{Failures: []Failure{f}})
		}
	}

	c, err := p.workspace.CheckPrecondition(ctx, ws, p.res.Ref)
	p.res.Cleanliness = c
	if err != nil {
		return p.fail(err)
	}
	if c.Stashed {
		p.warn(fmt.Sprintf("uncommitted changes stashed as %q", c.StashMessage))
	}
	if c.Kept {
		p.warn(fmt.Sprintf("worktree %s kept with %d uncommitted path(s)", ws.Dir, len(c.DirtyPaths)))
	}

	if p.res.Report.AlreadyMerged {
		return p.verify(ctx, &MergeOutcome{
			AlreadyMerged: true,
			Strategy:      p.opts.Strategy,
			SHA:           p.res.Report.MergeCommitSHA,
		})
	}
	return p.merge(ctx)
}

func (p *Pipeline) merge(ctx context.Context) *Result {
	p.transition(StateMerging)

	if p.opts.Auto {
		outcome, err := p.executor.Register(ctx, p.res.Ref, p.res.Report, p.opts.Strategy)
		p.res.Outcome = outcome
		if err != nil {
			return p.fail(err)
		}
		p.warn("auto-merge registered; run land again after it merges to clean up the workspace")
		return p.done()
	}

	outcome, err := p.executor.Execute(ctx, p.res.Ref, p.res.Report, p.opts.Strategy)
	p.res.Outcome = outcome
	if err != nil {
		return p.fail(err)
	}
	return p.verify(ctx, outcome)
}

func (p *Pipeline) verify(ctx context.Context, outcome *MergeOutcome) *Result {
	p.transition(StateVerifying)
	verified, err := p.executor.Verify(ctx, p.res.Ref, outcome)
	if err != nil {
		return p.fail(err)
	}
	p.res.Outcome = verified
	return p.cleanup(ctx)
}

func (p *Pipeline) cleanup(ctx context.Context) *Result {
	p.transition(StateCleaningUp)
	td := p.workspace.Teardown(ctx, p.res.Workspace, p.res.Ref, p.res.Outcome)
	p.res.Teardown = td

	for _, s := range td.Steps {
		if s.Status == StepWarning {
			p.warn(s.Detail)
		}
	}
	if failed := td.FailedSteps(); len(failed) > 0 {
		return p.fail(&CleanupError{Steps: failed, Recovery: td.Recovery})
	}
	return p.done()
}

// dryRunReport finishes a dry run with a read-only cleanliness check.
// err carries validation failures; a dirty gated workspace adds a
// PreconditionError so the exit status reflects what a real run would do.
func (p *Pipeline) dryRunReport(ctx context.Context, err error) *Result {
	c, inspectErr := p.workspace.Inspect(ctx, p.res.Workspace, p.res.Ref)
	if inspectErr != nil {
		return p.fail(inspectErr)
	}
	p.res.Cleanliness = c
	if c.Gated && !c.Clean && !p.opts.Stash {
		err = errors.Join(err, dirtyError(p.res.Workspace, p.res.Ref, c))
	}

	p.transition(StateDryRunReported)
	p.setErr(err)
	return p.res
}

func (p *Pipeline) done() *Result {
	p.transition(StateDone)
	return p.res
}

func (p *Pipeline) await(a Awaiting) *Result {
	p.res.Awaiting = a
	p.log.Debug("awaiting input", "awaiting", a, "state", p.res.State)
	return p.res
}

func (p *Pipeline) fail(err error) *Result {
	p.res.FailedAt = p.res.State
	p.res.State = StateFailed
	p.setErr(err)
	p.log.Debug("pipeline failed", "at", p.res.FailedAt, "error", err)
	return p.res
}

func (p *Pipeline) setErr(err error) {
	p.res.Err = err
	p.res.Error = ""
	if err != nil {
		p.res.Error = err.Error()
	}
}

func (p *Pipeline) transition(s State) {
	p.log.Debug("state", "from", p.res.State, "to", s)
	p.res.State = s
}

func (p *Pipeline) warn(msg string) {
	p.log.Warn(msg)
	p.res.Warnings = append(p.res.Warnings, msg)
}
