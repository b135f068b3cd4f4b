package land

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanmeadows/land/internal/provider"
	"github.com/alanmeadows/land/internal/repo"
)

// State is a pipeline state.
type State string

const (
	StateResolving         State = "RESOLVING"
	StateConfirming        State = "CONFIRMING"
	StateValidating        State = "VALIDATING"
	StateFeedbackPending   State = "FEEDBACK_PENDING"
	StatePreconditionCheck State = "PRECONDITION_CHECK"
	StateMerging           State = "MERGING"
	StateVerifying         State = "VERIFYING"
	StateCleaningUp        State = "CLEANING_UP"
	StateDone              State = "DONE"
	StateFailed            State = "FAILED"
	StateDryRunReported    State = "DRY_RUN_REPORTED"
)

// Awaiting names the input a suspended pipeline needs.
type Awaiting string

const (
	AwaitingNothing      Awaiting = ""
	AwaitingConfirmation Awaiting = "confirmation"
	AwaitingFeedback     Awaiting = "feedback"
)

// Decision is the caller's answer at a pause point.
type Decision string

const (
	// DecisionProceed continues past the pause.
	DecisionProceed Decision = "proceed"
	// DecisionRecheck re-runs validation and feedback analysis from scratch.
	DecisionRecheck Decision = "recheck"
	// DecisionHalt stops at FEEDBACK_PENDING so the user can address the
	// comments; the run ends with the pending feedback as its error.
	DecisionHalt Decision = "halt"
	// DecisionAbort stops without side effects.
	DecisionAbort Decision = "abort"
)

// Git is the version-control capability the pipeline needs.
// *repo.Client satisfies it.
type Git interface {
	CurrentBranch(ctx context.Context, dir string) (string, error)
	TopLevel(ctx context.Context, dir string) (string, error)
	PrimaryWorktree(ctx context.Context, dir string) (repo.Worktree, error)
	Status(ctx context.Context, dir string) ([]repo.StatusEntry, error)
	Checkout(ctx context.Context, dir, branch string) error
	Fetch(ctx context.Context, dir, remote string) error
	Pull(ctx context.Context, dir, remote, branch string) error
	ContainsCommit(ctx context.Context, dir, sha, ref string) (bool, error)
	RemoveWorktree(ctx context.Context, dir, path string) error
	PruneWorktrees(ctx context.Context, dir string) error
	DeleteBranch(ctx context.Context, dir, branch string) error
	Stash(ctx context.Context, dir, message string) error
}

var _ Git = (*repo.Client)(nil)

// Options configures a pipeline run.
type Options struct {
	// Dir is where land was invoked. Empty means the process working directory.
	Dir          string
	DryRun       bool
	Force        bool
	Strategy     provider.MergeMethod
	Auto         bool
	AssumeYes    bool
	Stash        bool
	KeepWorktree bool
	// DeleteBranch removes the remote head branch with the merge.
	DeleteBranch bool
	Remote       string
	Feedback     FeedbackRules
	Logger       *slog.Logger
}

// Workspace describes where the pipeline is executing.
type Workspace struct {
	// Dir is the top level of the working tree land runs in.
	Dir string `json:"dir" yaml:"dir"`
	// Isolated is true inside a secondary worktree.
	Isolated     bool   `json:"isolated" yaml:"isolated"`
	WorktreePath string `json:"worktree_path,omitempty" yaml:"worktree_path,omitempty"`
	PrimaryPath  string `json:"primary_path" yaml:"primary_path"`
	// Branch is empty when HEAD is detached.
	Branch     string   `json:"branch,omitempty" yaml:"branch,omitempty"`
	Clean      bool     `json:"clean" yaml:"clean"`
	DirtyPaths []string `json:"dirty_paths,omitempty" yaml:"dirty_paths,omitempty"`
}

// TiedTo reports whether the workspace is checked out on the PR's source branch.
func (w *Workspace) TiedTo(ref *provider.PRInfo) bool {
	return w != nil && ref != nil && w.Branch != "" && w.Branch == ref.SourceBranch
}

// Dimension names a readiness check.
type Dimension string

const (
	DimensionState     Dimension = "state"
	DimensionBranch    Dimension = "branch"
	DimensionReview    Dimension = "review"
	DimensionConflicts Dimension = "conflicts"
	DimensionCI        Dimension = "ci"
	DimensionGate      Dimension = "gate"
)

// Failure is one failing readiness dimension.
type Failure struct {
	Dimension Dimension `json:"dimension" yaml:"dimension"`
	Reason    string    `json:"reason" yaml:"reason"`
	// Essential failures cannot be downgraded by --force.
	Essential bool `json:"essential" yaml:"essential"`
	// Forced is true when --force turned this failure into a warning.
	Forced bool `json:"forced,omitempty" yaml:"forced,omitempty"`
}

// ReadinessReport is a fresh snapshot of a PR's mergeability.
type ReadinessReport struct {
	Review        provider.ReviewDecision `json:"review" yaml:"review"`
	Conflict      provider.ConflictState  `json:"conflict" yaml:"conflict"`
	CI            provider.CIConclusion   `json:"ci" yaml:"ci"`
	FailingChecks []string                `json:"failing_checks,omitempty" yaml:"failing_checks,omitempty"`
	PendingChecks []string                `json:"pending_checks,omitempty" yaml:"pending_checks,omitempty"`
	Gate          provider.GateState      `json:"gate" yaml:"gate"`
	GateReason    string                  `json:"gate_reason,omitempty" yaml:"gate_reason,omitempty"`
	// HeadSHA is the head the signals refer to; the merge is guarded on it.
	HeadSHA        string    `json:"head_sha" yaml:"head_sha"`
	AlreadyMerged  bool      `json:"already_merged,omitempty" yaml:"already_merged,omitempty"`
	MergeCommitSHA string    `json:"merge_commit_sha,omitempty" yaml:"merge_commit_sha,omitempty"`
	Failures       []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
	CheckedAt      time.Time `json:"checked_at" yaml:"checked_at"`
}

// Passing reports whether no failure remains blocking.
func (r *ReadinessReport) Passing() bool {
	return len(r.Blocking()) == 0
}

// Blocking returns failures that stop the merge.
func (r *ReadinessReport) Blocking() []Failure {
	var out []Failure
	for _, f := range r.Failures {
		if !f.Forced {
			out = append(out, f)
		}
	}
	return out
}

// Warnings returns failures downgraded by --force.
func (r *ReadinessReport) Warnings() []Failure {
	var out []Failure
	for _, f := range r.Failures {
		if f.Forced {
			out = append(out, f)
		}
	}
	return out
}

// Severity classifies automated-reviewer feedback.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeveritySuggestion Severity = "suggestion"
)

// FeedbackItem is one comment from a recognized automated reviewer.
type FeedbackItem struct {
	Author   string               `json:"author" yaml:"author"`
	Kind     provider.CommentKind `json:"kind" yaml:"kind"`
	FilePath string               `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	Line     int                  `json:"line,omitempty" yaml:"line,omitempty"`
	Body     string               `json:"body" yaml:"body"`
	Severity Severity             `json:"severity" yaml:"severity"`
	URL      string               `json:"url,omitempty" yaml:"url,omitempty"`
}

// Cleanliness is the pre-merge state of the workspace.
type Cleanliness struct {
	Clean      bool          `json:"clean" yaml:"clean"`
	DirtyPaths []string      `json:"dirty_paths,omitempty" yaml:"dirty_paths,omitempty"`
	Changes    *DirtySummary `json:"changes,omitempty" yaml:"changes,omitempty"`
	// Gated is false when the workspace is not tied to the PR and cannot block it.
	Gated        bool   `json:"gated" yaml:"gated"`
	Stashed      bool   `json:"stashed,omitempty" yaml:"stashed,omitempty"`
	StashMessage string `json:"stash_message,omitempty" yaml:"stash_message,omitempty"`
	// Kept is true when --keep-worktree let a dirty tree through.
	Kept bool `json:"kept,omitempty" yaml:"kept,omitempty"`
}

// DirtySummary groups uncommitted paths the way git status does. A path
// with both staged and unstaged edits appears in Staged and Modified.
type DirtySummary struct {
	// Staged renames read "old -> new".
	Staged    []string `json:"staged,omitempty" yaml:"staged,omitempty"`
	Modified  []string `json:"modified,omitempty" yaml:"modified,omitempty"`
	Untracked []string `json:"untracked,omitempty" yaml:"untracked,omitempty"`
}

// MergeOutcome is the result of the Merge Executor.
type MergeOutcome struct {
	Merged        bool                 `json:"merged" yaml:"merged"`
	SHA           string               `json:"sha,omitempty" yaml:"sha,omitempty"`
	Strategy      provider.MergeMethod `json:"strategy" yaml:"strategy"`
	AutoMerge     bool                 `json:"auto_merge,omitempty" yaml:"auto_merge,omitempty"`
	AlreadyMerged bool                 `json:"already_merged,omitempty" yaml:"already_merged,omitempty"`
	BranchDeleted bool                 `json:"branch_deleted,omitempty" yaml:"branch_deleted,omitempty"`
	Verified      bool                 `json:"verified" yaml:"verified"`
}

// StepName identifies a teardown step.
type StepName string

const (
	StepSwitch       StepName = "switch"
	StepSync         StepName = "sync"
	StepVerify       StepName = "verify"
	StepRemove       StepName = "remove"
	StepPrune        StepName = "prune"
	StepDeleteBranch StepName = "delete-branch"
)

// StepStatus is the result of one teardown step.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
	StepWarning StepStatus = "warning"
)

// StepResult reports one teardown step.
type StepResult struct {
	Step   StepName   `json:"step" yaml:"step"`
	Status StepStatus `json:"status" yaml:"status"`
	Detail string     `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// TeardownOutcome is the ordered result of post-merge workspace reconciliation.
type TeardownOutcome struct {
	Steps    []StepResult `json:"steps" yaml:"steps"`
	Recovery []string     `json:"recovery,omitempty" yaml:"recovery,omitempty"`
}

// Step returns the result for name.
func (t *TeardownOutcome) Step(name StepName) StepResult {
	for _, s := range t.Steps {
		if s.Step == name {
			return s
		}
	}
	return StepResult{Step: name, Status: StepSkipped}
}

// FailedSteps lists steps that failed outright. Warnings are not included.
func (t *TeardownOutcome) FailedSteps() []StepName {
	var out []StepName
	for _, s := range t.Steps {
		if s.Status == StepFailed {
			out = append(out, s.Step)
		}
	}
	return out
}
