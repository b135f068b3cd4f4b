package land

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alanmeadows/land/internal/provider"
)

// Exit codes returned by the land command.
const (
	ExitOK         = 0
	ExitInput      = 1
	ExitValidation = 2
	ExitExternal   = 3
	ExitMerge      = 4
)

var (
	// ErrAborted is returned when the user declines at a pause point.
	ErrAborted = errors.New("aborted by user")
	// ErrConfirmationRequired is returned when confirmation is needed but nobody can answer.
	ErrConfirmationRequired = errors.New("confirmation required: re-run with --yes when not attached to a terminal")
)

// ResolutionKind classifies a ResolutionError.
type ResolutionKind string

const (
	CannotInfer         ResolutionKind = "cannot_infer"
	AmbiguousResolution ResolutionKind = "ambiguous"
)

// ResolutionError reports that no single pull request could be selected.
type ResolutionError struct {
	Kind       ResolutionKind
	Reason     string
	Candidates []*provider.PRInfo
}

func (e *ResolutionError) Error() string {
	if e.Kind != AmbiguousResolution {
		return "cannot determine pull request: " + e.Reason
	}
	refs := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		refs = append(refs, fmt.Sprintf("#%d (%s)", c.Number, c.SourceBranch))
	}
	return fmt.Sprintf("ambiguous pull request: %s matches %s; pass one explicitly", e.Reason, strings.Join(refs, ", "))
}

// ValidationError lists every readiness failure that was not downgraded.
type ValidationError struct {
	Failures []Failure
}

func (e *ValidationError) Error() string {
	reasons := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		reasons = append(reasons, fmt.Sprintf("%s: %s", f.Dimension, f.Reason))
	}
	return fmt.Sprintf("pull request is not ready (%d blocking): %s", len(e.Failures), strings.Join(reasons, "; "))
}

// PreconditionError blocks the merge because the workspace has uncommitted work.
type PreconditionError struct {
	Path       string
	DirtyPaths []string
	Changes    *DirtySummary
	Recovery   []string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("worktree %s has %d uncommitted path(s): %s", e.Path, len(e.DirtyPaths), strings.Join(e.DirtyPaths, ", "))
}

// FeedbackPendingError reports automated-reviewer feedback that was not handled.
type FeedbackPendingError struct {
	Items    int
	Critical int
}

func (e *FeedbackPendingError) Error() string {
	return fmt.Sprintf("%d unaddressed automated review comment(s) (%d critical)", e.Items, e.Critical)
}

// ExternalError wraps a failure talking to git or the review platform.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// MergeErrorKind classifies a MergeError.
type MergeErrorKind string

const (
	MergeFailed     MergeErrorKind = "failed"
	UnverifiedMerge MergeErrorKind = "unverified"
)

// MergeError reports a merge call that failed or could not be confirmed.
type MergeError struct {
	Kind   MergeErrorKind
	Number int
	Err    error
}

func (e *MergeError) Error() string {
	if e.Kind == UnverifiedMerge {
		return fmt.Sprintf("merge of #%d could not be verified: %v", e.Number, e.Err)
	}
	return fmt.Sprintf("merge of #%d failed: %v", e.Number, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// CleanupError reports teardown steps that failed after a verified merge.
type CleanupError struct {
	Steps    []StepName
	Recovery []string
}

func (e *CleanupError) Error() string {
	names := make([]string, 0, len(e.Steps))
	for _, s := range e.Steps {
		names = append(names, string(s))
	}
	return "merged, but workspace cleanup failed at: " + strings.Join(names, ", ")
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		resErr      *ResolutionError
		valErr      *ValidationError
		preErr      *PreconditionError
		feedbackErr *FeedbackPendingError
		mergeErr    *MergeError
		cleanupErr  *CleanupError
		extErr      *ExternalError
	)
	switch {
	case errors.As(err, &mergeErr), errors.As(err, &cleanupErr):
		return ExitMerge
	case errors.As(err, &valErr), errors.As(err, &preErr), errors.As(err, &feedbackErr):
		return ExitValidation
	case errors.As(err, &resErr), errors.Is(err, ErrAborted), errors.Is(err, ErrConfirmationRequired):
		return ExitInput
	case errors.As(err, &extErr):
		return ExitExternal
	default:
		return ExitInput
	}
}
