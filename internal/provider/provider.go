package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when the requested pull request does not exist.
var ErrNotFound = errors.New("pull request not found")

// PRBackend is the interface for review-platform backends.
// Implementations handle provider-specific API calls for locating pull
// requests, reading their readiness signals, and integrating them.
//
//go:generate mockgen -destination=providermock/backend.go -package=providermock . PRBackend
type PRBackend interface {
	// Name returns the short identifier for this backend (e.g., "github").
	Name() string

	// MatchesURL returns true if the given remote or web URL belongs to this backend's hosting service.
	MatchesURL(url string) bool

	// GetPR retrieves pull request information by number, "#number",
	// "owner/repo#number" or web URL. Returns ErrNotFound for unknown PRs.
	GetPR(ctx context.Context, id string) (*PRInfo, error)

	// FindPRsByBranch lists pull requests (any state) whose head is branch.
	FindPRsByBranch(ctx context.Context, branch string) ([]*PRInfo, error)

	// FindPRsByIssue lists open pull requests that reference issue #n.
	FindPRsByIssue(ctx context.Context, issue int) ([]*PRInfo, error)

	// GetReviewDecision returns the aggregate review decision.
	GetReviewDecision(ctx context.Context, pr *PRInfo) (ReviewDecision, error)

	// GetMergeability returns conflict and branch-protection state.
	GetMergeability(ctx context.Context, pr *PRInfo) (*Mergeability, error)

	// GetPipelineStatus returns the CI status of the PR head commit.
	GetPipelineStatus(ctx context.Context, pr *PRInfo) (*PipelineStatus, error)

	// GetComments retrieves general comments, inline review comments and review bodies.
	GetComments(ctx context.Context, pr *PRInfo) ([]Comment, error)

	// Merge integrates the pull request.
	Merge(ctx context.Context, pr *PRInfo, opts MergeOptions) (*MergeResult, error)

	// EnableAutoMerge asks the platform to merge once every requirement passes.
	EnableAutoMerge(ctx context.Context, pr *PRInfo, method MergeMethod) error
}

// PRState is the lifecycle state of a pull request.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
	PRStateMerged PRState = "merged"
)

// PRInfo contains metadata about a pull request.
type PRInfo struct {
	Number int     `json:"number" yaml:"number"`
	Title  string  `json:"title" yaml:"title"`
	State  PRState `json:"state" yaml:"state"`
	Draft  bool    `json:"draft,omitempty" yaml:"draft,omitempty"`
	// SourceBranch is the branch being merged from.
	SourceBranch string `json:"source_branch" yaml:"source_branch"`
	// TargetBranch is the branch being merged into.
	TargetBranch string `json:"target_branch" yaml:"target_branch"`
	// HeadSHA is the commit the readiness signals refer to.
	HeadSHA string `json:"head_sha" yaml:"head_sha"`
	// NodeID is the GraphQL global ID.
	NodeID         string `json:"-" yaml:"-"`
	MergeCommitSHA string `json:"merge_commit_sha,omitempty" yaml:"merge_commit_sha,omitempty"`
	Author         string `json:"author" yaml:"author"`
	URL            string `json:"url" yaml:"url"`
	Owner          string `json:"owner" yaml:"owner"`
	Repo           string `json:"repo" yaml:"repo"`
}

// Ref returns a short "owner/repo#number" reference.
func (p *PRInfo) Ref() string {
	if p.Owner == "" {
		return fmt.Sprintf("#%d", p.Number)
	}
	return fmt.Sprintf("%s/%s#%d", p.Owner, p.Repo, p.Number)
}

// ReviewDecision is the aggregate human review state.
type ReviewDecision string

const (
	ReviewApproved         ReviewDecision = "approved"
	ReviewChangesRequested ReviewDecision = "changes_requested"
	ReviewRequired         ReviewDecision = "review_required"
	// ReviewNone means no review policy applies to the PR.
	ReviewNone ReviewDecision = "none"
)

// ConflictState reports whether the PR merges cleanly into its target.
type ConflictState string

const (
	ConflictMergeable  ConflictState = "mergeable"
	ConflictConflicted ConflictState = "conflicted"
	// ConflictUnknown means the platform has not finished computing mergeability.
	ConflictUnknown ConflictState = "unknown"
)

// GateState reports branch-protection status.
type GateState string

const (
	GateClear   GateState = "clear"
	GateBlocked GateState = "blocked"
	GateUnknown GateState = "unknown"
)

// Mergeability combines conflict and protection-gate state.
type Mergeability struct {
	Conflict ConflictState `json:"conflict" yaml:"conflict"`
	Gate     GateState     `json:"gate" yaml:"gate"`
	// Reason is the platform's raw state string (e.g. "behind", "blocked").
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// CIConclusion is the rolled-up CI result.
type CIConclusion string

const (
	CISuccess CIConclusion = "success"
	CIFailing CIConclusion = "failing"
	CIPending CIConclusion = "pending"
)

// PipelineStatus represents the CI status for a pull request head.
type PipelineStatus struct {
	State  CIConclusion `json:"state" yaml:"state"`
	Checks []CheckInfo  `json:"checks,omitempty" yaml:"checks,omitempty"`
}

// CheckInfo is a single check run or commit status.
type CheckInfo struct {
	Name string `json:"name" yaml:"name"`
	// Result is this check's contribution to the rolled-up state.
	Result CIConclusion `json:"result" yaml:"result"`
	// Detail is the platform's raw status/conclusion.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Failing returns the names of failing checks.
func (s *PipelineStatus) Failing() []string {
	return s.names(CIFailing)
}

// Pending returns the names of checks that have not completed.
func (s *PipelineStatus) Pending() []string {
	return s.names(CIPending)
}

func (s *PipelineStatus) names(result CIConclusion) []string {
	var out []string
	for _, c := range s.Checks {
		if c.Result == result {
			out = append(out, c.Name)
		}
	}
	return out
}

// Rollup recomputes State from Checks: any failing check fails the
// pipeline, otherwise any pending check keeps it pending.
func (s *PipelineStatus) Rollup() {
	s.State = CISuccess
	for _, c := range s.Checks {
		switch c.Result {
		case CIFailing:
			s.State = CIFailing
			return
		case CIPending:
			s.State = CIPending
		}
	}
}

// CommentKind distinguishes where on the PR a comment lives.
type CommentKind string

const (
	CommentIssue  CommentKind = "issue"
	CommentInline CommentKind = "inline"
	CommentReview CommentKind = "review"
)

// Comment represents a comment on a pull request.
type Comment struct {
	ID     string
	Kind   CommentKind
	Author string
	Body   string
	// FilePath is the file path for inline comments (empty for general comments).
	FilePath string
	// Line is the line number for inline comments (0 for general comments).
	Line      int
	URL       string
	CreatedAt time.Time
}

// MergeMethod selects how the platform integrates the PR.
type MergeMethod string

const (
	MergeMethodMerge  MergeMethod = "merge"
	MergeMethodSquash MergeMethod = "squash"
	MergeMethodRebase MergeMethod = "rebase"
)

// ParseMergeMethod validates a user-supplied strategy name.
func ParseMergeMethod(s string) (MergeMethod, error) {
	switch m := MergeMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case MergeMethodMerge, MergeMethodSquash, MergeMethodRebase:
		return m, nil
	case "":
		return MergeMethodMerge, nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q (want merge, squash or rebase)", s)
	}
}

// MergeOptions parameterizes Merge.
type MergeOptions struct {
	Method MergeMethod
	// SHA must match the PR head or the platform rejects the merge.
	SHA string
	// DeleteBranch removes the head branch on the remote after merging.
	DeleteBranch bool
}

// MergeResult is the platform's response to a merge request.
type MergeResult struct {
	Merged  bool
	SHA     string
	Message string
	// BranchDeleted reports whether the remote head branch was removed.
	BranchDeleted bool
	// Warnings lists best-effort follow-ups that failed.
	Warnings []string
}
