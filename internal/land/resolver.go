package land

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/alanmeadows/land/internal/provider"
)

// issuePatterns extract an issue number from a branch name. Order matters:
// the first match wins.
var issuePatterns = []*regexp.Regexp{
	// issue-123, issue/123, issues_123-slug
	regexp.MustCompile(`(?i)^issues?[-/_]#?(\d+)(?:[-/_].*)?$`),
	// 123-slug, #123-slug, 123
	regexp.MustCompile(`^#?(\d+)(?:[-/_].*)?$`),
	// type-123-slug, type/123-slug, type-#123-slug, feature-123
	regexp.MustCompile(`(?i)^[a-z][a-z0-9]*[-/_]#?(\d+)(?:[-/_].*)?$`),
}

// IssueFromBranch extracts an issue number from common branch naming conventions.
func IssueFromBranch(branch string) (int, bool) {
	for _, re := range issuePatterns {
		m := re.FindStringSubmatch(branch)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		return n, true
	}
	return 0, false
}

// Resolver determines which pull request a run targets.
type Resolver struct {
	backend provider.PRBackend
}

// NewResolver creates a resolver over backend.
func NewResolver(backend provider.PRBackend) *Resolver {
	return &Resolver{backend: backend}
}

// Resolve picks the target PR. An explicit identifier is used verbatim;
// otherwise the current branch is matched against PR heads, then an issue
// number in the branch name is matched against PR references. More than one
// candidate at any step is an AmbiguousResolution error.
func (r *Resolver) Resolve(ctx context.Context, explicit, branch string) (*provider.PRInfo, error) {
	if explicit != "" {
		pr, err := r.backend.GetPR(ctx, explicit)
		if err != nil {
			if errors.Is(err, provider.ErrNotFound) {
				return nil, &ResolutionError{Kind: CannotInfer, Reason: fmt.Sprintf("pull request %s does not exist", explicit)}
			}
			return nil, &ExternalError{Op: "get pull request " + explicit, Err: err}
		}
		return pr, nil
	}

	if branch == "" {
		return nil, &ResolutionError{Kind: CannotInfer, Reason: "HEAD is detached; pass a pull request number"}
	}

	pr, err := r.byBranch(ctx, branch)
	if pr != nil || err != nil {
		return pr, err
	}

	issue, ok := IssueFromBranch(branch)
	if !ok {
		return nil, &ResolutionError{Kind: CannotInfer, Reason: fmt.Sprintf("no pull request has head %q and the branch name carries no issue number", branch)}
	}

	candidates, err := r.backend.FindPRsByIssue(ctx, issue)
	if err != nil {
		return nil, &ExternalError{Op: fmt.Sprintf("search pull requests for issue #%d", issue), Err: err}
	}
	switch len(candidates) {
	case 0:
		return nil, &ResolutionError{Kind: CannotInfer, Reason: fmt.Sprintf("no pull request has head %q or references issue #%d", branch, issue)}
	case 1:
		return candidates[0], nil
	default:
		return nil, &ResolutionError{Kind: AmbiguousResolution, Reason: fmt.Sprintf("issue #%d", issue), Candidates: candidates}
	}
}

// byBranch returns the single open PR for branch, or the single merged one
// when none is open so that a re-run can finish an earlier landing.
func (r *Resolver) byBranch(ctx context.Context, branch string) (*provider.PRInfo, error) {
	prs, err := r.backend.FindPRsByBranch(ctx, branch)
	if err != nil {
		return nil, &ExternalError{Op: "list pull requests for branch " + branch, Err: err}
	}

	var open, merged []*provider.PRInfo
	for _, pr := range prs {
		switch pr.State {
		case provider.PRStateOpen:
			open = append(open, pr)
		case provider.PRStateMerged:
			merged = append(merged, pr)
		}
	}

	for _, set := range [][]*provider.PRInfo{open, merged} {
		switch len(set) {
		case 0:
			continue
		case 1:
			return set[0], nil
		default:
			return nil, &ResolutionError{Kind: AmbiguousResolution, Reason: fmt.Sprintf("branch %q", branch), Candidates: set}
		}
	}
	return nil, nil
}
