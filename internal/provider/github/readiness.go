package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v82/github"
	"github.com/shurcooL/githubv4"

	"github.com/alanmeadows/land/internal/provider"
)

// GetReviewDecision queries the aggregate review decision over GraphQL.
// REST has no equivalent field. A null decision means no review policy applies.
func (b *Backend) GetReviewDecision(ctx context.Context, pr *provider.PRInfo) (provider.ReviewDecision, error) {
	owner, repo := b.resolveOwnerRepo(pr)

	var query struct {
		Repository struct {
			PullRequest struct {
				ReviewDecision *githubv4.PullRequestReviewDecision
			} `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]any{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(repo),
		"number": githubv4.Int(pr.Number),
	}

	if err := b.getGraphQLClient(ctx).Query(ctx, &query, vars); err != nil {
		return "", fmt.Errorf("failed to query review decision: %w", err)
	}

	decision := query.Repository.PullRequest.ReviewDecision
	if decision == nil {
		return provider.ReviewNone, nil
	}
	switch *decision {
	case githubv4.PullRequestReviewDecisionApproved:
		return provider.ReviewApproved, nil
	case githubv4.PullRequestReviewDecisionChangesRequested:
		return provider.ReviewChangesRequested, nil
	case githubv4.PullRequestReviewDecisionReviewRequired:
		return provider.ReviewRequired, nil
	default:
		return provider.ReviewNone, nil
	}
}

// GetMergeability reads conflict and protection state from the REST PR detail.
func (b *Backend) GetMergeability(ctx context.Context, pr *provider.PRInfo) (*provider.Mergeability, error) {
	owner, repo := b.resolveOwnerRepo(pr)

	ghPR, _, err := b.client.PullRequests.Get(ctx, owner, repo, pr.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to get PR mergeability: %w", err)
	}
	return mapMergeability(ghPR), nil
}

// mapMergeability interprets GitHub's mergeable / mergeable_state pair.
// mergeable is null while GitHub computes it in the background.
func mapMergeability(pr *gh.PullRequest) *provider.Mergeability {
	state := pr.GetMergeableState()
	m := &provider.Mergeability{Reason: state}

	switch {
	case pr.Mergeable == nil:
		m.Conflict = provider.ConflictUnknown
	case !pr.GetMergeable() || state == "dirty":
		m.Conflict = provider.ConflictConflicted
	default:
		m.Conflict = provider.ConflictMergeable
	}

	switch state {
	case "clean", "unstable", "has_hooks", "dirty":
		m.Gate = provider.GateClear
	case "blocked", "behind", "draft":
		m.Gate = provider.GateBlocked
	default:
		m.Gate = provider.GateUnknown
	}
	if pr.GetDraft() {
		m.Gate = provider.GateBlocked
		m.Reason = "draft"
	}
	return m
}

// GetPipelineStatus returns the CI status of the PR head commit.
// Queries both GitHub Check Runs and legacy Commit Statuses for a complete picture.
// A head with no checks at all counts as passing.
func (b *Backend) GetPipelineStatus(ctx context.Context, pr *provider.PRInfo) (*provider.PipelineStatus, error) {
	owner, repo := b.resolveOwnerRepo(pr)

	headSHA := pr.HeadSHA
	if headSHA == "" {
		ghPR, _, err := b.client.PullRequests.Get(ctx, owner, repo, pr.Number)
		if err != nil {
			return nil, fmt.Errorf("failed to get PR for head SHA: %w", err)
		}
		headSHA = ghPR.GetHead().GetSHA()
	}
	if headSHA == "" {
		return nil, fmt.Errorf("PR head SHA is empty")
	}

	status := &provider.PipelineStatus{Checks: make([]provider.CheckInfo, 0)}

	// Query check runs (with pagination).
	checkOpts := &gh.ListCheckRunsOptions{
		Filter:      gh.Ptr("latest"),
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	for {
		checkResult, resp, err := b.client.Checks.ListCheckRunsForRef(ctx, owner, repo, headSHA, checkOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to list check runs: %w", err)
		}
		for _, cr := range checkResult.CheckRuns {
			detail := cr.GetStatus()
			if cr.GetConclusion() != "" {
				detail = cr.GetConclusion()
			}
			status.Checks = append(status.Checks, provider.CheckInfo{
				Name:   cr.GetName(),
				Result: checkRunResult(cr.GetStatus(), cr.GetConclusion()),
				Detail: detail,
				URL:    cr.GetHTMLURL(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		checkOpts.Page = resp.NextPage
	}

	// Query combined commit status (legacy status API).
	combined, _, err := b.client.Repositories.GetCombinedStatus(ctx, owner, repo, headSHA, &gh.ListOptions{PerPage: 100})
	if err != nil {
		return nil, fmt.Errorf("failed to get combined status: %w", err)
	}
	for _, s := range combined.Statuses {
		status.Checks = append(status.Checks, provider.CheckInfo{
			Name:   s.GetContext(),
			Result: commitStatusResult(s.GetState()),
			Detail: s.GetState(),
			URL:    s.GetTargetURL(),
		})
	}

	status.Rollup()
	return status, nil
}

// checkRunResult maps a check run's status and conclusion.
func checkRunResult(status, conclusion string) provider.CIConclusion {
	if status != "completed" {
		return provider.CIPending
	}
	switch conclusion {
	case "success", "neutral", "skipped":
		return provider.CISuccess
	default:
		// failure, timed_out, cancelled, action_required, startup_failure, stale
		return provider.CIFailing
	}
}

// commitStatusResult maps a legacy commit status state.
func commitStatusResult(state string) provider.CIConclusion {
	switch state {
	case "success":
		return provider.CISuccess
	case "pending":
		return provider.CIPending
	default:
		return provider.CIFailing
	}
}
