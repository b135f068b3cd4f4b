package github

import (
	"context"
	"fmt"
	"log/slog"

	gh "github.com/google/go-github/v82/github"
	"github.com/shurcooL/githubv4"

	"github.com/alanmeadows/land/internal/provider"
)

// Merge merges the pull request with the requested method. opts.SHA guards
// against a head that moved after readiness was checked: GitHub answers 409
// and nothing is merged. Remote branch deletion is best-effort and reported
// as a warning.
func (b *Backend) Merge(ctx context.Context, pr *provider.PRInfo, opts provider.MergeOptions) (*provider.MergeResult, error) {
	owner, repo := b.resolveOwnerRepo(pr)

	method := opts.Method
	if method == "" {
		method = provider.MergeMethodMerge
	}

	res, _, err := b.client.PullRequests.Merge(ctx, owner, repo, pr.Number, "", &gh.PullRequestOptions{
		MergeMethod: string(method),
		SHA:         opts.SHA,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to merge PR #%d: %w", pr.Number, err)
	}

	result := &provider.MergeResult{
		Merged:  res.GetMerged(),
		SHA:     res.GetSHA(),
		Message: res.GetMessage(),
	}
	if !result.Merged {
		return result, fmt.Errorf("merge of PR #%d was not performed: %s", pr.Number, result.Message)
	}
	slog.Info("merged pull request", "pr", pr.Number, "method", method, "sha", result.SHA)

	if opts.DeleteBranch && pr.SourceBranch != "" {
		if _, err := b.client.Git.DeleteRef(ctx, owner, repo, "heads/"+pr.SourceBranch); err != nil {
			slog.Warn("failed to delete remote branch", "branch", pr.SourceBranch, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("remote branch %s was not deleted: %v", pr.SourceBranch, err))
		} else {
			result.BranchDeleted = true
		}
	}

	return result, nil
}

// EnableAutoMerge turns on platform-side auto-merge through GraphQL.
// REST cannot enable auto-merge.
func (b *Backend) EnableAutoMerge(ctx context.Context, pr *provider.PRInfo, method provider.MergeMethod) error {
	if pr.NodeID == "" {
		return fmt.Errorf("PR #%d has no node ID", pr.Number)
	}

	var mutation struct {
		EnablePullRequestAutoMerge struct {
			PullRequest struct {
				Number int
			}
		} `graphql:"enablePullRequestAutoMerge(input: $input)"`
	}

	gqlMethod := githubv4.PullRequestMergeMethodMerge
	switch method {
	case provider.MergeMethodSquash:
		gqlMethod = githubv4.PullRequestMergeMethodSquash
	case provider.MergeMethodRebase:
		gqlMethod = githubv4.PullRequestMergeMethodRebase
	}

	input := githubv4.EnablePullRequestAutoMergeInput{
		PullRequestID: githubv4.ID(pr.NodeID),
		MergeMethod:   &gqlMethod,
	}
	if pr.HeadSHA != "" {
		oid := githubv4.GitObjectID(pr.HeadSHA)
		input.ExpectedHeadOid = &oid
	}

	if err := b.getGraphQLClient(ctx).Mutate(ctx, &mutation, input, nil); err != nil {
		return fmt.Errorf("failed to enable auto-merge: %w", err)
	}
	return nil
}
