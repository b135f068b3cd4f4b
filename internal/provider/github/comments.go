package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v82/github"

	"github.com/alanmeadows/land/internal/provider"
)

// GetComments retrieves all comments on a pull request.
// Fetches issue comments (general), review comments (inline) and the
// bodies of submitted reviews.
func (b *Backend) GetComments(ctx context.Context, pr *provider.PRInfo) ([]provider.Comment, error) {
	owner, repo := b.resolveOwnerRepo(pr)
	prNum := pr.Number

	var comments []provider.Comment

	// Fetch issue comments (general PR comments).
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	for {
		issueComments, resp, err := b.client.Issues.ListComments(ctx, owner, repo, prNum, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issue comments: %w", err)
		}
		for _, c := range issueComments {
			comments = append(comments, provider.Comment{
				ID:        strconv.FormatInt(c.GetID(), 10),
				Kind:      provider.CommentIssue,
				Author:    c.GetUser().GetLogin(),
				Body:      c.GetBody(),
				URL:       c.GetHTMLURL(),
				CreatedAt: c.GetCreatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	// Fetch review comments (inline/diff comments).
	reviewOpts := &gh.PullRequestListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	for {
		reviewComments, resp, err := b.client.PullRequests.ListComments(ctx, owner, repo, prNum, reviewOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to list review comments: %w", err)
		}
		for _, c := range reviewComments {
			comments = append(comments, provider.Comment{
				ID:        strconv.FormatInt(c.GetID(), 10),
				Kind:      provider.CommentInline,
				Author:    c.GetUser().GetLogin(),
				Body:      c.GetBody(),
				FilePath:  c.GetPath(),
				Line:      c.GetLine(),
				URL:       c.GetHTMLURL(),
				CreatedAt: c.GetCreatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		reviewOpts.Page = resp.NextPage
	}

	// Fetch review summaries. Bots often put their findings here.
	listOpts := &gh.ListOptions{PerPage: 100}
	for {
		reviews, resp, err := b.client.PullRequests.ListReviews(ctx, owner, repo, prNum, listOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to list reviews: %w", err)
		}
		for _, r := range reviews {
			if strings.TrimSpace(r.GetBody()) == "" {
				continue
			}
			comments = append(comments, provider.Comment{
				ID:        strconv.FormatInt(r.GetID(), 10),
				Kind:      provider.CommentReview,
				Author:    r.GetUser().GetLogin(),
				Body:      r.GetBody(),
				URL:       r.GetHTMLURL(),
				CreatedAt: r.GetSubmittedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}

	return comments, nil
}
