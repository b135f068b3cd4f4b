package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"

	github_ratelimit "github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/alanmeadows/land/internal/provider"
	"github.com/alanmeadows/land/internal/repo"
)

const defaultHost = "github.com"

// Backend implements provider.PRBackend for GitHub and GitHub Enterprise.
type Backend struct {
	client    *gh.Client
	gqlOnce   sync.Once
	gqlClient *githubv4.Client
	owner     string
	repo      string
	token     string
	host      string
	gqlURL    string // empty means api.github.com
}

// NewBackend creates a new GitHub backend for the given owner/repo.
// Uses go-github-ratelimit middleware for automatic rate limit handling.
func NewBackend(owner, repo, token string) *Backend {
	rateLimiter := github_ratelimit.NewClient(nil)
	client := gh.NewClient(rateLimiter).WithAuthToken(token)
	return &Backend{
		client: client,
		owner:  owner,
		repo:   repo,
		token:  token,
		host:   defaultHost,
	}
}

// NewEnterpriseBackend creates a backend for a GitHub Enterprise Server
// whose REST root is apiURL (e.g. https://ghe.example.com/api/v3/).
func NewEnterpriseBackend(apiURL, owner, repo, token string) (*Backend, error) {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid GitHub API URL %q", apiURL)
	}
	rateLimiter := github_ratelimit.NewClient(nil)
	client, err := gh.NewClient(rateLimiter).WithAuthToken(token).WithEnterpriseURLs(apiURL, apiURL)
	if err != nil {
		return nil, fmt.Errorf("configuring enterprise client: %w", err)
	}
	return &Backend{
		client: client,
		owner:  owner,
		repo:   repo,
		token:  token,
		host:   strings.ToLower(u.Hostname()),
		gqlURL: fmt.Sprintf("%s://%s/api/graphql", u.Scheme, u.Host),
	}, nil
}

// Name returns "github".
func (b *Backend) Name() string {
	return "github"
}

// MatchesURL returns true if the remote or web URL is hosted on this backend's host.
func (b *Backend) MatchesURL(rawURL string) bool {
	norm := repo.NormalizeGitURL(rawURL)
	host, _, _ := strings.Cut(norm, "/")
	if host == "" || !strings.Contains(norm, "/") {
		return false
	}
	want := b.host
	if want == "" {
		want = defaultHost
	}
	return host == want || host == "www."+want
}

// GetPR retrieves pull request information by number, "#number",
// "owner/repo#number" or URL.
func (b *Backend) GetPR(ctx context.Context, id string) (*provider.PRInfo, error) {
	parsed, err := b.parsePRIdentifier(id)
	if err != nil {
		return nil, fmt.Errorf("could not parse PR identifier %q: %w", id, err)
	}

	pr, _, err := b.client.PullRequests.Get(ctx, parsed.Owner, parsed.Repo, parsed.Number)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s/%s#%d: %w", parsed.Owner, parsed.Repo, parsed.Number, provider.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get PR: %w", err)
	}

	return mapPR(pr, parsed.Owner, parsed.Repo), nil
}

// FindPRsByBranch lists pull requests in any state whose head is branch in
// the backend's repository.
func (b *Backend) FindPRsByBranch(ctx context.Context, branch string) ([]*provider.PRInfo, error) {
	opts := &gh.PullRequestListOptions{
		State:       "all",
		Head:        b.owner + ":" + branch,
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var out []*provider.PRInfo
	for {
		prs, resp, err := b.client.PullRequests.List(ctx, b.owner, b.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list PRs for branch %s: %w", branch, err)
		}
		for _, pr := range prs {
			out = append(out, mapPR(pr, b.owner, b.repo))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// FindPRsByIssue searches open pull requests whose title or body references
// issue #n (either "#n" or an issues/n link).
func (b *Backend) FindPRsByIssue(ctx context.Context, issue int) ([]*provider.PRInfo, error) {
	query := fmt.Sprintf("repo:%s/%s is:pr is:open %d", b.owner, b.repo, issue)
	ref := regexp.MustCompile(fmt.Sprintf(`(?i)(?:#|issues/)%d\b`, issue))

	opts := &gh.SearchOptions{ListOptions: gh.ListOptions{PerPage: 100}}
	var numbers []int
	for {
		result, resp, err := b.client.Search.Issues(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to search PRs for issue #%d: %w", issue, err)
		}
		for _, is := range result.Issues {
			if !is.IsPullRequest() {
				continue
			}
			if ref.MatchString(is.GetTitle()) || ref.MatchString(is.GetBody()) {
				numbers = append(numbers, is.GetNumber())
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	// Search results lack head/base refs, so each match is fetched in full.
	out := make([]*provider.PRInfo, 0, len(numbers))
	for _, n := range numbers {
		pr, _, err := b.client.PullRequests.Get(ctx, b.owner, b.repo, n)
		if err != nil {
			return nil, fmt.Errorf("failed to get PR #%d: %w", n, err)
		}
		out = append(out, mapPR(pr, b.owner, b.repo))
	}
	return out, nil
}

// --- Internal helpers ---

// mapPR converts a GitHub PullRequest to provider.PRInfo.
func mapPR(pr *gh.PullRequest, owner, repo string) *provider.PRInfo {
	state := provider.PRStateOpen
	if pr.GetMerged() {
		state = provider.PRStateMerged
	} else if pr.GetState() == "closed" {
		state = provider.PRStateClosed
	}

	info := &provider.PRInfo{
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		State:        state,
		Draft:        pr.GetDraft(),
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
		HeadSHA:      pr.GetHead().GetSHA(),
		NodeID:       pr.GetNodeID(),
		Author:       pr.GetUser().GetLogin(),
		URL:          pr.GetHTMLURL(),
		Owner:        owner,
		Repo:         repo,
	}
	// Open PRs carry a test-merge SHA that is not part of any branch.
	if state == provider.PRStateMerged {
		info.MergeCommitSHA = pr.GetMergeCommitSHA()
	}
	return info
}

// resolveOwnerRepo returns the owner and repo for API calls, preferring
// values from the PRInfo if available.
func (b *Backend) resolveOwnerRepo(pr *provider.PRInfo) (string, string) {
	owner := b.owner
	repo := b.repo
	if pr.Owner != "" {
		owner = pr.Owner
	}
	if pr.Repo != "" {
		repo = pr.Repo
	}
	return owner, repo
}

func isNotFound(err error) bool {
	var ghErr *gh.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

// getGraphQLClient returns (and lazily creates) the GitHub GraphQL client.
// Thread-safe via sync.Once.
func (b *Backend) getGraphQLClient(ctx context.Context) *githubv4.Client {
	b.gqlOnce.Do(func() {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: b.token})
		httpClient := oauth2.NewClient(context.WithoutCancel(ctx), ts)
		if b.gqlURL != "" {
			b.gqlClient = githubv4.NewEnterpriseClient(b.gqlURL, httpClient)
		} else {
			b.gqlClient = githubv4.NewClient(httpClient)
		}
	})
	return b.gqlClient
}

// Verify Backend implements PRBackend at compile time.
var _ provider.PRBackend = (*Backend)(nil)
