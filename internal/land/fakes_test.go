package land

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/alanmeadows/land/internal/provider"
	"github.com/alanmeadows/land/internal/repo"
)

// fakeBackend is an in-memory review platform.
type fakeBackend struct {
	mu sync.Mutex

	prs      map[int]*provider.PRInfo
	byBranch map[string][]int
	byIssue  map[int][]int

	review   provider.ReviewDecision
	mergeab  provider.Mergeability
	checks   []provider.CheckInfo
	comments []provider.Comment

	findErr  error
	mergeErr error
	// onMerge replaces the default merge behavior when set.
	onMerge func(pr *provider.PRInfo, opts provider.MergeOptions) (*provider.MergeResult, error)
	// skipMergeState leaves the PR open after a successful merge call.
	skipMergeState bool

	calls      []string
	mergeCalls []provider.MergeOptions
	autoCalls  []*provider.PRInfo
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		prs:      map[int]*provider.PRInfo{},
		byBranch: map[string][]int{},
		byIssue:  map[int][]int{},
		review:   provider.ReviewApproved,
		mergeab:  provider.Mergeability{Conflict: provider.ConflictMergeable, Gate: provider.GateClear},
		checks: []provider.CheckInfo{
			{Name: "build", Result: provider.CISuccess},
			{Name: "test", Result: provider.CISuccess},
		},
	}
}

func (f *fakeBackend) addPR(pr *provider.PRInfo) *provider.PRInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prs[pr.Number] = pr
	f.byBranch[pr.SourceBranch] = append(f.byBranch[pr.SourceBranch], pr.Number)
	return pr
}

func (f *fakeBackend) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeBackend) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeBackend) setChecks(checks ...provider.CheckInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = checks
}

func (f *fakeBackend) setComments(comments ...provider.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = comments
}

func (f *fakeBackend) Name() string              { return "fake" }
func (f *fakeBackend) MatchesURL(url string) bool { return true }

func (f *fakeBackend) GetPR(_ context.Context, id string) (*provider.PRInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetPR %s", id)

	n, err := strconv.Atoi(id[strings.LastIndex(id, "#")+1:])
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", id)
	}
	pr, ok := f.prs[n]
	if !ok {
		return nil, provider.ErrNotFound
	}
	cp := *pr
	return &cp, nil
}

func (f *fakeBackend) FindPRsByBranch(_ context.Context, branch string) ([]*provider.PRInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("FindPRsByBranch %s", branch)
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []*provider.PRInfo
	for _, n := range f.byBranch[branch] {
		cp := *f.prs[n]
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeBackend) FindPRsByIssue(_ context.Context, issue int) ([]*provider.PRInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("FindPRsByIssue %d", issue)
	var out []*provider.PRInfo
	for _, n := range f.byIssue[issue] {
		cp := *f.prs[n]
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeBackend) GetReviewDecision(_ context.Context, pr *provider.PRInfo) (provider.ReviewDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetReviewDecision %d", pr.Number)
	return f.review, nil
}

func (f *fakeBackend) GetMergeability(_ context.Context, pr *provider.PRInfo) (*provider.Mergeability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetMergeability %d", pr.Number)
	m := f.mergeab
	return &m, nil
}

func (f *fakeBackend) GetPipelineStatus(_ context.Context, pr *provider.PRInfo) (*provider.PipelineStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetPipelineStatus %d", pr.Number)
	s := &provider.PipelineStatus{Checks: append([]provider.CheckInfo(nil), f.checks...)}
	s.Rollup()
	return s, nil
}

func (f *fakeBackend) GetComments(_ context.Context, pr *provider.PRInfo) ([]provider.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetComments %d", pr.Number)
	return append([]provider.Comment(nil), f.comments...), nil
}

func (f *fakeBackend) Merge(_ context.Context, pr *provider.PRInfo, opts provider.MergeOptions) (*provider.MergeResult, error) {
	f.mu.Lock()
	f.record("Merge %d", pr.Number)
	f.mergeCalls = append(f.mergeCalls, opts)
	hook := f.onMerge
	f.mu.Unlock()

	if f.mergeErr != nil {
		return nil, f.mergeErr
	}

	var res *provider.MergeResult
	if hook != nil {
		var err error
		res, err = hook(pr, opts)
		if err != nil {
			return nil, err
		}
	} else {
		res = &provider.MergeResult{Merged: true, SHA: fmt.Sprintf("merge-%d", pr.Number), BranchDeleted: opts.DeleteBranch}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.skipMergeState {
		stored := f.prs[pr.Number]
		stored.State = provider.PRStateMerged
		stored.MergeCommitSHA = res.SHA
	}
	return res, nil
}

func (f *fakeBackend) EnableAutoMerge(_ context.Context, pr *provider.PRInfo, method provider.MergeMethod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("EnableAutoMerge %d %s", pr.Number, method)
	cp := *pr
	f.autoCalls = append(f.autoCalls, &cp)
	return nil
}

// fakeGit is a scripted version-control client.
type fakeGit struct {
	mu sync.Mutex

	top       string
	worktrees []repo.Worktree
	branch    string
	status    []repo.StatusEntry
	contains  bool
	// errs maps a method name to the error it returns.
	errs map[string]error

	calls []string
}

// newIsolatedGit simulates land running in a secondary worktree on branch.
func newIsolatedGit(branch string) *fakeGit {
	wt := "/src/widgets-wt/" + branch
	return &fakeGit{
		top: wt,
		worktrees: []repo.Worktree{
			{Path: "/src/widgets", Branch: "main", Primary: true},
			{Path: wt, Branch: branch},
		},
		branch:   branch,
		contains: true,
		errs:     map[string]error{},
	}
}

// newPrimaryGit simulates land running in the primary checkout on branch.
func newPrimaryGit(branch string) *fakeGit {
	return &fakeGit{
		top:       "/src/widgets",
		worktrees: []repo.Worktree{{Path: "/src/widgets", Branch: branch, Primary: true}},
		branch:    branch,
		contains:  true,
		errs:      map[string]error{},
	}
}

func (g *fakeGit) record(format string, args ...any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	call := fmt.Sprintf(format, args...)
	g.calls = append(g.calls, call)
	return g.errs[strings.Fields(call)[0]]
}

// mutations lists calls that change the repository.
func (g *fakeGit) mutations() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, c := range g.calls {
		switch strings.Fields(c)[0] {
		case "Checkout", "Fetch", "Pull", "RemoveWorktree", "PruneWorktrees", "DeleteBranch", "Stash":
			out = append(out, c)
		}
	}
	return out
}

func (g *fakeGit) setDirty(paths ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = nil
	for _, p := range paths {
		g.status = append(g.status, repo.StatusEntry{Code: " M", Path: p})
	}
}

func (g *fakeGit) CurrentBranch(_ context.Context, dir string) (string, error) {
	if err := g.record("CurrentBranch %s", dir); err != nil {
		return "", err
	}
	if g.branch == "" {
		return "", repo.ErrDetachedHead
	}
	return g.branch, nil
}

func (g *fakeGit) TopLevel(_ context.Context, dir string) (string, error) {
	if err := g.record("TopLevel %s", dir); err != nil {
		return "", err
	}
	return g.top, nil
}

func (g *fakeGit) PrimaryWorktree(_ context.Context, dir string) (repo.Worktree, error) {
	if err := g.record("PrimaryWorktree %s", dir); err != nil {
		return repo.Worktree{}, err
	}
	if len(g.worktrees) == 0 {
		return repo.Worktree{}, fmt.Errorf("no worktrees reported for %s", dir)
	}
	return g.worktrees[0], nil
}

func (g *fakeGit) Status(_ context.Context, dir string) ([]repo.StatusEntry, error) {
	if err := g.record("Status %s", dir); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]repo.StatusEntry(nil), g.status...), nil
}

func (g *fakeGit) Checkout(_ context.Context, dir, branch string) error {
	return g.record("Checkout %s %s", dir, branch)
}

func (g *fakeGit) Fetch(_ context.Context, dir, remote string) error {
	return g.record("Fetch %s %s", dir, remote)
}

func (g *fakeGit) Pull(_ context.Context, dir, remote, branch string) error {
	return g.record("Pull %s %s %s", dir, remote, branch)
}

func (g *fakeGit) ContainsCommit(_ context.Context, dir, sha, ref string) (bool, error) {
	if err := g.record("ContainsCommit %s %s %s", dir, sha, ref); err != nil {
		return false, err
	}
	return g.contains, nil
}

func (g *fakeGit) RemoveWorktree(_ context.Context, dir, path string) error {
	return g.record("RemoveWorktree %s %s", dir, path)
}

func (g *fakeGit) PruneWorktrees(_ context.Context, dir string) error {
	return g.record("PruneWorktrees %s", dir)
}

func (g *fakeGit) DeleteBranch(_ context.Context, dir, branch string) error {
	return g.record("DeleteBranch %s %s", dir, branch)
}

func (g *fakeGit) Stash(_ context.Context, dir, message string) error {
	if err := g.record("Stash %s", dir); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = nil
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func samplePR(n int, branch string) *provider.PRInfo {
	return &provider.PRInfo{
		Number:       n,
		Title:        fmt.Sprintf("Change %d", n),
		State:        provider.PRStateOpen,
		SourceBranch: branch,
		TargetBranch: "main",
		HeadSHA:      fmt.Sprintf("head-%d", n),
		Owner:        "acme",
		Repo:         "widgets",
	}
}
