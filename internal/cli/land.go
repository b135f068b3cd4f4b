package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/land/internal/config"
	"github.com/alanmeadows/land/internal/land"
	"github.com/alanmeadows/land/internal/logging"
	"github.com/alanmeadows/land/internal/provider"
	ghbackend "github.com/alanmeadows/land/internal/provider/github"
	"github.com/alanmeadows/land/internal/repo"
)

var landFlags struct {
	dryRun         bool
	force          bool
	strategy       string
	auto           bool
	yes            bool
	stash          bool
	keepWorktree   bool
	noDeleteBranch bool
	noFeedback     bool
	remote         string
	output         string
}

func addLandFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVarP(&landFlags.dryRun, "dry-run", "n", false, "Report what would happen without merging or touching the workspace")
	f.BoolVarP(&landFlags.force, "force", "f", false, "Downgrade review, CI and branch-protection failures to warnings")
	f.StringVarP(&landFlags.strategy, "strategy", "s", "", "Merge strategy: merge, squash or rebase (default from config)")
	f.BoolVar(&landFlags.auto, "auto", false, "Enable platform auto-merge instead of merging now")
	f.BoolVarP(&landFlags.yes, "yes", "y", false, "Do not ask for confirmation")
	f.BoolVar(&landFlags.stash, "stash", false, "Stash uncommitted changes instead of refusing to merge")
	f.BoolVar(&landFlags.keepWorktree, "keep-worktree", false, "Merge but keep the worktree, local branch and remote branch")
	f.BoolVar(&landFlags.noDeleteBranch, "no-delete-branch", false, "Keep the remote head branch after merging")
	f.BoolVar(&landFlags.noFeedback, "no-feedback", false, "Skip automated reviewer feedback analysis")
	f.StringVar(&landFlags.remote, "remote", "", "Git remote hosting the pull request (default from config)")
	f.StringVarP(&landFlags.output, "output", "o", "text", "Output format: text, json or yaml")
}

func runLand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := appConfig
	if cfg == nil {
		def := config.DefaultConfig()
		cfg = &def
	}

	format, err := parseOutputFormat(landFlags.output)
	if err != nil {
		return err
	}
	strategy, err := provider.ParseMergeMethod(firstNonEmpty(landFlags.strategy, cfg.Merge.Strategy))
	if err != nil {
		return err
	}
	remote := firstNonEmpty(landFlags.remote, cfg.Merge.Remote, "origin")

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	git := repo.NewClient()
	backend, err := detectBackend(ctx, git, cwd, remote, cfg.GitHub)
	if err != nil {
		return err
	}

	interactive := format == outputText && logging.IsInteractive()
	opts := land.Options{
		Dir:          cwd,
		DryRun:       landFlags.dryRun,
		Force:        landFlags.force,
		Strategy:     strategy,
		Auto:         landFlags.auto,
		AssumeYes:    landFlags.yes,
		Stash:        landFlags.stash,
		KeepWorktree: landFlags.keepWorktree,
		DeleteBranch: cfg.Merge.IsDeleteBranchEnabled() && !landFlags.noDeleteBranch,
		Remote:       remote,
		Feedback: land.FeedbackRules{
			Enabled:          cfg.Feedback.IsEnabled() && !landFlags.noFeedback,
			Reviewers:        cfg.Feedback.Reviewers,
			BlockingKeywords: cfg.Feedback.BlockingKeywords,
		},
		Logger: slog.Default(),
	}

	var explicit string
	if len(args) > 0 {
		explicit = args[0]
	}

	p := land.New(backend, git, opts)
	res := p.Run(ctx, explicit)
	for interactive && res.Awaiting != land.AwaitingNothing {
		renderPause(cmd.OutOrStdout(), res)
		d, err := askDecision(res)
		if err != nil {
			slog.Debug("prompt closed", "error", err)
			d = land.DecisionAbort
		}
		res = p.Resume(ctx, d)
	}

	if err := render(cmd.OutOrStdout(), format, res); err != nil {
		return err
	}
	if err := pendingError(res); err != nil {
		return &reportedError{err: err}
	}
	return nil
}

// pendingError turns an unanswered pause into the error it exits with.
func pendingError(res *land.Result) error {
	if res.Err != nil {
		return res.Err
	}
	switch res.Awaiting {
	case land.AwaitingConfirmation:
		return land.ErrConfirmationRequired
	case land.AwaitingFeedback:
		return &land.FeedbackPendingError{Items: len(res.Feedback), Critical: land.CountCritical(res.Feedback)}
	}
	return nil
}

// detectBackend picks the review platform hosting remote.
func detectBackend(ctx context.Context, git *repo.Client, dir, remote string, gh config.GitHubConfig) (provider.PRBackend, error) {
	url, err := git.RemoteURL(ctx, dir, remote)
	if err != nil {
		return nil, &land.ExternalError{Op: "read remote " + remote, Err: err}
	}
	r, err := repo.ParseRemote(url)
	if err != nil {
		return nil, err
	}

	reg := provider.NewRegistry()
	reg.Register(ghbackend.NewBackend(r.Owner, r.Name, githubToken(gh.Token, "github.com")))

	apiURL := gh.APIURL
	if apiURL == "" && r.Host != "github.com" {
		apiURL = "https://" + r.Host + "/api/v3/"
	}
	if apiURL != "" {
		ent, err := ghbackend.NewEnterpriseBackend(apiURL, r.Owner, r.Name, githubToken(gh.Token, r.Host))
		if err != nil {
			return nil, err
		}
		reg.Register(ent)
	}

	b, err := reg.Detect(url)
	if err != nil {
		return nil, fmt.Errorf("remote %s: %w", remote, err)
	}
	slog.Debug("detected review platform", "backend", b.Name(), "repo", r.Slug())
	return b, nil
}

// githubToken prefers the configured token and falls back to the gh CLI.
func githubToken(configured, host string) string {
	if configured != "" {
		return configured
	}
	out, err := exec.Command("gh", "auth", "token", "--hostname", host).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
