package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrDetachedHead is returned by CurrentBranch when HEAD does not point at a branch.
var ErrDetachedHead = errors.New("HEAD is detached")

// CommandError describes a failed git invocation. Output holds the combined
// stdout/stderr exactly as git printed it.
type CommandError struct {
	Args   []string
	Dir    string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("git %s: %s: %v", strings.Join(e.Args, " "), out, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode returns git's exit status, or -1 if git did not run to completion.
func (e *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Client runs git subcommands. Every method takes the directory to run in so
// one client can drive the primary checkout and any of its worktrees.
type Client struct {
	binary string
}

// NewClient creates a git client using the git binary on PATH.
func NewClient() *Client {
	return &Client{binary: "git"}
}

// run executes git in dir and returns trimmed stdout.
func (c *Client) run(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := c.runRaw(ctx, dir, args...)
	return strings.TrimSpace(out), err
}

// runRaw executes git in dir and returns stdout untouched.
func (c *Client) runRaw(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("git", "dir", dir, "args", args)
	if err := cmd.Run(); err != nil {
		return "", &CommandError{
			Args:   args,
			Dir:    dir,
			Output: strings.TrimSpace(stdout.String() + "\n" + stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// CurrentBranch returns the branch checked out in dir.
func (c *Client) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := c.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if out == "HEAD" {
		return "", ErrDetachedHead
	}
	return out, nil
}

// TopLevel returns the root of the working tree containing dir.
func (c *Client) TopLevel(ctx context.Context, dir string) (string, error) {
	return c.run(ctx, dir, "rev-parse", "--show-toplevel")
}

// RemoteURL returns the fetch URL configured for remote.
func (c *Client) RemoteURL(ctx context.Context, dir, remote string) (string, error) {
	return c.run(ctx, dir, "remote", "get-url", remote)
}

// Checkout switches dir to branch.
func (c *Client) Checkout(ctx context.Context, dir, branch string) error {
	_, err := c.run(ctx, dir, "checkout", branch)
	return err
}

// Fetch updates remote-tracking refs and prunes those deleted on the remote.
func (c *Client) Fetch(ctx context.Context, dir, remote string) error {
	_, err := c.run(ctx, dir, "fetch", "--prune", remote)
	return err
}

// Pull fast-forwards the current branch in dir from remote/branch.
// It never creates merge commits.
func (c *Client) Pull(ctx context.Context, dir, remote, branch string) error {
	_, err := c.run(ctx, dir, "pull", "--ff-only", remote, branch)
	return err
}

// ContainsCommit reports whether sha is reachable from ref in dir.
// An unknown sha is reported as not contained rather than as an error.
func (c *Client) ContainsCommit(ctx context.Context, dir, sha, ref string) (bool, error) {
	if _, err := c.run(ctx, dir, "cat-file", "-e", sha+"^{commit}"); err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode() > 0 {
			return false, nil
		}
		return false, err
	}

	_, err := c.run(ctx, dir, "merge-base", "--is-ancestor", sha, ref)
	if err == nil {
		return true, nil
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode() == 1 {
		return false, nil
	}
	return false, err
}

// DeleteBranch deletes a local branch with `git branch -d`, which refuses
// to drop commits that are not merged into HEAD or its upstream.
func (c *Client) DeleteBranch(ctx context.Context, dir, branch string) error {
	_, err := c.run(ctx, dir, "branch", "-d", branch)
	return err
}

// Stash saves tracked and untracked changes in dir under message.
func (c *Client) Stash(ctx context.Context, dir, message string) error {
	_, err := c.run(ctx, dir, "stash", "push", "--include-untracked", "-m", message)
	return err
}
