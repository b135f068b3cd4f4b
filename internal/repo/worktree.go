package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Worktree is one entry of `git worktree list --porcelain`.
type Worktree struct {
	Path   string
	Head   string
	Branch string
	// Primary is true for the main working tree, which git always lists first.
	Primary  bool
	Bare     bool
	Detached bool
	Locked   bool
	Prunable bool
}

// Worktrees lists every working tree attached to the repository containing dir.
func (c *Client) Worktrees(ctx context.Context, dir string) ([]Worktree, error) {
	out, err := c.run(ctx, dir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreeList(out), nil
}

// PrimaryWorktree returns the main working tree of the repository containing dir.
func (c *Client) PrimaryWorktree(ctx context.Context, dir string) (Worktree, error) {
	wts, err := c.Worktrees(ctx, dir)
	if err != nil {
		return Worktree{}, err
	}
	if len(wts) == 0 {
		return Worktree{}, fmt.Errorf("no worktrees reported for %s", dir)
	}
	return wts[0], nil
}

// RemoveWorktree removes the worktree at path. It never passes --force,
// so git refuses when the worktree holds modified or untracked files.
func (c *Client) RemoveWorktree(ctx context.Context, dir, path string) error {
	_, err := c.run(ctx, dir, "worktree", "remove", path)
	return err
}

// PruneWorktrees drops administrative records for worktrees whose
// directories no longer exist.
func (c *Client) PruneWorktrees(ctx context.Context, dir string) error {
	_, err := c.run(ctx, dir, "worktree", "prune")
	return err
}

// IsDirtyWorktreeError reports whether err is git refusing to remove a
// worktree because it has local changes.
func IsDirtyWorktreeError(err error) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	return strings.Contains(cmdErr.Output, "contains modified or untracked files")
}

// parseWorktreeList parses the porcelain output of git worktree list.
func parseWorktreeList(output string) []Worktree {
	var wts []Worktree
	var current Worktree

	flush := func() {
		if current.Path != "" {
			current.Primary = len(wts) == 0
			wts = append(wts, current)
		}
		current = Worktree{}
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "bare":
			current.Bare = true
		case line == "detached":
			current.Detached = true
		case line == "locked" || strings.HasPrefix(line, "locked "):
			current.Locked = true
		case line == "prunable" || strings.HasPrefix(line, "prunable "):
			current.Prunable = true
		}
	}
	flush()

	return wts
}
