package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alanmeadows/land/internal/repo"
)

var worktreeCmd = &cobra.Command{
	Use:   "worktree",
	Short: "Inspect git worktrees",
	Long: `Inspect the git worktrees of the current repository.

land removes the worktree a pull request was built in once the pull
request is merged. These commands show what is left behind.`,
	Example: `  land worktree list`,
}

func init() {
	worktreeCmd.AddCommand(worktreeListCmd)
}

var worktreeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List worktrees",
	Long: `List every worktree of the current repository.

Shows the path, branch, head commit and how many uncommitted paths
each worktree holds. A dirty worktree blocks land from merging its
pull request.`,
	Example: `  land worktree list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		rows, err := worktreeRows(cmd.Context(), repo.NewClient(), cwd)
		if err != nil {
			return err
		}
		renderWorktrees(cmd.OutOrStdout(), rows)
		return nil
	},
}

type worktreeRow struct {
	wt      repo.Worktree
	dirty   int
	current bool
}

// worktreeRows lists worktrees and counts uncommitted paths in each, concurrently.
func worktreeRows(ctx context.Context, git *repo.Client, dir string) ([]worktreeRow, error) {
	top, err := git.TopLevel(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("not inside a git repository: %w", err)
	}
	wts, err := git.Worktrees(ctx, top)
	if err != nil {
		return nil, fmt.Errorf("listing worktrees: %w", err)
	}

	rows := make([]worktreeRow, len(wts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, wt := range wts {
		rows[i].wt = wt
		rows[i].current = filepath.Clean(wt.Path) == filepath.Clean(top)
		if wt.Bare || wt.Prunable {
			rows[i].dirty = -1
			continue
		}
		g.Go(func() error {
			paths, err := git.DirtyCheck(gctx, wt.Path)
			if err != nil {
				return fmt.Errorf("checking %s: %w", wt.Path, err)
			}
			rows[i].dirty = len(paths)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func renderWorktrees(w io.Writer, rows []worktreeRow) {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		branch := r.wt.Branch
		if r.wt.Detached {
			branch = "(detached)"
		}

		var flags []string
		if r.current {
			flags = append(flags, "current")
		}
		if r.wt.Primary {
			flags = append(flags, "primary")
		}
		if r.wt.Locked {
			flags = append(flags, "locked")
		}
		if r.wt.Prunable {
			flags = append(flags, "prunable")
		}

		dirty := "clean"
		switch {
		case r.dirty < 0:
			dirty = "-"
		case r.dirty > 0:
			dirty = strconv.Itoa(r.dirty) + " uncommitted"
		}

		out = append(out, []string{r.wt.Path, branch, shortSHA(r.wt.Head), dirty, strings.Join(flags, ",")})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PATH", "BRANCH", "HEAD", "STATUS", "FLAGS").
		Rows(out...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t)
}
