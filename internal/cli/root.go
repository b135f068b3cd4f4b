package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/land/internal/config"
	"github.com/alanmeadows/land/internal/land"
	"github.com/alanmeadows/land/internal/logging"
)

var (
	verbose   bool
	logFormat string
	appConfig *config.Config

	rootCmd = &cobra.Command{
		Use:   "land [pr]",
		Short: "Merge a pull request and clean up the worktree it was built in",
		Long: `land takes a pull request from "ready" to "merged and gone".

It resolves the pull request from an explicit number or URL, the current
branch, or an issue number in the branch name. It checks review, conflict,
CI and branch-protection state, surfaces automated reviewer feedback, and
merges only when the worktree holds no uncommitted work. After a verified
merge it switches the primary checkout to the target branch, fast-forwards
it, removes the worktree and deletes the local branch.

Exit codes: 0 success, 1 input or resolution error, 2 validation or
workspace precondition failure, 3 git or platform error, 4 merge or
cleanup failure.`,
		Example: `  land
  land 42
  land https://github.com/acme/widgets/pull/42 --strategy squash
  land --dry-run -o json
  land --stash --yes`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runLand,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: auto, text or json (default from config)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.RepoRoot())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		appConfig = cfg

		format := logging.Format(cfg.Log.Format)
		if logFormat != "" {
			format = logging.Format(logFormat)
		}
		logging.Setup(verbose, format)
		return nil
	}

	addLandFlags(rootCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(worktreeCmd)
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return land.ExitOK
	}
	var reported *reportedError
	if errors.As(err, &reported) {
		return land.ExitCode(reported.err)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return land.ExitCode(err)
}

// reportedError marks an error whose details were already rendered.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }
