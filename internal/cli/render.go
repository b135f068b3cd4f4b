package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"gopkg.in/yaml.v3"

	"github.com/alanmeadows/land/internal/land"
)

type outputFormat string

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(s)); f {
	case outputText, outputJSON, outputYAML:
		return f, nil
	case "":
		return outputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

var (
	labelStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func render(w io.Writer, format outputFormat, res *land.Result) error {
	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		return enc.Close()
	default:
		renderText(w, res)
	}
	return nil
}

func renderText(w io.Writer, res *land.Result) {
	if res.Ref != nil {
		fmt.Fprintf(w, "%s #%d %s (%s → %s)\n", labelStyle.Render("PR:"), res.Ref.Number, res.Ref.Title, res.Ref.SourceBranch, res.Ref.TargetBranch)
	}
	if res.Workspace != nil {
		kind := "primary checkout"
		if res.Workspace.Isolated {
			kind = "worktree"
		}
		fmt.Fprintf(w, "%s %s (%s)\n", labelStyle.Render("Workspace:"), res.Workspace.Dir, kind)
	}
	if res.Report != nil {
		renderReport(w, res.Report)
	}
	if len(res.Feedback) > 0 && res.Awaiting == land.AwaitingNothing {
		renderFeedback(w, res.Feedback)
	}
	if res.Outcome != nil {
		renderOutcome(w, res.Outcome)
	}
	if res.Teardown != nil {
		renderTeardown(w, res.Teardown)
	}
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "%s %s\n", warnStyle.Render("warning:"), warning)
	}

	switch {
	case res.Err != nil:
		renderError(w, res)
	case res.State == land.StateDryRunReported:
		fmt.Fprintln(w, okStyle.Render("Dry run: ready to land. Nothing was changed."))
	case res.State == land.StateDone && res.Outcome != nil && res.Outcome.AutoMerge:
		fmt.Fprintln(w, okStyle.Render("Auto-merge enabled."))
	case res.State == land.StateDone:
		fmt.Fprintln(w, okStyle.Render("Landed."))
	case res.Awaiting == land.AwaitingConfirmation:
		fmt.Fprintln(w, failStyle.Render("Confirmation required: re-run with --yes."))
	case res.Awaiting == land.AwaitingFeedback:
		renderFeedback(w, res.Feedback)
		fmt.Fprintln(w, failStyle.Render("Automated review feedback is pending: address it or re-run interactively to proceed."))
	}
}

// renderPause shows what a prompt is about to ask about.
func renderPause(w io.Writer, res *land.Result) {
	switch res.Awaiting {
	case land.AwaitingConfirmation:
		fmt.Fprintf(w, "%s #%d %s\n", labelStyle.Render("PR:"), res.Ref.Number, res.Ref.URL)
	case land.AwaitingFeedback:
		renderFeedback(w, res.Feedback)
	}
}

func renderReport(w io.Writer, r *land.ReadinessReport) {
	if r.AlreadyMerged {
		fmt.Fprintf(w, "%s already merged as %s\n", labelStyle.Render("Readiness:"), shortSHA(r.MergeCommitSHA))
		return
	}
	failed := map[land.Dimension]land.Failure{}
	for _, f := range r.Failures {
		failed[f.Dimension] = f
	}
	line := func(d land.Dimension, value string) {
		mark := okStyle.Render("✓")
		detail := value
		if f, ok := failed[d]; ok {
			mark = failStyle.Render("✗")
			if f.Forced {
				mark = warnStyle.Render("!")
			}
			detail = f.Reason
		}
		fmt.Fprintf(w, "  %s %-10s %s\n", mark, d, detail)
	}

	fmt.Fprintln(w, labelStyle.Render("Readiness:"))
	if f, ok := failed[land.DimensionState]; ok {
		fmt.Fprintf(w, "  %s %-10s %s\n", failStyle.Render("✗"), f.Dimension, f.Reason)
		return
	}
	if f, ok := failed[land.DimensionBranch]; ok {
		fmt.Fprintf(w, "  %s %-10s %s\n", failStyle.Render("✗"), f.Dimension, f.Reason)
	}
	line(land.DimensionReview, string(r.Review))
	line(land.DimensionConflicts, string(r.Conflict))
	line(land.DimensionCI, string(r.CI))
	line(land.DimensionGate, string(r.Gate))
}

func renderFeedback(w io.Writer, items []land.FeedbackItem) {
	rows := make([][]string, 0, len(items))
	for i, it := range items {
		loc := it.FilePath
		if it.Line > 0 {
			loc += ":" + strconv.Itoa(it.Line)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(it.Severity),
			it.Author,
			loc,
			truncate(firstLine(it.Body), 72),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "SEVERITY", "REVIEWER", "LOCATION", "COMMENT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t)
}

func renderOutcome(w io.Writer, o *land.MergeOutcome) {
	switch {
	case o.AutoMerge:
		fmt.Fprintf(w, "%s auto-merge (%s) registered\n", labelStyle.Render("Merge:"), o.Strategy)
	case o.AlreadyMerged:
		fmt.Fprintf(w, "%s already merged as %s\n", labelStyle.Render("Merge:"), shortSHA(o.SHA))
	default:
		verified := ""
		if o.Verified {
			verified = ", verified"
		}
		fmt.Fprintf(w, "%s %s as %s%s\n", labelStyle.Render("Merge:"), o.Strategy, shortSHA(o.SHA), verified)
	}
}

func renderTeardown(w io.Writer, td *land.TeardownOutcome) {
	fmt.Fprintln(w, labelStyle.Render("Cleanup:"))
	for _, s := range td.Steps {
		var mark string
		switch s.Status {
		case land.StepOK:
			mark = okStyle.Render("✓")
		case land.StepFailed:
			mark = failStyle.Render("✗")
		case land.StepWarning:
			mark = warnStyle.Render("!")
		default:
			mark = "-"
		}
		fmt.Fprintf(w, "  %s %-13s %s\n", mark, s.Step, s.Detail)
	}
}

func renderError(w io.Writer, res *land.Result) {
	at := ""
	if res.FailedAt != "" {
		at = " at " + strings.ToLower(string(res.FailedAt))
	}
	fmt.Fprintf(w, "%s%s: %v\n", failStyle.Render("Failed"), at, res.Err)

	var recovery []string
	var preErr *land.PreconditionError
	var cleanupErr *land.CleanupError
	if errors.As(res.Err, &preErr) {
		renderChanges(w, preErr.Changes)
		recovery = preErr.Recovery
	}
	if errors.As(res.Err, &cleanupErr) {
		recovery = cleanupErr.Recovery
	}
	if len(recovery) > 0 {
		fmt.Fprintln(w, labelStyle.Render("To recover:"))
		for _, r := range recovery {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
}

func renderChanges(w io.Writer, c *land.DirtySummary) {
	if c == nil {
		return
	}
	group := func(name string, paths []string) {
		if len(paths) == 0 {
			return
		}
		fmt.Fprintf(w, "%s\n", labelStyle.Render(name+":"))
		for _, p := range paths {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	group("Staged", c.Staged)
	group("Modified", c.Modified)
	group("Untracked", c.Untracked)
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// truncate shortens s to n terminal cells without splitting a rune.
func truncate(s string, n int) string {
	return ansi.Truncate(s, n, "...")
}
