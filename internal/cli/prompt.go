package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/alanmeadows/land/internal/land"
)

// askDecision asks the user how to continue a paused pipeline.
func askDecision(res *land.Result) (land.Decision, error) {
	switch res.Awaiting {
	case land.AwaitingConfirmation:
		return askConfirmation(res)
	case land.AwaitingFeedback:
		return askFeedback(res)
	}
	return land.DecisionAbort, fmt.Errorf("nothing to ask for state %s", res.State)
}

func askConfirmation(res *land.Result) (land.Decision, error) {
	ok := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Land #%d %q into %s?", res.Ref.Number, res.Ref.Title, res.Ref.TargetBranch)).
				Affirmative("Land it").
				Negative("Abort").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return land.DecisionAbort, fmt.Errorf("confirmation cancelled: %w", err)
	}
	if !ok {
		return land.DecisionAbort, nil
	}
	return land.DecisionProceed, nil
}

func askFeedback(res *land.Result) (land.Decision, error) {
	decision := land.DecisionHalt
	critical := land.CountCritical(res.Feedback)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[land.Decision]().
				Title(fmt.Sprintf("%d automated review comment(s), %d critical", len(res.Feedback), critical)).
				Description("Stop to address them, recheck once fixes are pushed, or merge as is.").
				Options(
					huh.NewOption("Address now (stop here)", land.DecisionHalt),
					huh.NewOption("Recheck the pull request", land.DecisionRecheck),
					huh.NewOption("Proceed and merge anyway", land.DecisionProceed),
					huh.NewOption("Abort", land.DecisionAbort),
				).
				Value(&decision),
		),
	)
	if err := form.Run(); err != nil {
		return land.DecisionAbort, fmt.Errorf("selection cancelled: %w", err)
	}
	return decision, nil
}
