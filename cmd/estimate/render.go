package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/habitpet/caloriecam/internal/capture"
	"github.com/habitpet/caloriecam/internal/estimation"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func renderOutcome(w io.Writer, outcome *capture.Outcome) {
	status := green("✓")
	if outcome.State == capture.StateAwaitingVoI {
		status = yellow("?")
	}
	fmt.Fprintf(w, "%s %s  %s\n", status, bold(string(outcome.State)), outcome.StatusMessage)

	total := outcome.Result.Total
	fmt.Fprintf(w, "  total: %s kcal ± %.0f\n", bold(fmt.Sprintf("%.0f", total.Mu)), total.Sigma)

	for _, item := range outcome.Result.Items {
		fmt.Fprintf(w, "  %s %s  %.0f mL  %.0f ± %.0f kcal\n",
			cyan("▶"), item.Label, item.VolumeML, item.Calories, item.Sigma)
		if len(item.Evidence) > 0 {
			fmt.Fprintf(w, "    evidence: %s\n", strings.Join(item.Evidence, ", "))
		}
	}

	if outcome.GeometryFallback {
		fmt.Fprintf(w, "  %s geometry fell back to the default estimate\n", yellow("!"))
	}
	if outcome.AnalyzerError != "" {
		fmt.Fprintf(w, "  %s analyzer: %s\n", red("✗"), outcome.AnalyzerError)
	}
	if outcome.Question != "" {
		fmt.Fprintf(w, "  %s %s (session %s)\n", yellow("?"), outcome.Question, outcome.SessionID)
	}
}

func renderPaths(w io.Writer, cfg estimation.CalorieConfig) {
	fmt.Fprintf(w, "%s %s\n", cyan("profile"), bold(cfg.Name))
	paths := estimation.ActivePaths(cfg)
	if len(paths) == 0 {
		fmt.Fprintf(w, "  %s geometry only\n", yellow("!"))
		return
	}
	for _, p := range paths {
		fmt.Fprintf(w, "  %s %s\n", green("✓"), p)
	}
}

func renderPriors(w io.Writer, label string, priors estimation.FoodPriors, err error) {
	if err != nil {
		fmt.Fprintf(w, "%s %s: %v\n", red("✗"), label, err)
		return
	}
	fmt.Fprintf(w, "%s %s  density %.2f ± %.2f g/mL  energy %.2f ± %.2f kcal/g\n",
		green("✓"), label,
		priors.Density.Mu, priors.Density.Sigma,
		priors.KcalPerG.Mu, priors.KcalPerG.Sigma,
	)
}
