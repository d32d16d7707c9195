package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/habitpet/caloriecam/internal/analyzer"
	"github.com/habitpet/caloriecam/internal/capture"
	"github.com/habitpet/caloriecam/internal/estimation"
	"github.com/habitpet/caloriecam/internal/nutrition"
	"github.com/habitpet/caloriecam/pkg"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <capture.json>",
	Short: "Estimate calories for a capture file",
	Long: `Estimate calories for a capture file.

Examples:
  # Geometry only, compiled-in priors
  estimate run plate.json

  # With the hosted analyzer (CALORIECAM_ANALYZER_API_KEY)
  estimate run plate.json --analyzer http --analyzer-url https://.../functions/v1

  # Answer the follow-up question up front
  estimate run plate.json --answer no`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readCapture(args[0])
		if err != nil {
			return err
		}
		if profile != "" {
			req.Profile = profile
		}

		ctx := cmd.Context()
		foodAnalyzer, err := buildAnalyzer(ctx)
		if err != nil {
			return err
		}
		seed, err := loadSeed()
		if err != nil {
			return err
		}

		params := capture.CoordinatorParams{Priors: seed}
		if foodAnalyzer != nil {
			params.Analyzer = foodAnalyzer
		}
		coordinator := capture.NewCoordinator(params)

		outcome, err := coordinator.Estimate(ctx, req)
		if err != nil {
			return err
		}

		if outcome.State == capture.StateAwaitingVoI && answer != "" {
			yes, err := parseAnswer(answer)
			if err != nil {
				return err
			}
			if outcome, err = coordinator.RespondToVoI(ctx, outcome.SessionID, yes); err != nil {
				return err
			}
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(outcome)
		}
		renderOutcome(cmd.OutOrStdout(), outcome)
		return nil
	},
}

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show the pipeline paths a profile enables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := estimation.ConfigFor(profile)
		if err != nil {
			return err
		}
		renderPaths(cmd.OutOrStdout(), cfg)
		return nil
	},
}

var priorsCmd = &cobra.Command{
	Use:   "priors <label>...",
	Short: "Look up density and energy priors for food labels",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := loadSeed()
		if err != nil {
			return err
		}
		for _, label := range args {
			priors, err := seed.GetPriors(cmd.Context(), label)
			renderPriors(cmd.OutOrStdout(), label, priors, err)
		}
		return nil
	},
}

// hashTokenCmd prints the value for CALORIECAM_APP_SECRET_HASH.
var hashTokenCmd = &cobra.Command{
	Use:   "hash-token <token>",
	Short: "Hash an app token for the backend auth middleware",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := pkg.HashPassword(args[0])
		if err != nil {
			return fmt.Errorf("hash token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func readCapture(path string) (capture.EstimateRequest, error) {
	var req capture.EstimateRequest
	raw, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read capture: %w", err)
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("parse capture %s: %w", path, err)
	}
	return req, nil
}

func loadSeed() (*nutrition.SeedDB, error) {
	if seedPath == "" {
		return nutrition.NewDefaultSeedDB()
	}
	return nutrition.NewSeedDBFromFile(seedPath)
}

func buildAnalyzer(ctx context.Context) (analyzer.Analyzer, error) {
	switch analyzerKind {
	case "", "none":
		return nil, nil
	case "http":
		if analyzerURL == "" {
			return nil, fmt.Errorf("--analyzer-url is required for the http analyzer")
		}
		return analyzer.NewHTTPClient(analyzer.HTTPClientParams{
			BaseURL: analyzerURL,
			APIKey:  os.Getenv("CALORIECAM_ANALYZER_API_KEY"),
		}), nil
	case "gemini":
		return analyzer.NewGeminiClient(ctx, os.Getenv("GEMINI_API_KEY"), geminiModel)
	default:
		return nil, fmt.Errorf("unknown analyzer: %s", analyzerKind)
	}
}

func parseAnswer(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true":
		return true, nil
	case "n", "no", "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid answer %q, use yes or no", s)
	}
}
