// Package main runs the calorie camera pipeline offline on a capture file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	profile      string
	analyzerKind string
	analyzerURL  string
	geminiModel  string
	seedPath     string
	answer       string
	jsonOutput   bool
)

var rootCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Calorie camera pipeline, offline",
	Long: `Runs the calorie camera estimation on captures stored as JSON.

A capture file holds the same body the backend accepts on
POST /capture/estimate: frame (rgbBase64, mimeType, depth, intrinsics),
optional qualitySamples, localClassification and profile.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "calorie profile [default | development]")
	rootCmd.PersistentFlags().StringVar(&seedPath, "seed", "", "priors seed YAML (defaults to the compiled-in table)")

	runCmd.Flags().StringVar(&analyzerKind, "analyzer", "none", "analyzer backend [none | http | gemini]")
	runCmd.Flags().StringVar(&analyzerURL, "analyzer-url", "", "analyzer base URL, for the http backend")
	runCmd.Flags().StringVar(&geminiModel, "gemini-model", "", "gemini model, for the gemini backend")
	runCmd.Flags().StringVar(&answer, "answer", "", "answer to a VoI question [yes | no]")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the outcome as JSON")

	rootCmd.AddCommand(runCmd, pathsCmd, priorsCmd, hashTokenCmd)
}
