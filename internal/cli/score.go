package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fived/therapists/internal/analysis"
	"github.com/fived/therapists/internal/questionnaire"
	"github.com/fived/therapists/internal/report"
	"github.com/fived/therapists/internal/scoring"
)

func NewScoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <answers-file>",
		Short: "Score a set of answers without storing it",
		Long: `Read a YAML or JSON map of question id to answer value and print the
category scores and recommendations.

Example answers file:
  physical_1: 5
  physical_2: 4
  emotional_1: 2`,
		Args: cobra.ExactArgs(1),
		RunE: runScore,
	}
	cmd.Flags().Bool("strict", false, "fail unless every question is answered with a valid value")
	cmd.Flags().String("catalog", "", "questionnaire YAML file (defaults to the built-in catalog)")
	cmd.Flags().Bool("raw", false, "plain text output (no colors)")
	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict")
	catalogPath, _ := cmd.Flags().GetString("catalog")
	raw, _ := cmd.Flags().GetBool("raw")
	out := cmd.OutOrStdout()

	if raw || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}

	catalog, err := questionnaire.Load(catalogPath)
	if err != nil {
		return fmt.Errorf("load questionnaire: %w", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read answers: %w", err)
	}
	var answers analysis.AnswerSet
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return fmt.Errorf("parse answers: %w", err)
	}

	if strict {
		if err := analysis.Validate(answers, catalog); err != nil {
			var incomplete *analysis.IncompleteFormError
			if errors.As(err, &incomplete) {
				red := color.New(color.FgRed)
				for _, id := range incomplete.Missing {
					red.Fprintf(out, "missing: %s\n", id)
				}
				for _, id := range incomplete.Invalid {
					red.Fprintf(out, "invalid: %s\n", id)
				}
			}
			return err
		}
	}

	result := scoring.ComputeResults(answers, catalog)
	answered, total := analysis.Progress(answers, catalog)

	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	cyan.Fprintf(out, "Scores (%d/%d answered)\n", answered, total)
	for _, line := range report.ScoreLines(result.Categories) {
		c := green
		if line.Score < scoring.LowScoreThreshold {
			c = red
		}
		c.Fprintf(out, "  %s\n", line.Text)
	}

	cyan.Fprintln(out, "Recommendations")
	for _, r := range result.Recommendations {
		yellow.Fprintf(out, "  - %s\n", r)
	}
	return nil
}
