package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/parley/internal/persona"
	"github.com/zulandar/parley/internal/sentiment"
)

func newClassifyCmd() *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Show the persona directive a message would start",
		Long:  "Scores the message's sentiment, ranks the preset rules against it and prints the directive a new session would begin with.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, strings.Join(args, " "), threshold)
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", persona.DefaultThreshold, "minimum keyword match ratio for a preset")
	return cmd
}

func runClassify(cmd *cobra.Command, text string, threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1")
	}
	classifier, err := persona.NewClassifier(persona.ClassifierOpts{Threshold: &threshold})
	if err != nil {
		return err
	}
	score := sentiment.NewVader().Score(text)
	sel := classifier.Classify(text, score)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sentiment: %.3f\n", score)
	fmt.Fprintf(out, "Rule:      %s (match %.2f)\n", sel.Rule, sel.Ratio)
	fmt.Fprintf(out, "Tone:      %s\n", sel.Tone)
	fmt.Fprintf(out, "\n%s\n", sel.Directive)
	return nil
}
