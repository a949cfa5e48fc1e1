package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/pipeline"
)

var scoreJSON bool

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Output the breakdown as JSON")
}

var scoreCmd = &cobra.Command{
	Use:   "score [text]",
	Short: "Score the priority of a piece of text",
	Long: `Score the priority of text given as arguments or on stdin and print how
each signal contributed.

Examples:
  thread-triage score "Please send the signed contract by Friday, it is urgent"
  echo "FYI, the newsletter is out" | thread-triage score`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if len(args) == 0 {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			text = string(raw)
		}
		return invoke(func(service *pipeline.Service) error {
			return printScore(cmd.OutOrStdout(), service.Score(cmd.Context(), text))
		})
	},
}

func printScore(w io.Writer, b core.ScoreBreakdown) error {
	if scoreJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}

	fmt.Fprintf(w, "%s %s (score %d, mode %s)\n", headerStyle.Render("Priority:"), priorityStyle(string(b.Label)), b.Score, b.Mode)
	fmt.Fprintf(w, "  keywords     %+d (high %d, medium %d, low %d)\n", b.KeywordContribution(), b.HighCount, b.MediumCount, b.LowCount)
	fmt.Fprintf(w, "  imperative   %+d\n", b.Imperative)
	fmt.Fprintf(w, "  modal        %+d\n", b.Modal)
	fmt.Fprintf(w, "  sentiment    %+d (compound %.3f)\n", b.Sentiment, b.Compound)
	fmt.Fprintf(w, "  dates        %+d (deadline %+d)\n", b.DateProximity, b.DeadlineNearDate)

	for _, e := range b.Entities {
		line := fmt.Sprintf("  %-6s %q", e.Kind, e.Text)
		if e.Resolved != nil {
			line += " -> " + e.Resolved.Format("Mon 2006-01-02")
		}
		fmt.Fprintln(w, dimStyle.Render(line))
	}
	return nil
}
