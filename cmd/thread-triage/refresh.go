package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mikey/thread-triage/internal/config"
	"github.com/mikey/thread-triage/internal/pipeline"
)

var refreshLimit int

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().IntVar(&refreshLimit, "limit", 0, "Number of recent threads to refresh (default pipeline.refresh_limit)")
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Summarize and prioritize recent threads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return invoke(func(service *pipeline.Service, pc config.PipelineConfig) error {
			limit := refreshLimit
			if limit <= 0 {
				limit = pc.RefreshLimit
			}
			results, err := service.RefreshThreads(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printRefresh(cmd.OutOrStdout(), results)
		})
	},
}

func printRefresh(w io.Writer, results []pipeline.RefreshResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "THREAD\tPRIORITY\tNOTES")
	failed := 0
	for _, r := range results {
		notes := ""
		switch {
		case r.Err != nil:
			notes = "error: " + r.Err.Error()
			failed++
		case r.Placeholder && r.Fallback:
			notes = "excerpt summary, heuristic priority"
		case r.Placeholder:
			notes = "excerpt summary"
		case r.Fallback:
			notes = "heuristic priority"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ThreadID, priorityStyle(string(r.Priority)), notes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d threads failed to refresh", failed, len(results))
	}
	return nil
}
