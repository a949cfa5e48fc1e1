package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/pipeline"
	"github.com/mikey/thread-triage/internal/utils"
)

var (
	threadsLimit   int
	threadsMessage string
	threadsJSON    bool
)

func init() {
	rootCmd.AddCommand(threadsCmd)
	threadsCmd.Flags().IntVar(&threadsLimit, "limit", 20, "Maximum number of threads to list, 0 for all")
	threadsCmd.Flags().StringVar(&threadsMessage, "message", "", "Show the thread containing this message id")
	threadsCmd.Flags().BoolVar(&threadsJSON, "json", false, "Output threads as JSON")
}

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List threads by priority",
	Long: `List the most recently updated threads, High priority first.

Examples:
  thread-triage threads --limit 10
  thread-triage threads --message "<CAF1234@mail.example.com>"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return invoke(func(service *pipeline.Service, tp *utils.TextProcessor) error {
			if threadsMessage != "" {
				thread, err := service.ThreadForMessage(cmd.Context(), strings.Trim(threadsMessage, "<> "))
				if err != nil {
					return err
				}
				return printThread(cmd.OutOrStdout(), thread)
			}

			threads, err := service.Threads(cmd.Context(), threadsLimit)
			if err != nil {
				return err
			}
			return printThreads(cmd.OutOrStdout(), threads, tp)
		})
	},
}

func printThreads(w io.Writer, threads []*core.Thread, tp *utils.TextProcessor) error {
	if threadsJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(threads)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tTHREAD\tMESSAGES\tUPDATED\tSUBJECT\tSUMMARY")
	for _, t := range threads {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			priorityStyle(string(t.Priority)),
			t.ID,
			len(t.Messages),
			t.LastUpdated.Local().Format(time.DateTime),
			tp.Excerpt(t.Subject, 40),
			tp.Excerpt(t.Summary, 60))
	}
	return tw.Flush()
}

func printThread(w io.Writer, t *core.Thread) error {
	if threadsJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	}

	fmt.Fprintf(w, "%s %s [%s]\n", headerStyle.Render(t.Subject), dimStyle.Render(t.ID), priorityStyle(string(t.Priority)))
	if t.Summary != "" {
		fmt.Fprintf(w, "%s\n", t.Summary)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tFROM\tPRIORITY\tMESSAGE")
	for _, m := range t.Messages {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			m.Timestamp.Local().Format(time.DateTime),
			m.From.Email,
			priorityStyle(string(m.Priority)),
			m.MessageID)
	}
	return tw.Flush()
}
