package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mikey/thread-triage/internal/pipeline"
)

var ingestJSON bool

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "Output results as JSON")
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|dir|-]...",
	Short: "Thread and score message files",
	Long: `Thread and score RFC 5322 message files.

Directories are searched recursively for .eml files and "-" reads a single
message from stdin.

Examples:
  # Ingest a maildir export
  thread-triage ingest ./export

  # Ingest one message from stdin
  cat message.eml | thread-triage ingest -`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raws, names, err := readMessages(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		return invoke(func(service *pipeline.Service) error {
			results := service.ProcessBatch(cmd.Context(), raws)
			return printIngest(cmd.OutOrStdout(), names, results)
		})
	},
}

func readMessages(stdin io.Reader, args []string) ([][]byte, []string, error) {
	var raws [][]byte
	var names []string

	for _, arg := range args {
		if arg == "-" {
			raw, err := io.ReadAll(stdin)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read stdin: %w", err)
			}
			raws = append(raws, raw)
			names = append(names, "-")
			continue
		}

		err := filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || (path != arg && !strings.EqualFold(filepath.Ext(path), ".eml")) {
				return nil
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			raws = append(raws, raw)
			names = append(names, path)
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
	}

	return raws, names, nil
}

type ingestOutput struct {
	Source    string `json:"source"`
	MessageID string `json:"message_id,omitempty"`
	ThreadID  string `json:"thread_id,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Priority  string `json:"priority,omitempty"`
	Score     int    `json:"score"`
	Error     string `json:"error,omitempty"`
}

func printIngest(w io.Writer, names []string, results []pipeline.Result) error {
	out := make([]ingestOutput, len(results))
	failed := 0
	for i, r := range results {
		out[i] = ingestOutput{
			Source:    names[i],
			MessageID: r.MessageID,
			ThreadID:  r.ThreadID,
			Stage:     string(r.Stage),
			Priority:  string(r.Breakdown.Label),
			Score:     r.Breakdown.Score,
		}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
			failed++
		}
	}

	if ingestJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tMESSAGE\tTHREAD\tSTAGE\tPRIORITY")
		for _, o := range out {
			if o.Error != "" {
				fmt.Fprintf(tw, "%s\t-\t-\terror\t%s\n", o.Source, o.Error)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Source, o.MessageID, o.ThreadID, o.Stage, priorityStyle(o.Priority))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d messages failed", failed, len(results))
	}
	return nil
}
