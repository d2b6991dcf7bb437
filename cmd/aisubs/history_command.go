package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"aisubs/internal/config"
	"aisubs/internal/history"
)

type historyJSON struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Source     string `json:"source"`
	Output     string `json:"output"`
	Backup     string `json:"backup,omitempty"`
	Language   string `json:"language,omitempty"`
	Window     string `json:"window,omitempty"`
	Chunks     int    `json:"chunks"`
	Entries    int    `json:"entries"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	ElapsedSec int64  `json:"elapsed_seconds"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		source string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transcription and translation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if store == nil {
				fmt.Fprintln(out, "Run history is disabled (history.enabled = false)")
				return nil
			}
			defer store.Close()

			if source != "" {
				if source, err = config.ExpandPath(source); err != nil {
					return err
				}
			}
			runs, err := store.Recent(cmd.Context(), limit, source)
			if err != nil {
				return err
			}
			if asJSON {
				items := make([]historyJSON, 0, len(runs))
				for _, run := range runs {
					items = append(items, historyJSON{
						ID:         run.ID,
						Kind:       string(run.Kind),
						Source:     run.SourcePath,
						Output:     run.OutputPath,
						Backup:     run.BackupPath,
						Language:   run.Language,
						Window:     run.Window,
						Chunks:     run.Chunks,
						Entries:    run.Entries,
						Status:     run.Status,
						Error:      run.Error,
						StartedAt:  run.StartedAt.Format(time.RFC3339),
						ElapsedSec: int64(run.Elapsed().Seconds()),
					})
				}
				return writeJSON(cmd, items)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistory(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringVar(&source, "source", "", "Only show runs for this input file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderHistory(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(run.Kind),
			run.Status,
			filepath.Base(run.SourcePath),
			run.Window,
			strconv.Itoa(run.Chunks),
			strconv.Itoa(run.Entries),
			run.Elapsed().Round(time.Second).String(),
		})
	}
	return renderTable(
		[]string{"Started", "Kind", "Status", "Source", "Window", "Chunks", "Entries", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}
