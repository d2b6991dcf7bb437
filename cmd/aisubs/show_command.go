package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"aisubs/internal/config"
	"aisubs/internal/services"
	"aisubs/internal/subtitles"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var window windowFlags

	cmd := &cobra.Command{
		Use:         "show <file.srt>",
		Short:       "List subtitle entries, optionally limited to a time window",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			w, err := window.window()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return services.Wrap(services.ErrInputNotFound, "show", "read subtitles", path, nil)
				}
				return fmt.Errorf("read subtitles: %w", err)
			}
			entries, err := subtitles.Parse(data)
			if err != nil {
				return err
			}

			visible := subtitles.Overlapping(entries, w)
			out := cmd.OutOrStdout()
			if len(visible) == 0 {
				fmt.Fprintf(out, "No subtitle entries in %s (%d in file)\n", w, len(entries))
				return nil
			}
			fmt.Fprintln(out, renderEntries(entries, visible))
			fmt.Fprintf(out, "%d of %d entries\n", len(visible), len(entries))
			return nil
		},
	}

	window.register(cmd)
	return cmd
}

// renderEntries numbers visible entries by their position in the full file.
func renderEntries(all, visible []subtitles.Entry) string {
	position := make(map[subtitles.Entry]int, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		position[all[i]] = i + 1
	}
	rows := make([][]string, 0, len(visible))
	for _, entry := range visible {
		rows = append(rows, []string{
			strconv.Itoa(position[entry]),
			subtitles.FormatTimestamp(entry.Start),
			subtitles.FormatTimestamp(entry.End),
			strings.ReplaceAll(entry.Text, "\n", " / "),
		})
	}
	return renderTable(
		[]string{"#", "Start", "End", "Text"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}
