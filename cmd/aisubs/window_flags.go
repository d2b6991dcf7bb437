package main

import (
	"strings"

	"github.com/spf13/cobra"

	"aisubs/internal/timecode"
)

// windowFlags holds the --ss/--to pair shared by several commands.
type windowFlags struct {
	start string
	end   string
}

func (w *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&w.start, "ss", "0", "Window start: seconds (90.5) or clock time (1:30, 01:02:03)")
	cmd.Flags().StringVar(&w.end, "to", "", "Window end (exclusive); defaults to the end of the audio")
}

// values parses the flags. end is nil when --to was not given.
func (w *windowFlags) values() (timecode.Value, *timecode.Value, error) {
	startRaw := strings.TrimSpace(w.start)
	if startRaw == "" {
		startRaw = "0"
	}
	start, err := timecode.ParseFlag(startRaw)
	if err != nil {
		return timecode.Value{}, nil, err
	}
	if strings.TrimSpace(w.end) == "" {
		return start, nil, nil
	}
	end, err := timecode.ParseFlag(w.end)
	if err != nil {
		return timecode.Value{}, nil, err
	}
	return start, &end, nil
}

func (w *windowFlags) window() (timecode.Window, error) {
	start, end, err := w.values()
	if err != nil {
		return timecode.Window{}, err
	}
	return timecode.NewWindow(start, end)
}
