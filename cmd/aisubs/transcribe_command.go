package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"aisubs/internal/audio"
	"aisubs/internal/config"
	"aisubs/internal/history"
	"aisubs/internal/preflight"
	"aisubs/internal/subtitles"
	"aisubs/internal/transcribe"
)

type transcribeFlags struct {
	language      string
	window        windowFlags
	jobs          int
	silenceThresh int
	translate     bool
	dryRun        bool
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var flags transcribeFlags

	cmd := &cobra.Command{
		Use:   "transcribe <audio>",
		Short: "Transcribe an audio or video file into <audio>.srt",
		Long: `Transcribe a window of an audio or video file into SRT subtitles.

The window is split at silences into chunks that are transcribed in parallel.
New entries are merged into an existing <audio>.srt, which is first backed up.
A window that overlaps entries already in the file is refused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if !flags.dryRun {
				if err := requireAPIKey(cfg); err != nil {
					return err
				}
			}
			if err := preflight.RequireMediaTools(cfg); err != nil {
				return err
			}

			req, err := flags.request(cmd, cfg, args[0])
			if err != nil {
				return err
			}

			recorder, err := ctx.openHistory()
			if err != nil {
				return err
			}
			if recorder != nil {
				defer recorder.Close()
			}

			svc := newTranscribeService(ctx, cfg, logger, recorder)
			result, err := svc.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			printTranscribeResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.language, "language", "l", "", "Spoken language hint (ISO-639-1, e.g. en, ja)")
	flags.window.register(cmd)
	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 0, "Concurrent transcription requests (default from config)")
	cmd.Flags().IntVar(&flags.silenceThresh, "silence-thresh", 0, "Silence threshold in dB (default from config)")
	cmd.Flags().BoolVarP(&flags.translate, "translate", "t", false, "Translate speech to English and write <audio>.en.srt")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Plan the chunks without calling the service or writing files")
	return cmd
}

func (f *transcribeFlags) request(cmd *cobra.Command, cfg *config.Config, source string) (transcribe.Request, error) {
	start, end, err := f.window.values()
	if err != nil {
		return transcribe.Request{}, err
	}
	source, err = config.ExpandPath(source)
	if err != nil {
		return transcribe.Request{}, err
	}
	jobs := cfg.Transcribe.Jobs
	if f.jobs > 0 {
		jobs = f.jobs
	}
	segment := segmentOptions(cfg)
	if cmd.Flags().Changed("silence-thresh") {
		segment.SilenceThreshDB = f.silenceThresh
	}
	return transcribe.Request{
		Source:    source,
		Language:  f.language,
		Start:     start,
		End:       end,
		Jobs:      jobs,
		Segment:   segment,
		Translate: f.translate,
		DryRun:    f.dryRun,
	}, nil
}

func segmentOptions(cfg *config.Config) audio.Options {
	return audio.Options{
		SilenceThreshDB: cfg.Transcribe.SilenceThreshDB,
		MinSilence:      time.Duration(cfg.Transcribe.MinSilenceMillis) * time.Millisecond,
		MinLength:       time.Duration(cfg.Transcribe.MinSegmentSeconds) * time.Second,
		MaxLength:       time.Duration(cfg.Transcribe.MaxSegmentSeconds) * time.Second,
		Format:          cfg.Transcribe.ChunkFormat,
		Normalize:       cfg.Transcribe.Normalize,
	}
}

func newTranscribeService(ctx *commandContext, cfg *config.Config, logger *slog.Logger, recorder *history.Store) *transcribe.Service {
	var opts []transcribe.Option
	if recorder != nil {
		opts = append(opts, transcribe.WithRecorder(recorder))
	}
	return transcribe.NewService(
		audio.NewFFmpeg(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
		newAPIClient(cfg),
		ctx.subtitleStore(logger),
		logger,
		opts...,
	)
}

func printTranscribeResult(out io.Writer, result transcribe.Result) {
	if len(result.Chunks) == 0 {
		fmt.Fprintf(out, "Window %s contains no audio; nothing written\n", result.Window)
		return
	}
	if result.DryRun {
		fmt.Fprintf(out, "Dry run: %s of audio in window %s would be sent as %d chunk(s)\n",
			result.WindowDuration.Round(time.Millisecond), result.Window, len(result.Chunks))
		fmt.Fprintln(out, renderChunkPlan(result))
		fmt.Fprintf(out, "Output: %s\n", result.OutputPath)
		return
	}
	fmt.Fprintf(out, "Wrote %d new entries (%d total) to %s\n", result.NewEntries, result.TotalEntries, result.OutputPath)
	if result.BackupPath != "" {
		fmt.Fprintf(out, "Previous file saved as %s\n", filepath.Base(result.BackupPath))
	}
	if result.Removed > 0 {
		fmt.Fprintf(out, "Dropped %d empty, repeated or caption-credit entries\n", result.Removed)
	}
}

func renderChunkPlan(result transcribe.Result) string {
	rows := make([][]string, 0, len(result.Chunks))
	for _, chunk := range result.Chunks {
		rows = append(rows, []string{
			strconv.Itoa(chunk.Index),
			subtitles.FormatTimestamp(result.Window.Start + chunk.Offset),
			subtitles.FormatTimestamp(result.Window.Start + chunk.End()),
			chunk.Duration.Round(time.Millisecond).String(),
		})
	}
	return renderTable(
		[]string{"Chunk", "Start", "End", "Duration"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	)
}
