package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"aisubs/internal/config"
	"aisubs/internal/logging"
	"aisubs/internal/preflight"
	"aisubs/internal/timecode"
	"aisubs/internal/transcribe"
	"aisubs/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		lang      string
		jobs      int
		translate bool
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Transcribe audio files as they appear in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if err := requireAPIKey(cfg); err != nil {
				return err
			}
			if err := preflight.RequireMediaTools(cfg); err != nil {
				return err
			}
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if check := preflight.CheckDirectoryAccess("Watch directory", dir); !check.Passed {
				return fmt.Errorf("watch: %s", check.Detail)
			}

			recorder, err := ctx.openHistory()
			if err != nil {
				return err
			}
			if recorder != nil {
				defer recorder.Close()
			}
			svc := newTranscribeService(ctx, cfg, logger, recorder)

			if jobs <= 0 {
				jobs = cfg.Transcribe.Jobs
			}
			segment := segmentOptions(cfg)
			out := cmd.OutOrStdout()
			handler := func(runCtx context.Context, path string) error {
				result, err := svc.Run(runCtx, transcribe.Request{
					Source:    path,
					Language:  lang,
					Start:     timecode.Seconds(0),
					Jobs:      jobs,
					Segment:   segment,
					Translate: translate,
				})
				if err != nil {
					return err
				}
				printTranscribeResult(out, result)
				return nil
			}

			settle := time.Duration(cfg.Watch.SettleSeconds) * time.Second
			watcher := watch.New(dir, cfg.Watch.Extensions, settle, handler, logger)
			fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", dir)
			logger.Info("watch started", logging.String("dir", dir))
			return watcher.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&lang, "language", "l", "", "Spoken language hint (ISO-639-1)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Concurrent transcription requests per file (default from config)")
	cmd.Flags().BoolVarP(&translate, "translate", "t", false, "Translate speech to English and write <audio>.en.srt")
	return cmd
}
