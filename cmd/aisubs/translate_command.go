package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"aisubs/internal/config"
	"aisubs/internal/language"
	"aisubs/internal/translate"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var (
		lang      string
		model     string
		jobs      int
		batchSize int
		replace   bool
	)

	cmd := &cobra.Command{
		Use:   "translate <input.srt>",
		Short: "Translate an SRT file into <input>.<lang>.srt",
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
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			req := translate.Request{
				Input:     input,
				Language:  firstNonEmpty(lang, cfg.Translate.Language),
				Model:     firstNonEmpty(model, cfg.OpenAI.TranslationModel),
				Jobs:      cfg.Translate.Jobs,
				BatchSize: cfg.Translate.BatchSize,
				Replace:   replace,
			}
			if jobs > 0 {
				req.Jobs = jobs
			}
			if batchSize > 0 {
				req.BatchSize = batchSize
			}

			recorder, err := ctx.openHistory()
			if err != nil {
				return err
			}
			var opts []translate.Option
			if recorder != nil {
				defer recorder.Close()
				opts = append(opts, translate.WithRecorder(recorder))
			}

			svc := translate.NewService(newAPIClient(cfg), ctx.subtitleStore(logger), logger, opts...)
			result, err := svc.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Translated %d entries into %s in %d batch(es): %s\n",
				result.Entries, language.DisplayName(req.Language), result.Batches, result.OutputPath)
			if result.BackupPath != "" {
				fmt.Fprintf(out, "Previous file saved as %s\n", filepath.Base(result.BackupPath))
			}
			if result.Mismatches > 0 {
				fmt.Fprintf(out, "Warning: %d batch(es) came back with a different entry count; review the output\n", result.Mismatches)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "language", "l", "", "Target language code (default from config, zh-Hans)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Chat model used for translation (default from config)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Concurrent translation requests (default from config)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Entries per translation request (default from config)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace an existing translation instead of merging into it (a backup is still kept)")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
