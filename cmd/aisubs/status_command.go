package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aisubs/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkAPI bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report external tools, credentials and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(preflight.CheckMediaTools(cfg), colorize)...)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			configDetail := ctx.configPath
			if configDetail == "" {
				configDetail = "defaults"
			}
			lines = append(lines, renderStatusLine("Config file", statusInfo, configDetail, colorize))
			lines = append(lines, checkLine(preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir), colorize))
			lines = append(lines, checkLine(preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir), colorize))
			historyDetail := "disabled"
			if cfg.History.Enabled {
				historyDetail = cfg.HistoryPath()
			}
			lines = append(lines, renderStatusLine("Run history", statusInfo, historyDetail, colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Service", colorize)...)
			if checkAPI {
				lines = append(lines, checkLine(preflight.CheckAPI(cmd.Context(), cfg), colorize))
			} else {
				lines = append(lines, checkLine(preflight.CheckAPIKey(cfg), colorize))
			}
			lines = append(lines, renderStatusLine("Base URL", statusInfo, cfg.OpenAI.BaseURL, colorize))
			lines = append(lines, renderStatusLine("Models", statusInfo,
				fmt.Sprintf("%s (speech), %s (translation)", cfg.OpenAI.TranscriptionModel, cfg.OpenAI.TranslationModel), colorize))

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkAPI, "check-api", false, "Contact the API to verify the key")
	return cmd
}
