package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"notecast/internal/api"
	"notecast/internal/cleanup"
	"notecast/internal/pipeline"
	"notecast/internal/stage"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var targetLanguage string
	var modelSize string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run <url>",
		Short: "Download, transcribe, and summarize a video in-process",
		Long: "Run the full pipeline for one video without the daemon.\n\n" +
			"Artifacts land in output_dir and their cleanup is recorded in the ledger;\n" +
			"a running or future daemon removes them when the delay elapses.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := ctx.openStack()
			if err != nil {
				return err
			}
			defer stack.Close()

			orchestrator, err := stack.Pipeline(cleanup.Deferred{Ledger: stack.Ledger})
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}
			result, err := orchestrator.Run(cmd.Context(), pipeline.Request{
				URL:            args[0],
				TargetLanguage: targetLanguage,
				ModelSize:      modelSize,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.FromResult(result))
			}
			printRunResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetLanguage, "lang", "l", "", "Target language for the notes (default from config)")
	cmd.Flags().StringVarP(&modelSize, "model", "m", "", "Speech model size: "+strings.Join(stage.ModelSizes(), ", "))
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the result as JSON")
	return cmd
}

func printRunResult(cmd *cobra.Command, result pipeline.Result) {
	out := cmd.OutOrStdout()
	color := shouldColorize(out)
	fmt.Fprintln(out, heading("Video "+result.VideoID, color))
	if result.Cached {
		fmt.Fprintln(out, "All artifacts were already on disk")
	}
	rows := [][]string{
		{"Detected language", result.DetectedLanguage},
		{"Target language", result.TargetLanguage},
		{"Translated", yesNo(result.Translated)},
		{"Audio", result.AudioPath},
		{"Transcript", result.TranscriptPath},
		{"Notes", result.NotesPath},
		{"PDF", result.DocumentPath},
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}
