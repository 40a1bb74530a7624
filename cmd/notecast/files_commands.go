package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"notecast/internal/api"
	"notecast/internal/artifacts"
	"notecast/internal/videoid"
)

func newFilesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "files <video-id>",
		Short: "List the artifacts stored for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := ctx.openStack()
			if err != nil {
				return err
			}
			defer stack.Close()

			files, err := api.NewFilesService(stack.Store).List(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, files)
			}
			kinds := make([]string, 0, len(files))
			for kind := range files {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)
			rows := make([][]string, 0, len(kinds))
			for _, kind := range kinds {
				entry := files[kind]
				size := ""
				if entry.Exists {
					size = strconv.FormatInt(entry.Size, 10)
				}
				rows = append(rows, []string{kind, yesNo(entry.Exists), size, entry.Path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Kind", "Exists", "Bytes", "Path"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the listing as JSON")
	return cmd
}

func newCleanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean <video-id>",
		Short: "Delete every artifact for a video now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !videoid.Valid(id) {
				return fmt.Errorf("invalid video id %q", id)
			}
			stack, err := ctx.openStack()
			if err != nil {
				return err
			}
			defer stack.Close()

			release, ok, err := stack.Locker.TryLock(id)
			if err != nil {
				return fmt.Errorf("lock %s: %w", id, err)
			}
			if !ok {
				return errors.New("a pipeline run for this video is in progress; retry when it finishes")
			}
			defer release()

			result := stack.Store.DeleteAll(id)
			ledgerCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if err := stack.Ledger.Delete(ledgerCtx, id); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warn: cleanup ledger entry not removed: %v\n", err)
			}
			return printCleanResult(cmd, id, result)
		},
	}
}

func printCleanResult(cmd *cobra.Command, id string, result artifacts.DeleteResult) error {
	out := cmd.OutOrStdout()
	for _, path := range result.Removed {
		fmt.Fprintf(out, "removed %s\n", path)
	}
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintf(out, "no artifacts found for %s\n", id)
	}
	var errs []error
	for _, failure := range result.Errors {
		errs = append(errs, fmt.Errorf("%s: %w", failure.Path, failure.Error))
	}
	return errors.Join(errs...)
}
