package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tunecache/internal/api"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record"},
		Short:   "Inspect and maintain cached job records",
	}
	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	recordsCmd.AddCommand(newRecordsShowCommand(ctx))
	recordsCmd.AddCommand(newRecordsPurgeFailedCommand(ctx))
	return recordsCmd
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var states []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List job records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := api.ParseStates(states); err != nil {
				return err
			}
			records, err := ctx.client().records(cmd.Context(), states)
			if err != nil {
				return err
			}
			if jsonOutput {
				if records == nil {
					records = []api.Record{}
				}
				return printJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No records")
				return nil
			}
			fmt.Fprintln(out, renderRecordTable(records))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&states, "state", "s", nil, "Filter by state (processing, completed, failed)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newRecordsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <content-id>",
		Short: "Show one job record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := ctx.client().record(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, rec)
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newRecordsPurgeFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-failed",
		Short: "Delete failed records so their next request starts from scratch",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.PurgeFailed(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge failed records: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d failed record(s)\n", removed)
			return nil
		},
	}
}

func printRecord(out io.Writer, rec api.Record) {
	rows := [][2]string{
		{"Content ID", rec.ContentID},
		{"Title", rec.Title},
		{"Channel", rec.Channel},
		{"Duration", rec.Duration},
		{"State", rec.State},
		{"Artifact URL", rec.ArtifactURL},
		{"Error", rec.ErrorDetail},
		{"Attempts", fmt.Sprintf("%d", rec.Attempts)},
		{"Attempt", rec.Attempt},
		{"Last heartbeat", rec.LastHeartbeat},
		{"Created", rec.CreatedAt},
		{"Updated", rec.UpdatedAt},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(out, "%-15s %s\n", row[0]+":", row[1])
	}
}
