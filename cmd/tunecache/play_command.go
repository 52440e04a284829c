package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tunecache/internal/api"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var timeout time.Duration
	var interval time.Duration
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "play <query>",
		Short: "Resolve a query or link and return its cached artifact",
		Long: "Ask the daemon for the artifact of a song. The first request starts production;\n" +
			"use --wait to poll until the artifact URL is available.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			client := ctx.client()

			resp, err := client.play(cmd.Context(), query)
			if err != nil {
				return err
			}
			if wait && resp.Status == api.StatusProcessing {
				resp, err = pollPlay(cmd.Context(), client, query, timeout, interval, func(r api.PlayResponse) {
					if !jsonOutput {
						printPlay(cmd.OutOrStdout(), r)
					}
				}, resp)
				if err != nil {
					return err
				}
			}

			if jsonOutput {
				return printJSON(cmd, resp)
			}
			printPlay(cmd.OutOrStdout(), resp)
			if resp.Status == api.StatusError {
				return fmt.Errorf("play failed: %s", resp.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the artifact is ready or production fails")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Maximum time to wait with --wait")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Polling interval with --wait")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the final response as JSON")
	return cmd
}

// pollPlay repeats the play request until it leaves the processing state.
// A retrying response after the first one means the previous attempt failed,
// which ends polling so the caller sees the failure instead of looping.
func pollPlay(ctx context.Context, client *apiClient, query string, timeout, interval time.Duration, progress func(api.PlayResponse), first api.PlayResponse) (api.PlayResponse, error) {
	progress(first)
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return first, ctx.Err()
		case <-ticker.C:
		}
		resp, err := client.play(ctx, query)
		if err != nil {
			return resp, err
		}
		if resp.Status != api.StatusProcessing {
			return resp, nil
		}
		if resp.Message == api.MessageRetrying {
			return api.PlayResponse{
				Status:  api.StatusError,
				Message: "production failed: " + resp.ErrorWas,
				VideoID: resp.VideoID,
			}, nil
		}
		if time.Now().After(deadline) {
			return resp, fmt.Errorf("timed out after %s waiting for %s", timeout, resp.VideoID)
		}
	}
}

func printPlay(out io.Writer, resp api.PlayResponse) {
	switch resp.Status {
	case api.StatusSuccess:
		fmt.Fprintf(out, "%s\n", resp.URL)
		if resp.Title != "" {
			fmt.Fprintf(out, "  Title:    %s\n", resp.Title)
		}
		if resp.Channel != "" {
			fmt.Fprintf(out, "  Channel:  %s\n", resp.Channel)
		}
		if resp.Duration != "" {
			fmt.Fprintf(out, "  Duration: %s\n", resp.Duration)
		}
		fmt.Fprintf(out, "  Video ID: %s\n", resp.VideoID)
	case api.StatusProcessing:
		line := fmt.Sprintf("%s: %s", resp.VideoID, resp.Message)
		if resp.ETA != "" {
			line += " (eta " + resp.ETA + ")"
		}
		if resp.ErrorWas != "" {
			line += "; previous error: " + resp.ErrorWas
		}
		fmt.Fprintln(out, line)
	default:
		fmt.Fprintf(out, "error: %s\n", resp.Message)
	}
}
