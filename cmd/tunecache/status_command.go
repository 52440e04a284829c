package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tunecache/internal/api"
	"tunecache/internal/jobs"
	"tunecache/internal/preflight"
)

var statsOrder = []string{
	string(jobs.StateProcessing),
	string(jobs.StateCompleted),
	string(jobs.StateFailed),
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkPublisher bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			health, err := ctx.client().health(cmd.Context())
			if err != nil && !isDaemonUnreachable(err) {
				return err
			}
			if jsonOutput {
				if err != nil {
					return printJSON(cmd, api.HealthResponse{Running: false})
				}
				return printJSON(cmd, health)
			}

			var lines []string
			lines = append(lines, renderSectionHeader("Daemon", colorize)...)
			if err != nil {
				lines = append(lines, renderStatusLine("Daemon", statusWarn, "not running ("+ctx.serverURL()+")", colorize))
				lines = append(lines, "")
				localLines, localErr := localStatusLines(cmd, ctx, checkPublisher, colorize)
				if localErr != nil {
					return localErr
				}
				lines = append(lines, localLines...)
			} else {
				lines = append(lines, daemonStatusLines(health, colorize)...)
				if checkPublisher {
					cfg, cfgErr := ctx.ensureConfig()
					if cfgErr != nil {
						return cfgErr
					}
					lines = append(lines, "")
					lines = append(lines, renderSectionHeader("Publisher", colorize)...)
					lines = append(lines, resultLine(preflight.CheckPublisher(cmd.Context(), cfg.Publisher.Endpoint), colorize))
				}
			}
			writeLines(out, lines)
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkPublisher, "check-publisher", false, "Probe the artifact host endpoint")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output daemon health as JSON")
	return cmd
}

func daemonStatusLines(health api.HealthResponse, colorize bool) []string {
	lines := []string{
		renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d, version %s)", health.PID, health.Version), colorize),
		renderStatusLine("Store", statusInfo, storeDescription(health), colorize),
	}
	poolKind := statusOK
	if health.Pool.Workers == 0 {
		poolKind = statusError
	}
	lines = append(lines, renderStatusLine("Worker pool", poolKind,
		fmt.Sprintf("%d workers, %d running, %d queued", health.Pool.Workers, health.Pool.Running, health.Pool.Queued), colorize))
	staleKind := statusOK
	if health.Stale > 0 {
		staleKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Stale records", staleKind, strconv.Itoa(health.Stale), colorize))

	for _, component := range health.Components {
		if component.Ready {
			continue
		}
		lines = append(lines, renderStatusLine(component.Name, statusError, component.Detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Records", colorize)...)
	lines = append(lines, renderStatsTable(health.Stats, statsOrder))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	lines = append(lines, dependencyLines(health.Dependencies, colorize)...)
	return lines
}

// localStatusLines reports what can be checked without a running daemon.
func localStatusLines(cmd *cobra.Command, ctx *commandContext, checkPublisher bool, colorize bool) ([]string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	var lines []string
	lines = append(lines, renderSectionHeader("Preflight", colorize)...)
	results := preflight.RunAll(cmd.Context(), cfg)
	if checkPublisher {
		results = append(results, preflight.CheckPublisher(cmd.Context(), cfg.Publisher.Endpoint))
	}
	for _, result := range results {
		lines = append(lines, resultLine(result, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	lines = append(lines, dependencyLines(api.FromDependencies(preflight.CheckSystemDeps(cfg)), colorize)...)
	return lines, nil
}

func resultLine(result preflight.Result, colorize bool) string {
	kind := statusOK
	if !result.Passed {
		kind = statusError
	}
	return renderStatusLine(result.Name, kind, result.Detail, colorize)
}

func storeDescription(health api.HealthResponse) string {
	if health.StorePath == "" {
		return health.Store
	}
	return health.Store + " (" + health.StorePath + ")"
}

func writeLines(out io.Writer, lines []string) {
	fmt.Fprintln(out, strings.Join(lines, "\n"))
}
