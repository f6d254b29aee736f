package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"veil/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				renderStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}
}

func renderStatus(out io.Writer, status *api.DaemonStatus) {
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	runningKind := statusWarn
	if status.Running {
		runningKind = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("Running", runningKind, yesNo(status.Running), colorize))
	fmt.Fprintln(out, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
	if status.StartedAt != "" {
		fmt.Fprintln(out, renderStatusLine("Started", statusInfo, status.StartedAt, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Score store", statusInfo, status.StorePath, colorize))
	fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
	fmt.Fprintln(out, renderStatusLine("Policy file", statusInfo, status.PolicyPath, colorize))

	for _, line := range renderSectionHeader("Playback", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Score records", statusInfo, fmt.Sprintf("%d", status.ScoreRecords), colorize))
	fmt.Fprintln(out, renderStatusLine("Tracked sessions", statusInfo, fmt.Sprintf("%d", status.TrackedSessions), colorize))
	filteringKind := statusInfo
	if status.FilteringSessions > 0 {
		filteringKind = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("Filtering now", filteringKind, fmt.Sprintf("%d", status.FilteringSessions), colorize))
}
