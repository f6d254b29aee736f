package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"veil/internal/api"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List tracked playback sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				sessions, err := client.Sessions(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(sessions) == 0 {
					fmt.Fprintln(out, "No playback sessions tracked")
					return nil
				}
				rows := make([][]string, 0, len(sessions))
				for _, session := range sessions {
					state := "idle"
					segment := ""
					if session.Filtering && session.ActiveSegment != nil {
						state = "filtering"
						segment = fmt.Sprintf("%s %.1f-%.1f", session.ActiveSegment.Action, session.ActiveSegment.Start, session.ActiveSegment.End)
					}
					rows = append(rows, []string{
						session.SessionID,
						session.MediaID,
						session.Title,
						fmt.Sprintf("%.1f", session.Position),
						state,
						segment,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]tableColumn{col("Session"), col("Media"), col("Title"), numCol("Position"), col("State"), col("Segment")},
					rows,
				))
				return nil
			})
		},
	}
}
