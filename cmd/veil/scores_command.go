package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"veil/internal/api"
	"veil/internal/scores"
)

func newScoresCommand(ctx *commandContext) *cobra.Command {
	scoresCmd := &cobra.Command{
		Use:   "scores",
		Short: "Manage stored score records",
	}

	scoresCmd.AddCommand(newScoresListCommand(ctx))
	scoresCmd.AddCommand(newScoresShowCommand(ctx))
	scoresCmd.AddCommand(newScoresPutCommand(ctx))
	scoresCmd.AddCommand(newScoresRemoveCommand(ctx))
	scoresCmd.AddCommand(newScoresReloadCommand(ctx))

	return scoresCmd
}

func newScoresListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored score records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				records, err := client.ListScores(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No score records stored")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						record.MediaID,
						fmt.Sprintf("%d", record.Version),
						fmt.Sprintf("%d", record.Segments),
						record.CreatedAt,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]tableColumn{col("Media"), numCol("Version"), numCol("Segments"), col("Created")},
					rows,
				))
				return nil
			})
		},
	}
}

func newScoresShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <media-id>",
		Short: "Show the segments stored for a media item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				record, err := client.GetScores(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if record == nil {
					fmt.Fprintf(out, "No score record for %s\n", args[0])
					return nil
				}
				fmt.Fprintf(out, "Media %s (version %d, %d segments)\n", record.MediaID, record.Version, len(record.Segments))
				fmt.Fprintln(out, renderTable(
					[]tableColumn{numCol("Start"), numCol("End"), col("Action"), numCol("Confidence"), col("Scores"), col("Source")},
					segmentRows(record.Segments),
				))
				return nil
			})
		},
	}
}

func segmentRows(segments []scores.Segment) [][]string {
	rows := make([][]string, 0, len(segments))
	for _, seg := range segments {
		rows = append(rows, []string{
			fmt.Sprintf("%.1f", seg.Start),
			fmt.Sprintf("%.1f", seg.End),
			string(seg.Action),
			fmt.Sprintf("%.2f", seg.Confidence()),
			formatRawScores(seg.RawScores),
			seg.Source,
		})
	}
	return rows
}

func formatRawScores(raw map[string]float64) string {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%.2f", key, raw[key]))
	}
	return strings.Join(parts, " ")
}

func newScoresPutCommand(ctx *commandContext) *cobra.Command {
	var mediaID string

	cmd := &cobra.Command{
		Use:   "put <record.json>",
		Short: "Replace the score record for a media item from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read score record: %w", err)
			}
			var record scores.Record
			if err := json.Unmarshal(data, &record); err != nil {
				return fmt.Errorf("decode score record: %w", err)
			}
			if strings.TrimSpace(mediaID) != "" {
				record.MediaID = strings.TrimSpace(mediaID)
			}
			if err := record.Validate(); err != nil {
				return fmt.Errorf("invalid score record: %w", err)
			}

			return ctx.withClient(func(client *api.Client) error {
				summary, err := client.PutScores(cmd.Context(), &record)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %d segments for %s (version %d)\n",
					summary.Segments, summary.MediaID, summary.Version)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mediaID, "media-id", "", "Override the media id from the record file")
	return cmd
}

func newScoresRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <media-id>",
		Short: "Remove the score record for a media item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if err := client.DeleteScores(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed score record for %s\n", args[0])
				return nil
			})
		},
	}
}

func newScoresReloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Rebuild the daemon's score cache from storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				count, err := client.Reload(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reloaded %d score records\n", count)
				return nil
			})
		},
	}
}
