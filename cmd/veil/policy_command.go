package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"veil/internal/config"
)

func newPolicyCommand(ctx *commandContext) *cobra.Command {
	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and bootstrap the filter policy",
	}

	policyCmd.AddCommand(newPolicyShowCommand(ctx))
	policyCmd.AddCommand(newPolicyInitCommand(ctx))

	return policyCmd
}

func newPolicyShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the filter policy currently on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			policy, err := config.LoadPolicy(cfg.Paths.PolicyPath)
			if err != nil {
				return fmt.Errorf("load policy: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Policy file: %s\n", cfg.Paths.PolicyPath)
			fmt.Fprintf(out, "Viewer feedback: %s\n", yesNo(policy.Feedback))

			names := make([]string, 0, len(policy.Categories))
			for name := range policy.Categories {
				names = append(names, name)
			}
			sort.Strings(names)
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				cat := policy.Categories[name]
				rows = append(rows, []string{
					name,
					yesNo(cat.Enabled),
					fmt.Sprintf("%.2f", cat.Threshold),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]tableColumn{col("Category"), col("Enabled"), numCol("Threshold")},
				rows,
			))
			return nil
		},
	}
}

func newPolicyInitCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample filter policy file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := cfg.Paths.PolicyPath

			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create policy directory: %w", err)
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("policy file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check policy path: %w", err)
				}
			}
			if err := config.CreateSamplePolicy(target); err != nil {
				return fmt.Errorf("create sample policy: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample filter policy to %s\n", target)
			fmt.Fprintln(cmd.OutOrStdout(), "Enable categories and tune thresholds; changes apply on the next poll without a restart.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing policy if present")
	return cmd
}
