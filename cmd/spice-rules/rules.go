package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/spice-rules/internal/analysis"
	"github.com/Veraticus/spice-rules/internal/storage"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
		Long: `List, inspect, create, change and audit classification rules.

Built-in rules (ids starting with system_) can only be enabled or disabled.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesShowCmd())
	cmd.AddCommand(rulesCreateCmd())
	cmd.AddCommand(rulesUpdateCmd())
	cmd.AddCommand(rulesToggleCmd(true))
	cmd.AddCommand(rulesToggleCmd(false))
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesLintCmd())
	cmd.AddCommand(rulesHistoryCmd())
	cmd.AddCommand(rulesAnomaliesCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			if err := checkOutputFormat(format); err != nil {
				return err
			}

			ctx := cmd.Context()
			repo, closeRepo, err := initRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			rules, err := repo.Rules(ctx, scopeFlag(cmd))
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			if format == outputJSON {
				return writeJSON(cmd.OutOrStdout(), rules)
			}
			return newRenderer(cmd).Rules(rules)
		},
	}

	cmd.Flags().StringP("marketplace", "m", "", "marketplace scope (default from config)")
	cmd.Flags().StringP("format", "f", outputTable, "output format (table, json)")

	return cmd
}

func rulesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, closeRepo, err := initRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			rule, err := repo.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}
			return newRenderer(cmd).Rule(rule)
		},
	}
}

func rulesLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Look for rules that shadow, duplicate or contradict each other",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			repo, closeRepo, err := initRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			warnings, err := repo.Lint(ctx)
			if err != nil {
				return fmt.Errorf("failed to lint rules: %w", err)
			}
			return newRenderer(cmd).Lint(warnings)
		},
	}
}

func rulesHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "Show the audit log of one rule or of all rules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			id := ""
			if len(args) == 1 {
				id = args[0]
			}

			ctx := cmd.Context()
			repo, closeRepo, err := initRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			entries, err := repo.History(ctx, id, limit)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}
			return newRenderer(cmd).History(entries)
		},
	}

	cmd.Flags().IntP("limit", "n", storage.DefaultAuditLimit, "maximum number of entries")

	return cmd
}

func rulesAnomaliesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "Report rules whose usage looks unusual",
		Long: `Compare the usage metrics recorded by 'classify --record' across the
enabled rules and flag rules that match unusually often, rarely or never, or
that carry a large share of the money classified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			days, _ := cmd.Flags().GetInt("days")
			format, _ := cmd.Flags().GetString("format")
			if err := checkOutputFormat(format); err != nil {
				return err
			}

			ctx := cmd.Context()
			repo, closeRepo, err := initRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			rules, err := repo.UserRules(ctx, "")
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			report := analysis.DetectAnomalies(analysis.FromRules(rules), time.Now(), days)
			if format == outputJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), analysis.NewCLIFormatter().FormatReport(report))
			return err
		},
	}

	cmd.Flags().Int("days", analysis.DefaultDaysBack, "dormancy window in days")
	cmd.Flags().StringP("format", "f", outputTable, "output format (table, json)")

	return cmd
}
