package main

import (
	"time"

	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/Veraticus/spice-rules/internal/engine"
	"github.com/Veraticus/spice-rules/internal/pattern"
	"github.com/spf13/cobra"
)

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <rule-file> <payments-file>",
		Short: "Preview a rule against payments without saving it",
		Long: `Run a single rule, in isolation, against a payments file and report how
many payments it would match and the money involved. Nothing is stored.`,
		Args: cobra.ExactArgs(2),
		RunE: runSimulate,
	}

	cmd.Flags().StringP("marketplace", "m", "", "marketplace scope (default from config)")
	cmd.Flags().StringP("format", "f", outputTable, "output format (table, json)")

	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkOutputFormat(format); err != nil {
		return err
	}

	draft, err := readDraft(args[0])
	if err != nil {
		return err
	}

	v := pattern.NewValidator()
	if res := v.Validate(draft); !res.Valid {
		return common.NewUserError("invalid rule: "+res.Messages(), common.ErrInvalidRule)
	}
	rule := v.Sanitize(draft).ToRule(engine.SimulatedRuleID, time.Now())

	payments, err := readPayments(cmd.Context(), args[1])
	if err != nil {
		return err
	}

	report := engine.Simulate(rule, payments, scopeFlag(cmd))
	if format == outputJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	return newRenderer(cmd).Simulation(report)
}
