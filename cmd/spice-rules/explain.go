package main

import (
	"fmt"

	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/spf13/cobra"
)

func explainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <payments-file>",
		Short: "Show how each rule evaluated against each payment",
		Long: `Print the full trace of every payment: which rules were walked, how each
condition compared, the actions applied and where processing stopped.`,
		Args: cobra.ExactArgs(1),
		RunE: runExplain,
	}

	cmd.Flags().StringP("marketplace", "m", "", "marketplace scope (default from config)")
	cmd.Flags().String("order", "", "only explain the payment with this order id")
	cmd.Flags().StringSlice("rule", nil, "run only these rule ids (repeatable)")

	return cmd
}

func runExplain(cmd *cobra.Command, args []string) error {
	orderID, _ := cmd.Flags().GetString("order")
	ruleIDs, _ := cmd.Flags().GetStringSlice("rule")
	scope := scopeFlag(cmd)

	ctx := cmd.Context()
	payments, err := readPayments(ctx, args[0])
	if err != nil {
		return err
	}

	repo, closeRepo, err := initRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	rules, err := loadRules(ctx, repo, scope, ruleIDs)
	if err != nil {
		return err
	}
	eng := newEngine(rules)
	r := newRenderer(cmd)

	shown := 0
	for _, p := range payments {
		if orderID != "" && p.MarketplaceOrderID != orderID {
			continue
		}
		if shown > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		if err := r.Trace(p, eng.Process(p, scope)); err != nil {
			return err
		}
		shown++
	}

	if shown == 0 {
		return common.NewUserError(fmt.Sprintf("no payment with order id %q", orderID), common.ErrNotFound)
	}
	return nil
}
