package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-rules/internal/cli"
	"github.com/Veraticus/spice-rules/internal/engine"
	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <payments-file>",
		Short: "Classify payments with the active rules",
		Long: `Run every enabled rule in scope against the payments of a file and
print the tags, flow and review notes of each payment.

Files can be JSON, YAML, CSV or OFX; the extension decides. With --rule the
payments are reprocessed with only the given rules. With --record the match
counts and amounts of each rule are added to its usage metrics.`,
		Args: cobra.ExactArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().StringP("marketplace", "m", "", "marketplace scope (default from config)")
	cmd.Flags().StringP("format", "f", outputTable, "output format (table, json)")
	cmd.Flags().IntP("parallel", "p", 1, "number of workers")
	cmd.Flags().StringSlice("rule", nil, "run only these rule ids (repeatable)")
	cmd.Flags().Bool("record", false, "record rule usage metrics")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	workers, _ := cmd.Flags().GetInt("parallel")
	ruleIDs, _ := cmd.Flags().GetStringSlice("rule")
	record, _ := cmd.Flags().GetBool("record")
	scope := scopeFlag(cmd)

	if err := checkOutputFormat(format); err != nil {
		return err
	}

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

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	runCtx := handler.HandleInterrupts(ctx, record)

	slog.Info("Classifying payments",
		"payments", len(payments),
		"rules", len(rules),
		"scope", scope,
		"workers", workers)

	rows, err := classifyAll(runCtx, eng, payments, scope, workers, format == outputTable && !plain, cmd)
	if err != nil {
		return handler.Wrap(err)
	}

	if record {
		if err := repo.RecordUsage(ctx, usageOf(rows)); err != nil {
			return fmt.Errorf("failed to record rule usage: %w", err)
		}
	}

	if format == outputJSON {
		return writeJSON(cmd.OutOrStdout(), rows)
	}
	return newRenderer(cmd).Results(rows)
}

// classifyAll processes payments and returns them in input order. More than
// one worker runs the batch in parallel.
func classifyAll(ctx context.Context, eng *engine.RuleEngine, payments []model.PaymentInput, scope string, workers int, showProgress bool, cmd *cobra.Command) ([]cli.ClassifiedPayment, error) {
	var progress *cli.Progress
	if showProgress {
		progress = cli.NewProgress(cmd.ErrOrStderr(), len(payments))
	}

	rows := make([]cli.ClassifiedPayment, len(payments))

	if workers <= 1 {
		for i, p := range payments {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rows[i] = cli.ClassifiedPayment{Payment: p, Result: eng.Process(p, scope)}
			if progress != nil {
				progress.Increment()
			}
		}
		finish(progress)
		return rows, nil
	}

	opts := engine.BatchOptions{Workers: workers}
	if progress != nil {
		opts.OnProcessed = progress.Increment
	}
	results, err := eng.ProcessOrdered(ctx, payments, scope, opts)
	if err != nil {
		return nil, err
	}
	finish(progress)

	for i, p := range payments {
		rows[i] = cli.ClassifiedPayment{Payment: p, Result: results[i]}
	}
	return rows, nil
}

func finish(p *cli.Progress) {
	if p != nil {
		p.Finish()
	}
}

// usageOf sums matches and absolute amounts per matched rule.
func usageOf(rows []cli.ClassifiedPayment) map[string]model.RuleUsage {
	usage := make(map[string]model.RuleUsage)
	for _, row := range rows {
		for _, id := range row.Result.MatchedRuleIDs() {
			u := usage[id]
			u.Matches++
			u.Impact = u.Impact.Add(row.Payment.Amount.Abs())
			usage[id] = u
		}
	}
	return usage
}
