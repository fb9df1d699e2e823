package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/Veraticus/spice-rules/internal/ruleio"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export your rules to a JSON or YAML document",
		Long: `Write the user rules (built-in rules are never exported) to a document
that 'spice-rules import' can read back.`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}

	cmd.Flags().StringP("marketplace", "m", "", "only export rules covering this marketplace")
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	cmd.Flags().StringP("format", "f", "", "document format (json, yaml; default from the output extension)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	marketplace, _ := cmd.Flags().GetString("marketplace")
	output, _ := cmd.Flags().GetString("output")
	formatName, _ := cmd.Flags().GetString("format")

	format := ruleio.FormatFromPath(output)
	if formatName != "" {
		f, err := ruleio.ParseFormat(formatName)
		if err != nil {
			return common.NewUserError("invalid format", err)
		}
		format = f
	}

	ctx := cmd.Context()
	repo, closeRepo, err := initRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	rules, err := repo.UserRules(ctx, marketplace)
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}

	label := ""
	if marketplace != "" && model.NormalizeScope(marketplace) != model.ScopeAll {
		label = model.NormalizeScope(marketplace)
	}
	doc := ruleio.Export(rules, label, time.Now().UTC())

	if output == "" {
		return ruleio.Encode(cmd.OutOrStdout(), doc, format)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close export file", "path", output, "error", closeErr)
		}
	}()

	if err := ruleio.Encode(f, doc, format); err != nil {
		return err
	}
	slog.Info("Rules exported", "path", output, "rules", len(doc.Rules), "format", format)
	return nil
}
