package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Veraticus/spice-rules/internal/cli"
	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/Veraticus/spice-rules/internal/pattern"
	"github.com/Veraticus/spice-rules/internal/repository"
	"github.com/Veraticus/spice-rules/internal/ruleio"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <rules-file>",
		Short: "Import rules from a JSON or YAML document",
		Long: `Validate every rule of an exported document and create the valid ones.
Invalid rules are reported and skipped. A rule equal to one you already have
merges its marketplaces into it instead of being created again.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Bool("dry-run", false, "validate only, create nothing")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("cannot read %s", path), err)
	}

	res := ruleio.Import(data, ruleio.FormatFromPath(path), pattern.NewValidator())
	out := cmd.OutOrStdout()
	for _, msg := range res.Errors {
		fmt.Fprintln(out, cli.FormatWarning(msg))
	}
	if !res.Success {
		return common.NewUserError("no valid rules to import", common.ErrInvalidDocument)
	}

	if dryRun {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d regras válidas", len(res.Rules))))
		return nil
	}

	ctx := cmd.Context()
	repo, closeRepo, err := initRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	var created, merged, skipped int
	for _, draft := range res.Rules {
		_, wasMerged, err := repo.Create(ctx, draft)
		switch {
		case err == nil && wasMerged:
			merged++
		case err == nil:
			created++
		case isSkippable(err):
			skipped++
			fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%s: %v", draft.Name, err)))
		default:
			return fmt.Errorf("failed to import %q: %w", draft.Name, err)
		}
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%d criadas, %d mescladas, %d ignoradas", created, merged, skipped)))
	return nil
}

// isSkippable reports whether one rule failing should not stop the import.
func isSkippable(err error) bool {
	var invalid *repository.InvalidRuleError
	if errors.As(err, &invalid) {
		return true
	}
	_, ok := repository.IsConflict(err)
	return ok
}
