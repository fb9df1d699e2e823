package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/spice-rules/internal/classification"
	"github.com/Veraticus/spice-rules/internal/cli"
	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/Veraticus/spice-rules/internal/repository"
	"github.com/spf13/cobra"
)

func rulesCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [rule-file]",
		Short: "Create a rule from a file or a template",
		Long: `Create a rule from a JSON or YAML file, or from a template with --template.
Flags override the matching fields of either source.

A rule with the same conditions and actions as an existing rule is merged
into it: the existing rule gains the new marketplaces.`,
		Example: `  spice-rules rules create frete.yaml
  spice-rules rules create --template template_high_value --name "Alto valor Shopee" -m shopee`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRulesCreate,
	}

	cmd.Flags().String("template", "", "template id (see 'spice-rules templates')")
	cmd.Flags().String("name", "", "rule name")
	cmd.Flags().StringSliceP("marketplace", "m", nil, "marketplaces the rule applies to (repeatable)")
	cmd.Flags().Int("priority", 0, "priority from 1 to 100")
	cmd.Flags().Bool("disabled", false, "create the rule disabled")

	return cmd
}

func draftOverrides(cmd *cobra.Command) model.RuleDraft {
	var d model.RuleDraft
	d.Name, _ = cmd.Flags().GetString("name")
	d.Marketplaces, _ = cmd.Flags().GetStringSlice("marketplace")
	d.Priority, _ = cmd.Flags().GetInt("priority")
	if disabled, _ := cmd.Flags().GetBool("disabled"); disabled {
		enabled := false
		d.Enabled = &enabled
	}
	return d
}

func runRulesCreate(cmd *cobra.Command, args []string) error {
	templateID, _ := cmd.Flags().GetString("template")
	overrides := draftOverrides(cmd)

	var draft model.RuleDraft
	switch {
	case templateID != "" && len(args) == 1:
		return common.NewUserError("use either a rule file or --template", common.ErrInvalidRule)
	case templateID != "":
		tpl, ok := classification.TemplateByID(templateID)
		if !ok {
			return common.NewUserError(fmt.Sprintf("unknown template %q", templateID), common.ErrNotFound)
		}
		draft = tpl.ToDraft(overrides)
	case len(args) == 1:
		d, err := readDraft(args[0])
		if err != nil {
			return err
		}
		draft = applyOverrides(d, overrides)
	default:
		return common.NewUserError("a rule file or --template is required", common.ErrInvalidRule)
	}

	ctx := cmd.Context()
	repo, closeRepo, err := initRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	rule, merged, err := repo.Create(ctx, draft)
	if err != nil {
		return explainRuleError(err)
	}

	out := cmd.OutOrStdout()
	if merged {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Regra equivalente já existe; marketplaces mesclados em %s (%s)", rule.Name, rule.ID)))
		return nil
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Regra criada: %s (%s)", rule.Name, rule.ID)))
	return nil
}

func applyOverrides(d, o model.RuleDraft) model.RuleDraft {
	if o.Name != "" {
		d.Name = o.Name
	}
	if len(o.Marketplaces) > 0 {
		d.Marketplaces = model.NormalizeMarketplaces(o.Marketplaces)
	}
	if o.Priority != 0 {
		d.Priority = o.Priority
	}
	if o.Enabled != nil {
		d.Enabled = o.Enabled
	}
	return d
}

func rulesUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id> <rule-file>",
		Short: "Replace a rule with the contents of a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := readDraft(args[1])
			if err != nil {
				return err
			}
			draft = applyOverrides(draft, draftOverrides(cmd))

			ctx := cmd.Context()
			repo, closeRepo, err := initRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			rule, err := repo.Update(ctx, args[0], draft)
			if err != nil {
				return explainRuleError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Regra atualizada: %s (%s)", rule.Name, rule.ID)))
			return nil
		},
	}

	cmd.Flags().String("name", "", "rule name")
	cmd.Flags().StringSliceP("marketplace", "m", nil, "marketplaces the rule applies to (repeatable)")
	cmd.Flags().Int("priority", 0, "priority from 1 to 100")
	cmd.Flags().Bool("disabled", false, "store the rule disabled")

	return cmd
}

func rulesToggleCmd(enable bool) *cobra.Command {
	use, short, done := "disable <id>", "Disable a rule", "Regra desativada"
	if enable {
		use, short, done = "enable <id>", "Enable a rule", "Regra ativada"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, closeRepo, err := initRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			rule, err := repo.SetEnabled(ctx, args[0], enable)
			if err != nil {
				return explainRuleError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s: %s (%s)", done, rule.Name, rule.ID)))
			return nil
		},
	}
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, closeRepo, err := initRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			if err := repo.Delete(ctx, args[0]); err != nil {
				return explainRuleError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Regra excluída: "+args[0]))
			return nil
		},
	}
}

// explainRuleError turns repository errors into messages for people.
func explainRuleError(err error) error {
	var invalid *repository.InvalidRuleError
	if errors.As(err, &invalid) {
		return common.NewUserError("regra inválida: "+invalid.Result.Messages(), err)
	}
	if conflict, ok := repository.IsConflict(err); ok {
		return common.NewUserError(fmt.Sprintf("conflita com a regra %q (%s)", conflict.Existing.Name, conflict.Existing.ID), err)
	}
	switch {
	case errors.Is(err, common.ErrSystemRuleImmutable):
		return common.NewUserError("regras do sistema só podem ser ativadas ou desativadas", err)
	case errors.Is(err, common.ErrNotFound):
		return common.NewUserError("regra não encontrada", err)
	}
	return err
}
