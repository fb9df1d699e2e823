package main

import (
	"fmt"

	"github.com/Veraticus/spice-rules/internal/classification"
	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/spf13/cobra"
)

func templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates [category]",
		Short: "List the rule templates",
		Long: `List ready-made rules grouped by category (expenses, adjustments, income,
alerts). Create a rule from one with 'spice-rules rules create --template <id>'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := ""
			if len(args) == 1 {
				category = args[0]
				if len(classification.TemplatesByCategory(classification.TemplateCategory(category))) == 0 {
					return common.NewUserError(fmt.Sprintf("unknown template category %q", category), common.ErrNotFound)
				}
			}
			return newRenderer(cmd).Templates(category)
		},
	}
}
