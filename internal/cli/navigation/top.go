package navigation

import (
	"github.com/spf13/cobra"

	"gitgr.dev/gitgr/internal/actions"
	"gitgr.dev/gitgr/internal/cli/helpers"
	"gitgr.dev/gitgr/internal/runtime"
)

// NewTopCmd creates the top command
func NewTopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "top",
		Short: "Check out the top-most change in the stack",
		Long: `Check out the top-most change in the stack. Prompts if ambiguous.

This command follows the changes that depend on the current one until it
reaches a change nothing depends on. If several children exist at any level,
you will be prompted to select which one to follow.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.NavigateAction(ctx, actions.Top, actions.PromptChange)
			})
		},
	}
}
