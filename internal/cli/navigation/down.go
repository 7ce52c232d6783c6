package navigation

import (
	"github.com/spf13/cobra"

	"gitgr.dev/gitgr/internal/actions"
	"gitgr.dev/gitgr/internal/cli/helpers"
	"gitgr.dev/gitgr/internal/runtime"
)

// NewDownCmd creates the down command
func NewDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "down",
		Short:        "Check out the change below this one in the stack",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.NavigateAction(ctx, actions.Down, actions.PromptChange)
			})
		},
	}
}
