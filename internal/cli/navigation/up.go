// Package navigation provides CLI commands for moving around a stack.
package navigation

import (
	"github.com/spf13/cobra"

	"gitgr.dev/gitgr/internal/actions"
	"gitgr.dev/gitgr/internal/cli/helpers"
	"gitgr.dev/gitgr/internal/runtime"
)

// NewUpCmd creates the up command
func NewUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Check out the next change above this one in the stack",
		Long: `Check out the next change above this one in the stack.

If several changes depend on the current one, you will be prompted to select one.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.NavigateAction(ctx, actions.Up, actions.PromptChange)
			})
		},
	}
}
