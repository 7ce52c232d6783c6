package stack

import (
	"github.com/spf13/cobra"

	"gitgr.dev/gitgr/internal/actions"
	"gitgr.dev/gitgr/internal/cli/helpers"
	"gitgr.dev/gitgr/internal/runtime"
)

// NewShowChainCmd creates the show-chain command
func NewShowChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-chain [QUERY]",
		Short: "Show the stack a change belongs to",
		Long: `Show the stack a change belongs to.

QUERY is a change number, a Change-Id or a search query. It defaults to
HEAD's change.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.ShowChainAction(ctx, firstArg(args))
			})
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
