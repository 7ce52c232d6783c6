// Package change provides CLI commands for working with single changes.
package change

import (
	"github.com/spf13/cobra"

	"gitgr.dev/gitgr/internal/actions"
	"gitgr.dev/gitgr/internal/cli/helpers"
	"gitgr.dev/gitgr/internal/runtime"
)

// NewPushCmd creates the push command
func NewPushCmd() *cobra.Command {
	var opts actions.PushOptions

	cmd := &cobra.Command{
		Use:   "push [TARGET]",
		Short: "Push a commit for review",
		Long: `Push a commit for review.

TARGET is the branch the change is reviewed against; it defaults to the
remote's default branch. With --restack, the changes that depend on the pushed
one are restacked onto it afterwards.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.Target = args[0]
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.PushAction(ctx, opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Branch, "branch", "b", "", "Branch or commit to push (defaults to HEAD)")
	cmd.Flags().BoolVar(&opts.Restack, "restack", false, "Restack dependent changes after pushing")

	return cmd
}
