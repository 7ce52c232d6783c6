package change

import (
	"github.com/spf13/cobra"

	"gitgr.dev/gitgr/internal/actions"
	"gitgr.dev/gitgr/internal/cli/helpers"
	"gitgr.dev/gitgr/internal/gerrit"
	"gitgr.dev/gitgr/internal/runtime"
)

// NewCheckoutCmd creates the checkout command
func NewCheckoutCmd() *cobra.Command {
	var patchset uint64

	cmd := &cobra.Command{
		Use:          "checkout NUMBER",
		Short:        "Check out a change",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := gerrit.ParseChangeNumber(args[0])
			if err != nil {
				return err
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.CheckoutChange(ctx, number, gerrit.Patchset(patchset))
			})
		},
	}

	cmd.Flags().Uint64VarP(&patchset, "patchset", "p", 0, "Patchset to check out (defaults to the current one)")

	return cmd
}

// NewFetchCmd creates the fetch command
func NewFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "fetch NUMBER",
		Short:        "Fetch a change and print its commit",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := gerrit.ParseChangeNumber(args[0])
			if err != nil {
				return err
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.FetchAction(ctx, number)
			})
		},
	}
}

// NewViewCmd creates the view command
func NewViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view [QUERY]",
		Short: "Open a change in the browser",
		Long: `Open a change in the browser.

QUERY is a change number, a Change-Id or a search query. It defaults to
HEAD's change.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.ViewAction(ctx, query)
			})
		},
	}
}
