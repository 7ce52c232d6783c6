package change

import (
	"strings"

	"github.com/spf13/cobra"

	"gitgr.dev/gitgr/internal/actions"
	"gitgr.dev/gitgr/internal/cli/helpers"
	"gitgr.dev/gitgr/internal/runtime"
)

// NewQueryCmd creates the query command
func NewQueryCmd() *cobra.Command {
	var opts actions.QueryOptions

	cmd := &cobra.Command{
		Use:   "query [QUERY]",
		Short: "Query changes",
		Long: `Query changes.

Without a query or flags, open changes that are not work in progress are
listed.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Query = strings.Join(args, " ")
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.QueryAction(ctx, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Mine, "mine", false, "Show changes you own (adds 'is:open owner:self')")
	cmd.Flags().BoolVar(&opts.NeedsReview, "needs-review", false, "Show changes by others that need review (adds 'is:open -owner:self -is:wip -is:reviewed')")

	return cmd
}
