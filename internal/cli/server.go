package cli

import (
	"github.com/spf13/cobra"

	"gitgr.dev/gitgr/internal/actions"
	"gitgr.dev/gitgr/internal/cli/helpers"
	"gitgr.dev/gitgr/internal/runtime"
)

func newCliCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cli ARGS...",
		Short: "Run a `gerrit` command on the server over SSH",
		Long: `Run a ` + "`gerrit`" + ` command on the server over SSH.

For example, ` + "`git-gr cli ls-projects`" + ` runs ` + "`ssh HOST gerrit ls-projects`" + `.`,
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.CommandAction(ctx, args)
			})
		},
	}
}

func newAPICmd() *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "api ENDPOINT",
		Short: "Make an authenticated REST API request",
		Long: `Make an authenticated REST API request.

ENDPOINT is relative to the server's /a/ prefix, for example
` + "`changes/?q=owner:self`" + `. Credentials come from ` + "`git credential fill`" + `.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.APIAction(ctx, method, args[0])
			})
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method")

	return cmd
}

func newClearCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "clear-cache",
		Short:        "Forget cached answers from the server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.ClearCacheAction(ctx)
			})
		},
	}
}
