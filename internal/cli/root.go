// Package cli wires the git-gr command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitgr.dev/gitgr/internal/cli/change"
	"gitgr.dev/gitgr/internal/cli/helpers"
	"gitgr.dev/gitgr/internal/cli/navigation"
	"gitgr.dev/gitgr/internal/cli/stack"
	"gitgr.dev/gitgr/internal/output"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "git-gr",
		Short: "git-gr is a command line tool for stacked changes on Gerrit",
		Long: `git-gr is a command line tool for stacked changes on Gerrit.

It discovers the chain of changes a commit belongs to, rebases each change onto
the latest version of its parent, and pushes the results back for review.`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			output.ConfigureColors()
		},
	}

	rootCmd.PersistentFlags().Bool(helpers.DebugFlag, false, "Show debug output")

	// Stack
	rootCmd.AddCommand(stack.NewRestackCmd())
	rootCmd.AddCommand(stack.NewShowChainCmd())

	// Navigation
	rootCmd.AddCommand(navigation.NewUpCmd())
	rootCmd.AddCommand(navigation.NewDownCmd())
	rootCmd.AddCommand(navigation.NewTopCmd())

	// Changes
	rootCmd.AddCommand(change.NewPushCmd())
	rootCmd.AddCommand(change.NewCheckoutCmd())
	rootCmd.AddCommand(change.NewFetchCmd())
	rootCmd.AddCommand(change.NewViewCmd())
	rootCmd.AddCommand(change.NewQueryCmd())

	// Server
	rootCmd.AddCommand(newCliCmd())
	rootCmd.AddCommand(newAPICmd())
	rootCmd.AddCommand(newClearCacheCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}
