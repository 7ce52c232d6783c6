package helpers

import (
	"github.com/spf13/cobra"

	"gitgr.dev/gitgr/internal/config"
)

// CompleteConfigKeys is a cobra.ValidArgsFunction that returns the known
// config keys for the first argument
func CompleteConfigKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return config.Keys, cobra.ShellCompDirectiveNoFileComp
}
