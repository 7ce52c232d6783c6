package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gitgr.dev/gitgr/internal/cli/helpers"
	"gitgr.dev/gitgr/internal/config"
	"gitgr.dev/gitgr/internal/git"
)

// The config commands only need the repository, so they keep working when no
// Gerrit remote can be detected.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write repository settings",
		Long: `Read and write repository settings.

Known keys: ` + strings.Join(config.Keys, ", ") + `.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:               "get KEY",
		Short:             "Print a setting",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: helpers.CompleteConfigKeys,
		SilenceUsage:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open(cmd.Context(), ".")
			if err != nil {
				return fmt.Errorf("not a git repository: %w", err)
			}
			cfg, err := config.GetRepoConfig(repo.GitDir())
			if err != nil {
				return err
			}
			value, ok, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s is not set", args[0])
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:               "set KEY VALUE",
		Short:             "Change a setting",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: helpers.CompleteConfigKeys,
		SilenceUsage:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open(cmd.Context(), ".")
			if err != nil {
				return fmt.Errorf("not a git repository: %w", err)
			}
			cfg, err := config.GetRepoConfig(repo.GitDir())
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			return config.SaveRepoConfig(repo.GitDir(), cfg)
		},
	})

	return cmd
}
