// Package stack provides CLI commands for operating on entire stacks.
package stack

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gitgr.dev/gitgr/internal/cli/helpers"
	"gitgr.dev/gitgr/internal/git"
	"gitgr.dev/gitgr/internal/restack"
	"gitgr.dev/gitgr/internal/runtime"
)

// NewRestackCmd creates the restack command and its subcommands
func NewRestackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restack",
		Short: "Rebase each change in a stack onto the latest version of its parent",
		Long: `Rebase each change in a stack onto the latest version of its parent.

The stack containing HEAD's change is discovered from the server, then each
change is cherry-picked onto its updated parent, starting from the changes
based on a branch. If a cherry-pick conflicts, fix the conflicts and run
` + "`git-gr restack continue`" + `, or run ` + "`git-gr restack abort`" + ` to give up.

The rewritten changes are not pushed; run ` + "`git-gr restack push`" + ` afterwards.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return ctx.Restack.Restack(ctx.Context, "HEAD")
			})
		},
	}

	cmd.AddCommand(newContinueCmd())
	cmd.AddCommand(newAbortCmd())
	cmd.AddCommand(newPushCmd())
	cmd.AddCommand(newThisCmd())
	cmd.AddCommand(newWriteTodoCmd())

	return cmd
}

func newContinueCmd() *cobra.Command {
	var (
		inProgressCommit string
		restart          bool
	)

	cmd := &cobra.Command{
		Use:   "continue",
		Short: "Continue a restack halted by a conflict",
		Long: `Continue a restack halted by a conflict.

By default the pending cherry-pick is continued. Use --in-progress-commit to
record a commit you finished by hand, or --restart-in-progress to retry the
conflicting change from scratch.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if inProgressCommit != "" && restart {
				return fmt.Errorf("only one of --in-progress-commit or --restart-in-progress can be specified")
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return ctx.Restack.Continue(ctx.Context, restack.ContinueOptions{
					InProgressCommit:  git.CommitHash(inProgressCommit),
					RestartInProgress: restart,
				})
			})
		},
	}

	cmd.Flags().StringVar(&inProgressCommit, "in-progress-commit", "", "Commit to record for the change that was being restacked")
	cmd.Flags().BoolVar(&restart, "restart-in-progress", false, "Abort the pending cherry-pick and restack that change again")

	return cmd
}

func newAbortCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "abort",
		Short:        "Abort a restack and return to where it started",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return ctx.Restack.Abort(ctx.Context)
			})
		},
	}
}

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "push",
		Short:        "Push the changes rewritten by the last restack",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return ctx.Restack.Push(ctx.Context)
			})
		},
	}
}

func newThisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "this",
		Short: "Rebase HEAD's change onto the latest version of its parent",
		Long: `Rebase HEAD's change onto the latest version of its parent.

Runs an interactive rebase that keeps only the commit carrying HEAD's
Change-Id, so local commits below it are dropped.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return ctx.Restack.This(ctx.Context)
			})
		},
	}
}

func newWriteTodoCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "write-todo PATH",
		Short:        "Write a rebase todo list for `git-gr restack this`",
		Hidden:       true,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changeID := os.Getenv(restack.ChangeIDEnv)
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return ctx.Restack.WriteRebaseTodo(ctx.Context, args[0], changeID)
			})
		},
	}
}
