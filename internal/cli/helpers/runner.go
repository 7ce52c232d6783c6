// Package helpers provides shared helper functions for CLI commands.
package helpers

import (
	"github.com/spf13/cobra"

	"gitgr.dev/gitgr/internal/runtime"
)

// DebugFlag is the persistent flag that turns on debug output
const DebugFlag = "debug"

// Run is a helper that provides a runtime context to a command's execution function
func Run(cmd *cobra.Command, fn func(ctx *runtime.Context) error) (err error) {
	debug, _ := cmd.Flags().GetBool(DebugFlag)
	ctx, err := runtime.GetContext(cmd.Context(), runtime.Options{Debug: debug})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := ctx.Close(); closeErr != nil && err == nil {
			ctx.Splog.Debug("Failed to close context: %v", closeErr)
		}
	}()
	return fn(ctx)
}
