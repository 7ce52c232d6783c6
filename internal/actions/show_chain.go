package actions

import (
	"gitgr.dev/gitgr/internal/graph"
	"gitgr.dev/gitgr/internal/output"
	"gitgr.dev/gitgr/internal/runtime"
)

// ShowChainAction prints the stack containing a change as a tree
func ShowChainAction(ctx *runtime.Context, query string) error {
	change, err := ResolveChange(ctx, query)
	if err != nil {
		return err
	}
	g, err := graph.Build(ctx.Context, ctx.Gerrit, change.Number, ctx.Splog)
	if err != nil {
		return err
	}

	rendered, err := FormatChain(g, change.Number)
	if err != nil {
		return err
	}
	ctx.Splog.Page(rendered)
	return nil
}

// FormatChain renders a graph with each change's status and subject,
// marking current
func FormatChain(g *graph.DependencyGraph, current graph.ChangeNumber) (string, error) {
	return g.FormatTree(func(change graph.ChangeNumber) ([]string, error) {
		metadata := g.Metadata[change]
		label := output.ChangeLabel(change.String(), metadata.Subject)
		if metadata.Status != "" {
			label = output.Status(string(metadata.Status), metadata.WIP) + " " + label
		}
		if change == current {
			label = output.Current(label)
		}
		return []string{label}, nil
	})
}
