package actions

import (
	"fmt"

	"gitgr.dev/gitgr/internal/gerrit"
	"gitgr.dev/gitgr/internal/graph"
	"gitgr.dev/gitgr/internal/runtime"
)

// Direction says where a navigation command moves in the stack
type Direction int

const (
	// Up moves to a change that depends on the current one.
	Up Direction = iota
	// Down moves to the change the current one depends on.
	Down
	// Top moves to the last change of the stack.
	Top
)

// NavigateAction checks out a neighbor of HEAD's change
func NavigateAction(ctx *runtime.Context, direction Direction, choose Chooser) error {
	id, err := ctx.Repo.ChangeID(ctx.Context, "HEAD")
	if err != nil {
		return fmt.Errorf("failed to get Change-Id for HEAD: %w", err)
	}
	change, err := ctx.Gerrit.GetChange(ctx.Context, gerrit.IDKey(gerrit.ChangeID(id)))
	if err != nil {
		return err
	}
	g, err := graph.Build(ctx.Context, ctx.Gerrit, change.Number, ctx.Splog)
	if err != nil {
		return err
	}

	target, moved, err := Navigate(g, change.Number, direction, choose)
	if err != nil {
		return err
	}
	if !moved {
		switch direction {
		case Down:
			ctx.Splog.Info("Already at the bottom of the stack.")
		default:
			ctx.Splog.Info("Already at the top of the stack.")
		}
		return nil
	}
	return CheckoutChange(ctx, target, 0)
}

// Navigate finds the change to move to from start. It reports false when
// there is nowhere to go.
func Navigate(g *graph.DependencyGraph, start graph.ChangeNumber, direction Direction, choose Chooser) (graph.ChangeNumber, bool, error) {
	switch direction {
	case Down:
		parent, ok := g.DependsOn(start)
		return parent, ok, nil
	case Up:
		return child(g, start, choose)
	case Top:
		current := start
		seen := map[graph.ChangeNumber]bool{start: true}
		for {
			next, ok, err := child(g, current, choose)
			if err != nil {
				return 0, false, err
			}
			if !ok {
				return current, current != start, nil
			}
			if seen[next] {
				return 0, false, fmt.Errorf("dependency cycle through change %d", next)
			}
			seen[next] = true
			current = next
		}
	default:
		return 0, false, fmt.Errorf("unknown direction %d", direction)
	}
}

func child(g *graph.DependencyGraph, change graph.ChangeNumber, choose Chooser) (graph.ChangeNumber, bool, error) {
	children := g.NeededBy(change)
	switch len(children) {
	case 0:
		return 0, false, nil
	case 1:
		return children[0], true, nil
	}
	selected, err := choose(fmt.Sprintf("Change %d has several children. Which one?", change), children, g)
	if err != nil {
		return 0, false, err
	}
	return selected, true, nil
}
