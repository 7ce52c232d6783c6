package graph

import (
	"context"
	"fmt"
	"slices"

	"gitgr.dev/gitgr/internal/gerrit"
	"gitgr.dev/gitgr/internal/output"
)

// Remote answers the questions graph discovery asks the server
type Remote interface {
	Change(ctx context.Context, number gerrit.ChangeNumber) (*gerrit.Change, error)
	Dependencies(ctx context.Context, number gerrit.ChangeNumber) (*gerrit.Change, error)
	RelatedChanges(ctx context.Context, number gerrit.ChangeNumber) (*gerrit.RelatedChangesInfo, error)
}

type directDependencies struct {
	change    *gerrit.Change
	dependsOn []ChangeNumber
	neededBy  []ChangeNumber
}

// Builder discovers a DependencyGraph breadth first from one change.
// Remote answers are memoized per change for the lifetime of the builder.
type Builder struct {
	graph  *DependencyGraph
	remote Remote
	splog  *output.Splog

	dependencies map[ChangeNumber]*directDependencies
	related      map[ChangeNumber][]ChangeNumber
	live         map[ChangeNumber]bool
}

// NewBuilder creates a builder rooted at root
func NewBuilder(remote Remote, root ChangeNumber, splog *output.Splog) *Builder {
	return &Builder{
		graph:        New(root),
		remote:       remote,
		splog:        splog,
		dependencies: make(map[ChangeNumber]*directDependencies),
		related:      make(map[ChangeNumber][]ChangeNumber),
		live:         make(map[ChangeNumber]bool),
	}
}

// Build discovers the graph around root
func Build(ctx context.Context, remote Remote, root ChangeNumber, splog *output.Splog) (*DependencyGraph, error) {
	return NewBuilder(remote, root, splog).Build(ctx)
}

// Build runs the traversal
func (b *Builder) Build(ctx context.Context) (*DependencyGraph, error) {
	root := b.graph.Root
	seen := map[ChangeNumber]bool{root: true}
	queue := []ChangeNumber{root}

	enqueue := func(change ChangeNumber) {
		if !seen[change] {
			seen[change] = true
			queue = append(queue, change)
		}
	}

	for len(queue) > 0 {
		change := queue[0]
		queue = queue[1:]

		indirect, err := b.indirectReverseDependencies(ctx, change)
		if err != nil {
			return nil, err
		}
		deps, err := b.directDependencies(ctx, change)
		if err != nil {
			return nil, err
		}
		b.graph.SetMetadata(change, MetadataFor(deps.change))

		b.splog.Debug("Change %d depends on %v, needed by %v, indirectly needed by %v", change, deps.dependsOn, deps.neededBy, indirect)

		for _, parent := range deps.dependsOn {
			if err := b.graph.Insert(change, parent); err != nil {
				return nil, err
			}
			enqueue(parent)
		}

		for _, child := range union(deps.neededBy, indirect) {
			if err := b.graph.Insert(child, change); err != nil {
				return nil, err
			}
			enqueue(child)
		}
	}

	return b.graph, nil
}

// isLive reports whether a change is still under review
func (b *Builder) isLive(ctx context.Context, number ChangeNumber) (bool, error) {
	if live, ok := b.live[number]; ok {
		return live, nil
	}
	change, err := b.remote.Change(ctx, number)
	if err != nil {
		return false, fmt.Errorf("failed to get change %d: %w", number, err)
	}
	live := change.Status == gerrit.StatusNew
	b.live[number] = live
	return live, nil
}

func (b *Builder) filterLive(ctx context.Context, numbers []ChangeNumber) ([]ChangeNumber, error) {
	var live []ChangeNumber
	for _, number := range numbers {
		ok, err := b.isLive(ctx, number)
		if err != nil {
			return nil, err
		}
		if ok {
			live = append(live, number)
		} else {
			b.splog.Debug("Skipping closed change %d", number)
		}
	}
	slices.Sort(live)
	return slices.Compact(live), nil
}

// directDependencies returns the change's declared parent and children,
// restricted to changes that are still open
func (b *Builder) directDependencies(ctx context.Context, number ChangeNumber) (*directDependencies, error) {
	if deps, ok := b.dependencies[number]; ok {
		return deps, nil
	}

	change, err := b.remote.Dependencies(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get change dependencies: %w", err)
	}
	b.live[number] = change.Status == gerrit.StatusNew

	dependsOn, err := b.filterLive(ctx, change.DependsOnNumbers())
	if err != nil {
		return nil, err
	}
	neededBy, err := b.filterLive(ctx, change.NeededByNumbers())
	if err != nil {
		return nil, err
	}

	deps := &directDependencies{change: change, dependsOn: dependsOn, neededBy: neededBy}
	b.dependencies[number] = deps
	return deps, nil
}

func (b *Builder) relatedChanges(ctx context.Context, number ChangeNumber) ([]ChangeNumber, error) {
	if related, ok := b.related[number]; ok {
		return related, nil
	}
	info, err := b.remote.RelatedChanges(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get related changes: %w", err)
	}
	related := info.ChangeNumbers()
	slices.Sort(related)
	b.related[number] = related
	return related, nil
}

// indirectReverseDependencies finds children that the depends-on query
// misses.
//
// When B depends on an outdated patchset of A, querying A with
// --dependencies does not list B, but A's related changes do, and querying B
// still names A as its parent. So: R is needed by C when R is related to C
// and R's own dependencies name C.
func (b *Builder) indirectReverseDependencies(ctx context.Context, change ChangeNumber) ([]ChangeNumber, error) {
	related, err := b.relatedChanges(ctx, change)
	if err != nil {
		return nil, err
	}

	var indirect []ChangeNumber
	for _, candidate := range related {
		if candidate == change {
			continue
		}
		live, err := b.isLive(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if !live {
			continue
		}
		deps, err := b.directDependencies(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if slices.Contains(deps.dependsOn, change) {
			indirect = append(indirect, candidate)
		}
	}
	return indirect, nil
}

func union(a, b []ChangeNumber) []ChangeNumber {
	out := append(slices.Clone(a), b...)
	slices.Sort(out)
	return slices.Compact(out)
}
