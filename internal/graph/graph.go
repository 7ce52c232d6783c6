// Package graph models the dependency graph between in-review changes and
// discovers it from the server.
package graph

import (
	"slices"

	grerrors "gitgr.dev/gitgr/internal/errors"
	"gitgr.dev/gitgr/internal/gerrit"
	"gitgr.dev/gitgr/internal/output"
)

// ChangeNumber is re-exported for readability in this package
type ChangeNumber = gerrit.ChangeNumber

// Metadata is what the graph remembers about each visited change
type Metadata struct {
	WIP     bool            `json:"wip"`
	Status  gerrit.Status   `json:"status"`
	Owner   gerrit.Author   `json:"owner"`
	ID      gerrit.ChangeID `json:"id"`
	Subject string          `json:"subject,omitempty"`
	Branch  string          `json:"branch,omitempty"`
}

// MetadataFor extracts metadata from a change
func MetadataFor(change *gerrit.Change) Metadata {
	return Metadata{
		WIP:     change.WIP,
		Status:  change.Status,
		Owner:   change.Owner,
		ID:      change.ID,
		Subject: change.Subject,
		Branch:  change.Branch,
	}
}

// DependencyGraph records, for every change, the one change it depends on
// and the changes that depend on it.
//
// ReverseDependencies[P] contains C exactly when Dependencies[C] == P. The
// child lists are kept sorted so serialized graphs are stable.
type DependencyGraph struct {
	Root                ChangeNumber                    `json:"root"`
	Metadata            map[ChangeNumber]Metadata       `json:"metadata"`
	Dependencies        map[ChangeNumber]ChangeNumber   `json:"dependencies"`
	ReverseDependencies map[ChangeNumber][]ChangeNumber `json:"reverse_dependencies"`
}

// New creates an empty graph rooted at root
func New(root ChangeNumber) *DependencyGraph {
	return &DependencyGraph{
		Root:                root,
		Metadata:            make(map[ChangeNumber]Metadata),
		Dependencies:        make(map[ChangeNumber]ChangeNumber),
		ReverseDependencies: make(map[ChangeNumber][]ChangeNumber),
	}
}

func (g *DependencyGraph) init() {
	if g.Metadata == nil {
		g.Metadata = make(map[ChangeNumber]Metadata)
	}
	if g.Dependencies == nil {
		g.Dependencies = make(map[ChangeNumber]ChangeNumber)
	}
	if g.ReverseDependencies == nil {
		g.ReverseDependencies = make(map[ChangeNumber][]ChangeNumber)
	}
}

// Insert records that change depends on parent. A change already recorded
// with a different parent is rejected and the graph is left untouched.
func (g *DependencyGraph) Insert(change, parent ChangeNumber) error {
	g.init()
	if existing, ok := g.Dependencies[change]; ok && existing != parent {
		return grerrors.NewConflictingParentError(uint64(change), uint64(existing), uint64(parent))
	}
	g.Dependencies[change] = parent

	children := g.ReverseDependencies[parent]
	if i, found := slices.BinarySearch(children, change); !found {
		g.ReverseDependencies[parent] = slices.Insert(children, i, change)
	}
	return nil
}

// SetMetadata records metadata for a change
func (g *DependencyGraph) SetMetadata(change ChangeNumber, metadata Metadata) {
	g.init()
	g.Metadata[change] = metadata
}

// DependsOn returns the parent of change, if one is recorded
func (g *DependencyGraph) DependsOn(change ChangeNumber) (ChangeNumber, bool) {
	parent, ok := g.Dependencies[change]
	return parent, ok
}

// NeededBy returns the sorted children of change
func (g *DependencyGraph) NeededBy(change ChangeNumber) []ChangeNumber {
	return slices.Clone(g.ReverseDependencies[change])
}

// DependsOnRoots returns the roots reachable upward from the graph's root
func (g *DependencyGraph) DependsOnRoots() []ChangeNumber {
	return g.DependsOnRootsFrom(g.Root)
}

// DependsOnRootsFrom follows parent links upward from start and returns the
// changes with no recorded parent, sorted
func (g *DependencyGraph) DependsOnRootsFrom(start ChangeNumber) []ChangeNumber {
	var roots []ChangeNumber
	seen := map[ChangeNumber]bool{start: true}
	queue := []ChangeNumber{start}

	for len(queue) > 0 {
		change := queue[0]
		queue = queue[1:]

		parent, ok := g.DependsOn(change)
		if !ok {
			roots = append(roots, change)
			continue
		}
		if !seen[parent] {
			seen[parent] = true
			queue = append(queue, parent)
		}
	}

	slices.Sort(roots)
	return roots
}

// DependencyRoot returns the single root of the graph
func (g *DependencyGraph) DependencyRoot() (ChangeNumber, error) {
	roots := g.DependsOnRoots()
	if len(roots) != 1 {
		candidates := make([]uint64, 0, len(roots))
		for _, root := range roots {
			candidates = append(candidates, uint64(root))
		}
		return 0, grerrors.NewAmbiguousRootError(candidates)
	}
	return roots[0], nil
}

// Walk visits start and then every change reachable through reverse
// dependencies, breadth first. A change is never visited before its parent
// when the parent is reachable from start.
func (g *DependencyGraph) Walk(start ChangeNumber, visit func(ChangeNumber) error) error {
	seen := map[ChangeNumber]bool{start: true}
	queue := []ChangeNumber{start}

	for len(queue) > 0 {
		change := queue[0]
		queue = queue[1:]

		if err := visit(change); err != nil {
			return err
		}

		for _, child := range g.ReverseDependencies[change] {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}
	return nil
}

// FormatTree renders the graph from its root down. A change reachable from
// several parents is rendered under each of them but labeled only once.
func (g *DependencyGraph) FormatTree(label func(ChangeNumber) ([]string, error)) (string, error) {
	root, err := g.DependencyRoot()
	if err != nil {
		return "", err
	}

	nodes := make(map[ChangeNumber]*output.TreeNode)
	node := func(change ChangeNumber) (*output.TreeNode, error) {
		if n, ok := nodes[change]; ok {
			return n, nil
		}
		lines, err := label(change)
		if err != nil {
			return nil, err
		}
		n := output.NewTreeNode(lines...)
		nodes[change] = n
		return n, nil
	}

	err = g.Walk(root, func(change ChangeNumber) error {
		parent, err := node(change)
		if err != nil {
			return err
		}
		for _, child := range g.ReverseDependencies[change] {
			childNode, err := node(child)
			if err != nil {
				return err
			}
			parent.AddChild(childNode)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return nodes[root].String(), nil
}

// Clone returns an independent copy of the graph
func (g *DependencyGraph) Clone() *DependencyGraph {
	clone := New(g.Root)
	for k, v := range g.Metadata {
		clone.Metadata[k] = v
	}
	for k, v := range g.Dependencies {
		clone.Dependencies[k] = v
	}
	for k, v := range g.ReverseDependencies {
		clone.ReverseDependencies[k] = slices.Clone(v)
	}
	return clone
}
