package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	grerrors "gitgr.dev/gitgr/internal/errors"
	"gitgr.dev/gitgr/internal/gerrit"
	"gitgr.dev/gitgr/internal/output"
)

// fakeRemote serves changes from memory and counts lookups
type fakeRemote struct {
	changes map[ChangeNumber]*gerrit.Change
	related map[ChangeNumber][]ChangeNumber
	calls   map[string]int
	fail    map[ChangeNumber]error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		changes: make(map[ChangeNumber]*gerrit.Change),
		related: make(map[ChangeNumber][]ChangeNumber),
		calls:   make(map[string]int),
		fail:    make(map[ChangeNumber]error),
	}
}

func refs(numbers ...ChangeNumber) []gerrit.DependencyRef {
	out := make([]gerrit.DependencyRef, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, gerrit.DependencyRef{Number: n})
	}
	return out
}

// add registers an open change with its declared edges
func (f *fakeRemote) add(number ChangeNumber, dependsOn []ChangeNumber, neededBy []ChangeNumber) *gerrit.Change {
	change := &gerrit.Change{
		Number:    number,
		ID:        gerrit.ChangeID(fmt.Sprintf("I%040d", number)),
		Subject:   fmt.Sprintf("change %d", number),
		Branch:    "main",
		Status:    gerrit.StatusNew,
		Open:      true,
		DependsOn: refs(dependsOn...),
		NeededBy:  refs(neededBy...),
	}
	f.changes[number] = change
	return change
}

func (f *fakeRemote) lookup(number ChangeNumber) (*gerrit.Change, error) {
	if err := f.fail[number]; err != nil {
		return nil, err
	}
	change, ok := f.changes[number]
	if !ok {
		return nil, grerrors.ErrChangeNotFound
	}
	return change, nil
}

func (f *fakeRemote) Change(_ context.Context, number ChangeNumber) (*gerrit.Change, error) {
	f.calls[fmt.Sprintf("change %d", number)]++
	return f.lookup(number)
}

func (f *fakeRemote) Dependencies(_ context.Context, number ChangeNumber) (*gerrit.Change, error) {
	f.calls[fmt.Sprintf("dependencies %d", number)]++
	return f.lookup(number)
}

func (f *fakeRemote) RelatedChanges(_ context.Context, number ChangeNumber) (*gerrit.RelatedChangesInfo, error) {
	f.calls[fmt.Sprintf("related %d", number)]++
	info := &gerrit.RelatedChangesInfo{}
	for _, n := range f.related[number] {
		n := n
		info.Changes = append(info.Changes, gerrit.RelatedChange{ChangeNumber: &n})
	}
	return info, nil
}

func build(t *testing.T, remote *fakeRemote, root ChangeNumber) (*DependencyGraph, error) {
	t.Helper()
	return Build(context.Background(), remote, root, output.NewDiscardSplog())
}

func TestBuildChain(t *testing.T) {
	remote := newFakeRemote()
	remote.add(10, nil, []ChangeNumber{11})
	remote.add(11, []ChangeNumber{10}, []ChangeNumber{12})
	remote.add(12, []ChangeNumber{11}, nil)

	for _, start := range []ChangeNumber{10, 11, 12} {
		t.Run(start.String(), func(t *testing.T) {
			g, err := build(t, remote, start)
			require.NoError(t, err)

			require.Equal(t, start, g.Root)
			require.Equal(t, map[ChangeNumber]ChangeNumber{11: 10, 12: 11}, g.Dependencies)
			require.Equal(t, map[ChangeNumber][]ChangeNumber{10: {11}, 11: {12}}, g.ReverseDependencies)
			require.Len(t, g.Metadata, 3)
			require.Equal(t, "change 11", g.Metadata[11].Subject)

			root, err := g.DependencyRoot()
			require.NoError(t, err)
			require.Equal(t, ChangeNumber(10), root)
		})
	}
}

func TestBuildSkipsClosedChanges(t *testing.T) {
	remote := newFakeRemote()
	remote.add(9, nil, []ChangeNumber{10}).Status = gerrit.StatusMerged
	remote.add(10, []ChangeNumber{9}, []ChangeNumber{11, 20})
	remote.add(11, []ChangeNumber{10}, nil)
	remote.add(20, []ChangeNumber{10}, nil).Status = gerrit.StatusAbandoned

	g, err := build(t, remote, 11)
	require.NoError(t, err)

	require.Equal(t, map[ChangeNumber]ChangeNumber{11: 10}, g.Dependencies)
	require.NotContains(t, g.Metadata, ChangeNumber(9))
	require.NotContains(t, g.Metadata, ChangeNumber(20))

	root, err := g.DependencyRoot()
	require.NoError(t, err)
	require.Equal(t, ChangeNumber(10), root)
}

func TestBuildFindsChildrenOfOutdatedPatchsets(t *testing.T) {
	remote := newFakeRemote()
	// 11 was uploaded on top of an older patchset of 10, so 10 does not
	// list it, but the related changes of 10 do.
	remote.add(10, nil, nil)
	remote.add(11, []ChangeNumber{10}, nil)
	remote.add(12, nil, nil)
	remote.related[10] = []ChangeNumber{12, 11, 10}

	g, err := build(t, remote, 10)
	require.NoError(t, err)

	require.Equal(t, []ChangeNumber{11}, g.NeededBy(10))
	require.Equal(t, map[ChangeNumber]ChangeNumber{11: 10}, g.Dependencies)
	require.NotContains(t, g.Metadata, ChangeNumber(12))
}

func TestBuildIgnoresClosedRelatedChanges(t *testing.T) {
	remote := newFakeRemote()
	remote.add(10, nil, nil)
	remote.add(11, []ChangeNumber{10}, nil).Status = gerrit.StatusMerged
	remote.related[10] = []ChangeNumber{10, 11}

	g, err := build(t, remote, 10)
	require.NoError(t, err)
	require.Empty(t, g.Dependencies)
	require.Zero(t, remote.calls["dependencies 11"])
}

func TestBuildConflictingParents(t *testing.T) {
	remote := newFakeRemote()
	remote.add(10, nil, []ChangeNumber{11, 12})
	remote.add(11, []ChangeNumber{10}, nil)
	remote.add(12, nil, []ChangeNumber{11})

	_, err := build(t, remote, 10)
	require.ErrorIs(t, err, grerrors.ErrConflictingParent)

	var conflict *grerrors.ConflictingParentError
	require.True(t, errors.As(err, &conflict))
	require.Equal(t, uint64(11), conflict.Change)
	require.Equal(t, uint64(10), conflict.Existing)
	require.Equal(t, uint64(12), conflict.New)
}

func TestBuildMemoizesRemoteLookups(t *testing.T) {
	remote := newFakeRemote()
	remote.add(10, nil, []ChangeNumber{11, 12})
	remote.add(11, []ChangeNumber{10}, []ChangeNumber{13})
	remote.add(12, []ChangeNumber{10}, nil)
	remote.add(13, []ChangeNumber{11}, nil)
	for _, n := range []ChangeNumber{10, 11, 12, 13} {
		remote.related[n] = []ChangeNumber{10, 11, 12, 13}
	}

	g, err := build(t, remote, 13)
	require.NoError(t, err)
	require.Len(t, g.Metadata, 4)

	for key, count := range remote.calls {
		require.Equal(t, 1, count, "%s looked up %d times", key, count)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	remote := newFakeRemote()
	remote.add(10, nil, []ChangeNumber{13, 11, 12})
	remote.add(11, []ChangeNumber{10}, nil)
	remote.add(12, []ChangeNumber{10}, nil)
	remote.add(13, []ChangeNumber{10}, nil)

	first, err := build(t, remote, 12)
	require.NoError(t, err)
	second, err := build(t, remote, 11)
	require.NoError(t, err)

	require.Equal(t, []ChangeNumber{11, 12, 13}, first.NeededBy(10))
	require.Equal(t, first.Dependencies, second.Dependencies)
	require.Equal(t, first.ReverseDependencies, second.ReverseDependencies)
}

func TestBuildPropagatesRemoteErrors(t *testing.T) {
	remote := newFakeRemote()
	remote.add(10, nil, []ChangeNumber{11})
	remote.add(11, []ChangeNumber{10}, nil)
	boom := errors.New("connection reset")
	remote.fail[11] = boom

	_, err := build(t, remote, 10)
	require.ErrorIs(t, err, boom)
}
