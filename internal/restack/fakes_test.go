package restack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	grerrors "gitgr.dev/gitgr/internal/errors"
	"gitgr.dev/gitgr/internal/gerrit"
	"gitgr.dev/gitgr/internal/git"
	"gitgr.dev/gitgr/internal/output"
)

type fakeCommit struct {
	parent   git.CommitHash
	changeID string
}

// fakeVCS is an in-memory commit graph with a HEAD
type fakeVCS struct {
	gitDir   string
	head     git.CommitHash
	branch   string
	branches map[string]git.CommitHash
	refs     map[string]git.CommitHash
	commits  map[git.CommitHash]fakeCommit

	// conflicts makes cherry-picking a commit stop until continued
	conflicts map[git.CommitHash]bool
	picking   git.CommitHash
	next      int

	picks      []git.CommitHash
	fetches    int
	aborts     int
	rebaseOnto git.CommitHash
	rebaseEnv  []string
}

func newFakeVCS(t *testing.T) *fakeVCS {
	return &fakeVCS{
		gitDir:    t.TempDir(),
		branches:  make(map[string]git.CommitHash),
		refs:      make(map[string]git.CommitHash),
		commits:   make(map[git.CommitHash]fakeCommit),
		conflicts: make(map[git.CommitHash]bool),
	}
}

func (f *fakeVCS) add(hash, parent git.CommitHash, changeID string) git.CommitHash {
	f.commits[hash] = fakeCommit{parent: parent, changeID: changeID}
	return hash
}

func (f *fakeVCS) commitOnHead(changeID string) git.CommitHash {
	f.next++
	hash := git.CommitHash(fmt.Sprintf("new%02d%035d", f.next, 0))
	f.add(hash, f.head, changeID)
	f.head = hash
	return hash
}

func (f *fakeVCS) resolve(rev string) (git.CommitHash, error) {
	if base, ok := strings.CutSuffix(rev, "^"); ok {
		commit, err := f.resolve(base)
		if err != nil {
			return "", err
		}
		parent := f.commits[commit].parent
		if parent == "" {
			return "", fmt.Errorf("%s has no parent", rev)
		}
		return parent, nil
	}
	if rev == "HEAD" {
		return f.head, nil
	}
	if commit, ok := f.branches[rev]; ok {
		return commit, nil
	}
	if commit, ok := f.refs[rev]; ok {
		return commit, nil
	}
	if _, ok := f.commits[git.CommitHash(rev)]; ok {
		return git.CommitHash(rev), nil
	}
	return "", fmt.Errorf("unknown revision %s", rev)
}

func (f *fakeVCS) GitDir() string { return f.gitDir }

func (f *fakeVCS) Head(context.Context) (git.CommitHash, error) { return f.head, nil }

func (f *fakeVCS) CurrentBranch() (string, bool) { return f.branch, f.branch != "" }

func (f *fakeVCS) ChangeID(_ context.Context, rev string) (string, error) {
	commit, err := f.resolve(rev)
	if err != nil {
		return "", err
	}
	if id := f.commits[commit].changeID; id != "" {
		return id, nil
	}
	return "", grerrors.ErrNoChangeID
}

func (f *fakeVCS) Fetch(context.Context, string, ...string) (git.CommitHash, error) {
	f.fetches++
	return "", nil
}

func (f *fakeVCS) RevParse(_ context.Context, rev string) (git.CommitHash, error) {
	return f.resolve(rev)
}

func (f *fakeVCS) Checkout(_ context.Context, rev string) error {
	if commit, ok := f.branches[rev]; ok {
		f.head, f.branch = commit, rev
		return nil
	}
	return f.CheckoutDetached(context.Background(), rev)
}

func (f *fakeVCS) CheckoutDetached(_ context.Context, rev string) error {
	commit, err := f.resolve(rev)
	if err != nil {
		return err
	}
	f.head, f.branch = commit, ""
	return nil
}

func (f *fakeVCS) CherryPick(_ context.Context, commit git.CommitHash) error {
	f.picks = append(f.picks, commit)
	if f.conflicts[commit] {
		f.picking = commit
		return grerrors.NewRebaseConflictError(commit.Abbrev(), "CONFLICT (content)")
	}
	f.commitOnHead(f.commits[commit].changeID)
	return nil
}

func (f *fakeVCS) CherryPickContinue(context.Context) error {
	if f.picking == "" {
		return errors.New("no cherry-pick in progress")
	}
	f.commitOnHead(f.commits[f.picking].changeID)
	f.picking = ""
	return nil
}

func (f *fakeVCS) CherryPickAbort(context.Context) error {
	f.aborts++
	f.picking = ""
	return nil
}

func (f *fakeVCS) IsCherryPickInProgress() bool { return f.picking != "" }

func (f *fakeVCS) InteractiveRebase(_ context.Context, onto git.CommitHash, env []string) error {
	f.rebaseOnto = onto
	f.rebaseEnv = env
	return nil
}

type pushed struct {
	commit git.CommitHash
	branch string
}

// fakeRemote serves changes and patchsets from memory
type fakeRemote struct {
	changes     map[ChangeNumber]*gerrit.Change
	current     map[ChangeNumber]git.CommitHash
	pushes      []pushed
	pushErr     map[git.CommitHash]error
	invalidated []ChangeNumber
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		changes: make(map[ChangeNumber]*gerrit.Change),
		current: make(map[ChangeNumber]git.CommitHash),
		pushErr: make(map[git.CommitHash]error),
	}
}

func changeID(number ChangeNumber) string {
	return fmt.Sprintf("I%040d", number)
}

func (f *fakeRemote) add(number ChangeNumber, commit git.CommitHash, parent ChangeNumber) *gerrit.Change {
	change := &gerrit.Change{
		Number:          number,
		ID:              gerrit.ChangeID(changeID(number)),
		Subject:         fmt.Sprintf("change %d", number),
		Branch:          "main",
		Status:          gerrit.StatusNew,
		CurrentPatchSet: &gerrit.PatchSet{Number: 1, Revision: commit.String()},
	}
	f.changes[number] = change
	f.current[number] = commit
	if parent != 0 {
		change.DependsOn = []gerrit.DependencyRef{{Number: parent}}
		p := f.changes[parent]
		p.NeededBy = append(p.NeededBy, gerrit.DependencyRef{Number: number})
	}
	return change
}

func (f *fakeRemote) lookup(number ChangeNumber) (*gerrit.Change, error) {
	change, ok := f.changes[number]
	if !ok {
		return nil, grerrors.ErrChangeNotFound
	}
	return change, nil
}

func (f *fakeRemote) Change(_ context.Context, number ChangeNumber) (*gerrit.Change, error) {
	return f.lookup(number)
}

func (f *fakeRemote) Dependencies(_ context.Context, number ChangeNumber) (*gerrit.Change, error) {
	return f.lookup(number)
}

func (f *fakeRemote) RelatedChanges(context.Context, ChangeNumber) (*gerrit.RelatedChangesInfo, error) {
	return &gerrit.RelatedChangesInfo{}, nil
}

func (f *fakeRemote) Remote() string { return "origin" }

func (f *fakeRemote) GetChange(_ context.Context, key gerrit.ChangeKey) (*gerrit.Change, error) {
	for _, change := range f.changes {
		if key.Kind == gerrit.KeyID && string(change.ID) == key.Value {
			return change, nil
		}
		if key.Kind == gerrit.KeyNumber && change.Number == key.Number {
			return change, nil
		}
	}
	return nil, grerrors.ErrChangeNotFound
}

func (f *fakeRemote) FetchCurrent(_ context.Context, number ChangeNumber) (git.CommitHash, error) {
	commit, ok := f.current[number]
	if !ok {
		return "", grerrors.ErrChangeNotFound
	}
	return commit, nil
}

func (f *fakeRemote) Push(_ context.Context, commit git.CommitHash, branch string) error {
	if err := f.pushErr[commit]; err != nil {
		delete(f.pushErr, commit)
		return err
	}
	f.pushes = append(f.pushes, pushed{commit: commit, branch: branch})
	return nil
}

func (f *fakeRemote) InvalidateChange(number ChangeNumber) {
	f.invalidated = append(f.invalidated, number)
}

func (f *fakeRemote) Pretty(_ context.Context, number ChangeNumber) string {
	return fmt.Sprintf("%d (change %d)", number, number)
}

type fakeCache struct {
	events []string
}

func (f *fakeCache) Detach() error {
	f.events = append(f.events, "detach")
	return nil
}

func (f *fakeCache) Attach() error {
	f.events = append(f.events, "attach")
	return nil
}

// stack is 10 <- 11 <- 12 on top of base, with origin/main moved ahead to
// upstream and HEAD on the feature branch at 12
type stack struct {
	vcs    *fakeVCS
	remote *fakeRemote
	cache  *fakeCache
	engine *Engine
}

const (
	base     git.CommitHash = "base0000000000000000000000000000000000000"
	upstream git.CommitHash = "upstream000000000000000000000000000000000"
	c10      git.CommitHash = "c10aaaaa00000000000000000000000000000000"
	c11      git.CommitHash = "c11bbbbb00000000000000000000000000000000"
	c12      git.CommitHash = "c12ccccc00000000000000000000000000000000"
)

func newStack(t *testing.T) *stack {
	t.Helper()
	vcs := newFakeVCS(t)
	vcs.add(base, "", "")
	vcs.add(upstream, base, "")
	vcs.add(c10, base, changeID(10))
	vcs.add(c11, c10, changeID(11))
	vcs.add(c12, c11, changeID(12))
	vcs.refs["origin/main"] = upstream
	vcs.branches["feature"] = c12
	vcs.head, vcs.branch = c12, "feature"

	remote := newFakeRemote()
	remote.add(10, c10, 0)
	remote.add(11, c11, 10)
	remote.add(12, c12, 11)

	cache := &fakeCache{}
	engine := New(Options{VCS: vcs, Remote: remote, Cache: cache, Splog: output.NewDiscardSplog()})
	return &stack{vcs: vcs, remote: remote, cache: cache, engine: engine}
}
