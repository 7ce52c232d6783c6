// Package restack rewrites a stack of changes onto the latest revisions of
// their parents and uploads the result. Progress is persisted under the git
// directory after every step so a restack survives conflicts and restarts.
package restack

import (
	"context"
	"errors"
	"fmt"
	"slices"

	grerrors "gitgr.dev/gitgr/internal/errors"
	"gitgr.dev/gitgr/internal/gerrit"
	"gitgr.dev/gitgr/internal/git"
	"gitgr.dev/gitgr/internal/graph"
	"gitgr.dev/gitgr/internal/output"
)

// ContinueMessage tells the user how to get out of a stopped restack
const ContinueMessage = "Fix conflicts and then use `git-gr restack continue` to keep going. Alternatively, use `git-gr restack abort` to quit the restack."

// DefaultSequenceEditor is run by `git rebase --interactive` during `restack this`
const DefaultSequenceEditor = "git-gr restack write-todo"

// ChangeIDEnv carries the Change-Id to keep into the sequence editor
const ChangeIDEnv = "GIT_GR_RESTACK_CHANGE_ID"

// VCS is the working copy a restack rewrites
type VCS interface {
	GitDir() string
	Head(ctx context.Context) (git.CommitHash, error)
	CurrentBranch() (string, bool)
	ChangeID(ctx context.Context, rev string) (string, error)
	Fetch(ctx context.Context, remote string, refspecs ...string) (git.CommitHash, error)
	RevParse(ctx context.Context, rev string) (git.CommitHash, error)
	Checkout(ctx context.Context, rev string) error
	CheckoutDetached(ctx context.Context, rev string) error
	CherryPick(ctx context.Context, commit git.CommitHash) error
	CherryPickContinue(ctx context.Context) error
	CherryPickAbort(ctx context.Context) error
	IsCherryPickInProgress() bool
	InteractiveRebase(ctx context.Context, onto git.CommitHash, env []string) error
}

// Remote is the review server, seen through its cache
type Remote interface {
	graph.Remote
	Remote() string
	GetChange(ctx context.Context, key gerrit.ChangeKey) (*gerrit.Change, error)
	FetchCurrent(ctx context.Context, number gerrit.ChangeNumber) (git.CommitHash, error)
	Push(ctx context.Context, commit git.CommitHash, branch string) error
	InvalidateChange(number gerrit.ChangeNumber)
	Pretty(ctx context.Context, number gerrit.ChangeNumber) string
}

// Cache is released while a child git-gr process runs
type Cache interface {
	Detach() error
	Attach() error
}

// Options configures an Engine
type Options struct {
	VCS    VCS
	Remote Remote
	Cache  Cache
	Splog  *output.Splog
	// SequenceEditor defaults to DefaultSequenceEditor.
	SequenceEditor string
}

// ContinueOptions says how to finish the step that stopped on a conflict
type ContinueOptions struct {
	// InProgressCommit is the result of a conflict resolved outside git-gr.
	InProgressCommit git.CommitHash
	// RestartInProgress abandons the stopped step and runs it again.
	RestartInProgress bool
}

// Engine drives restacks and pushes for one repository
type Engine struct {
	vcs            VCS
	remote         Remote
	cache          Cache
	splog          *output.Splog
	sequenceEditor string
	gitDir         string

	// fetched is set once the remote has been fetched for root steps
	fetched bool
}

// New creates an engine
func New(opts Options) *Engine {
	editor := opts.SequenceEditor
	if editor == "" {
		editor = DefaultSequenceEditor
	}
	splog := opts.Splog
	if splog == nil {
		splog = output.NewSplog()
	}
	return &Engine{
		vcs:            opts.VCS,
		remote:         opts.Remote,
		cache:          opts.Cache,
		splog:          splog,
		sequenceEditor: editor,
		gitDir:         opts.VCS.GitDir(),
	}
}

// CreateTodo plans a restack of the stack containing ref and persists it
func (e *Engine) CreateTodo(ctx context.Context, ref string) (*Todo, error) {
	path := TodoPath(e.gitDir)
	if exists(path) {
		return nil, fmt.Errorf("%w at `%s`", grerrors.ErrTodoAlreadyExists, path)
	}

	changeID, err := e.vcs.ChangeID(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to get Change-Id for %s: %w", ref, err)
	}
	change, err := e.remote.GetChange(ctx, gerrit.IDKey(gerrit.ChangeID(changeID)))
	if err != nil {
		return nil, err
	}

	g, err := graph.Build(ctx, e.remote, change.Number, e.splog)
	if err != nil {
		return nil, err
	}

	before, err := e.before(ctx)
	if err != nil {
		return nil, err
	}

	todo := &Todo{Before: before, Graph: g}
	todo.init()
	todo.Steps, err = e.plan(ctx, g)
	if err != nil {
		return nil, err
	}

	if err := SaveTodo(e.gitDir, todo); err != nil {
		return nil, err
	}
	return todo, nil
}

// before records HEAD so it can be restored once the restack finishes
func (e *Engine) before(ctx context.Context) (Before, error) {
	head, err := e.vcs.Head(ctx)
	if err != nil {
		return Before{}, err
	}
	before := Before{Commit: head}
	if branch, ok := e.vcs.CurrentBranch(); ok {
		before.Branch = branch
	}

	changeID, err := e.vcs.ChangeID(ctx, "HEAD")
	if err != nil {
		e.splog.Debug("HEAD is not a change: %v", err)
		return before, nil
	}
	change, err := e.remote.GetChange(ctx, gerrit.IDKey(gerrit.ChangeID(changeID)))
	if err != nil {
		e.splog.Debug("Could not find change for HEAD: %v", err)
		return before, nil
	}
	before.Change = &change.Number
	return before, nil
}

// plan walks the graph from each root so every change is queued after its
// parent. Roots go onto their target branch, everything else onto its parent.
func (e *Engine) plan(ctx context.Context, g *graph.DependencyGraph) ([]Step, error) {
	roots := g.DependsOnRoots()
	if len(roots) == 0 {
		return nil, grerrors.NewAmbiguousRootError(nil)
	}

	var steps []Step
	for _, root := range roots {
		err := g.Walk(root, func(number ChangeNumber) error {
			var step Step
			if slices.Contains(roots, number) {
				change, err := e.remote.Change(ctx, number)
				if err != nil {
					return err
				}
				step = Step{Change: number, Onto: OntoBranch(e.remote.Remote(), change.Branch)}
			} else {
				parent, ok := g.DependsOn(number)
				if !ok {
					return fmt.Errorf("change %d does not have a parent", number)
				}
				step = Step{Change: number, Onto: OntoChange(parent)}
			}
			e.splog.Debug("Discovered restack step %s", step)
			steps = append(steps, step)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return steps, nil
}

// Restack continues the restack in progress, or starts one for the stack
// containing ref
func (e *Engine) Restack(ctx context.Context, ref string) error {
	todo, err := LoadTodo(e.gitDir)
	switch {
	case errors.Is(err, grerrors.ErrNoRestackTodo):
		todo, err = e.CreateTodo(ctx, ref)
		if err != nil {
			return err
		}
	case err != nil:
		return err
	case todo.InProgress != nil:
		return e.resume(ctx, todo, ContinueOptions{})
	}
	return e.run(ctx, todo)
}

// Continue finishes the step that stopped on a conflict and runs the rest
func (e *Engine) Continue(ctx context.Context, opts ContinueOptions) error {
	todo, err := LoadTodo(e.gitDir)
	if err != nil {
		return err
	}
	if todo.InProgress == nil {
		return e.run(ctx, todo)
	}
	return e.resume(ctx, todo, opts)
}

func (e *Engine) resume(ctx context.Context, todo *Todo, opts ContinueOptions) error {
	in := todo.InProgress
	switch {
	case opts.RestartInProgress:
		e.splog.Info("Restarting restack of %s", in.Step)
		if e.vcs.IsCherryPickInProgress() {
			if err := e.vcs.CherryPickAbort(ctx); err != nil {
				return err
			}
		}
		todo.Steps = append([]Step{in.Step}, todo.Steps...)

	case opts.InProgressCommit != "":
		commit, err := e.vcs.RevParse(ctx, opts.InProgressCommit.String())
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", opts.InProgressCommit, err)
		}
		// The recorded commit replaces whatever the stopped cherry-pick left behind.
		if e.vcs.IsCherryPickInProgress() {
			e.splog.Info("Aborting the pending cherry-pick of %s", in.Step)
			if err := e.vcs.CherryPickAbort(ctx); err != nil {
				return err
			}
		}
		todo.Refs[in.Step.Change] = RefUpdate{Old: in.OldHead, New: commit}

	default:
		e.splog.Info("Continuing to restack %s", in.Step)
		if !e.vcs.IsCherryPickInProgress() {
			return errors.New("no cherry-pick is in progress; use `--in-progress-commit` to record the resolved commit or `--restart-in-progress` to redo the step")
		}
		if err := e.vcs.CherryPickContinue(ctx); err != nil {
			return fmt.Errorf("%w\n%s", err, ContinueMessage)
		}
		head, err := e.vcs.Head(ctx)
		if err != nil {
			return err
		}
		todo.Refs[in.Step.Change] = RefUpdate{Old: in.OldHead, New: head}
	}

	todo.InProgress = nil
	if err := SaveTodo(e.gitDir, todo); err != nil {
		return err
	}
	return e.run(ctx, todo)
}

// Abort drops the restack in progress and puts HEAD back where it was
func (e *Engine) Abort(ctx context.Context) error {
	todo, loadErr := LoadTodo(e.gitDir)
	if err := removeState(TodoPath(e.gitDir)); err != nil {
		return err
	}
	if e.vcs.IsCherryPickInProgress() {
		if err := e.vcs.CherryPickAbort(ctx); err != nil {
			return err
		}
	}

	switch {
	case errors.Is(loadErr, grerrors.ErrNoRestackTodo):
		e.splog.Info("No restack in progress")
	case loadErr != nil:
		e.splog.Warn("Removed unreadable restack todo: %v", loadErr)
	default:
		e.restoreBefore(ctx, todo.Before, nil)
		e.splog.Info("Aborted restack")
	}
	return nil
}

func (e *Engine) run(ctx context.Context, todo *Todo) error {
	tree, err := e.formatTree(todo.Graph, todo.Refs)
	if err != nil {
		return err
	}
	if len(todo.Refs) == 0 {
		e.splog.Info("Restacking changes:\n%s", tree)
	} else {
		e.splog.Info("Continuing to restack changes:\n%s", tree)
	}

	for len(todo.Steps) > 0 {
		step := todo.Steps[0]
		todo.Steps = todo.Steps[1:]

		oldHead, err := e.performStep(ctx, todo, step)
		if err != nil {
			return e.stepFailed(todo, step, oldHead, err)
		}
		if err := SaveTodo(e.gitDir, todo); err != nil {
			return err
		}
	}

	return e.complete(ctx, todo)
}

// performStep rewrites one change onto its target and records the result.
// The change's commit before the rewrite is returned even on failure.
func (e *Engine) performStep(ctx context.Context, todo *Todo, step Step) (git.CommitHash, error) {
	var target git.CommitHash
	var targetName string

	if step.Onto.IsBranch() {
		if !e.fetched {
			if _, err := e.vcs.Fetch(ctx, step.Onto.Remote); err != nil {
				return "", err
			}
			e.fetched = true
		}
		commit, err := e.vcs.RevParse(ctx, step.Onto.Remote+"/"+step.Onto.Branch)
		if err != nil {
			return "", err
		}
		target = commit
		targetName = step.Onto.Branch
	} else {
		parent := *step.Onto.Parent
		if update, ok := todo.Refs[parent]; ok {
			e.splog.Debug("Updated ref for %d: %s", parent, update)
			target = update.New
		} else {
			commit, err := e.remote.FetchCurrent(ctx, parent)
			if err != nil {
				return "", err
			}
			e.splog.Debug("Fetched ref for %d: %s", parent, commit.Abbrev())
			target = commit
		}
		targetName = e.remote.Pretty(ctx, parent)
	}

	oldHead, err := e.remote.FetchCurrent(ctx, step.Change)
	if err != nil {
		return "", err
	}
	changeName := e.remote.Pretty(ctx, step.Change)

	if parent, err := e.vcs.RevParse(ctx, oldHead.String()+"^"); err == nil && parent == target {
		e.splog.Info("Change %s is already on %s", changeName, targetName)
		todo.Refs[step.Change] = RefUpdate{Old: oldHead, New: oldHead}
		return oldHead, nil
	}

	if err := e.vcs.CheckoutDetached(ctx, target.String()); err != nil {
		return oldHead, err
	}
	e.splog.Info("Restacking change %s on %s", changeName, targetName)
	if err := e.vcs.CherryPick(ctx, oldHead); err != nil {
		return oldHead, err
	}
	newHead, err := e.vcs.Head(ctx)
	if err != nil {
		return oldHead, err
	}
	todo.Refs[step.Change] = RefUpdate{Old: oldHead, New: newHead}
	return oldHead, nil
}

// stepFailed persists the todo so the restack can be picked up again. A
// conflict leaves the step in progress; anything else puts it back in front.
func (e *Engine) stepFailed(todo *Todo, step Step, oldHead git.CommitHash, cause error) error {
	if errors.Is(cause, grerrors.ErrRebaseConflict) {
		todo.InProgress = &InProgress{Step: step, OldHead: oldHead}
	} else {
		todo.Steps = append([]Step{step}, todo.Steps...)
	}
	if err := SaveTodo(e.gitDir, todo); err != nil {
		return errors.Join(fmt.Errorf("failed to restack %s: %w", step, cause), err)
	}
	return fmt.Errorf("failed to restack %s: %w\n%s", step, cause, ContinueMessage)
}

func (e *Engine) complete(ctx context.Context, todo *Todo) error {
	push := NewPushTodo(todo)
	if !push.IsEmpty() {
		if err := SavePushTodo(e.gitDir, push); err != nil {
			return err
		}
	}
	if err := removeState(TodoPath(e.gitDir)); err != nil {
		return err
	}

	e.restoreBefore(ctx, todo.Before, todo.Refs)

	if push.IsEmpty() {
		e.splog.Info("Restack completed; no changes, so no push is necessary")
		return nil
	}

	tree, err := e.formatTree(push.Graph, push.Refs)
	if err != nil {
		return err
	}
	e.splog.Info("Restacked changes:\n%s", tree)
	e.splog.Info("Restack completed but changes have not been pushed; run `git-gr restack push` to sync changes with the remote.")
	return nil
}

// restoreBefore checks out where the user started, following their change
// to its new commit when it was rewritten. Failures only warn: the restack
// itself is already done.
func (e *Engine) restoreBefore(ctx context.Context, before Before, refs map[ChangeNumber]RefUpdate) {
	var err error
	if before.Change != nil {
		if update, ok := refs[*before.Change]; ok && update.HasChange() {
			if err = e.vcs.CheckoutDetached(ctx, update.New.String()); err == nil {
				e.splog.Info("Checked out restacked change %s at %s", e.remote.Pretty(ctx, *before.Change), update.New.Abbrev())
				return
			}
			e.splog.Warn("Failed to check out %s: %v", update.New.Abbrev(), err)
		}
	}

	if before.Branch != "" {
		err = e.vcs.Checkout(ctx, before.Branch)
	} else {
		err = e.vcs.CheckoutDetached(ctx, before.Commit.String())
	}
	if err != nil {
		e.splog.Warn("Failed to restore the original checkout: %v", err)
	}
}

// formatTree renders the graph with each change's rewrite, if any
func (e *Engine) formatTree(g *graph.DependencyGraph, refs map[ChangeNumber]RefUpdate) (string, error) {
	return g.FormatTree(func(number ChangeNumber) ([]string, error) {
		lines := []string{output.ChangeLabel(number.String(), g.Metadata[number].Subject)}
		if update, ok := refs[number]; ok {
			lines = append(lines, output.Dim(update.String()))
		}
		return lines, nil
	})
}
