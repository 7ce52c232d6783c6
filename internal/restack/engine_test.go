package restack

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	grerrors "gitgr.dev/gitgr/internal/errors"
	"gitgr.dev/gitgr/internal/git"
)

func TestCreateTodo(t *testing.T) {
	t.Run("queues parents before children", func(t *testing.T) {
		s := newStack(t)
		c13 := s.vcs.add("c13ddddd00000000000000000000000000000000", c10, changeID(13))
		s.remote.add(13, c13, 10)

		todo, err := s.engine.CreateTodo(context.Background(), "HEAD")
		require.NoError(t, err)

		require.Equal(t, []Step{
			{Change: 10, Onto: OntoBranch("origin", "main")},
			{Change: 11, Onto: OntoChange(10)},
			{Change: 13, Onto: OntoChange(10)},
			{Change: 12, Onto: OntoChange(11)},
		}, todo.Steps)
		require.Empty(t, todo.Refs)
		require.Nil(t, todo.InProgress)

		require.NotNil(t, todo.Before.Change)
		require.Equal(t, ChangeNumber(12), *todo.Before.Change)
		require.Equal(t, c12, todo.Before.Commit)
		require.Equal(t, "feature", todo.Before.Branch)

		loaded, err := LoadTodo(s.vcs.gitDir)
		require.NoError(t, err)
		require.Equal(t, todo.Steps, loaded.Steps)
	})

	t.Run("refuses to replace a restack in progress", func(t *testing.T) {
		s := newStack(t)
		_, err := s.engine.CreateTodo(context.Background(), "HEAD")
		require.NoError(t, err)

		_, err = s.engine.CreateTodo(context.Background(), "HEAD")
		require.ErrorIs(t, err, grerrors.ErrTodoAlreadyExists)
		require.ErrorContains(t, err, TodoPath(s.vcs.gitDir))
	})

	t.Run("needs a Change-Id", func(t *testing.T) {
		s := newStack(t)
		_, err := s.engine.CreateTodo(context.Background(), base.String())
		require.ErrorIs(t, err, grerrors.ErrNoChangeID)
		require.NoFileExists(t, TodoPath(s.vcs.gitDir))
	})
}

func TestRestackAndPushStack(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	require.NoError(t, s.engine.Restack(ctx, "HEAD"))
	require.NoFileExists(t, TodoPath(s.vcs.gitDir))
	require.Equal(t, []git.CommitHash{c10, c11, c12}, s.vcs.picks)
	require.Equal(t, 1, s.vcs.fetches)

	push, err := LoadPushTodo(s.vcs.gitDir)
	require.NoError(t, err)
	require.Len(t, push.Refs, 3)
	require.Equal(t, c10, push.Refs[10].Old)
	require.Equal(t, c11, push.Refs[11].Old)
	require.Equal(t, c12, push.Refs[12].Old)
	for number, update := range push.Refs {
		require.True(t, update.HasChange(), "change %d was not rewritten", number)
	}

	require.Equal(t, upstream, s.vcs.commits[push.Refs[10].New].parent)
	require.Equal(t, push.Refs[10].New, s.vcs.commits[push.Refs[11].New].parent)
	require.Equal(t, push.Refs[11].New, s.vcs.commits[push.Refs[12].New].parent)

	// HEAD follows the change it was on
	require.Equal(t, push.Refs[12].New, s.vcs.head)

	require.NoError(t, s.engine.Push(ctx))
	require.Equal(t, []pushed{
		{commit: push.Refs[10].New, branch: "main"},
		{commit: push.Refs[11].New, branch: "main"},
		{commit: push.Refs[12].New, branch: "main"},
	}, s.remote.pushes)
	require.Equal(t, []ChangeNumber{10, 11, 12}, s.remote.invalidated)
	require.NoFileExists(t, PushTodoPath(s.vcs.gitDir))
}

func TestRestackUpToDateStack(t *testing.T) {
	s := newStack(t)
	s.vcs.refs["origin/main"] = base

	require.NoError(t, s.engine.Restack(context.Background(), "HEAD"))

	require.Empty(t, s.vcs.picks)
	require.NoFileExists(t, TodoPath(s.vcs.gitDir))
	require.NoFileExists(t, PushTodoPath(s.vcs.gitDir))
	require.Equal(t, c12, s.vcs.head)
	require.Equal(t, "feature", s.vcs.branch)

	_, err := LoadPushTodo(s.vcs.gitDir)
	require.ErrorIs(t, err, grerrors.ErrNoPushTodo)
}

func conflictOn11(t *testing.T) *stack {
	t.Helper()
	s := newStack(t)
	s.vcs.conflicts[c11] = true

	err := s.engine.Restack(context.Background(), "HEAD")
	require.ErrorIs(t, err, grerrors.ErrRebaseConflict)
	require.ErrorContains(t, err, ContinueMessage)
	return s
}

func TestRestackConflict(t *testing.T) {
	t.Run("persists the stopped step and the rest of the queue", func(t *testing.T) {
		s := conflictOn11(t)

		todo, err := LoadTodo(s.vcs.gitDir)
		require.NoError(t, err)
		require.NotNil(t, todo.InProgress)
		require.Equal(t, Step{Change: 11, Onto: OntoChange(10)}, todo.InProgress.Step)
		require.Equal(t, c11, todo.InProgress.OldHead)
		require.Equal(t, []Step{{Change: 12, Onto: OntoChange(11)}}, todo.Steps)
		require.Len(t, todo.Refs, 1)
		require.True(t, todo.Refs[10].HasChange())
	})

	t.Run("continue finishes the cherry-pick and the remaining steps", func(t *testing.T) {
		s := conflictOn11(t)

		require.NoError(t, s.engine.Continue(context.Background(), ContinueOptions{}))

		require.Equal(t, []git.CommitHash{c10, c11, c12}, s.vcs.picks)
		push, err := LoadPushTodo(s.vcs.gitDir)
		require.NoError(t, err)
		require.Len(t, push.Refs, 3)
		require.Equal(t, push.Refs[10].New, s.vcs.commits[push.Refs[11].New].parent)
		require.Equal(t, push.Refs[11].New, s.vcs.commits[push.Refs[12].New].parent)
		require.NoFileExists(t, TodoPath(s.vcs.gitDir))
	})

	t.Run("restack resumes a stopped step like continue", func(t *testing.T) {
		s := conflictOn11(t)

		require.NoError(t, s.engine.Restack(context.Background(), "HEAD"))
		require.Equal(t, []git.CommitHash{c10, c11, c12}, s.vcs.picks)
	})

	t.Run("continue with a commit resolved elsewhere", func(t *testing.T) {
		s := conflictOn11(t)
		todo, err := LoadTodo(s.vcs.gitDir)
		require.NoError(t, err)

		resolved := s.vcs.add("resolved0000000000000000000000000000000000", todo.Refs[10].New, changeID(11))
		s.vcs.picking = ""
		s.vcs.head = base

		require.NoError(t, s.engine.Continue(context.Background(), ContinueOptions{InProgressCommit: resolved}))

		push, err := LoadPushTodo(s.vcs.gitDir)
		require.NoError(t, err)
		require.Equal(t, RefUpdate{Old: c11, New: resolved}, push.Refs[11])
		require.Equal(t, resolved, s.vcs.commits[push.Refs[12].New].parent)
	})

	t.Run("continue with a commit aborts the pending cherry-pick", func(t *testing.T) {
		s := conflictOn11(t)
		todo, err := LoadTodo(s.vcs.gitDir)
		require.NoError(t, err)
		require.True(t, s.vcs.IsCherryPickInProgress())

		resolved := s.vcs.add("resolved0000000000000000000000000000000000", todo.Refs[10].New, changeID(11))

		require.NoError(t, s.engine.Continue(context.Background(), ContinueOptions{InProgressCommit: resolved}))

		require.Equal(t, 1, s.vcs.aborts)
		require.False(t, s.vcs.IsCherryPickInProgress())
		require.NoFileExists(t, TodoPath(s.vcs.gitDir))

		push, err := LoadPushTodo(s.vcs.gitDir)
		require.NoError(t, err)
		require.Equal(t, RefUpdate{Old: c11, New: resolved}, push.Refs[11])
		require.Equal(t, resolved, s.vcs.commits[push.Refs[12].New].parent)
	})

	t.Run("restart runs the stopped step again", func(t *testing.T) {
		s := conflictOn11(t)
		delete(s.vcs.conflicts, c11)

		require.NoError(t, s.engine.Continue(context.Background(), ContinueOptions{RestartInProgress: true}))

		require.Equal(t, 1, s.vcs.aborts)
		require.Equal(t, []git.CommitHash{c10, c11, c11, c12}, s.vcs.picks)
		require.NoFileExists(t, TodoPath(s.vcs.gitDir))
	})

	t.Run("continue without a cherry-pick needs to be told what to do", func(t *testing.T) {
		s := conflictOn11(t)
		s.vcs.picking = ""

		err := s.engine.Continue(context.Background(), ContinueOptions{})
		require.ErrorContains(t, err, "--in-progress-commit")

		todo, err := LoadTodo(s.vcs.gitDir)
		require.NoError(t, err)
		require.NotNil(t, todo.InProgress)
	})

	t.Run("abort restores the original checkout", func(t *testing.T) {
		s := conflictOn11(t)

		require.NoError(t, s.engine.Abort(context.Background()))

		require.NoFileExists(t, TodoPath(s.vcs.gitDir))
		require.Equal(t, 1, s.vcs.aborts)
		require.False(t, s.vcs.IsCherryPickInProgress())
		require.Equal(t, c12, s.vcs.head)
		require.Equal(t, "feature", s.vcs.branch)
	})
}

func TestRestackStepFailure(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	delete(s.remote.current, 12)

	err := s.engine.Restack(ctx, "HEAD")
	require.ErrorIs(t, err, grerrors.ErrChangeNotFound)

	todo, err := LoadTodo(s.vcs.gitDir)
	require.NoError(t, err)
	require.Nil(t, todo.InProgress)
	require.Equal(t, []Step{{Change: 12, Onto: OntoChange(11)}}, todo.Steps)
	require.Len(t, todo.Refs, 2)

	s.remote.current[12] = c12
	require.NoError(t, s.engine.Restack(ctx, "HEAD"))
	require.Equal(t, []git.CommitHash{c10, c11, c12}, s.vcs.picks)
}

func TestContinueWithoutTodo(t *testing.T) {
	s := newStack(t)
	err := s.engine.Continue(context.Background(), ContinueOptions{})
	require.ErrorIs(t, err, grerrors.ErrNoRestackTodo)
}

func TestAbortWithoutTodo(t *testing.T) {
	s := newStack(t)
	require.NoError(t, s.engine.Abort(context.Background()))
	require.Zero(t, s.vcs.aborts)
	require.Equal(t, c12, s.vcs.head)
}

func TestCorruptTodo(t *testing.T) {
	s := newStack(t)
	path := TodoPath(s.vcs.gitDir)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	err := s.engine.Restack(context.Background(), "HEAD")
	require.ErrorIs(t, err, grerrors.ErrTodoCorrupt)
	require.ErrorContains(t, err, path)

	var corrupt *grerrors.TodoCorruptError
	require.True(t, errors.As(err, &corrupt))
	require.Equal(t, path, corrupt.Path)

	// abort still clears it
	require.NoError(t, s.engine.Abort(context.Background()))
	require.NoFileExists(t, path)
}
