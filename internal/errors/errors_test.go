package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	grerrors "gitgr.dev/gitgr/internal/errors"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{grerrors.NewConflictingParentError(11, 10, 12), grerrors.ErrConflictingParent},
		{grerrors.NewAmbiguousRootError([]uint64{1, 2}), grerrors.ErrAmbiguousRoot},
		{grerrors.NewTodoCorruptError("/tmp/todo.json", errors.New("bad json")), grerrors.ErrTodoCorrupt},
		{grerrors.NewRebaseConflictError("1234abcd", ""), grerrors.ErrRebaseConflict},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("context: %w", tc.err)
		require.ErrorIs(t, wrapped, tc.sentinel)
	}
}

func TestConflictingParentError(t *testing.T) {
	err := grerrors.NewConflictingParentError(11, 10, 12)
	require.EqualError(t, err, "changes cannot depend on multiple changes: 11 already depends on 10 and cannot also depend on 12")

	var target *grerrors.ConflictingParentError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &target)
	require.Equal(t, uint64(10), target.Existing)
}

func TestAmbiguousRootError(t *testing.T) {
	require.EqualError(t, grerrors.NewAmbiguousRootError(nil), "expected to find exactly one root change, but found 0")
	require.EqualError(t, grerrors.NewAmbiguousRootError([]uint64{3, 5}),
		"expected to find exactly one root change, but found 2:\n• 3\n• 5")
}

func TestTodoCorruptErrorUnwraps(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := grerrors.NewTodoCorruptError("/repo/.git/git-gr-restack-todo.json", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "/repo/.git/git-gr-restack-todo.json")
}

func TestGitCommandError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := grerrors.NewGitCommandError("git", []string{"cherry-pick", "abc"}, "", "error: could not apply abc\n", cause)
	require.Equal(t, "git command failed: cherry-pick abc\nstderr: error: could not apply abc\nexit status 1", err.Error())
	require.ErrorIs(t, err, cause)
}
