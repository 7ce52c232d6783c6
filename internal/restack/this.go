package restack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gitgr.dev/gitgr/internal/gerrit"
	"gitgr.dev/gitgr/internal/git"
)

// This restacks only HEAD's change onto its immediate parent with an
// interactive rebase. The sequence editor drops every other commit between
// the parent and HEAD from the rebase todo.
func (e *Engine) This(ctx context.Context) error {
	changeID, err := e.vcs.ChangeID(ctx, "HEAD")
	if err != nil {
		return fmt.Errorf("failed to get Change-Id for HEAD: %w", err)
	}
	change, err := e.remote.GetChange(ctx, gerrit.IDKey(gerrit.ChangeID(changeID)))
	if err != nil {
		return err
	}

	onto, ontoName, err := e.immediateParent(ctx, change)
	if err != nil {
		return err
	}

	e.splog.Info("Restacking change %s on %s", e.remote.Pretty(ctx, change.Number), ontoName)

	env := []string{
		"GIT_SEQUENCE_EDITOR=" + e.sequenceEditor,
		ChangeIDEnv + "=" + changeID,
	}
	return e.withCacheDetached(func() error {
		return e.vcs.InteractiveRebase(ctx, onto, env)
	})
}

// immediateParent is the current patchset of the change's open parent, or the
// tip of its target branch when it has none
func (e *Engine) immediateParent(ctx context.Context, change *gerrit.Change) (git.CommitHash, string, error) {
	deps, err := e.remote.Dependencies(ctx, change.Number)
	if err != nil {
		return "", "", err
	}
	for _, parent := range deps.DependsOnNumbers() {
		info, err := e.remote.Change(ctx, parent)
		if err != nil {
			return "", "", err
		}
		if info.Status != gerrit.StatusNew {
			continue
		}
		commit, err := e.remote.FetchCurrent(ctx, parent)
		if err != nil {
			return "", "", err
		}
		return commit, e.remote.Pretty(ctx, parent), nil
	}

	remote := e.remote.Remote()
	if _, err := e.vcs.Fetch(ctx, remote); err != nil {
		return "", "", err
	}
	commit, err := e.vcs.RevParse(ctx, remote+"/"+change.Branch)
	if err != nil {
		return "", "", err
	}
	return commit, change.Branch, nil
}

// withCacheDetached hands the cache over to a child git-gr process for the
// duration of fn
func (e *Engine) withCacheDetached(fn func() error) error {
	if e.cache == nil {
		return fn()
	}
	if err := e.cache.Detach(); err != nil {
		return err
	}
	runErr := fn()
	if err := e.cache.Attach(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

var pickCommands = map[string]bool{
	"p": true, "pick": true,
	"r": true, "reword": true,
	"e": true, "edit": true,
	"s": true, "squash": true,
	"f": true, "fixup": true,
}

// WriteRebaseTodo edits a git-rebase-todo in place so that only commits of
// the change with changeID are picked. Comments and other commands are kept.
func (e *Engine) WriteRebaseTodo(ctx context.Context, path string, changeID string) error {
	if changeID == "" {
		return fmt.Errorf("no Change-Id to restack; %s is not set", ChangeIDEnv)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var lines []string
	picked := 0
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || !pickCommands[fields[0]] {
			lines = append(lines, line)
			continue
		}
		id, err := e.vcs.ChangeID(ctx, fields[1])
		if err != nil || id != changeID {
			e.splog.Debug("Dropping %s from rebase todo", fields[1])
			continue
		}
		lines = append(lines, line)
		picked++
	}
	if picked == 0 {
		lines = append([]string{"noop"}, lines...)
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
