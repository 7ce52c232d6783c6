package restack

import (
	"context"
	"fmt"
)

// Push uploads the changes rewritten by the last restack, parents first.
// Each upload is recorded before the next starts, so an interrupted push
// resumes where it stopped.
func (e *Engine) Push(ctx context.Context) error {
	todo, err := LoadPushTodo(e.gitDir)
	if err != nil {
		return err
	}
	if todo.IsEmpty() {
		return removeState(PushTodoPath(e.gitDir))
	}

	root, err := todo.Graph.DependencyRoot()
	if err != nil {
		return err
	}

	tree, err := e.formatTree(todo.Graph, todo.Refs)
	if err != nil {
		return err
	}
	e.splog.Info("Pushing stack:\n%s", tree)

	err = todo.Graph.Walk(root, func(number ChangeNumber) error {
		update, ok := todo.Refs[number]
		if !ok {
			return nil
		}
		change, err := e.remote.Change(ctx, number)
		if err != nil {
			return err
		}

		e.splog.Info("Pushing change %s: %s", e.remote.Pretty(ctx, number), update)
		if err := e.remote.Push(ctx, update.New, change.Branch); err != nil {
			return fmt.Errorf("failed to push change %d: %w", number, err)
		}
		delete(todo.Refs, number)
		e.remote.InvalidateChange(number)

		if todo.IsEmpty() {
			return removeState(PushTodoPath(e.gitDir))
		}
		return SavePushTodo(e.gitDir, todo)
	})
	if err != nil {
		return err
	}

	if !todo.IsEmpty() {
		e.splog.Warn("%d changes were not reachable from %d and were not pushed", len(todo.Refs), root)
	}
	return nil
}
