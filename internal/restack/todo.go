package restack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	grerrors "gitgr.dev/gitgr/internal/errors"
	"gitgr.dev/gitgr/internal/git"
	"gitgr.dev/gitgr/internal/graph"
)

const (
	restackTodoFile = "git-gr-restack-todo.json"
	pushTodoFile    = "git-gr-push-todo.json"
)

// ChangeNumber is re-exported for readability in this package
type ChangeNumber = graph.ChangeNumber

// TodoPath is where an in-flight restack is recorded
func TodoPath(gitDir string) string {
	return filepath.Join(gitDir, restackTodoFile)
}

// PushTodoPath is where a completed, unpushed restack is recorded
func PushTodoPath(gitDir string) string {
	return filepath.Join(gitDir, pushTodoFile)
}

// Onto is the target of a step: the tip of a remote branch for roots, or
// the (possibly already restacked) parent change otherwise.
type Onto struct {
	Remote string        `json:"remote,omitempty"`
	Branch string        `json:"branch,omitempty"`
	Parent *ChangeNumber `json:"parent,omitempty"`
}

// OntoBranch targets remote/branch
func OntoBranch(remote, branch string) Onto {
	return Onto{Remote: remote, Branch: branch}
}

// OntoChange targets another change in the stack
func OntoChange(parent ChangeNumber) Onto {
	return Onto{Parent: &parent}
}

// IsBranch reports whether the step restacks a root onto its target branch
func (o Onto) IsBranch() bool {
	return o.Parent == nil
}

func (o Onto) String() string {
	if o.IsBranch() {
		return o.Branch
	}
	return o.Parent.String()
}

// Step restacks one change
type Step struct {
	Change ChangeNumber `json:"change"`
	Onto   Onto         `json:"onto"`
}

func (s Step) String() string {
	return fmt.Sprintf("%d onto %s", s.Change, s.Onto)
}

// RefUpdate maps a change's commit before and after restacking
type RefUpdate struct {
	Old git.CommitHash `json:"old"`
	New git.CommitHash `json:"new"`
}

// HasChange reports whether the commit was rewritten
func (u RefUpdate) HasChange() bool {
	return u.Old != u.New
}

func (u RefUpdate) String() string {
	return u.Old.Abbrev() + ".." + u.New.Abbrev()
}

// Before is where the user was when the restack started
type Before struct {
	Change *ChangeNumber  `json:"change,omitempty"`
	Commit git.CommitHash `json:"commit"`
	Branch string         `json:"branch,omitempty"`
}

// InProgress is a step stopped on a conflict
type InProgress struct {
	Step    Step           `json:"step"`
	OldHead git.CommitHash `json:"old_head"`
}

// Todo is the persisted state of a restack. Its presence on disk means a
// restack is in flight.
type Todo struct {
	Before     Before                     `json:"before"`
	Graph      *graph.DependencyGraph     `json:"graph"`
	Steps      []Step                     `json:"steps"`
	Refs       map[ChangeNumber]RefUpdate `json:"refs"`
	InProgress *InProgress                `json:"in_progress,omitempty"`
}

func (t *Todo) init() {
	if t.Refs == nil {
		t.Refs = make(map[ChangeNumber]RefUpdate)
	}
	if t.Steps == nil {
		t.Steps = []Step{}
	}
}

// PushTodo is the set of rewritten changes still waiting to be uploaded
type PushTodo struct {
	Graph *graph.DependencyGraph     `json:"graph"`
	Refs  map[ChangeNumber]RefUpdate `json:"refs"`
}

// NewPushTodo keeps the rewrites of a finished restack that changed a commit
func NewPushTodo(todo *Todo) *PushTodo {
	push := &PushTodo{Graph: todo.Graph, Refs: make(map[ChangeNumber]RefUpdate)}
	for change, update := range todo.Refs {
		if update.HasChange() {
			push.Refs[change] = update
		}
	}
	return push
}

// IsEmpty reports whether there is nothing to push
func (p *PushTodo) IsEmpty() bool {
	return len(p.Refs) == 0
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// readState decodes a todo file. A missing file is reported as
// os.ErrNotExist; anything unreadable is corrupt.
func readState(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return err
		}
		return grerrors.NewTodoCorruptError(path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return grerrors.NewTodoCorruptError(path, err)
	}
	return nil
}

// writeState replaces path so readers never see a half-written file
func writeState(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func removeState(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// LoadTodo reads the restack todo. ErrNoRestackTodo is returned when no
// restack is in progress.
func LoadTodo(gitDir string) (*Todo, error) {
	path := TodoPath(gitDir)
	var todo Todo
	if err := readState(path, &todo); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, grerrors.ErrNoRestackTodo
		}
		return nil, err
	}
	if todo.Graph == nil {
		return nil, grerrors.NewTodoCorruptError(path, errors.New("missing graph"))
	}
	todo.init()
	return &todo, nil
}

// SaveTodo persists the restack todo
func SaveTodo(gitDir string, todo *Todo) error {
	return writeState(TodoPath(gitDir), todo)
}

// LoadPushTodo reads the push todo left by a completed restack
func LoadPushTodo(gitDir string) (*PushTodo, error) {
	path := PushTodoPath(gitDir)
	var todo PushTodo
	if err := readState(path, &todo); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: push todo path `%s` does not exist; did you run `git-gr restack`?", grerrors.ErrNoPushTodo, path)
		}
		return nil, err
	}
	if todo.Graph == nil {
		return nil, grerrors.NewTodoCorruptError(path, errors.New("missing graph"))
	}
	if todo.Refs == nil {
		todo.Refs = make(map[ChangeNumber]RefUpdate)
	}
	return &todo, nil
}

// SavePushTodo persists the push todo
func SavePushTodo(gitDir string, todo *PushTodo) error {
	return writeState(PushTodoPath(gitDir), todo)
}
