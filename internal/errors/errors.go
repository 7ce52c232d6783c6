// Package errors provides sentinel errors and custom error types for git-gr.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrConflictingParent indicates that a change was reported with two different parents
	ErrConflictingParent = errors.New("conflicting parent")

	// ErrAmbiguousRoot indicates that a graph does not have exactly one root change
	ErrAmbiguousRoot = errors.New("ambiguous root")

	// ErrTodoAlreadyExists indicates that a restack is already in progress
	ErrTodoAlreadyExists = errors.New("restack todo already exists")

	// ErrTodoCorrupt indicates that a persisted todo could not be read
	ErrTodoCorrupt = errors.New("todo file is corrupt")

	// ErrNoPushTodo indicates that there is no completed restack to push
	ErrNoPushTodo = errors.New("no push todo")

	// ErrNoRestackTodo indicates that no restack is in progress
	ErrNoRestackTodo = errors.New("no restack in progress")

	// ErrRebaseConflict indicates that a rebase or cherry-pick encountered a conflict
	ErrRebaseConflict = errors.New("rebase conflict")

	// ErrNoChangeID indicates that a commit message has no Change-Id trailer
	ErrNoChangeID = errors.New("no Change-Id")

	// ErrChangeNotFound indicates that the remote returned no change for a query
	ErrChangeNotFound = errors.New("change not found")

	// ErrNotGerritRemote indicates that no git remote could be parsed as a Gerrit remote
	ErrNotGerritRemote = errors.New("not a gerrit remote")
)

// ConflictingParentError is returned when a change would depend on two different changes.
// Change numbers are kept as plain integers so this package stays free of domain imports.
type ConflictingParentError struct {
	Change   uint64
	Existing uint64
	New      uint64
}

func (e *ConflictingParentError) Error() string {
	return fmt.Sprintf("changes cannot depend on multiple changes: %d already depends on %d and cannot also depend on %d",
		e.Change, e.Existing, e.New)
}

// Is returns true if the target error is ErrConflictingParent
func (e *ConflictingParentError) Is(target error) bool {
	return target == ErrConflictingParent
}

// NewConflictingParentError creates a new ConflictingParentError
func NewConflictingParentError(change, existing, newParent uint64) *ConflictingParentError {
	return &ConflictingParentError{Change: change, Existing: existing, New: newParent}
}

// AmbiguousRootError is returned when a graph has zero or several roots.
type AmbiguousRootError struct {
	Candidates []uint64
}

func (e *AmbiguousRootError) Error() string {
	msg := fmt.Sprintf("expected to find exactly one root change, but found %d", len(e.Candidates))
	if len(e.Candidates) == 0 {
		return msg
	}
	lines := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		lines = append(lines, fmt.Sprintf("• %d", c))
	}
	return msg + ":\n" + strings.Join(lines, "\n")
}

// Is returns true if the target error is ErrAmbiguousRoot
func (e *AmbiguousRootError) Is(target error) bool {
	return target == ErrAmbiguousRoot
}

// NewAmbiguousRootError creates a new AmbiguousRootError
func NewAmbiguousRootError(candidates []uint64) *AmbiguousRootError {
	return &AmbiguousRootError{Candidates: candidates}
}

// TodoCorruptError is returned when a todo file exists but cannot be decoded.
type TodoCorruptError struct {
	Path string
	Err  error
}

func (e *TodoCorruptError) Error() string {
	return fmt.Sprintf("failed to read todo from `%s`; remove it to abandon the attempt: %v", e.Path, e.Err)
}

// Is returns true if the target error is ErrTodoCorrupt
func (e *TodoCorruptError) Is(target error) bool {
	return target == ErrTodoCorrupt
}

func (e *TodoCorruptError) Unwrap() error {
	return e.Err
}

// NewTodoCorruptError creates a new TodoCorruptError
func NewTodoCorruptError(path string, err error) *TodoCorruptError {
	return &TodoCorruptError{Path: path, Err: err}
}

// RebaseConflictError represents an error when a rewrite stops on a conflict
type RebaseConflictError struct {
	Target  string
	Message string
}

func (e *RebaseConflictError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("conflict while restacking %s: %s", e.Target, e.Message)
	}
	return fmt.Sprintf("conflict while restacking %s", e.Target)
}

// Is returns true if the target error is ErrRebaseConflict
func (e *RebaseConflictError) Is(target error) bool {
	return target == ErrRebaseConflict
}

// NewRebaseConflictError creates a new RebaseConflictError
func NewRebaseConflictError(target string, message string) *RebaseConflictError {
	return &RebaseConflictError{
		Target:  target,
		Message: message,
	}
}

// GitCommandError represents an error from a subprocess execution (git or ssh)
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("%s command failed", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(": %s", strings.Join(e.Args, " "))
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", strings.TrimSpace(e.Stderr))
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", strings.TrimSpace(e.Stdout))
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

// HTTPError is returned when the REST API answers with a non-2xx status
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += "\n" + body
	}
	return msg
}
