package git

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	grerrors "gitgr.dev/gitgr/internal/errors"
)

// CommitHash is a full hexadecimal commit id
type CommitHash string

// String returns the full hash
func (h CommitHash) String() string {
	return string(h)
}

// Abbrev returns the first 8 characters of the hash
func (h CommitHash) Abbrev() string {
	if len(h) <= 8 {
		return string(h)
	}
	return string(h[:8])
}

// Repo is a local git checkout
type Repo struct {
	dir    string
	gitDir string
	repo   *gogit.Repository
	runner *CommandRunner
}

// Open finds the repository containing path
func Open(ctx context.Context, path string) (*Repo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	root := worktree.Filesystem.Root()

	runner := NewCommandRunner(root)
	gitDir, err := runner.Run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to find git directory: %w", err)
	}

	return &Repo{
		dir:    root,
		gitDir: gitDir,
		repo:   repo,
		runner: runner,
	}, nil
}

// Dir returns the worktree root
func (r *Repo) Dir() string {
	return r.dir
}

// GitDir returns the .git directory for this worktree
func (r *Repo) GitDir() string {
	return r.gitDir
}

// Runner returns the command runner bound to the worktree
func (r *Repo) Runner() *CommandRunner {
	return r.runner
}

// Head returns the commit HEAD points at
func (r *Repo) Head(ctx context.Context) (CommitHash, error) {
	ref, err := r.repo.Head()
	if err == nil {
		return CommitHash(ref.Hash().String()), nil
	}
	return r.RevParse(ctx, "HEAD")
}

// CurrentBranch returns the checked out branch, or false when HEAD is detached
func (r *Repo) CurrentBranch() (string, bool) {
	ref, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil || ref.Type() != plumbing.SymbolicReference {
		return "", false
	}
	name := ref.Target()
	if !name.IsBranch() {
		return "", false
	}
	return name.Short(), true
}

// CommitMessage returns the full message of a commit
func (r *Repo) CommitMessage(ctx context.Context, rev string) (string, error) {
	if hash, err := r.repo.ResolveRevision(plumbing.Revision(rev)); err == nil {
		if commit, err := r.repo.CommitObject(*hash); err == nil {
			return commit.Message, nil
		}
	}
	// go-git caches pack indexes at open time, so objects fetched since then
	// may only be visible to the git binary.
	return r.runner.Run(ctx, "log", "-1", "--format=%B", rev)
}

// ChangeID returns the Change-Id trailer of a commit
func (r *Repo) ChangeID(ctx context.Context, rev string) (string, error) {
	message, err := r.CommitMessage(ctx, rev)
	if err != nil {
		return "", err
	}
	id, ok := ParseChangeID(message)
	if !ok {
		return "", fmt.Errorf("%w: commit %s has no Change-Id trailer", grerrors.ErrNoChangeID, rev)
	}
	return id, nil
}

var changeIDRe = regexp.MustCompile(`(?m)^Change-Id:\s*(I[0-9a-fA-F]+)\s*$`)

// ParseChangeID extracts the last Change-Id trailer from a commit message
func ParseChangeID(message string) (string, bool) {
	matches := changeIDRe.FindAllStringSubmatch(message, -1)
	if len(matches) == 0 {
		return "", false
	}
	return matches[len(matches)-1][1], true
}

// Remotes lists the configured remote names
func (r *Repo) Remotes() ([]string, error) {
	remotes, err := r.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}
	names := make([]string, 0, len(remotes))
	for _, remote := range remotes {
		names = append(names, remote.Config().Name)
	}
	sort.Strings(names)
	return names, nil
}

// RemoteURL returns the first URL configured for a remote
func (r *Repo) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", fmt.Errorf("failed to find remote %s: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %s has no URL", name)
	}
	return urls[0], nil
}

// ConfigValue reads a git config value through the git binary so that
// includes and global config apply
func (r *Repo) ConfigValue(ctx context.Context, key string) (string, bool) {
	value, err := r.runner.Run(ctx, "config", "--get", key)
	if err != nil || value == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// DefaultBranch returns the branch remote/HEAD points at
func (r *Repo) DefaultBranch(ctx context.Context, remote string) (string, error) {
	out, err := r.runner.Run(ctx, "symbolic-ref", "--short", "refs/remotes/"+remote+"/HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to find the default branch of %s; try `git remote set-head %s --auto`: %w", remote, remote, err)
	}
	return strings.TrimPrefix(out, remote+"/"), nil
}
