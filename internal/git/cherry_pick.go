package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	grerrors "gitgr.dev/gitgr/internal/errors"
)

// Fetch fetches refspecs from a remote and returns what FETCH_HEAD points at
func (r *Repo) Fetch(ctx context.Context, remote string, refspecs ...string) (CommitHash, error) {
	args := append([]string{"fetch", "--quiet", remote}, refspecs...)
	if _, err := r.runner.Run(ctx, args...); err != nil {
		return "", err
	}
	return r.RevParse(ctx, "FETCH_HEAD")
}

// RevParse resolves a revision to a commit
func (r *Repo) RevParse(ctx context.Context, rev string) (CommitHash, error) {
	out, err := r.runner.Run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", err
	}
	return CommitHash(out), nil
}

// HasCommit reports whether a commit exists in the local object store
func (r *Repo) HasCommit(ctx context.Context, rev string) bool {
	_, err := r.runner.Run(ctx, "cat-file", "-e", rev+"^{commit}")
	return err == nil
}

// Checkout checks out a branch or revision
func (r *Repo) Checkout(ctx context.Context, rev string) error {
	_, err := r.runner.Run(ctx, "checkout", "--quiet", rev)
	return err
}

// CheckoutDetached checks out a revision with a detached HEAD
func (r *Repo) CheckoutDetached(ctx context.Context, rev string) error {
	_, err := r.runner.Run(ctx, "checkout", "--quiet", "--detach", rev)
	return err
}

// DetachHead detaches HEAD at its current commit
func (r *Repo) DetachHead(ctx context.Context) error {
	_, err := r.runner.Run(ctx, "checkout", "--quiet", "--detach")
	return err
}

// CherryPick applies commit on top of HEAD. Conflicts are reported as a
// RebaseConflictError with the cherry-pick left in progress.
func (r *Repo) CherryPick(ctx context.Context, commit CommitHash) error {
	_, err := r.runner.Run(ctx, "cherry-pick", "--allow-empty", commit.String())
	return r.conflictOr(err, commit.Abbrev())
}

// CherryPickContinue commits the resolved cherry-pick without opening an editor
func (r *Repo) CherryPickContinue(ctx context.Context) error {
	_, err := r.runner.Run(ctx, "-c", "core.editor=true", "cherry-pick", "--continue")
	return r.conflictOr(err, "HEAD")
}

// CherryPickAbort abandons an in-progress cherry-pick
func (r *Repo) CherryPickAbort(ctx context.Context) error {
	_, err := r.runner.Run(ctx, "cherry-pick", "--abort")
	return err
}

// IsCherryPickInProgress reports whether a cherry-pick is waiting for conflict resolution
func (r *Repo) IsCherryPickInProgress() bool {
	_, err := os.Stat(filepath.Join(r.gitDir, "CHERRY_PICK_HEAD"))
	return err == nil
}

// IsRebaseInProgress reports whether a rebase is in progress
func (r *Repo) IsRebaseInProgress() bool {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(r.gitDir, dir)); err == nil {
			return true
		}
	}
	return false
}

// InteractiveRebase runs `git rebase --interactive onto` attached to the
// terminal. env is added to the environment, typically to set
// GIT_SEQUENCE_EDITOR.
func (r *Repo) InteractiveRebase(ctx context.Context, onto CommitHash, env []string) error {
	err := r.runner.RunInteractive(ctx, env, "rebase", "--interactive", onto.String())
	if err != nil && r.IsRebaseInProgress() {
		return grerrors.NewRebaseConflictError(onto.Abbrev(), "")
	}
	return err
}

// PushForReview pushes commit to refs/for/branch on remote
func (r *Repo) PushForReview(ctx context.Context, remote string, commit CommitHash, branch string) error {
	_, err := r.runner.Run(ctx, "push", remote, commit.String()+":refs/for/"+branch)
	return err
}

// CredentialFill asks the configured credential helpers for a login
func (r *Repo) CredentialFill(ctx context.Context, host string) (string, string, error) {
	input := "protocol=https\nhost=" + host + "\n\n"
	out, err := r.runner.runInternal(ctx, input, []string{"GIT_TERMINAL_PROMPT=0"}, "credential", "fill")
	if err != nil {
		return "", "", err
	}
	return parseCredential(out)
}

func parseCredential(out string) (string, string, error) {
	var username, password string
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "username":
			username = value
		case "password":
			password = value
		}
	}
	if username == "" || password == "" {
		return "", "", errors.New("git credential fill returned no username or password")
	}
	return username, password, nil
}

func (r *Repo) conflictOr(err error, target string) error {
	if err == nil {
		return nil
	}
	if r.IsCherryPickInProgress() {
		var cmdErr *grerrors.GitCommandError
		message := ""
		if errors.As(err, &cmdErr) {
			message = strings.TrimSpace(cmdErr.Stdout + "\n" + cmdErr.Stderr)
		}
		return grerrors.NewRebaseConflictError(target, message)
	}
	return err
}
