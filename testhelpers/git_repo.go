package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const textFileName = "test.txt"

// GitRepo is a throwaway git repository for tests.
type GitRepo struct {
	Dir string
}

// NewGitRepo initializes a new Git repository in the specified directory using 'git init'.
func NewGitRepo(dir string) (*GitRepo, error) {
	cmd := exec.Command("git", "-c", "init.defaultBranch=main", "-c", "core.autocrlf=false", "init", dir, "-b", "main")
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to init repo: %w", err)
	}

	repo := &GitRepo{Dir: dir}
	if err := repo.RunGitCommand("config", "user.name", "Test User"); err != nil {
		return nil, err
	}
	if err := repo.RunGitCommand("config", "user.email", "test@example.com"); err != nil {
		return nil, err
	}
	return repo, nil
}

// RunGitCommand executes a git command in the repository directory.
// Uses GIT_CONFIG_GLOBAL=/dev/null so the developer's config does not leak in.
func (r *GitRepo) RunGitCommand(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if os.Getenv("DEBUG") != "" {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}

// RunGitCommandAndGetOutput executes a git command and returns its trimmed output.
func (r *GitRepo) RunGitCommandAndGetOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git command failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// CreateChange writes a file and stages it.
func (r *GitRepo) CreateChange(textValue string, prefix string) error {
	fileName := textFileName
	if prefix != "" {
		fileName = prefix + "_" + fileName
	}
	filePath := filepath.Join(r.Dir, fileName)
	if err := os.WriteFile(filePath, []byte(textValue), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return r.RunGitCommand("add", filePath)
}

// CreateChangeAndCommit creates a file change and commits it.
func (r *GitRepo) CreateChangeAndCommit(textValue string, prefix string) error {
	if err := r.CreateChange(textValue, prefix); err != nil {
		return err
	}
	return r.RunGitCommand("commit", "-m", textValue)
}

// CreateReviewCommit commits a file change with a Change-Id trailer and
// returns the new commit hash.
func (r *GitRepo) CreateReviewCommit(subject string, changeID string, prefix string) (string, error) {
	if err := r.CreateChange(subject, prefix); err != nil {
		return "", err
	}
	message := fmt.Sprintf("%s\n\nChange-Id: %s\n", subject, changeID)
	if err := r.RunGitCommand("commit", "-m", message); err != nil {
		return "", err
	}
	return r.GetRevision("HEAD")
}

// CreateAndCheckoutBranch creates and checks out a new branch.
func (r *GitRepo) CreateAndCheckoutBranch(name string) error {
	return r.RunGitCommand("checkout", "-b", name)
}

// CheckoutBranch checks out a branch.
func (r *GitRepo) CheckoutBranch(name string) error {
	return r.RunGitCommand("checkout", name)
}

// CheckoutDetached checks out a revision with a detached HEAD.
func (r *GitRepo) CheckoutDetached(rev string) error {
	return r.RunGitCommand("checkout", "--detach", rev)
}

// GetRevision resolves a revision to a full hash.
func (r *GitRepo) GetRevision(rev string) (string, error) {
	return r.RunGitCommandAndGetOutput("rev-parse", rev)
}

// CurrentBranchName returns the checked out branch.
func (r *GitRepo) CurrentBranchName() (string, error) {
	return r.RunGitCommandAndGetOutput("rev-parse", "--abbrev-ref", "HEAD")
}

// CreateBareRemote creates a bare repository next to this one and adds it
// as a remote.
func (r *GitRepo) CreateBareRemote(name string) (string, error) {
	remoteDir := r.Dir + "-" + name + ".git"
	cmd := exec.Command("git", "init", "--bare", "-b", "main", remoteDir)
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to create bare remote: %w", err)
	}
	if err := r.RunGitCommand("remote", "add", name, remoteDir); err != nil {
		return "", err
	}
	return remoteDir, nil
}

// PushRef pushes a local revision to a ref on a remote.
func (r *GitRepo) PushRef(remote, rev, ref string) error {
	return r.RunGitCommand("push", remote, rev+":"+ref)
}
