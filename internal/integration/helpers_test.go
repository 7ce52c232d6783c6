// Package integration runs the git-gr binary against real repositories.
package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/kballard/go-shellquote"
	"github.com/stretchr/testify/require"

	"gitgr.dev/gitgr/internal/testhelper"
	"gitgr.dev/gitgr/testhelpers"
)

const gerritURL = "ssh://git-gr@gerrit.example.com:29418/demo"

func getBinary(t *testing.T) string {
	t.Helper()
	binaryPath := testhelper.GetSharedBinaryPath()
	if binaryPath == "" {
		t.Fatalf("failed to build git-gr binary: %v", testhelper.GetBinaryError())
	}
	return binaryPath
}

// TestShell runs git-gr and git commands in a scratch repository whose
// "gerrit" remote points at an unreachable server. Commands that only touch
// local state work; anything that talks to the server fails.
type TestShell struct {
	t          *testing.T
	scene      *testhelpers.Scene
	binaryPath string
	env        []string
	lastOutput string
}

// NewTestShell creates a repository with one commit and a Gerrit remote
func NewTestShell(t *testing.T) *TestShell {
	t.Helper()
	binaryPath := getBinary(t)
	scene := testhelpers.NewScene(t, func(s *testhelpers.Scene) error {
		if err := testhelpers.BasicSceneSetup(s); err != nil {
			return err
		}
		return s.Repo.RunGitCommand("remote", "add", "gerrit", gerritURL)
	})
	cacheDir := t.TempDir()
	return &TestShell{
		t:          t,
		scene:      scene,
		binaryPath: binaryPath,
		env: append(os.Environ(),
			"GIT_CONFIG_GLOBAL=/dev/null",
			"XDG_CACHE_HOME="+cacheDir,
			"NO_COLOR=1",
		),
	}
}

// Scene returns the underlying test scene
func (s *TestShell) Scene() *testhelpers.Scene {
	return s.scene
}

// GitDir returns the repository's .git directory
func (s *TestShell) GitDir() string {
	return filepath.Join(s.scene.Dir, ".git")
}

// WithEnv adds an environment variable for later commands
func (s *TestShell) WithEnv(kv string) *TestShell {
	s.env = append(s.env, kv)
	return s
}

func (s *TestShell) exec(args string) error {
	s.t.Helper()
	parts, err := shellquote.Split(args)
	require.NoError(s.t, err, "bad command line %q", args)
	cmd := exec.Command(s.binaryPath, parts...)
	cmd.Dir = s.scene.Dir
	cmd.Env = s.env
	output, err := cmd.CombinedOutput()
	s.lastOutput = string(output)
	return err
}

// Run executes a git-gr command and requires it to succeed
func (s *TestShell) Run(args string) *TestShell {
	s.t.Helper()
	err := s.exec(args)
	require.NoError(s.t, err, "$ git-gr %s\n%s", args, s.lastOutput)
	return s
}

// RunExpectError executes a git-gr command and requires it to fail
func (s *TestShell) RunExpectError(args string) *TestShell {
	s.t.Helper()
	err := s.exec(args)
	require.Error(s.t, err, "$ git-gr %s (expected error)\n%s", args, s.lastOutput)
	return s
}

// OutputContains asserts on the last command's combined output
func (s *TestShell) OutputContains(text string) *TestShell {
	s.t.Helper()
	require.Contains(s.t, s.lastOutput, text)
	return s
}

// OutputNotContains asserts text is absent from the last command's output
func (s *TestShell) OutputNotContains(text string) *TestShell {
	s.t.Helper()
	require.NotContains(s.t, s.lastOutput, text)
	return s
}
