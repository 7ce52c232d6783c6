package testhelpers

import (
	"os"
	"testing"
)

// Scene is a temporary directory holding a fresh git repository.
type Scene struct {
	Dir  string
	Repo *GitRepo
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// NewScene creates a new test scene and changes into its directory.
// Cleanup is registered with t.Cleanup().
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "git-gr-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	oldDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current directory: %v", err)
	}

	repo, err := NewGitRepo(tmpDir)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create Git repo: %v", err)
	}

	scene := &Scene{Dir: tmpDir, Repo: repo}

	if err := os.Chdir(tmpDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		t.Fatalf("Failed to change directory: %v", err)
	}

	t.Cleanup(func() {
		_ = os.Chdir(oldDir)
		if os.Getenv("DEBUG") == "" {
			_ = os.RemoveAll(tmpDir)
			_ = os.RemoveAll(tmpDir + "-origin.git")
		}
	})

	if setup != nil {
		if err := setup(scene); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}

	return scene
}

// BasicSceneSetup creates a single initial commit.
func BasicSceneSetup(scene *Scene) error {
	return scene.Repo.CreateChangeAndCommit("1", "1")
}
