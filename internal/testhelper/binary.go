// Package testhelper builds the git-gr binary for end-to-end tests.
package testhelper

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

var (
	sharedBinaryPath string
	binaryOnce       sync.Once
	binaryErr        error
)

// GetSharedBinaryPath returns the path to a git-gr binary built from the
// module, building it on first use
func GetSharedBinaryPath() string {
	binaryOnce.Do(func() {
		sharedBinaryPath, binaryErr = buildBinary()
	})
	return sharedBinaryPath
}

// GetBinaryError returns any error that occurred while building the binary
func GetBinaryError() error {
	return binaryErr
}

func buildBinary() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	moduleRoot := findModuleRoot(wd)
	if moduleRoot == "" {
		return "", fmt.Errorf("could not find module root (go.mod) starting from %s", wd)
	}

	tmpDir, err := os.MkdirTemp("", "git-gr-test-binary-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	binaryPath := filepath.Join(tmpDir, "git-gr")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/git-gr")
	cmd.Dir = moduleRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", fmt.Errorf("failed to build: %s: %w", string(output), err)
	}
	return binaryPath, nil
}

// findModuleRoot walks up from startDir to the directory containing go.mod
func findModuleRoot(startDir string) string {
	dir := startDir
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
