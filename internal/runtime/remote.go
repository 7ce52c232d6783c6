package runtime

import (
	"fmt"
	"strings"

	grerrors "gitgr.dev/gitgr/internal/errors"
	"gitgr.dev/gitgr/internal/gerrit"
)

// Remotes is the part of a repository remote detection needs
type Remotes interface {
	Remotes() ([]string, error)
	RemoteURL(name string) (string, error)
}

// DetectRemote picks the Gerrit remote. A configured name must parse;
// otherwise the first remote whose name or URL mentions gerrit wins.
func DetectRemote(repo Remotes, configured string) (string, gerrit.Project, error) {
	if configured != "" {
		url, err := repo.RemoteURL(configured)
		if err != nil {
			return "", gerrit.Project{}, err
		}
		project, err := gerrit.ParseRemoteURL(url)
		if err != nil {
			return "", gerrit.Project{}, fmt.Errorf("remote %s: %w", configured, err)
		}
		return configured, project, nil
	}

	names, err := repo.Remotes()
	if err != nil {
		return "", gerrit.Project{}, err
	}

	var tried []string
	for _, name := range names {
		url, err := repo.RemoteURL(name)
		if err != nil {
			continue
		}
		if !strings.Contains(name, "gerrit") && !strings.Contains(url, "gerrit") {
			continue
		}
		tried = append(tried, url)
		if project, err := gerrit.ParseRemoteURL(url); err == nil {
			return name, project, nil
		}
	}

	if len(tried) == 0 {
		return "", gerrit.Project{}, fmt.Errorf("%w: no remote name or URL contains `gerrit`; set one with `git-gr config set remote NAME`", grerrors.ErrNotGerritRemote)
	}
	lines := make([]string, 0, len(tried))
	for _, url := range tried {
		lines = append(lines, "• "+url)
	}
	return "", gerrit.Project{}, fmt.Errorf("%w: could not parse any Gerrit remote URL:\n%s", grerrors.ErrNotGerritRemote, strings.Join(lines, "\n"))
}
