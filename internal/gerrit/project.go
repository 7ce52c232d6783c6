package gerrit

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	grerrors "gitgr.dev/gitgr/internal/errors"
)

// DefaultSSHPort is Gerrit's default SSH port
const DefaultSSHPort = 29418

// Host is a Gerrit server reachable over SSH
type Host struct {
	Username string
	Host     string
	Port     int
}

// ConnectTo returns the ssh destination, `ssh://USER@HOST:PORT`
func (h Host) ConnectTo() string {
	return fmt.Sprintf("ssh://%s@%s:%d", h.Username, h.Host, h.Port)
}

// Endpoint returns the authenticated REST URL for an endpoint path
func (h Host) Endpoint(endpoint string) string {
	return fmt.Sprintf("https://%s/a/%s", h.Host, NormalizeEndpoint(endpoint))
}

func (h Host) String() string {
	return h.ConnectTo()
}

// Project is a Host plus a project name
type Project struct {
	Host
	Name string
}

// RemoteURL returns the git URL of the project
func (p Project) RemoteURL() string {
	return p.ConnectTo() + "/" + p.Name
}

// Identity names the project for cache partitioning
func (p Project) Identity() string {
	return p.Host.Host + "/" + p.Name
}

// EscapedName returns the project name for use in REST paths
func (p Project) EscapedName() string {
	return url.PathEscape(p.Name)
}

func (p Project) String() string {
	return p.RemoteURL()
}

// ssh://USER@HOST[:PORT]/PROJECT
var remoteURLRe = regexp.MustCompile(`^ssh://([\w.+-]+)@(\w[\w.-]*)(?::([0-9]+))?/([\w./-]+?)(?:\.git)?/?$`)

// ParseRemoteURL parses a git remote URL of the form ssh://USER@HOST:PORT/PROJECT
func ParseRemoteURL(remoteURL string) (Project, error) {
	m := remoteURLRe.FindStringSubmatch(remoteURL)
	if m == nil {
		return Project{}, fmt.Errorf("%w: could not parse Git remote as Gerrit URL: %s", grerrors.ErrNotGerritRemote, remoteURL)
	}

	port := DefaultSSHPort
	if m[3] != "" {
		p, err := strconv.Atoi(m[3])
		if err != nil || p <= 0 || p > 65535 {
			return Project{}, fmt.Errorf("failed to parse port `%s` from Git remote: %s", m[3], remoteURL)
		}
		port = p
	}

	return Project{
		Host: Host{
			Username: m[1],
			Host:     m[2],
			Port:     port,
		},
		Name: m[4],
	}, nil
}

// NormalizeEndpoint strips leading slashes from a REST endpoint
func NormalizeEndpoint(endpoint string) string {
	for len(endpoint) > 0 && endpoint[0] == '/' {
		endpoint = endpoint[1:]
	}
	return endpoint
}
