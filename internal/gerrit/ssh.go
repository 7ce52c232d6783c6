package gerrit

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/kballard/go-shellquote"

	grerrors "gitgr.dev/gitgr/internal/errors"
	"gitgr.dev/gitgr/internal/output"
)

// DefaultSSHTimeout bounds one remote `gerrit` command
const DefaultSSHTimeout = 2 * time.Minute

// controlPathLimit keeps the socket path under the unix socket length limit
const controlPathLimit = 87

const controlDir = "/tmp"

// SSH runs `gerrit` commands on the server. Connections are multiplexed
// through a persistent ControlMaster socket.
type SSH struct {
	host  Host
	splog *output.Splog
}

// NewSSH creates an SSH transport for host
func NewSSH(host Host, splog *output.Splog) *SSH {
	return &SSH{host: host, splog: splog}
}

// Args returns the ssh argument list for a remote `gerrit` command. The
// remote side receives a single command line, so each argument is quoted.
func (s *SSH) Args(args ...string) []string {
	name := fmt.Sprintf("git-gr-ssh-%s-%s-%d", s.host.Username, s.host.Host, s.host.Port)
	sshArgs := []string{
		"-o", "ControlMaster=auto",
		"-o", "ControlPath=" + controlPath(controlDir, name),
		"-o", "ControlPersist=120",
		s.host.ConnectTo(),
		"gerrit",
	}
	for _, arg := range args {
		sshArgs = append(sshArgs, shellquote.Join(arg))
	}
	return sshArgs
}

// Run executes `gerrit args...` and returns stdout
func (s *SSH) Run(ctx context.Context, args ...string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultSSHTimeout)
		defer cancel()
	}

	sshArgs := s.Args(args...)
	s.splog.Debug("Running ssh %s", shellquote.Join(sshArgs...))

	cmd := exec.CommandContext(ctx, "ssh", sshArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = ctx.Err()
		}
		return "", grerrors.NewGitCommandError("ssh", append([]string{"gerrit"}, args...), stdout.String(), stderr.String(), err)
	}
	return stdout.String(), nil
}

// controlPath builds a ControlPath under dir, truncating name so the whole
// path stays within controlPathLimit bytes
func controlPath(dir, name string) string {
	total := len(dir) + 1 + len(name)
	if total > controlPathLimit {
		cut := total - controlPathLimit
		if cut >= len(name) {
			name = name[:1]
		} else {
			name = name[:len(name)-cut]
		}
	}
	return filepath.Join(dir, name)
}
