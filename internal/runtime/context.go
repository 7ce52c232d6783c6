package runtime

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"gitgr.dev/gitgr/internal/cache"
	"gitgr.dev/gitgr/internal/config"
	"gitgr.dev/gitgr/internal/gerrit"
	"gitgr.dev/gitgr/internal/git"
	"gitgr.dev/gitgr/internal/output"
	"gitgr.dev/gitgr/internal/restack"
)

const logFile = "git-gr.log"

// Options tune GetContext
type Options struct {
	Debug bool
}

// Context provides access to the repository and its Gerrit remote for commands
type Context struct {
	Context context.Context
	Repo    *git.Repo
	Config  *config.RepoConfig
	Splog   *output.Splog
	Cache   *cache.Cache
	Gerrit  *gerrit.Client
	Restack *restack.Engine
}

// GitDir is the repository's git directory
func (c *Context) GitDir() string {
	return c.Repo.GitDir()
}

// GetContext opens the repository in the working directory and connects it
// to its Gerrit remote
func GetContext(ctx context.Context, opts Options) (*Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	repo, err := git.Open(ctx, ".")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	cfg, err := config.GetRepoConfig(repo.GitDir())
	if err != nil {
		return nil, err
	}

	splogOpts := output.SplogOptions{Debug: opts.Debug || output.DebugFromEnv()}
	if cfg.LogFileEnabled() {
		splogOpts.LogFilePath = filepath.Join(repo.GitDir(), logFile)
	}
	splog, err := output.NewSplogWithOptions(splogOpts)
	if err != nil {
		return nil, err
	}

	remote, project, err := DetectRemote(repo, cfg.RemoteName())
	if err != nil {
		_ = splog.Close()
		return nil, err
	}
	splog.Debug("Using remote %s for %s", remote, project)

	c, err := openCache(cfg, project, splog)
	if err != nil {
		_ = splog.Close()
		return nil, err
	}

	client := gerrit.NewClient(gerrit.ClientOptions{
		Project:   project,
		Remote:    remote,
		Transport: gerrit.NewSSH(project.Host, splog),
		REST:      gerrit.NewHTTP(project.Host, repo, splog),
		Git:       repo,
		Cache:     c,
		Splog:     splog,
	})

	return &Context{
		Context: ctx,
		Repo:    repo,
		Config:  cfg,
		Splog:   splog,
		Cache:   c,
		Gerrit:  client,
		Restack: restack.New(restack.Options{
			VCS:    repo,
			Remote: client,
			Cache:  c,
			Splog:  splog,
		}),
	}, nil
}

// openCache opens the project's store. An unusable store only costs speed,
// so it degrades to a disabled cache.
func openCache(cfg *config.RepoConfig, project gerrit.Project, splog *output.Splog) (*cache.Cache, error) {
	ttl, fetchTTL, err := cfg.CacheTTLs()
	if err != nil {
		return nil, err
	}
	path, err := cache.DefaultPath(project.Identity())
	if err != nil {
		splog.Debug("Cache disabled: %v", err)
		return cache.Disabled(splog), nil
	}
	c, err := cache.Open(cache.Config{Path: path, TTL: ttl, FetchTTL: fetchTTL}, splog)
	if err != nil {
		splog.Warn("Cache disabled: %v", err)
		return cache.Disabled(splog), nil
	}
	return c, nil
}

// Close releases the cache and the log file
func (c *Context) Close() error {
	var errs []error
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	if c.Splog != nil {
		errs = append(errs, c.Splog.Close())
	}
	return errors.Join(errs...)
}
