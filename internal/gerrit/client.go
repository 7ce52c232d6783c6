// Package gerrit talks to a Gerrit server over its SSH command line and REST
// API, memoizing answers in the project's cache.
package gerrit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"gitgr.dev/gitgr/internal/cache"
	grerrors "gitgr.dev/gitgr/internal/errors"
	"gitgr.dev/gitgr/internal/git"
	"gitgr.dev/gitgr/internal/output"
)

// Transport runs `gerrit` commands on the server
type Transport interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// REST performs REST API requests
type REST interface {
	Do(ctx context.Context, method, endpoint string) ([]byte, error)
}

// Git is the part of the local repository the client needs
type Git interface {
	Fetch(ctx context.Context, remote string, refspecs ...string) (git.CommitHash, error)
	HasCommit(ctx context.Context, rev string) bool
	PushForReview(ctx context.Context, remote string, commit git.CommitHash, branch string) error
}

// ClientOptions wires a Client
type ClientOptions struct {
	Project   Project
	Remote    string
	Transport Transport
	REST      REST
	Git       Git
	Cache     *cache.Cache
	Splog     *output.Splog
}

// Client is a cache-backed Gerrit client for one project, tied to the git
// remote the project is fetched from
type Client struct {
	project   Project
	remote    string
	transport Transport
	rest      REST
	git       Git
	cache     *cache.Cache
	splog     *output.Splog
}

// NewClient creates a client
func NewClient(opts ClientOptions) *Client {
	c := opts.Cache
	if c == nil {
		c = cache.Disabled(opts.Splog)
	}
	return &Client{
		project:   opts.Project,
		remote:    opts.Remote,
		transport: opts.Transport,
		rest:      opts.REST,
		git:       opts.Git,
		cache:     c,
		splog:     opts.Splog,
	}
}

// Project returns the Gerrit project
func (c *Client) Project() Project {
	return c.project
}

// Remote returns the git remote name
func (c *Client) Remote() string {
	return c.remote
}

// Cache returns the backing cache
func (c *Client) Cache() *cache.Cache {
	return c.cache
}

// Command runs an arbitrary `gerrit` command and returns its output
func (c *Client) Command(ctx context.Context, args ...string) (string, error) {
	return c.transport.Run(ctx, args...)
}

// Query runs a query. Results are cached by query string and flags.
func (c *Client) Query(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	key := cache.Query(opts.CacheID())
	var result QueryResult
	if c.cache.Get(key, &result) {
		return &result, nil
	}

	stdout, err := c.transport.Run(ctx, opts.Args()...)
	if err != nil {
		return nil, err
	}
	parsed, err := ParseQueryResult(stdout)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(key, parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

func changeCacheKey(key ChangeKey) cache.Key {
	switch key.Kind {
	case KeyNumber:
		return cache.Change(uint64(key.Number))
	case KeyID:
		return cache.ChangeID(key.Value)
	default:
		return cache.ChangeQuery(key.Value)
	}
}

// GetChange looks up a change with its current patch set. The result is
// cached under its number and Change-Id as well as the requested key.
func (c *Client) GetChange(ctx context.Context, key ChangeKey) (*Change, error) {
	cacheKey := changeCacheKey(key)
	var change Change
	if c.cache.Get(cacheKey, &change) {
		return &change, nil
	}

	stdout, err := c.transport.Run(ctx, NewQuery(key.Query()).CurrentPatchSet().Args()...)
	if err != nil {
		return nil, err
	}
	result, err := ParseQueryResult(stdout)
	if err != nil {
		return nil, err
	}
	if len(result.Changes) == 0 {
		return nil, fmt.Errorf("%w: didn't find change %s", grerrors.ErrChangeNotFound, key)
	}
	found := result.Changes[len(result.Changes)-1]

	for _, k := range []cache.Key{cacheKey, cache.Change(uint64(found.Number)), cache.ChangeID(string(found.ID))} {
		if err := c.cache.Set(k, found); err != nil {
			return nil, err
		}
	}
	return &found, nil
}

// Change looks up a change by number
func (c *Client) Change(ctx context.Context, number ChangeNumber) (*Change, error) {
	return c.GetChange(ctx, NumberKey(number))
}

func dependenciesQuery(number ChangeNumber) QueryOptions {
	return NewQuery(NumberKey(number).Query()).CurrentPatchSet().Dependencies()
}

// Dependencies looks up a change with its depends-on and needed-by lists
func (c *Client) Dependencies(ctx context.Context, number ChangeNumber) (*Change, error) {
	result, err := c.Query(ctx, dependenciesQuery(number))
	if err != nil {
		return nil, fmt.Errorf("failed to get dependencies of %d: %w", number, err)
	}
	if len(result.Changes) == 0 {
		return nil, fmt.Errorf("%w: didn't find change %d", grerrors.ErrChangeNotFound, number)
	}
	change := result.Changes[len(result.Changes)-1]
	return &change, nil
}

func relatedEndpoint(number ChangeNumber) string {
	return fmt.Sprintf("changes/%d/revisions/current/related", number)
}

// RelatedChanges returns the relation chain of a change's current revision
func (c *Client) RelatedChanges(ctx context.Context, number ChangeNumber) (*RelatedChangesInfo, error) {
	body, err := c.API(ctx, http.MethodGet, relatedEndpoint(number))
	if err != nil {
		return nil, fmt.Errorf("failed to get related changes of %d: %w", number, err)
	}
	var info RelatedChangesInfo
	if err := json.Unmarshal([]byte(body), &info); err != nil {
		return nil, fmt.Errorf("failed to parse related changes of %d: %w", number, err)
	}
	return &info, nil
}

// API performs a REST request. GET responses are cached.
func (c *Client) API(ctx context.Context, method, endpoint string) (string, error) {
	endpoint = NormalizeEndpoint(endpoint)
	key := cache.API(endpoint)
	if method == http.MethodGet {
		var body string
		if c.cache.Get(key, &body) {
			return body, nil
		}
	}

	raw, err := c.rest.Do(ctx, method, endpoint)
	if err != nil {
		return "", err
	}
	body := string(raw)
	if method == http.MethodGet {
		if err := c.cache.Set(key, body); err != nil {
			return "", err
		}
	}
	return body, nil
}

// FetchChange fetches a patchset and returns its commit. Cached commits are
// re-fetched when the object is missing locally.
func (c *Client) FetchChange(ctx context.Context, patchset ChangePatchset) (git.CommitHash, error) {
	key := cache.Fetch(uint64(patchset.Change), uint64(patchset.Patchset))
	var commit git.CommitHash
	if c.cache.Get(key, &commit) {
		if c.git.HasCommit(ctx, commit.String()) {
			return commit, nil
		}
		c.splog.Debug("Cached commit %s for %s is missing, fetching again", commit.Abbrev(), patchset)
	}

	commit, err := c.git.Fetch(ctx, c.remote, patchset.GitRef())
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", patchset, err)
	}
	if err := c.cache.Set(key, commit); err != nil {
		return "", err
	}
	return commit, nil
}

// FetchCurrent fetches the current patchset of a change
func (c *Client) FetchCurrent(ctx context.Context, number ChangeNumber) (git.CommitHash, error) {
	change, err := c.Change(ctx, number)
	if err != nil {
		return "", err
	}
	patchset, err := change.Patchset()
	if err != nil {
		return "", err
	}
	return c.FetchChange(ctx, patchset)
}

// Push uploads commit for review against branch
func (c *Client) Push(ctx context.Context, commit git.CommitHash, branch string) error {
	return c.git.PushForReview(ctx, c.remote, commit, branch)
}

// InvalidateChange forgets everything cached about a change
func (c *Client) InvalidateChange(number ChangeNumber) {
	var change Change
	if c.cache.Get(cache.Change(uint64(number)), &change) {
		c.cache.Remove(cache.ChangeID(string(change.ID)))
	}
	c.cache.Remove(cache.Change(uint64(number)))
	c.cache.Remove(cache.Query(dependenciesQuery(number).CacheID()))
	c.cache.Remove(cache.API(relatedEndpoint(number)))
}

// ClearCache drops every cached answer
func (c *Client) ClearCache() error {
	return c.cache.Clear()
}

// Pretty formats `NUMBER (subject)`, falling back to the number
func (c *Client) Pretty(ctx context.Context, number ChangeNumber) string {
	change, err := c.Change(ctx, number)
	if err != nil || change.Subject == "" {
		return number.String()
	}
	return fmt.Sprintf("%d (%s)", number, change.Subject)
}
