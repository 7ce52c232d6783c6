package gerrit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	grerrors "gitgr.dev/gitgr/internal/errors"
	"gitgr.dev/gitgr/internal/output"
)

// xssiPrefix guards every Gerrit JSON response
const xssiPrefix = ")]}'"

// Credentials supplies HTTP logins, usually from `git credential fill`
type Credentials interface {
	CredentialFill(ctx context.Context, host string) (string, string, error)
}

// HTTP is a REST client for one Gerrit host
type HTTP struct {
	host        Host
	baseURL     string
	client      *http.Client
	credentials Credentials
	splog       *output.Splog

	once     sync.Once
	username string
	password string
	authErr  error
}

// NewHTTP creates a REST client. credentials may be nil when the login comes
// from GIT_GR_HTTP_USER and GIT_GR_HTTP_PASSWORD.
func NewHTTP(host Host, credentials Credentials, splog *output.Splog) *HTTP {
	return &HTTP{
		host:        host,
		baseURL:     "https://" + host.Host,
		client:      &http.Client{Timeout: 60 * time.Second},
		credentials: credentials,
		splog:       splog,
	}
}

// WithBaseURL points the client at another server root, for tests
func (h *HTTP) WithBaseURL(baseURL string) *HTTP {
	h.baseURL = baseURL
	return h
}

func (h *HTTP) login(ctx context.Context) (string, string, error) {
	h.once.Do(func() {
		user, password := os.Getenv("GIT_GR_HTTP_USER"), os.Getenv("GIT_GR_HTTP_PASSWORD")
		if user != "" && password != "" {
			h.username, h.password = user, password
			return
		}
		if h.credentials == nil {
			h.authErr = fmt.Errorf("no HTTP credentials for %s; set GIT_GR_HTTP_USER and GIT_GR_HTTP_PASSWORD", h.host.Host)
			return
		}
		h.username, h.password, h.authErr = h.credentials.CredentialFill(ctx, h.host.Host)
		if h.authErr != nil {
			h.authErr = fmt.Errorf("failed to get HTTP credentials for %s: %w", h.host.Host, h.authErr)
		}
	})
	return h.username, h.password, h.authErr
}

// Do performs a request against an endpoint and returns the response body
// with the XSSI prefix removed
func (h *HTTP) Do(ctx context.Context, method, endpoint string) ([]byte, error) {
	user, password, err := h.login(ctx)
	if err != nil {
		return nil, err
	}

	url := h.baseURL + "/a/" + NormalizeEndpoint(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.SetBasicAuth(user, password)
	req.Header.Set("Accept", "application/json")

	h.splog.Debug("HTTP %s %s", method, url)
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &grerrors.HTTPError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return bytes.TrimLeft(bytes.TrimPrefix(body, []byte(xssiPrefix)), "\r\n"), nil
}
