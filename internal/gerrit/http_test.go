package gerrit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	grerrors "gitgr.dev/gitgr/internal/errors"
	"gitgr.dev/gitgr/internal/output"
)

type staticCredentials struct {
	calls int
}

func (s *staticCredentials) CredentialFill(_ context.Context, host string) (string, string, error) {
	s.calls++
	if host == "" {
		return "", "", errors.New("no host")
	}
	return "alice", "secret", nil
}

func TestHTTPDo(t *testing.T) {
	t.Setenv("GIT_GR_HTTP_USER", "")
	t.Setenv("GIT_GR_HTTP_PASSWORD", "")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok || user != "alice" || password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/a/changes/10/revisions/current/related":
			_, _ = w.Write([]byte(")]}'\n{\"changes\":[]}"))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("Not found"))
		}
	}))
	defer server.Close()

	creds := &staticCredentials{}
	client := NewHTTP(Host{Host: "review.example.com"}, creds, output.NewDiscardSplog()).WithBaseURL(server.URL)

	body, err := client.Do(context.Background(), http.MethodGet, "/changes/10/revisions/current/related")
	require.NoError(t, err)
	require.Equal(t, `{"changes":[]}`, string(body))

	_, err = client.Do(context.Background(), http.MethodGet, "changes/99")
	var httpErr *grerrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	require.Contains(t, httpErr.Error(), "Not found")

	require.Equal(t, 1, creds.calls)
}

func TestHTTPCredentialsFromEnv(t *testing.T) {
	t.Setenv("GIT_GR_HTTP_USER", "alice")
	t.Setenv("GIT_GR_HTTP_PASSWORD", "secret")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, _ := r.BasicAuth()
		_, _ = w.Write([]byte(")]}'\n\"" + user + "\""))
	}))
	defer server.Close()

	client := NewHTTP(Host{Host: "review.example.com"}, nil, output.NewDiscardSplog()).WithBaseURL(server.URL)
	body, err := client.Do(context.Background(), http.MethodGet, "accounts/self")
	require.NoError(t, err)
	require.Equal(t, `"alice"`, string(body))
}

func TestHTTPWithoutCredentials(t *testing.T) {
	t.Setenv("GIT_GR_HTTP_USER", "")
	t.Setenv("GIT_GR_HTTP_PASSWORD", "")

	client := NewHTTP(Host{Host: "review.example.com"}, nil, output.NewDiscardSplog())
	_, err := client.Do(context.Background(), http.MethodGet, "accounts/self")
	require.ErrorContains(t, err, "GIT_GR_HTTP_USER")
}
