package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func stringPtr(s string) *string {
	return &s
}

func TestGetRepoConfig(t *testing.T) {
	t.Run("missing config is empty", func(t *testing.T) {
		config, err := GetRepoConfig(t.TempDir())
		require.NoError(t, err)
		require.Equal(t, &RepoConfig{}, config)
		require.True(t, config.LogFileEnabled())
	})

	t.Run("round trips", func(t *testing.T) {
		dir := t.TempDir()
		disabled := false
		saved := &RepoConfig{Remote: stringPtr("gerrit"), CacheTTL: stringPtr("1h"), LogFile: &disabled}
		require.NoError(t, SaveRepoConfig(dir, saved))
		require.FileExists(t, filepath.Join(dir, ".git-gr_config"))

		config, err := GetRepoConfig(dir)
		require.NoError(t, err)
		require.Equal(t, saved, config)
		require.False(t, config.LogFileEnabled())
	})

	t.Run("invalid json", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".git-gr_config"), []byte("{"), 0600))
		_, err := GetRepoConfig(dir)
		require.ErrorContains(t, err, "failed to parse repo config")
	})
}

func TestRemoteName(t *testing.T) {
	config := &RepoConfig{Remote: stringPtr("gerrit")}
	require.Equal(t, "gerrit", config.RemoteName())
	require.Equal(t, "", (&RepoConfig{}).RemoteName())

	t.Setenv(RemoteEnv, "review")
	require.Equal(t, "review", config.RemoteName())
}

func TestCacheTTLs(t *testing.T) {
	ttl, fetchTTL, err := (&RepoConfig{}).CacheTTLs()
	require.NoError(t, err)
	require.Equal(t, DefaultCacheTTL, ttl)
	require.Equal(t, DefaultFetchCacheTTL, fetchTTL)

	config := &RepoConfig{CacheTTL: stringPtr("30s"), FetchCacheTTL: stringPtr("24h")}
	ttl, fetchTTL, err = config.CacheTTLs()
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, ttl)
	require.Equal(t, 24*time.Hour, fetchTTL)

	t.Setenv(CacheTTLEnv, "0s")
	ttl, _, err = config.CacheTTLs()
	require.NoError(t, err)
	require.Zero(t, ttl)

	_, _, err = (&RepoConfig{FetchCacheTTL: stringPtr("soon")}).CacheTTLs()
	require.ErrorContains(t, err, "invalid fetchCacheTTL")
}

func TestGetSet(t *testing.T) {
	config := &RepoConfig{}
	for _, key := range Keys {
		_, ok, err := config.Get(key)
		require.NoError(t, err)
		require.False(t, ok, key)
	}

	require.NoError(t, config.Set("remote", "gerrit"))
	require.NoError(t, config.Set("cache-ttl", "5m"))
	require.NoError(t, config.Set("fetch-cache-ttl", "48h"))
	require.NoError(t, config.Set("log-file", "false"))

	value, ok, err := config.Get("log-file")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "false", value)
	value, _, _ = config.Get("fetch-cache-ttl")
	require.Equal(t, "48h", value)

	require.ErrorContains(t, config.Set("cache-ttl", "forever"), "must be a duration")
	require.ErrorContains(t, config.Set("log-file", "maybe"), "must be 'true' or 'false'")
	require.ErrorContains(t, config.Set("trunk", "main"), "unknown configuration key")
	_, _, err = config.Get("trunk")
	require.ErrorContains(t, err, "unknown configuration key")
}
