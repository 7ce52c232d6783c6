package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const configFile = ".git-gr_config"

// Environment overrides
const (
	RemoteEnv   = "GIT_GR_REMOTE"
	CacheTTLEnv = "GIT_GR_CACHE_TTL"
)

// Defaults for unset values
const (
	DefaultCacheTTL      = 10 * time.Minute
	DefaultFetchCacheTTL = 7 * 24 * time.Hour
)

// RepoConfig represents the repository configuration
type RepoConfig struct {
	Remote        *string `json:"remote,omitempty"`
	CacheTTL      *string `json:"cacheTTL,omitempty"`
	FetchCacheTTL *string `json:"fetchCacheTTL,omitempty"`
	LogFile       *bool   `json:"logFile,omitempty"`
}

func configPath(gitDir string) string {
	return filepath.Join(gitDir, configFile)
}

// GetRepoConfig reads the repository configuration. A missing file is an
// empty configuration.
func GetRepoConfig(gitDir string) (*RepoConfig, error) {
	data, err := os.ReadFile(configPath(gitDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &RepoConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read repo config: %w", err)
	}

	var config RepoConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse repo config: %w", err)
	}
	return &config, nil
}

// SaveRepoConfig writes the repository configuration
func SaveRepoConfig(gitDir string, config *RepoConfig) error {
	configJSON, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(configPath(gitDir), configJSON, 0600)
}

// RemoteName returns the configured Gerrit remote, or "" to auto-detect
func (c *RepoConfig) RemoteName() string {
	if remote := os.Getenv(RemoteEnv); remote != "" {
		return remote
	}
	if c.Remote != nil {
		return *c.Remote
	}
	return ""
}

// CacheTTLs returns how long query answers and fetched commits are cached
func (c *RepoConfig) CacheTTLs() (time.Duration, time.Duration, error) {
	ttl, err := parseDuration("cacheTTL", os.Getenv(CacheTTLEnv), c.CacheTTL, DefaultCacheTTL)
	if err != nil {
		return 0, 0, err
	}
	fetchTTL, err := parseDuration("fetchCacheTTL", "", c.FetchCacheTTL, DefaultFetchCacheTTL)
	if err != nil {
		return 0, 0, err
	}
	return ttl, fetchTTL, nil
}

func parseDuration(name, env string, configured *string, fallback time.Duration) (time.Duration, error) {
	value := env
	if value == "" && configured != nil {
		value = *configured
	}
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return d, nil
}

// LogFileEnabled reports whether git-gr.log is written in the git directory
func (c *RepoConfig) LogFileEnabled() bool {
	return c.LogFile == nil || *c.LogFile
}

// Keys lists the settings `git-gr config` understands
var Keys = []string{"remote", "cache-ttl", "fetch-cache-ttl", "log-file"}

// Get returns a setting by key, and whether it is set
func (c *RepoConfig) Get(key string) (string, bool, error) {
	switch key {
	case "remote":
		return deref(c.Remote)
	case "cache-ttl":
		return deref(c.CacheTTL)
	case "fetch-cache-ttl":
		return deref(c.FetchCacheTTL)
	case "log-file":
		if c.LogFile == nil {
			return "", false, nil
		}
		return strconv.FormatBool(*c.LogFile), true, nil
	default:
		return "", false, fmt.Errorf("unknown configuration key: %s", key)
	}
}

// Set validates and stores a setting by key
func (c *RepoConfig) Set(key, value string) error {
	switch key {
	case "remote":
		c.Remote = &value
	case "cache-ttl", "fetch-cache-ttl":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid value for %s: %s (must be a duration like 10m)", key, value)
		}
		if key == "cache-ttl" {
			c.CacheTTL = &value
		} else {
			c.FetchCacheTTL = &value
		}
	case "log-file":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for log-file: %s (must be 'true' or 'false')", value)
		}
		c.LogFile = &enabled
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func deref(s *string) (string, bool, error) {
	if s == nil {
		return "", false, nil
	}
	return *s, true, nil
}
