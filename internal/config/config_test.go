package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithRepoFromEnv(t *testing.T) {
	t.Setenv("SUPPORTD_GITHUB_REPO", "acme/helpdesk")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.GitHubRepo != "acme/helpdesk" {
		t.Errorf("GitHubRepo = %q", cfg.GitHubRepo)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %s, want 30s", cfg.CacheTTL)
	}
}

func TestLoadRequiresRepo(t *testing.T) {
	os.Unsetenv("SUPPORTD_GITHUB_REPO")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when repo is unset")
	}
}

func TestLoadRejectsMalformedRepo(t *testing.T) {
	for _, repo := range []string{"acme", "acme/", "/helpdesk", "a/b/c"} {
		t.Setenv("SUPPORTD_GITHUB_REPO", repo)
		if _, err := Load(""); err == nil {
			t.Errorf("repo %q: expected validation error", repo)
		}
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
listen: ":9000"
github:
  repo: file/repo
cache:
  backend: redis
  ttl: 5m
rateLimitRPM: 10
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SUPPORTD_GITHUB_REPO", "env/repo")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHubRepo != "env/repo" {
		t.Errorf("env should win over file, got %q", cfg.GitHubRepo)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q, want :9000 from file", cfg.ListenAddr)
	}
	if cfg.CacheBackend != "redis" {
		t.Errorf("CacheBackend = %q, want redis from file", cfg.CacheBackend)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %s, want 5m", cfg.CacheTTL)
	}
	if cfg.RateLimitRPM != 10 {
		t.Errorf("RateLimitRPM = %d, want 10", cfg.RateLimitRPM)
	}
}

func TestValidateCacheBackend(t *testing.T) {
	cfg := Defaults()
	cfg.GitHubRepo = "acme/helpdesk"
	cfg.CacheBackend = "memcached"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown cache backend")
	}
}

func TestParseHelpers(t *testing.T) {
	t.Setenv("SUPPORTD_TEST_INT", "7")
	if got := ParseInt("SUPPORTD_TEST_INT", 1); got != 7 {
		t.Errorf("ParseInt = %d", got)
	}
	t.Setenv("SUPPORTD_TEST_INT", "zero")
	if got := ParseInt("SUPPORTD_TEST_INT", 1); got != 1 {
		t.Errorf("ParseInt fallback = %d", got)
	}
	t.Setenv("SUPPORTD_TEST_DUR", "90s")
	if got := ParseDuration("SUPPORTD_TEST_DUR", time.Second); got != 90*time.Second {
		t.Errorf("ParseDuration = %s", got)
	}
	t.Setenv("SUPPORTD_TEST_BOOL", "true")
	if !ParseBool("SUPPORTD_TEST_BOOL", false) {
		t.Error("ParseBool = false")
	}
}
