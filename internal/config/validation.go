// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/quellwerk/supportd/internal/log"
)

var (
	ErrRepoMissing = errors.New("config: SUPPORTD_GITHUB_REPO is required")
	ErrRepoFormat  = errors.New(`config: repo must have the form "owner/name"`)
)

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c AppConfig) Validate() error {
	repo := strings.TrimSpace(c.GitHubRepo)
	if repo == "" {
		return ErrRepoMissing
	}
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%w: got %q", ErrRepoFormat, repo)
	}

	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache backend %q (memory, redis)", c.CacheBackend)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("config: cache TTL must be positive, got %s", c.CacheTTL)
	}
	if c.RateLimitRPM < 1 {
		return fmt.Errorf("config: rate limit must be >= 1 rpm, got %d", c.RateLimitRPM)
	}
	if c.TrustedProxies != "" {
		for _, entry := range strings.Split(c.TrustedProxies, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			if _, _, err := net.ParseCIDR(entry); err != nil {
				return fmt.Errorf("config: trusted proxy %q is not a CIDR", entry)
			}
		}
	}
	if c.OTelEnabled {
		switch c.OTelExporter {
		case "grpc", "http":
		default:
			return fmt.Errorf("config: unsupported telemetry exporter %q (grpc, http)", c.OTelExporter)
		}
	}
	return nil
}

// StartupChecks fails fast on environment problems: the data directory must
// be creatable and writable. A missing docs directory is only a warning
// because the docs tools degrade gracefully.
func StartupChecks(c AppConfig) error {
	logger := log.WithComponent("config")

	if err := os.MkdirAll(c.DataDir, 0o750); err != nil {
		return fmt.Errorf("config: data dir %s: %w", c.DataDir, err)
	}
	probe := c.DataDir + "/.write-probe"
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("config: data dir %s not writable: %w", c.DataDir, err)
	}
	_ = os.Remove(probe)

	if info, err := os.Stat(c.DocsDir); err != nil || !info.IsDir() {
		logger.Warn().
			Str("docs_dir", c.DocsDir).
			Msg("docs directory missing; docs tools will report an empty corpus")
	}
	return nil
}
