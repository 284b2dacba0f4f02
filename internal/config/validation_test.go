// SPDX-License-Identifier: MIT

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() AppConfig {
	cfg := Defaults()
	cfg.GitHubRepo = "acme/helpdesk"
	return cfg
}

func TestValidate_TrustedProxies(t *testing.T) {
	tests := []struct {
		name    string
		proxies string
		wantErr bool
	}{
		{name: "empty", proxies: "", wantErr: false},
		{name: "single CIDR", proxies: "10.0.0.0/8", wantErr: false},
		{name: "multiple CIDRs", proxies: "10.0.0.0/8, 192.168.0.0/16", wantErr: false},
		{name: "IPv6 CIDR", proxies: "fd00::/8", wantErr: false},
		{name: "bare IP without mask", proxies: "10.0.0.1", wantErr: true},
		{name: "garbage", proxies: "not-a-cidr", wantErr: true},
		{name: "one bad entry in a list", proxies: "10.0.0.0/8, bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.TrustedProxies = tt.proxies

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_CacheBackend(t *testing.T) {
	cfg := validConfig()
	cfg.CacheBackend = "memcached"
	require.Error(t, cfg.Validate())

	cfg.CacheBackend = "redis"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_TelemetryExporter(t *testing.T) {
	cfg := validConfig()
	cfg.OTelEnabled = true
	cfg.OTelExporter = "udp"
	require.Error(t, cfg.Validate())

	// Exporter is only checked when telemetry is on.
	cfg.OTelEnabled = false
	assert.NoError(t, cfg.Validate())
}

func TestStartupChecks_CreatesDataDir(t *testing.T) {
	cfg := validConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "nested", "data")
	cfg.DocsDir = t.TempDir()

	require.NoError(t, StartupChecks(cfg))
	assert.DirExists(t, cfg.DataDir)
}

func TestStartupChecks_MissingDocsDirIsNotFatal(t *testing.T) {
	cfg := validConfig()
	cfg.DataDir = t.TempDir()
	cfg.DocsDir = filepath.Join(t.TempDir(), "no-such-docs")

	assert.NoError(t, StartupChecks(cfg))
}
