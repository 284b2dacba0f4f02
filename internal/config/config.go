// SPDX-License-Identifier: MIT

// Package config loads supportd configuration with precedence
// ENV > file > defaults.
package config

import (
	"time"
)

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	ListenAddr     string
	MetricsAddr    string // empty: serve /metrics on the main listener
	GitHubRepo     string // "owner/name"
	GitHubToken    string
	GitHubAPIBase  string
	DocsDir        string
	DataDir        string
	CacheBackend   string // "memory" or "redis"
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	CacheTTL       time.Duration
	RateLimitRPM   int
	TrustedProxies string // comma-separated CIDRs
	LogLevel       string

	// Telemetry
	OTelEnabled  bool
	OTelExporter string // "grpc" or "http"
	OTelEndpoint string
	OTelSampling float64
}

// Defaults returns the built-in configuration baseline.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr:    ":8080",
		GitHubAPIBase: "https://api.github.com",
		DocsDir:       "docs",
		DataDir:       "/tmp/supportd",
		CacheBackend:  "memory",
		RedisAddr:     "localhost:6379",
		CacheTTL:      30 * time.Second,
		RateLimitRPM:  120,
		LogLevel:      "info",
		OTelExporter:  "grpc",
		OTelEndpoint:  "localhost:4317",
		OTelSampling:  1.0,
	}
}

// Load resolves configuration: defaults, then the optional YAML file at
// path (empty path skips the file layer), then environment overrides.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()

	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return cfg, err
		}
	}
	mergeEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func mergeEnv(cfg *AppConfig) {
	cfg.ListenAddr = ParseString("SUPPORTD_LISTEN", cfg.ListenAddr)
	cfg.MetricsAddr = ParseString("SUPPORTD_METRICS_LISTEN", cfg.MetricsAddr)
	cfg.GitHubRepo = ParseString("SUPPORTD_GITHUB_REPO", cfg.GitHubRepo)
	cfg.GitHubToken = ParseString("SUPPORTD_GITHUB_TOKEN", cfg.GitHubToken)
	cfg.GitHubAPIBase = ParseString("SUPPORTD_GITHUB_API", cfg.GitHubAPIBase)
	cfg.DocsDir = ParseString("SUPPORTD_DOCS_DIR", cfg.DocsDir)
	cfg.DataDir = ParseString("SUPPORTD_DATA_DIR", cfg.DataDir)
	cfg.CacheBackend = ParseString("SUPPORTD_CACHE_BACKEND", cfg.CacheBackend)
	cfg.RedisAddr = ParseString("SUPPORTD_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = ParseString("SUPPORTD_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = ParseInt("SUPPORTD_REDIS_DB", cfg.RedisDB)
	cfg.CacheTTL = ParseDuration("SUPPORTD_CACHE_TTL", cfg.CacheTTL)
	cfg.RateLimitRPM = ParseInt("SUPPORTD_RATE_LIMIT_RPM", cfg.RateLimitRPM)
	cfg.TrustedProxies = ParseString("SUPPORTD_TRUSTED_PROXIES", cfg.TrustedProxies)
	cfg.LogLevel = ParseString("SUPPORTD_LOG_LEVEL", cfg.LogLevel)
	cfg.OTelEnabled = ParseBool("SUPPORTD_OTEL_ENABLED", cfg.OTelEnabled)
	cfg.OTelExporter = ParseString("SUPPORTD_OTEL_EXPORTER", cfg.OTelExporter)
	cfg.OTelEndpoint = ParseString("SUPPORTD_OTEL_ENDPOINT", cfg.OTelEndpoint)
	cfg.OTelSampling = ParseFloat("SUPPORTD_OTEL_SAMPLING", cfg.OTelSampling)
}
