// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors AppConfig for YAML decoding. Pointer fields distinguish
// "absent" from zero values so the file only overrides what it sets.
type fileConfig struct {
	Listen        *string `yaml:"listen"`
	MetricsListen *string `yaml:"metricsListen"`
	GitHub        struct {
		Repo  *string `yaml:"repo"`
		Token *string `yaml:"token"`
		API   *string `yaml:"api"`
	} `yaml:"github"`
	DocsDir *string `yaml:"docsDir"`
	DataDir *string `yaml:"dataDir"`
	Cache   struct {
		Backend  *string `yaml:"backend"`
		Redis    *string `yaml:"redisAddr"`
		Password *string `yaml:"redisPassword"`
		DB       *int    `yaml:"redisDB"`
		TTL      *string `yaml:"ttl"`
	} `yaml:"cache"`
	RateLimitRPM   *int    `yaml:"rateLimitRPM"`
	TrustedProxies *string `yaml:"trustedProxies"`
	LogLevel       *string `yaml:"logLevel"`
	Telemetry      struct {
		Enabled  *bool    `yaml:"enabled"`
		Exporter *string  `yaml:"exporter"`
		Endpoint *string  `yaml:"endpoint"`
		Sampling *float64 `yaml:"sampling"`
	} `yaml:"telemetry"`
}

func mergeFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path supplied by the operator
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&cfg.ListenAddr, fc.Listen)
	setString(&cfg.MetricsAddr, fc.MetricsListen)
	setString(&cfg.GitHubRepo, fc.GitHub.Repo)
	setString(&cfg.GitHubToken, fc.GitHub.Token)
	setString(&cfg.GitHubAPIBase, fc.GitHub.API)
	setString(&cfg.DocsDir, fc.DocsDir)
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.CacheBackend, fc.Cache.Backend)
	setString(&cfg.RedisAddr, fc.Cache.Redis)
	setString(&cfg.RedisPassword, fc.Cache.Password)
	if fc.Cache.DB != nil {
		cfg.RedisDB = *fc.Cache.DB
	}
	if fc.Cache.TTL != nil {
		d, err := time.ParseDuration(*fc.Cache.TTL)
		if err != nil {
			return fmt.Errorf("config: cache.ttl: %w", err)
		}
		cfg.CacheTTL = d
	}
	if fc.RateLimitRPM != nil {
		cfg.RateLimitRPM = *fc.RateLimitRPM
	}
	setString(&cfg.TrustedProxies, fc.TrustedProxies)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.Telemetry.Enabled != nil {
		cfg.OTelEnabled = *fc.Telemetry.Enabled
	}
	setString(&cfg.OTelExporter, fc.Telemetry.Exporter)
	setString(&cfg.OTelEndpoint, fc.Telemetry.Endpoint)
	if fc.Telemetry.Sampling != nil {
		cfg.OTelSampling = *fc.Telemetry.Sampling
	}
	return nil
}
