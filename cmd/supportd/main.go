// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quellwerk/supportd/internal/audit"
	"github.com/quellwerk/supportd/internal/cache"
	"github.com/quellwerk/supportd/internal/config"
	"github.com/quellwerk/supportd/internal/docs"
	"github.com/quellwerk/supportd/internal/github"
	"github.com/quellwerk/supportd/internal/health"
	"github.com/quellwerk/supportd/internal/log"
	"github.com/quellwerk/supportd/internal/mcp"
	"github.com/quellwerk/supportd/internal/server"
	"github.com/quellwerk/supportd/internal/telemetry"
	"github.com/quellwerk/supportd/internal/tickets"
)

var (
	version   = "v0.3.0"
	commit    = "none"
	buildDate = "unknown"
)

const serviceName = "supportd"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (commit: %s, built: %s)\n", serviceName, version, commit, buildDate)
		os.Exit(0)
	}

	// Safe logging defaults until the config is loaded.
	log.Configure(log.Config{
		Level:   "info",
		Service: serviceName,
		Version: version,
	})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	if path == "" {
		// Pick up ${SUPPORTD_DATA_DIR}/config.yaml when present.
		if dataDir := os.Getenv("SUPPORTD_DATA_DIR"); dataDir != "" {
			candidate := filepath.Join(dataDir, "config.yaml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				logger.Info().Str("path", candidate).Msg("using config file from data directory")
			}
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration invalid")
	}

	log.Reconfigure(log.Config{
		Level:   cfg.LogLevel,
		Service: serviceName,
		Version: version,
	})

	if err := config.StartupChecks(cfg); err != nil {
		logger.Fatal().Err(err).Msg("startup checks failed")
	}

	logger.Info().
		Str("version", version).
		Str(log.FieldRepo, cfg.GitHubRepo).
		Str("listen", cfg.ListenAddr).
		Bool("token_configured", cfg.GitHubToken != "").
		Msg("starting")

	// Telemetry, a noop provider when disabled.
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.OTelEnabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		ExporterType:   cfg.OTelExporter,
		Endpoint:       cfg.OTelEndpoint,
		SamplingRate:   cfg.OTelSampling,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("telemetry setup failed")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	// Cache backend.
	var ticketCache cache.Cache
	switch cfg.CacheBackend {
	case "redis":
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log.WithComponent("cache"))
		if err != nil {
			logger.Fatal().Err(err).Msg("redis cache unavailable")
		}
		ticketCache = redisCache
	default:
		ticketCache = cache.NewMemoryCache(time.Minute)
	}
	defer func() {
		if err := ticketCache.Close(); err != nil {
			logger.Warn().Err(err).Msg("cache close failed")
		}
	}()

	// GitHub boundary.
	gh := github.New(github.Config{
		APIBase:  cfg.GitHubAPIBase,
		Repo:     cfg.GitHubRepo,
		Token:    cfg.GitHubToken,
		Cache:    ticketCache,
		CacheTTL: cfg.CacheTTL,
	})

	// Documentation index.
	index := docs.NewIndex(cfg.DocsDir)

	// Audit store.
	store, err := audit.Open(filepath.Join(cfg.DataDir, "audit.db"))
	if err != nil {
		logger.Fatal().Err(err).Msg("audit store unavailable")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("audit close failed")
		}
	}()

	// Tool registry.
	registry := mcp.NewRegistry(serviceName, version)
	service := tickets.New(gh, index, store, filepath.Join(cfg.DataDir, "reports"))
	service.Register(registry)

	// Health checks.
	healthMgr := health.NewManager(version)
	healthMgr.RegisterChecker(health.PingChecker{
		ComponentName: "github",
		Ping:          gh.Ping,
	})
	healthMgr.RegisterChecker(health.PingChecker{
		ComponentName: "audit",
		Ping:          store.HealthCheck,
	})
	healthMgr.RegisterChecker(health.CheckFunc{
		CheckerName: "docs",
		Fn: func(ctx context.Context) health.CheckResult {
			if _, err := os.Stat(cfg.DocsDir); err != nil {
				return health.CheckResult{
					Status:  health.StatusDegraded,
					Message: "documentation directory missing",
				}
			}
			return health.CheckResult{Status: health.StatusHealthy}
		},
	})
	if redisCache, ok := ticketCache.(*cache.RedisCache); ok {
		healthMgr.RegisterChecker(health.PingChecker{
			ComponentName: "cache",
			Ping:          redisCache.HealthCheck,
		})
	}

	srv := server.New(server.Config{
		ListenAddr:     cfg.ListenAddr,
		MetricsAddr:    cfg.MetricsAddr,
		TrustedProxies: cfg.TrustedProxies,
		RateLimitRPM:   cfg.RateLimitRPM,
		TracingEnabled: cfg.OTelEnabled,
	}, mcp.NewHandler(registry), healthMgr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return docs.Watch(gctx, index) })
	if cfg.MetricsAddr != "" {
		metricsSrv := server.NewMetrics(cfg.MetricsAddr, healthMgr)
		g.Go(func() error { return metricsSrv.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("daemon failed")
	}
	logger.Info().Msg("stopped")
}
