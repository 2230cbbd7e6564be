package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/cache"
	"github.com/kailas-cloud/prodsearch/internal/config"
	"github.com/kailas-cloud/prodsearch/internal/db"
	dbBadger "github.com/kailas-cloud/prodsearch/internal/db/badger"
	dbPostgres "github.com/kailas-cloud/prodsearch/internal/db/postgres"
	dbSQLite "github.com/kailas-cloud/prodsearch/internal/db/sqlite"
	dbValkey "github.com/kailas-cloud/prodsearch/internal/db/valkey"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/prodsearch/internal/logger"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
	"github.com/kailas-cloud/prodsearch/internal/perfmon"
	analyticsrepo "github.com/kailas-cloud/prodsearch/internal/repository/analytics"
	productrepo "github.com/kailas-cloud/prodsearch/internal/repository/product"
	chiTransport "github.com/kailas-cloud/prodsearch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/prodsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/prodsearch/internal/usecase/search"
	suggestuc "github.com/kailas-cloud/prodsearch/internal/usecase/suggest"
	"github.com/kailas-cloud/prodsearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting prodsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("built", version.Date),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("datastore_driver", cfg.Datastore.Driver),
		zap.String("analytics_driver", cfg.Analytics.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openProductStore(ctx, cfg.Datastore)
	if err != nil {
		logger.Fatal("Failed to create product store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Datastore.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Datastore not ready", zap.Error(err))
	}
	logger.Info("Connected to datastore")

	sink, err := openAnalyticsSink(ctx, cfg.Analytics, logger)
	if err != nil {
		logger.Fatal("Failed to create analytics sink", zap.Error(err))
	}
	if sink != nil {
		defer sink.Close()
	}

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterSearchMetrics()

	resultCache, err := cache.New[result.Page](
		time.Duration(cfg.Cache.TTLSec)*time.Second,
		cfg.Cache.MaxEntries,
		cache.WithMetrics(metrics.SearchCacheTotal, metrics.SearchCacheEvictionsTotal),
		cache.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("Failed to create result cache", zap.Error(err))
	}
	if cfg.Cache.SweepIntervalSec > 0 {
		go resultCache.Run(ctx, time.Duration(cfg.Cache.SweepIntervalSec)*time.Second)
	}

	monitor := perfmon.New(
		perfmon.WithSlowThreshold(cfg.Search.SlowThresholdMs),
		perfmon.WithSlowHook(func(s perfmon.Sample) {
			metrics.SearchSlowTotal.Inc()
			logger.Warn("slow search",
				zap.String("query", s.Query),
				zap.Float64("duration_ms", s.DurationMs),
				zap.Int("result_count", s.ResultCount),
			)
		}),
	)

	// Repositories
	products := productrepo.New(store, cfg.Datastore.QueryTimeout())
	var analytics suggestuc.Analytics
	var analyticsPinger healthuc.Pinger
	if sink != nil {
		// Keep interfaces nil when analytics is disabled; a typed nil would pass != nil checks.
		analytics = analyticsrepo.New(sink)
		analyticsPinger = sink
	}

	// Use case services
	suggestSvc, err := suggestuc.New(products, analytics, suggestuc.Config{
		MaxLimit:     cfg.Search.SuggestMaxLimit,
		Workers:      cfg.Analytics.TrackWorkers,
		TrackTimeout: cfg.Analytics.TrackTimeout(),
	})
	if err != nil {
		logger.Fatal("Failed to create suggestion service", zap.Error(err))
	}
	suggestSvc.WithMonitor(monitor)
	defer func() {
		if err := suggestSvc.Close(time.Duration(cfg.HTTP.ShutdownSec) * time.Second); err != nil {
			logger.Warn("Tracking workers did not drain", zap.Error(err))
		}
	}()

	searchSvc := searchuc.New(products, resultCache, monitor).
		WithTracker(suggestSvc).
		WithWeights(cfg.Search.Ranking(), *cfg.Search.FieldWeights)
	healthSvc := healthuc.New(store, analyticsPinger)

	server := chiTransport.NewServer(searchSvc, suggestSvc, healthSvc, cfg.Search.Policy(), logger)
	handler := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func openProductStore(ctx context.Context, cfg config.DatastoreConfig) (db.ProductStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		s, err := dbPostgres.NewStore(ctx, dbPostgres.Config{
			DSN:            cfg.DSN,
			MaxConns:       cfg.MaxConns,
			FullTextColumn: cfg.FullTextColumn,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := dbSQLite.NewStore(ctx, dbSQLite.Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown datastore driver %q", cfg.Driver)
	}
}

// openAnalyticsSink returns nil, nil when analytics is disabled.
func openAnalyticsSink(ctx context.Context, cfg config.AnalyticsConfig, logger *zap.Logger) (db.AnalyticsSink, error) {
	switch cfg.Driver {
	case config.AnalyticsValkey, config.AnalyticsRedis:
		// rueidis speaks to both; only the server differs.
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:     cfg.Addrs,
			Password:  cfg.Password,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		if err := s.WaitForReady(ctx, 5*time.Second); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case config.AnalyticsBadger:
		s, err := dbBadger.NewStore(dbBadger.Config{Path: cfg.Path, Logger: logger})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.AnalyticsNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown analytics driver %q", cfg.Driver)
	}
}
