// The apiserver runs the full dashboard deployment: every analysis service,
// the pipeline executor, and all backing infrastructure.  Components that
// cannot be reached at startup are logged and left out; the server still
// answers with whatever it has, and /readyz reports what is missing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/molprop/platform/internal/application/bioisostere"
	"github.com/molprop/platform/internal/application/lookup"
	"github.com/molprop/platform/internal/application/mmp"
	"github.com/molprop/platform/internal/application/pareto"
	"github.com/molprop/platform/internal/application/pipeline"
	"github.com/molprop/platform/internal/application/registry"
	"github.com/molprop/platform/internal/application/runs"
	"github.com/molprop/platform/internal/application/sar"
	"github.com/molprop/platform/internal/application/visualize"
	"github.com/molprop/platform/internal/config"
	"github.com/molprop/platform/internal/domain/run"
	"github.com/molprop/platform/internal/infrastructure/database/postgres"
	"github.com/molprop/platform/internal/infrastructure/database/postgres/repositories"
	"github.com/molprop/platform/internal/infrastructure/database/redis"
	"github.com/molprop/platform/internal/infrastructure/messaging/kafka"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/internal/infrastructure/monitoring/prometheus"
	"github.com/molprop/platform/internal/infrastructure/search/milvus"
	"github.com/molprop/platform/internal/infrastructure/storage/minio"
	httpapi "github.com/molprop/platform/internal/interfaces/http"
	"github.com/molprop/platform/internal/interfaces/http/handlers"
	"github.com/molprop/platform/internal/interfaces/http/middleware"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(loggingConfig(cfg.Log))
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	logger = logger.Named("apiserver")

	// File-based deployments can retune the log level without a restart.
	if *configPath != "" {
		config.Watch(*configPath, func(next *config.Config) {
			if setter, ok := logger.(logging.LevelSetter); ok {
				setter.SetLevel(next.Log.Level)
			}
			logger.Info("configuration reloaded", logging.String("log_level", next.Log.Level))
		})
	}

	logger.Info("starting dashboard API",
		logging.String("version", version),
		logging.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
	)

	ctx := context.Background()
	metrics := prometheus.NewMetrics(logger)
	health := map[string]handlers.HealthCheck{}

	// Postgres: run records, job rows, and the compound registry.
	var (
		runRepo      *repositories.RunRepository
		jobRepo      *repositories.JobRepository
		compoundRepo *repositories.CompoundRepository
	)
	if conn, err := postgres.NewConnection(ctx, cfg.Database, logger); err != nil {
		logger.Warn("postgres unavailable, runs tracked on filesystem only", logging.Err(err))
	} else {
		defer conn.Close()
		if err := postgres.Migrate(cfg.Database, logger); err != nil {
			logger.Warn("migrations failed", logging.Err(err))
		}
		runRepo = repositories.NewRunRepository(conn.Pool(), logger)
		jobRepo = repositories.NewJobRepository(conn.Pool(), logger)
		compoundRepo = repositories.NewCompoundRepository(conn.Pool(), logger)
		health["postgres"] = conn.HealthCheck
	}

	// Redis: lookup cache and run locks.
	var (
		cache redis.Cache
		locks pipeline.LockFactory
	)
	if rcli, err := redis.NewClient(cfg.Redis, logger); err != nil {
		logger.Warn("redis unavailable, caching and run locks disabled", logging.Err(err))
	} else {
		defer rcli.Close()
		cache = redis.NewCache(rcli, logger, redis.WithMetrics(metrics))
		locks = func(runID string) pipeline.Mutex { return rcli.NewRunMutex(runID, 0) }
		health["redis"] = cache.Ping
	}

	// Kafka: async job queue.
	var queue handlers.JobQueue
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewJobProducer(cfg.Kafka, logger)
		defer producer.Close()
		queue = producer
	} else {
		logger.Warn("no kafka brokers configured, async analyses disabled")
	}

	// MinIO: archived run bundles.
	var bundles *minio.BundleStore
	if bs, err := minio.NewBundleStore(cfg.MinIO, logger); err != nil {
		logger.Warn("minio unavailable, bundle archival disabled", logging.Err(err))
	} else if err := bs.EnsureBucket(ctx); err != nil {
		logger.Warn("bundle bucket unavailable, bundle archival disabled", logging.Err(err))
	} else {
		bundles = bs
	}

	// Milvus: fingerprint similarity index.
	var (
		searcher lookup.FingerprintSearcher
		fpIndex  registry.VectorIndex
	)
	if index, err := milvus.NewFingerprintIndex(ctx, cfg.Milvus, logger); err != nil {
		logger.Warn("milvus unavailable, similarity lookups will scan tables", logging.Err(err))
	} else {
		defer index.Close()
		searcher = index
		fpIndex = index
	}

	toolkit := run.NewToolkit(
		cfg.Toolkit.CalcCommand,
		cfg.Toolkit.ReportCommand,
		cfg.Toolkit.PicklistsCommand,
		cfg.Toolkit.StepTimeout,
		logger,
	)

	viz := visualize.NewService(logger, metrics)
	pipelineOpts := pipeline.Options{
		ArchiveBundles: cfg.Runs.ArchiveBundles,
		Locks:          locks,
		Metrics:        metrics,
	}
	if runRepo != nil {
		pipelineOpts.Store = runRepo
	}
	if bundles != nil {
		pipelineOpts.Bundles = bundles
	}
	pipelineSvc := pipeline.NewService(cfg.Runs.BaseDir, toolkit, viz, pipelineOpts, logger)

	var runReader runs.RunReader
	if runRepo != nil {
		runReader = runRepo
	}
	var bundleStore runs.BundleStore
	if bundles != nil {
		bundleStore = bundles
	}
	runsSvc := runs.NewService(cfg.Runs.BaseDir, runReader, bundleStore, logger)

	var jobStore handlers.JobStore
	if jobRepo != nil {
		jobStore = jobRepo
	}
	services := handlers.AnalysisServices{
		Visualize:   viz,
		Pareto:      pareto.NewService(logger, metrics),
		MMP:         mmp.NewService(logger, metrics),
		SAR:         sar.NewService(logger, metrics),
		Lookup:      lookup.NewService(logger, metrics, cache, searcher),
		Bioisostere: bioisostere.NewService(logger, metrics),
	}
	var registrySvc *registry.Service
	if compoundRepo != nil || fpIndex != nil {
		var store registry.CompoundStore
		if compoundRepo != nil {
			store = compoundRepo
		}
		registrySvc = registry.NewService(logger, metrics, store, fpIndex)
		services.Registry = registrySvc
	}
	analyses := handlers.NewAnalysisHandler(services, queue, jobStore, metrics, logger)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Tables:   handlers.NewTableHandler(filepath.Join(cfg.Runs.BaseDir, "uploads"), metrics, logger),
		Analyses: analyses,
		Runs:     handlers.NewRunHandler(pipelineSvc, runsSvc, logger),
		Health:   handlers.NewHealthHandler(version, health, logger),
		CORS:     middleware.DefaultCORSConfig(),
		Logging:  middleware.DefaultLoggingConfig(),
		Metrics:  metrics,
		Logger:   logger,
	})

	srv := httpapi.NewServer(cfg.Server, router, logger)

	// Background loops stop together at shutdown.
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	// Retention sweep for old run directories.
	if cfg.Runs.Retention > 0 {
		go pruneLoop(bgCtx, runsSvc, cfg.Runs.Retention, logger)
	}

	// Completed runs feed the lookup registry, including runs finished by
	// workers or written straight into the runs directory.
	if registrySvc != nil {
		if watcher, err := run.NewWatcher(cfg.Runs.BaseDir, logger); err != nil {
			logger.Warn("run watcher unavailable, completed runs are not auto-indexed", logging.Err(err))
		} else {
			defer watcher.Close()
			go watchRuns(bgCtx, watcher, registrySvc, logger)
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", logging.Err(err))
		}
	case sig := <-quit:
		logger.Info("shutting down", logging.String("signal", sig.String()))
		if err := srv.Stop(context.Background()); err != nil {
			logger.Error("shutdown incomplete", logging.Err(err))
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func loggingConfig(lc config.LogConfig) logging.Config {
	out := lc.Output
	if out == "" {
		out = "stdout"
	}
	return logging.Config{
		Level:       lc.Level,
		Format:      lc.Format,
		OutputPaths: []string{out},
	}
}

// watchRuns blocks on the fsnotify watcher, indexing each completed run's
// results table into the lookup registry.
func watchRuns(ctx context.Context, w *run.Watcher, reg *registry.Service, log logging.Logger) {
	err := w.Watch(ctx, func(rc run.Context) {
		if err := reg.IndexRun(ctx, rc); err != nil {
			log.Warn("cannot index completed run",
				logging.String("run_id", rc.ID()), logging.Err(err))
		}
	})
	if err != nil {
		log.Warn("run watcher stopped", logging.Err(err))
	}
}

// pruneLoop deletes run directories older than the retention window.  The
// first sweep runs immediately so restarts do not postpone cleanup.
func pruneLoop(ctx context.Context, svc *runs.Service, retention time.Duration, log logging.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		if n, err := svc.Prune(ctx, retention); err != nil {
			log.Warn("run retention sweep failed", logging.Err(err))
		} else if n > 0 {
			log.Info("pruned expired runs", logging.Int("count", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
