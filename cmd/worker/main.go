// The worker drains the analysis-jobs topic and executes each job against
// the same application services the dashboard runs synchronously.  Job rows
// in Postgres record the outcome so the dashboard can poll status.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/molprop/platform/internal/application/mmp"
	"github.com/molprop/platform/internal/application/pareto"
	"github.com/molprop/platform/internal/application/pipeline"
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
	"github.com/molprop/platform/internal/infrastructure/storage/minio"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

var version = "dev"

// executor dispatches one job to the service matching its kind.
type executor struct {
	visualize *visualize.Service
	pareto    *pareto.Service
	mmp       *mmp.Service
	sar       *sar.Service
	pipeline  *pipeline.Service

	jobs    *repositories.JobRepository
	metrics *prometheus.Metrics
	logger  logging.Logger
}

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
	logger = logger.Named("worker")

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Fatal("no kafka brokers configured, nothing to consume")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := prometheus.NewMetrics(logger)

	// Postgres is how the dashboard observes job outcomes; a worker that
	// cannot record status is worse than no worker at all.
	conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("postgres unavailable", logging.Err(err))
	}
	defer conn.Close()
	jobRepo := repositories.NewJobRepository(conn.Pool(), logger)
	runRepo := repositories.NewRunRepository(conn.Pool(), logger)

	// Redis locks keep two workers off the same run directory.
	var locks pipeline.LockFactory
	if rcli, err := redis.NewClient(cfg.Redis, logger); err != nil {
		logger.Warn("redis unavailable, run locking disabled", logging.Err(err))
	} else {
		defer rcli.Close()
		locks = func(runID string) pipeline.Mutex { return rcli.NewRunMutex(runID, 0) }
	}

	var bundles pipeline.BundleUploader
	if bs, err := minio.NewBundleStore(cfg.MinIO, logger); err != nil {
		logger.Warn("minio unavailable, bundle archival disabled", logging.Err(err))
	} else if err := bs.EnsureBucket(ctx); err != nil {
		logger.Warn("bundle bucket unavailable, bundle archival disabled", logging.Err(err))
	} else {
		bundles = bs
	}

	toolkit := run.NewToolkit(
		cfg.Toolkit.CalcCommand,
		cfg.Toolkit.ReportCommand,
		cfg.Toolkit.PicklistsCommand,
		cfg.Toolkit.StepTimeout,
		logger,
	)
	viz := visualize.NewService(logger, metrics)

	exec := &executor{
		visualize: viz,
		pareto:    pareto.NewService(logger, metrics),
		mmp:       mmp.NewService(logger, metrics),
		sar:       sar.NewService(logger, metrics),
		pipeline: pipeline.NewService(cfg.Runs.BaseDir, toolkit, viz, pipeline.Options{
			Store:          runRepo,
			Bundles:        bundles,
			ArchiveBundles: cfg.Runs.ArchiveBundles,
			Locks:          locks,
			Metrics:        metrics,
		}, logger),
		jobs:    jobRepo,
		metrics: metrics,
		logger:  logger,
	}

	concurrency := cfg.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	logger.Info("worker consuming jobs",
		logging.String("version", version),
		logging.String("topic", cfg.Kafka.JobsTopic),
		logging.Int("concurrency", concurrency),
	)

	// One consumer per slot; Kafka balances partitions across the group.
	consumers := make([]*kafka.JobConsumer, concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for i := range consumers {
		consumers[i] = kafka.NewJobConsumer(cfg.Kafka, logger)
		c := consumers[i]
		g.Go(func() error { return c.Run(gctx, exec.handle) })
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", logging.String("signal", sig.String()))
	case <-gctx.Done():
	}
	cancel()
	for _, c := range consumers {
		if err := c.Close(); err != nil {
			logger.Warn("consumer close failed", logging.Err(err))
		}
	}
	if err := g.Wait(); err != nil {
		logger.Error("consumer stopped", logging.Err(err))
		os.Exit(1)
	}
}

// handle runs one dequeued job and records the outcome on its row.
func (e *executor) handle(ctx context.Context, job *analysis.Job) (err error) {
	log := e.logger.With(
		logging.String("job_id", string(job.ID)),
		logging.String("kind", string(job.Kind)),
	)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		e.metrics.JobsConsumed.WithLabelValues(string(job.Kind), outcome).Inc()
	}()

	if err := e.jobs.SetStatus(ctx, string(job.ID), analysis.JobRunning, ""); err != nil {
		log.Warn("cannot mark job running", logging.Err(err))
	}

	start := time.Now()
	err = e.execute(ctx, job)
	if err != nil {
		log.Error("job failed",
			logging.Duration("elapsed", time.Since(start)), logging.Err(err))
		if serr := e.jobs.SetStatus(ctx, string(job.ID), analysis.JobFailed, err.Error()); serr != nil {
			log.Warn("cannot record job failure", logging.Err(serr))
		}
		return err
	}

	log.Info("job succeeded", logging.Duration("elapsed", time.Since(start)))
	if serr := e.jobs.SetStatus(ctx, string(job.ID), analysis.JobSucceeded, ""); serr != nil {
		log.Warn("cannot record job success", logging.Err(serr))
	}
	return nil
}

func (e *executor) execute(ctx context.Context, job *analysis.Job) error {
	switch job.Kind {
	case analysis.KindVisualize:
		if job.Visualize == nil {
			return errors.New(errors.ErrCodeBadRequest, "visualize job carries no request")
		}
		_, err := e.visualize.Run(ctx, *job.Visualize)
		return err
	case analysis.KindPareto:
		if job.Pareto == nil {
			return errors.New(errors.ErrCodeBadRequest, "pareto job carries no request")
		}
		_, err := e.pareto.Run(ctx, *job.Pareto)
		return err
	case analysis.KindMMP:
		if job.MMP == nil {
			return errors.New(errors.ErrCodeBadRequest, "mmp job carries no request")
		}
		_, err := e.mmp.Run(ctx, *job.MMP)
		return err
	case analysis.KindSAR:
		if job.SAR == nil {
			return errors.New(errors.ErrCodeBadRequest, "sar job carries no request")
		}
		_, err := e.sar.Run(ctx, *job.SAR)
		return err
	case analysis.KindPipeline:
		if job.Pipeline == nil {
			return errors.New(errors.ErrCodeBadRequest, "pipeline job carries no request")
		}
		_, _, err := e.pipeline.Run(ctx, *job.Pipeline)
		return err
	default:
		return errors.Newf(errors.ErrCodeBadRequest, "unknown job kind %q", job.Kind)
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
