// Command goesfire imports GOES fire detections into PostGIS. It polls the
// NOAA open data bucket for new full-disk FDC files, extracts fire pixels over
// the configured region and stores them, optionally mirroring each batch to
// Kafka. Set RUN_ONCE=true to run a single cycle and exit.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/oklog/run"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/adapter/archive"
	httpadapter "github.com/rafaellwml/Fire-Data-GOES16/internal/adapter/http"
	kafkaadapter "github.com/rafaellwml/Fire-Data-GOES16/internal/adapter/kafka"
	"github.com/rafaellwml/Fire-Data-GOES16/internal/adapter/netcdf"
	"github.com/rafaellwml/Fire-Data-GOES16/internal/adapter/noaa"
	"github.com/rafaellwml/Fire-Data-GOES16/internal/adapter/postgis"
	"github.com/rafaellwml/Fire-Data-GOES16/internal/config"
	"github.com/rafaellwml/Fire-Data-GOES16/internal/domain"
	"github.com/rafaellwml/Fire-Data-GOES16/internal/observability"
	"github.com/rafaellwml/Fire-Data-GOES16/internal/pipeline"
)

// startupTimeout bounds the database connect and migration steps.
const startupTimeout = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := runService(cfg, logger); err != nil {
		logger.Error("goesfire stopped with error", "error", err)
		os.Exit(1)
	}
}

func runService(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	loc, err := domain.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), startupTimeout)
	db, err := postgis.Connect(startCtx, cfg.DatabaseURL, logger)
	if err != nil {
		cancelStart()
		return err
	}
	if cfg.Migrate {
		if err := postgis.Migrate(startCtx, db); err != nil {
			cancelStart()
			_ = db.Close()
			return err
		}
		logger.Info("database migrations applied")
	}
	cancelStart()

	store := postgis.NewStore(db, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}()

	loaders := []pipeline.Loader{store}
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	arch := archive.New(cfg.SaveDir, logger)
	logger.Info("importer configured",
		"save_dir", arch.Root(), "bucket", cfg.Bucket, "product", cfg.Product,
		"region", cfg.Region, "workers", cfg.Workers, "run_once", cfg.RunOnce)

	reader := netcdf.NewReader(logger)
	processor := pipeline.NewFireProcessor(reader, domain.ExtractOptions{Region: cfg.Region, Location: loc}, logger)
	p := pipeline.New(
		arch,
		noaa.NewClient(cfg, logger),
		reader,
		processor,
		loaders,
		logger,
		metrics,
		pipeline.Options{DefaultStart: cfg.DefaultStart, PollInterval: cfg.PollInterval, Workers: cfg.Workers},
	)

	if cfg.RunOnce {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		_, err := p.RunCycle(ctx)
		return err
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, readiness{p, store}, func() any {
		if res, ok := p.LastCycle(); ok {
			return res
		}
		return map[string]string{"status": "no cycle completed yet"}
	}, logger)

	var g run.Group
	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))

	g.Add(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	g.Add(func() error {
		return p.Run(ctx)
	}, func(error) {
		cancel()
	})

	err = g.Run()
	logger.Info("shutdown complete")

	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		logger.Info("received signal", "signal", sigErr.Signal.String())
		return nil
	}
	return err
}

// readiness reports ready only when every checker does.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
