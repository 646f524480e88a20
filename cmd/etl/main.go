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

	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"

	httpadapter "github.com/couchcryptid/weather-lakehouse-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-lakehouse-etl/internal/adapter/kafka"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/adapter/meteostat"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/adapter/openmeteo"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/config"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/lake"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/observability"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	store := lake.NewStore(cfg.StorageRoot, logger)

	extractors := pipeline.Extractors{
		Forecast:   openmeteo.NewForecastExtractor(cfg.OpenMeteoBaseURL, cfg.ExtractTimeout, logger),
		Historical: openmeteo.NewHistoricalExtractor(cfg.OpenMeteoArchiveURL, cfg.LookbackDays, cfg.ExtractTimeout, logger),
		AirQuality: openmeteo.NewAirQualityExtractor(cfg.OpenMeteoAirURL, cfg.ExtractTimeout, logger),
	}

	// Station extraction is feature-flagged via METEOSTAT_API_KEY.
	if cfg.MeteostatAPIKey != "" {
		extractors.Stations = meteostat.NewStationsExtractor(cfg.MeteostatHost, cfg.MeteostatAPIKey, cfg.ExtractTimeout, logger)
		logger.Info("meteostat stations enabled", "host", cfg.MeteostatHost)
	} else {
		logger.Info("meteostat stations disabled")
	}

	var publisher pipeline.InsightPublisher
	var closePublisher func() error
	if cfg.KafkaEnabled {
		p := kafkaadapter.NewPublisher(cfg, logger)
		publisher = p
		closePublisher = p.Close
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	orch, err := pipeline.New(*cfg, store, extractors, publisher, logger, metrics)
	if err != nil {
		logger.Error("failed to open table catalog", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, orch, registry, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	runErr := run(ctx, cfg, orch, logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if closePublisher != nil {
		if err := closePublisher(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	if runErr != nil {
		os.Exit(1)
	}
}

// run executes a single pipeline run when no schedule is configured, or
// keeps running on the cron schedule until the context is cancelled.
// Scheduled runs never overlap.
func run(ctx context.Context, cfg *config.Config, orch *pipeline.Orchestrator, logger *slog.Logger) error {
	if cfg.ScheduleCron == "" {
		if err := orch.Run(ctx); err != nil {
			logger.Error("pipeline run failed", "error", err)
			return err
		}
		return nil
	}

	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Cron(cfg.ScheduleCron).SingletonMode().Do(func() {
		if err := orch.Run(ctx); err != nil {
			logger.Error("pipeline run failed", "error", err)
		}
	})
	if err != nil {
		logger.Error("invalid cron schedule", "schedule", cfg.ScheduleCron, "error", err)
		return err
	}

	scheduler.StartAsync()
	logger.Info("scheduler started", "schedule", cfg.ScheduleCron)

	<-ctx.Done()
	scheduler.Stop()
	return nil
}
