// Package pipeline orchestrates the layer runs of the lakehouse: extract
// per city into bronze, aggregate bronze into silver, join and score silver
// into gold.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/config"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/lake"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/load"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/observability"
)

// Extractor pulls typed rows for one site from one upstream source.
type Extractor[T any] interface {
	Extract(ctx context.Context, site domain.Site) ([]T, error)
}

// Extractors groups the per-source extraction collaborators. Stations is
// optional: nil skips the station merge.
type Extractors struct {
	Forecast   Extractor[domain.WeatherReading]
	Historical Extractor[domain.WeatherReading]
	AirQuality Extractor[domain.AirQualityReading]
	Stations   Extractor[domain.StationRecord]
}

// InsightPublisher delivers scored gold insights downstream.
type InsightPublisher interface {
	Publish(ctx context.Context, insights []domain.ForecastInsight) error
}

// Orchestrator drives layer runs against the table store.
type Orchestrator struct {
	cfg        config.Config
	extractors Extractors
	publisher  InsightPublisher
	tables     catalog
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
}

// catalog holds one typed handle per table so tag and partition problems
// surface at construction, not mid-run.
type catalog struct {
	forecast   *lake.Table[domain.WeatherReading]
	historical *lake.Table[domain.WeatherReading]
	airQuality *lake.Table[domain.AirQualityReading]
	stations   *lake.Table[domain.StationRecord]

	weatherSummary  *lake.Table[domain.DailySummary]
	weatherForecast *lake.Table[domain.DailySummary]
	airDaily        *lake.Table[domain.AirQualityDaily]
	hourlySilver    *lake.Table[domain.HourlyPattern]

	combined   *lake.Table[domain.ForecastInsight]
	hourlyGold *lake.Table[domain.HourlyPattern]
}

func openCatalog(store *lake.Store) (catalog, error) {
	var c catalog
	var err error

	if c.forecast, err = openTable[domain.WeatherReading](store, domain.BronzeForecast); err != nil {
		return c, err
	}
	if c.historical, err = openTable[domain.WeatherReading](store, domain.BronzeHistorical); err != nil {
		return c, err
	}
	if c.airQuality, err = openTable[domain.AirQualityReading](store, domain.BronzeAirQuality); err != nil {
		return c, err
	}
	if c.stations, err = openTable[domain.StationRecord](store, domain.BronzeStations); err != nil {
		return c, err
	}
	if c.weatherSummary, err = openTable[domain.DailySummary](store, domain.SilverWeatherSummary); err != nil {
		return c, err
	}
	if c.weatherForecast, err = openTable[domain.DailySummary](store, domain.SilverWeatherForecast); err != nil {
		return c, err
	}
	if c.airDaily, err = openTable[domain.AirQualityDaily](store, domain.SilverAirQualityDaily); err != nil {
		return c, err
	}
	if c.hourlySilver, err = openTable[domain.HourlyPattern](store, domain.SilverHourlyPatterns); err != nil {
		return c, err
	}
	if c.combined, err = openTable[domain.ForecastInsight](store, domain.GoldForecastCombined); err != nil {
		return c, err
	}
	if c.hourlyGold, err = openTable[domain.HourlyPattern](store, domain.GoldHourlyPatterns); err != nil {
		return c, err
	}
	return c, nil
}

func openTable[T any](store *lake.Store, id domain.TableID) (*lake.Table[T], error) {
	tbl, err := lake.Open[T](store, id.Path(), id.PartitionColumns())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	return tbl, nil
}

// New creates an Orchestrator over the given store. publisher may be nil to
// disable publishing.
func New(cfg config.Config, store *lake.Store, extractors Extractors, publisher InsightPublisher, logger *slog.Logger, metrics *observability.Metrics) (*Orchestrator, error) {
	tables, err := openCatalog(store)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:        cfg,
		extractors: extractors,
		publisher:  publisher,
		tables:     tables,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// CheckReadiness returns nil once at least one layer run has completed since
// process start, successfully or not.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if !o.ready.Load() {
		return errors.New("no layer run has completed yet")
	}
	return nil
}

// Run executes the configured layers in bronze, silver, gold order. A failed
// layer does not stop the following ones; their errors accumulate into the
// returned error. Cancellation stops between layers.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.metrics.PipelineRunning.Set(1)
	defer o.metrics.PipelineRunning.Set(0)

	logger := o.logger.With("run_id", uuid.NewString())
	logger.Info("pipeline run started", "layers", o.cfg.Layers, "cities", len(o.cfg.Cities))

	var errs *multierror.Error
	for _, layer := range []domain.Layer{domain.LayerBronze, domain.LayerSilver, domain.LayerGold} {
		if !o.cfg.HasLayer(layer.String()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		if err := o.runLayer(ctx, logger, layer); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", layer, err))
		}
	}
	return errs.ErrorOrNil()
}

func (o *Orchestrator) runLayer(ctx context.Context, logger *slog.Logger, layer domain.Layer) error {
	start := time.Now()
	var err error
	switch layer {
	case domain.LayerBronze:
		_, err = o.RunBronze(ctx, o.cfg.Cities)
	case domain.LayerSilver:
		_, err = o.RunSilver(ctx)
	case domain.LayerGold:
		_, err = o.RunGold(ctx)
	}

	elapsed := time.Since(start)
	o.metrics.LayerDuration.WithLabelValues(layer.String()).Observe(elapsed.Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	o.metrics.LayerRuns.WithLabelValues(layer.String(), outcome).Inc()
	o.ready.Store(true)

	if err != nil {
		logger.Error("layer failed", "layer", layer.String(), "duration", elapsed, "error", err)
		return err
	}
	logger.Info("layer complete", "layer", layer.String(), "duration", elapsed)
	return nil
}

// recordLoad feeds one delete-insert result into the table metrics.
func (o *Orchestrator) recordLoad(table string, res *load.Result) {
	if res.DeleteVersion != load.NoCommit {
		o.metrics.Commits.WithLabelValues(table, "delete").Inc()
		o.metrics.RowsDeleted.WithLabelValues(table).Add(float64(res.DeletedRows))
	}
	if res.WriteVersion != load.NoCommit {
		o.metrics.Commits.WithLabelValues(table, "write").Inc()
		o.metrics.RowsWritten.WithLabelValues(table).Add(float64(res.WrittenRows))
	}
}
