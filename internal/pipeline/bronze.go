package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/config"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/lake"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/load"
)

// BronzeResult reports one city's bronze run. Err is set when a source
// failed; the row counts cover what landed before the failure.
type BronzeResult struct {
	City           string
	ForecastRows   int64
	HistoricalRows int64
	AirQualityRows int64
	StationRows    int64
	Err            error
}

// RunBronze extracts every source for every city and lands the rows in the
// bronze tables. Cities run sequentially and fail independently: a failed
// city is accumulated into the returned error and the remaining cities
// still run.
func (o *Orchestrator) RunBronze(ctx context.Context, cities []config.City) ([]BronzeResult, error) {
	retrieved := domain.Today()
	results := make([]BronzeResult, 0, len(cities))
	var errs *multierror.Error

	for _, city := range cities {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}

		res := o.runBronzeCity(ctx, city, retrieved)
		results = append(results, res)
		if res.Err != nil {
			o.metrics.CityFailures.WithLabelValues(city.Name).Inc()
			o.logger.Error("bronze city failed", "city", city.Name, "error", res.Err)
			errs = multierror.Append(errs, fmt.Errorf("city %s: %w", city.Name, res.Err))
			continue
		}
		o.logger.Info("bronze city complete", "city", city.Name,
			"forecast_rows", res.ForecastRows,
			"historical_rows", res.HistoricalRows,
			"air_quality_rows", res.AirQualityRows,
			"station_rows", res.StationRows,
		)
	}
	return results, errs.ErrorOrNil()
}

// runBronzeCity lands every source for one city. The first failing source
// aborts the city's remaining sources; sources already landed stay.
func (o *Orchestrator) runBronzeCity(ctx context.Context, city config.City, retrieved string) BronzeResult {
	res := BronzeResult{City: city.Name}
	site := domain.Site{Latitude: city.Latitude, Longitude: city.Longitude}
	filter := lake.PartitionFilter{"city": city.Name, "date_retrieved": retrieved}

	forecast, err := extract(ctx, o, "forecast", o.extractors.Forecast, site)
	if err != nil {
		res.Err = fmt.Errorf("extract forecast: %w", err)
		return res
	}
	for i := range forecast {
		forecast[i].City = city.Name
	}
	loaded, err := load.DeleteInsert(ctx, o.tables.forecast, forecast, filter)
	if err != nil {
		res.Err = fmt.Errorf("load forecast: %w", err)
		return res
	}
	o.recordLoad(o.tables.forecast.Name(), loaded)
	res.ForecastRows = loaded.WrittenRows

	historical, err := extract(ctx, o, "historical", o.extractors.Historical, site)
	if err != nil {
		res.Err = fmt.Errorf("extract historical: %w", err)
		return res
	}
	for i := range historical {
		historical[i].City = city.Name
	}
	loaded, err = load.DeleteInsert(ctx, o.tables.historical, historical, filter)
	if err != nil {
		res.Err = fmt.Errorf("load historical: %w", err)
		return res
	}
	o.recordLoad(o.tables.historical.Name(), loaded)
	res.HistoricalRows = loaded.WrittenRows

	air, err := extract(ctx, o, "air_quality", o.extractors.AirQuality, site)
	if err != nil {
		res.Err = fmt.Errorf("extract air quality: %w", err)
		return res
	}
	for i := range air {
		air[i].City = city.Name
	}
	loaded, err = load.DeleteInsert(ctx, o.tables.airQuality, air, filter)
	if err != nil {
		res.Err = fmt.Errorf("load air quality: %w", err)
		return res
	}
	o.recordLoad(o.tables.airQuality.Name(), loaded)
	res.AirQualityRows = loaded.WrittenRows

	if o.extractors.Stations == nil {
		return res
	}
	stations, err := extract(ctx, o, "stations", o.extractors.Stations, site)
	if err != nil {
		res.Err = fmt.Errorf("extract stations: %w", err)
		return res
	}
	for i := range stations {
		stations[i].City = city.Name
	}
	merged, err := load.MergeUpsert(ctx, o.tables.stations, stations, domain.StationRecord.Key)
	if err != nil {
		res.Err = fmt.Errorf("merge stations: %w", err)
		return res
	}
	if merged.Updated+merged.Inserted > 0 {
		o.metrics.Commits.WithLabelValues(o.tables.stations.Name(), "merge").Inc()
		o.metrics.RowsWritten.WithLabelValues(o.tables.stations.Name()).Add(float64(merged.Updated + merged.Inserted))
	}
	res.StationRows = merged.Inserted + merged.Updated

	return res
}

// extract runs one source's extraction with request metrics.
func extract[T any](ctx context.Context, o *Orchestrator, source string, e Extractor[T], site domain.Site) ([]T, error) {
	start := time.Now()
	rows, err := e.Extract(ctx, site)
	o.metrics.ExtractDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	o.metrics.ExtractRequests.WithLabelValues(source, outcome).Inc()
	return rows, err
}
