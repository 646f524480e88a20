package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/aggregate"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/lake"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/load"
)

// TableResult reports one aggregated table replacement.
type TableResult struct {
	Table      string
	Rows       int64
	Partitions int
}

// RunSilver aggregates the bronze tables into the silver layer. Each silver
// table is replaced city-by-city; a city present in bronze whose transform
// produced no rows gets its stale partition cleared. Tables fail
// independently and their errors accumulate.
func (o *Orchestrator) RunSilver(ctx context.Context) ([]TableResult, error) {
	var errs *multierror.Error
	results := make([]TableResult, 0, 4)

	historical, histErr := readAll(ctx, o, o.tables.historical)
	if histErr != nil {
		errs = multierror.Append(errs, fmt.Errorf("read %s: %w", o.tables.historical.Name(), histErr))
	}
	forecast, fcErr := readAll(ctx, o, o.tables.forecast)
	if fcErr != nil {
		errs = multierror.Append(errs, fmt.Errorf("read %s: %w", o.tables.forecast.Name(), fcErr))
	}
	air, airErr := readAll(ctx, o, o.tables.airQuality)
	if airErr != nil {
		errs = multierror.Append(errs, fmt.Errorf("read %s: %w", o.tables.airQuality.Name(), airErr))
	}

	weatherCity := func(r domain.WeatherReading) string { return r.City }
	summaryCity := func(r domain.DailySummary) string { return r.City }

	if histErr == nil {
		rows, err := aggregate.DailyWeather(historical)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("aggregate %s: %w", o.tables.weatherSummary.Name(), err))
		} else {
			res, err := replaceByCity(ctx, o, o.tables.weatherSummary, rows, summaryCity, citySet(historical, weatherCity))
			results = append(results, res)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", o.tables.weatherSummary.Name(), err))
			}
		}
	}

	if fcErr == nil {
		rows, err := aggregate.DailyWeather(forecast)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("aggregate %s: %w", o.tables.weatherForecast.Name(), err))
		} else {
			res, err := replaceByCity(ctx, o, o.tables.weatherForecast, rows, summaryCity, citySet(forecast, weatherCity))
			results = append(results, res)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", o.tables.weatherForecast.Name(), err))
			}
		}
	}

	if airErr == nil {
		rows, err := aggregate.DailyAirQuality(air)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("aggregate %s: %w", o.tables.airDaily.Name(), err))
		} else {
			res, err := replaceByCity(ctx, o, o.tables.airDaily, rows,
				func(r domain.AirQualityDaily) string { return r.City },
				citySet(air, func(r domain.AirQualityReading) string { return r.City }))
			results = append(results, res)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", o.tables.airDaily.Name(), err))
			}
		}
	}

	if histErr == nil {
		rows, err := aggregate.HourlyPatterns(historical)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("aggregate %s: %w", o.tables.hourlySilver.Name(), err))
		} else {
			res, err := replaceByCity(ctx, o, o.tables.hourlySilver, rows,
				func(r domain.HourlyPattern) string { return r.City },
				citySet(historical, weatherCity))
			results = append(results, res)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", o.tables.hourlySilver.Name(), err))
			}
		}
	}

	return results, errs.ErrorOrNil()
}

// readAll reads a whole table, treating an absent table as empty input.
func readAll[T any](ctx context.Context, o *Orchestrator, tbl *lake.Table[T]) ([]T, error) {
	rows, err := tbl.Read(ctx)
	if err != nil {
		if errors.Is(err, lake.ErrTableNotFound) {
			o.logger.Warn("table absent, treating as empty", "table", tbl.Name())
			return nil, nil
		}
		return nil, err
	}
	return rows, nil
}

// citySet collects the distinct cities of rows.
func citySet[T any](rows []T, cityOf func(T) string) map[string]struct{} {
	set := make(map[string]struct{})
	for i := range rows {
		set[cityOf(rows[i])] = struct{}{}
	}
	return set
}

// replaceByCity replaces tbl city-by-city with rows: one delete-insert per
// city in the union of sourceCities and the rows' own cities, in sorted
// order, so a city that produced no rows still gets its stale partition
// cleared.
func replaceByCity[T any](ctx context.Context, o *Orchestrator, tbl *lake.Table[T], rows []T, cityOf func(T) string, sourceCities map[string]struct{}) (TableResult, error) {
	byCity := make(map[string][]T)
	for i := range rows {
		city := cityOf(rows[i])
		byCity[city] = append(byCity[city], rows[i])
	}

	cities := make([]string, 0, len(sourceCities)+len(byCity))
	for c := range sourceCities {
		cities = append(cities, c)
	}
	for c := range byCity {
		if _, ok := sourceCities[c]; !ok {
			cities = append(cities, c)
		}
	}
	sort.Strings(cities)

	result := TableResult{Table: tbl.Name()}
	var errs *multierror.Error
	for _, city := range cities {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		res, err := load.DeleteInsert(ctx, tbl, byCity[city], lake.PartitionFilter{"city": city})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("city %s: %w", city, err))
			continue
		}
		o.recordLoad(tbl.Name(), res)
		result.Rows += res.WrittenRows
		result.Partitions++
	}
	return result, errs.ErrorOrNil()
}
