package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/insight"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/load"
)

// GoldResult reports one gold layer run.
type GoldResult struct {
	Insights     int64
	PromotedRows int64
	Published    int
}

// RunGold joins the silver daily tables into scored insights, promotes the
// hourly patterns, and publishes the insights when a publisher is wired. The
// three steps are independent; errors accumulate. A publish failure is
// reported but the written gold rows stand.
func (o *Orchestrator) RunGold(ctx context.Context) (*GoldResult, error) {
	var errs *multierror.Error
	result := &GoldResult{}

	forecasts, fcErr := readAll(ctx, o, o.tables.weatherForecast)
	if fcErr != nil {
		errs = multierror.Append(errs, fmt.Errorf("read %s: %w", o.tables.weatherForecast.Name(), fcErr))
	}
	air, airErr := readAll(ctx, o, o.tables.airDaily)
	if airErr != nil {
		errs = multierror.Append(errs, fmt.Errorf("read %s: %w", o.tables.airDaily.Name(), airErr))
	}

	var insights []domain.ForecastInsight
	if fcErr == nil && airErr == nil {
		insights = insight.Combine(forecasts, air)
		res, err := replaceByCity(ctx, o, o.tables.combined, insights,
			func(r domain.ForecastInsight) string { return r.City },
			citySet(forecasts, func(r domain.DailySummary) string { return r.City }))
		result.Insights = res.Rows
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", o.tables.combined.Name(), err))
		} else {
			o.logger.Info("gold insights written", "rows", res.Rows, "partitions", res.Partitions)
		}
	}

	promoted, err := o.promoteHourly(ctx)
	result.PromotedRows = promoted
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", o.tables.hourlyGold.Name(), err))
	}

	if o.publisher != nil && len(insights) > 0 {
		if err := o.publisher.Publish(ctx, insights); err != nil {
			o.metrics.PublishErrors.Inc()
			errs = multierror.Append(errs, fmt.Errorf("publish insights: %w", err))
		} else {
			o.metrics.InsightsPublished.Add(float64(len(insights)))
			result.Published = len(insights)
		}
	}

	return result, errs.ErrorOrNil()
}

// promoteHourly copies the silver hourly patterns into the gold table, one
// atomic partition replacement per city.
func (o *Orchestrator) promoteHourly(ctx context.Context) (int64, error) {
	rows, err := readAll(ctx, o, o.tables.hourlySilver)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", o.tables.hourlySilver.Name(), err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	byCity := make(map[string][]domain.HourlyPattern)
	for i := range rows {
		byCity[rows[i].City] = append(byCity[rows[i].City], rows[i])
	}
	cities := make([]string, 0, len(byCity))
	for c := range byCity {
		cities = append(cities, c)
	}
	sort.Strings(cities)

	name := o.tables.hourlyGold.Name()
	var errs *multierror.Error
	var promoted int64
	for _, city := range cities {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		res, err := load.InsertOverwrite(ctx, o.tables.hourlyGold, byCity[city], "city")
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("city %s: %w", city, err))
			continue
		}
		o.metrics.Commits.WithLabelValues(name, "overwrite").Inc()
		o.metrics.RowsWritten.WithLabelValues(name).Add(float64(res.WrittenRows))
		o.metrics.RowsDeleted.WithLabelValues(name).Add(float64(res.DeletedRows))
		promoted += res.WrittenRows
	}
	return promoted, errs.ErrorOrNil()
}
