// Command inspect prints the state of every table in a local lake: current
// version, live files, row counts and partitions, with optional commit
// history. With -check it also reads the silver and gold tables back and
// verifies the invariants the pipeline is supposed to maintain, exiting
// non-zero on any violation.
//
// Usage:
//
//	go run ./cmd/inspect -root ./out
//	go run ./cmd/inspect -root ./out -table silver/weather_summary -history
//	go run ./cmd/inspect -root ./out -check
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/lake"
	"github.com/couchcryptid/weather-lakehouse-etl/internal/observability"
)

// phase tracks pass/fail for one group of invariant checks.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	root := flag.String("root", "./out", "lake root directory")
	table := flag.String("table", "", "restrict output to one table path, e.g. silver/weather_summary")
	history := flag.Bool("history", false, "print per-table commit history")
	check := flag.Bool("check", false, "verify layer invariants and exit non-zero on violations")
	flag.Parse()

	if code := run(*root, *table, *history, *check); code != 0 {
		os.Exit(code)
	}
}

func run(root, only string, withHistory, check bool) int {
	store := lake.NewStore(root, observability.NewLogger("warn", "text"))

	if err := printState(store, only, withHistory); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	if !check {
		return 0
	}
	return runChecks(context.Background(), store)
}

// ── Lake state ──

// tableMeta is the type-independent slice of the table API the state
// printer needs.
type tableMeta interface {
	Exists() (bool, error)
	Version() (int64, error)
	Files() ([]lake.FileRef, error)
	History() ([]lake.CommitInfo, error)
}

// openMeta opens the table behind an id with its catalog row type.
func openMeta(store *lake.Store, id domain.TableID) (tableMeta, error) {
	switch id {
	case domain.BronzeForecast, domain.BronzeHistorical:
		return lake.Open[domain.WeatherReading](store, id.Path(), id.PartitionColumns())
	case domain.BronzeAirQuality:
		return lake.Open[domain.AirQualityReading](store, id.Path(), id.PartitionColumns())
	case domain.BronzeStations:
		return lake.Open[domain.StationRecord](store, id.Path(), id.PartitionColumns())
	case domain.SilverWeatherSummary, domain.SilverWeatherForecast:
		return lake.Open[domain.DailySummary](store, id.Path(), id.PartitionColumns())
	case domain.SilverAirQualityDaily:
		return lake.Open[domain.AirQualityDaily](store, id.Path(), id.PartitionColumns())
	case domain.SilverHourlyPatterns, domain.GoldHourlyPatterns:
		return lake.Open[domain.HourlyPattern](store, id.Path(), id.PartitionColumns())
	case domain.GoldForecastCombined:
		return lake.Open[domain.ForecastInsight](store, id.Path(), id.PartitionColumns())
	default:
		return nil, fmt.Errorf("unknown table id %d", id)
	}
}

func printState(store *lake.Store, only string, withHistory bool) error {
	fmt.Println("=== Lake State ===")
	fmt.Println()

	matched := false
	layer := domain.Layer(-1)
	for _, id := range domain.Tables() {
		if only != "" && id.Path() != only {
			continue
		}
		matched = true

		if id.Layer() != layer {
			layer = id.Layer()
			fmt.Printf("%s/\n", layer)
		}

		t, err := openMeta(store, id)
		if err != nil {
			return fmt.Errorf("open %s: %w", id, err)
		}
		exists, err := t.Exists()
		if err != nil {
			return fmt.Errorf("stat %s: %w", id, err)
		}
		if !exists {
			fmt.Printf("  %-28s (absent)\n", id.Name())
			continue
		}

		version, err := t.Version()
		if err != nil {
			return fmt.Errorf("version %s: %w", id, err)
		}
		files, err := t.Files()
		if err != nil {
			return fmt.Errorf("files %s: %w", id, err)
		}

		var rows int64
		partitions := make(map[string]struct{})
		for _, f := range files {
			rows += f.Rows
			partitions[partitionKey(id, f)] = struct{}{}
		}
		fmt.Printf("  %-28s v%-4d files=%-3d rows=%-8d partitions=%d\n",
			id.Name(), version, len(files), rows, len(partitions))

		if withHistory {
			history, err := t.History()
			if err != nil {
				return fmt.Errorf("history %s: %w", id, err)
			}
			for _, c := range history {
				fmt.Printf("    v%-3d %s %-12s files +%d/-%d rows +%d/-%d\n",
					c.Version, c.Timestamp.UTC().Format(time.RFC3339), c.Operation,
					c.FilesAdded, c.FilesRemoved, c.RowsAdded, c.RowsRemoved)
			}
		}
	}

	if only != "" && !matched {
		return fmt.Errorf("unknown table path %q", only)
	}
	return nil
}

// partitionKey renders a file's partition values in column order.
func partitionKey(id domain.TableID, f lake.FileRef) string {
	parts := make([]string, 0, len(f.Partition))
	for _, col := range id.PartitionColumns() {
		parts = append(parts, col+"="+f.Partition[col])
	}
	return strings.Join(parts, "/")
}

// ── Invariant checks ──

func runChecks(ctx context.Context, store *lake.Store) int {
	fmt.Println()
	fmt.Println("=== Lake Invariant Checks ===")

	forecast, err := readRows[domain.WeatherReading](ctx, store, domain.BronzeForecast)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", domain.BronzeForecast, err)
		return 1
	}
	historical, err := readRows[domain.WeatherReading](ctx, store, domain.BronzeHistorical)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", domain.BronzeHistorical, err)
		return 1
	}
	air, err := readRows[domain.AirQualityReading](ctx, store, domain.BronzeAirQuality)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", domain.BronzeAirQuality, err)
		return 1
	}
	stations, err := readRows[domain.StationRecord](ctx, store, domain.BronzeStations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", domain.BronzeStations, err)
		return 1
	}
	summaries, err := readRows[domain.DailySummary](ctx, store, domain.SilverWeatherSummary)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", domain.SilverWeatherSummary, err)
		return 1
	}
	forecastDaily, err := readRows[domain.DailySummary](ctx, store, domain.SilverWeatherForecast)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", domain.SilverWeatherForecast, err)
		return 1
	}
	airDaily, err := readRows[domain.AirQualityDaily](ctx, store, domain.SilverAirQualityDaily)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", domain.SilverAirQualityDaily, err)
		return 1
	}
	hourlySilver, err := readRows[domain.HourlyPattern](ctx, store, domain.SilverHourlyPatterns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", domain.SilverHourlyPatterns, err)
		return 1
	}
	hourlyGold, err := readRows[domain.HourlyPattern](ctx, store, domain.GoldHourlyPatterns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", domain.GoldHourlyPatterns, err)
		return 1
	}
	insights, err := readRows[domain.ForecastInsight](ctx, store, domain.GoldForecastCombined)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", domain.GoldForecastCombined, err)
		return 1
	}

	phases := []*phase{
		checkBronzeConformance(forecast, historical, air, stations),
		checkDailyWeatherBounds(summaries, forecastDaily),
		checkAirQualityBounds(airDaily),
		checkHourlyPatterns(hourlySilver, hourlyGold),
		checkForecastInsights(insights, forecastDaily, airDaily),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d bronze, %d silver, %d gold\n",
		len(forecast)+len(historical)+len(air)+len(stations),
		len(summaries)+len(forecastDaily)+len(airDaily)+len(hourlySilver),
		len(insights)+len(hourlyGold))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nCheck FAILED.")
	return 1
}

// readRows reads a table's current rows, treating an absent table as empty.
func readRows[T any](ctx context.Context, store *lake.Store, id domain.TableID) ([]T, error) {
	t, err := lake.Open[T](store, id.Path(), id.PartitionColumns())
	if err != nil {
		return nil, err
	}
	rows, err := t.Read(ctx)
	if errors.Is(err, lake.ErrTableNotFound) {
		return nil, nil
	}
	return rows, err
}

// ── Phase 1: Bronze conformance ──
// Every raw row must carry its identity columns: a non-zero observation
// time, a city and a parseable retrieval date.

func checkBronzeConformance(forecast, historical []domain.WeatherReading, air []domain.AirQualityReading, stations []domain.StationRecord) *phase {
	p := &phase{name: "Phase 1: Bronze conformance"}

	checkReadingIdentity(p, "forecast", forecast)
	checkReadingIdentity(p, "historical", historical)
	for i := range air {
		if air[i].Time == 0 {
			p.errorf("air_quality row %d: zero observation time", i)
		}
		if air[i].City == "" {
			p.errorf("air_quality row %d: empty city", i)
		}
		if !validDate(air[i].DateRetrieved) {
			p.errorf("air_quality row %d: bad date_retrieved %q", i, air[i].DateRetrieved)
		}
	}
	for i := range stations {
		if stations[i].StationID == "" {
			p.errorf("nearest_stations row %d: empty station_id", i)
		}
		if stations[i].City == "" {
			p.errorf("nearest_stations row %d: empty city", i)
		}
		if !validDate(stations[i].DateRetrieved) {
			p.errorf("nearest_stations row %d: bad date_retrieved %q", i, stations[i].DateRetrieved)
		}
	}
	return p
}

func checkReadingIdentity(p *phase, table string, rows []domain.WeatherReading) {
	for i := range rows {
		if rows[i].Time == 0 {
			p.errorf("%s row %d: zero observation time", table, i)
		}
		if rows[i].City == "" {
			p.errorf("%s row %d: empty city", table, i)
		}
		if !validDate(rows[i].DateRetrieved) {
			p.errorf("%s row %d: bad date_retrieved %q", table, i, rows[i].DateRetrieved)
		}
	}
}

// ── Phase 2: Daily weather bounds ──
// Temperature statistics are all-nil or all-set and ordered, the range
// column is derived from min and max, and precipitation never goes negative.

func checkDailyWeatherBounds(summaries, forecastDaily []domain.DailySummary) *phase {
	p := &phase{name: "Phase 2: Daily weather bounds"}
	checkDailySummaries(p, "weather_summary", summaries)
	checkDailySummaries(p, "weather_forecast", forecastDaily)
	return p
}

func checkDailySummaries(p *phase, table string, rows []domain.DailySummary) {
	for i := range rows {
		r := rows[i]
		where := fmt.Sprintf("%s row %d (%s, %s)", table, i, r.Date, r.City)

		checkGroupIdentity(p, where, r.Date, r.City, r.Geohash, r.DateRetrieved)
		checkStat(p, where, "temperature", r.TempMin, r.TempAvg, r.TempMax)

		switch {
		case r.TempRange == nil && r.TempMin != nil:
			p.errorf("%s: temperature_range nil despite temperature stats", where)
		case r.TempRange != nil && r.TempMin == nil:
			p.errorf("%s: temperature_range set without temperature stats", where)
		case r.TempRange != nil && !approx(*r.TempRange, *r.TempMax-*r.TempMin):
			p.errorf("%s: temperature_range %.3f != max-min %.3f", where, *r.TempRange, *r.TempMax-*r.TempMin)
		}

		if r.TotalPrecipitation < 0 {
			p.errorf("%s: negative total_precipitation %.3f", where, r.TotalPrecipitation)
		}
		if r.AvgWindspeed != nil && *r.AvgWindspeed < 0 {
			p.errorf("%s: negative avg_windspeed %.3f", where, *r.AvgWindspeed)
		}
	}
}

// ── Phase 3: Air quality bounds ──
// Pollutant statistics follow the same triple rule, and the simplified AQI
// is derived from pm2_5_avg and capped at 100.

func checkAirQualityBounds(rows []domain.AirQualityDaily) *phase {
	p := &phase{name: "Phase 3: Air quality bounds"}
	for i := range rows {
		r := rows[i]
		where := fmt.Sprintf("air_quality_daily row %d (%s, %s)", i, r.Date, r.City)

		checkGroupIdentity(p, where, r.Date, r.City, r.Geohash, r.DateRetrieved)
		checkStat(p, where, "pm10", r.PM10Min, r.PM10Avg, r.PM10Max)
		checkStat(p, where, "pm2_5", r.PM25Min, r.PM25Avg, r.PM25Max)
		checkStat(p, where, "carbon_monoxide", r.COMin, r.COAvg, r.COMax)

		switch {
		case r.AQISimplified == nil && r.PM25Avg != nil:
			p.errorf("%s: aqi_simplified nil despite pm2_5_avg", where)
		case r.AQISimplified != nil && r.PM25Avg == nil:
			p.errorf("%s: aqi_simplified set without pm2_5_avg", where)
		case r.AQISimplified != nil:
			want := math.Min(100, *r.PM25Avg/25*100)
			if !approx(*r.AQISimplified, want) {
				p.errorf("%s: aqi_simplified %.3f, want %.3f", where, *r.AQISimplified, want)
			}
			if *r.AQISimplified < 0 || *r.AQISimplified > 100 {
				p.errorf("%s: aqi_simplified %.3f outside [0,100]", where, *r.AQISimplified)
			}
		}
	}
	return p
}

// ── Phase 4: Hourly patterns ──
// Buckets cover valid hours with at least one contributing day, and the
// gold table is an exact promoted copy of the silver one.

func checkHourlyPatterns(silver, gold []domain.HourlyPattern) *phase {
	p := &phase{name: "Phase 4: Hourly patterns"}

	for i := range silver {
		r := silver[i]
		where := fmt.Sprintf("hourly row %d (%s, hour %d)", i, r.City, r.Hour)

		if r.Hour < 0 || r.Hour > 23 {
			p.errorf("%s: hour outside [0,23]", where)
		}
		if r.City == "" {
			p.errorf("%s: empty city", where)
		}
		if r.DaysCount < 1 {
			p.errorf("%s: days_count %d < 1", where, r.DaysCount)
		}
		checkStat(p, where, "temperature", r.TempMin, r.TempAvg, r.TempMax)
		if r.PrecipitationAvg != nil && *r.PrecipitationAvg < 0 {
			p.errorf("%s: negative precipitation_avg %.3f", where, *r.PrecipitationAvg)
		}
		if r.WindspeedAvg != nil && *r.WindspeedAvg < 0 {
			p.errorf("%s: negative windspeed_avg %.3f", where, *r.WindspeedAvg)
		}
	}

	if diff := cmp.Diff(sortPatterns(silver), sortPatterns(gold)); diff != "" {
		p.errorf("gold copy diverges from silver (-silver +gold):\n%s", diff)
	}
	return p
}

func sortPatterns(rows []domain.HourlyPattern) []domain.HourlyPattern {
	out := make([]domain.HourlyPattern, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool {
		if out[i].City != out[j].City {
			return out[i].City < out[j].City
		}
		return out[i].Hour < out[j].Hour
	})
	return out
}

// ── Phase 5: Forecast insights ──
// Scores stay in range, labels come from the fixed vocabularies, derived
// columns are consistent, and every insight traces back to a silver weather
// and air-quality row for its (date, city).

func checkForecastInsights(insights []domain.ForecastInsight, forecastDaily []domain.DailySummary, airDaily []domain.AirQualityDaily) *phase {
	p := &phase{name: "Phase 5: Forecast insights"}

	validAlert := map[string]bool{
		domain.HealthAlertGood:     true,
		domain.HealthAlertLow:      true,
		domain.HealthAlertModerate: true,
		domain.HealthAlertHigh:     true,
	}
	validRisk := map[string]bool{
		domain.AllergyRiskLow:      true,
		domain.AllergyRiskModerate: true,
		domain.AllergyRiskHigh:     true,
	}

	weatherKeys := make(map[string]bool, len(forecastDaily))
	for i := range forecastDaily {
		weatherKeys[forecastDaily[i].Date+"|"+forecastDaily[i].City] = true
	}
	airKeys := make(map[string]bool, len(airDaily))
	for i := range airDaily {
		airKeys[airDaily[i].Date+"|"+airDaily[i].City] = true
	}

	for i := range insights {
		r := insights[i]
		where := fmt.Sprintf("forecast_combined row %d (%s, %s)", i, r.Date, r.City)

		checkGroupIdentity(p, where, r.Date, r.City, r.Geohash, r.DateRetrieved)
		if !validAlert[r.HealthAlert] {
			p.errorf("%s: invalid health_alert %q", where, r.HealthAlert)
		}
		if !validRisk[r.AllergyRisk] {
			p.errorf("%s: invalid allergy_risk %q", where, r.AllergyRisk)
		}
		if r.OutdoorScore < 0 || r.OutdoorScore > 100 {
			p.errorf("%s: outdoor_score %d outside [0,100]", where, r.OutdoorScore)
		}
		if r.AQISimplified < 0 || r.AQISimplified > 100 {
			p.errorf("%s: aqi_simplified %.3f outside [0,100]", where, r.AQISimplified)
		}
		if r.TempMin > r.TempAvg || r.TempAvg > r.TempMax {
			p.errorf("%s: temperature out of order: min=%.3f avg=%.3f max=%.3f", where, r.TempMin, r.TempAvg, r.TempMax)
		}
		if !approx(r.TempRange, r.TempMax-r.TempMin) {
			p.errorf("%s: temperature_range %.3f != max-min %.3f", where, r.TempRange, r.TempMax-r.TempMin)
		}

		key := r.Date + "|" + r.City
		if !weatherKeys[key] {
			p.errorf("%s: no weather_forecast row for this (date, city)", where)
		}
		if !airKeys[key] {
			p.errorf("%s: no air_quality_daily row for this (date, city)", where)
		}
	}
	return p
}

// ── Shared checks ──

// checkGroupIdentity verifies the grouping columns every aggregated row
// carries.
func checkGroupIdentity(p *phase, where, date, city, geohash, retrieved string) {
	if !validDate(date) {
		p.errorf("%s: bad date %q", where, date)
	}
	if city == "" {
		p.errorf("%s: empty city", where)
	}
	if len(geohash) != 7 {
		p.errorf("%s: geohash %q is not 7 characters", where, geohash)
	}
	if !validDate(retrieved) {
		p.errorf("%s: bad date_retrieved %q", where, retrieved)
	}
}

// checkStat verifies a min/avg/max triple is all-nil or all-set and ordered.
func checkStat(p *phase, where, metric string, lo, avg, hi *float64) {
	set := 0
	for _, v := range []*float64{lo, avg, hi} {
		if v != nil {
			set++
		}
	}
	switch {
	case set == 0:
	case set != 3:
		p.errorf("%s: %s min/avg/max partially nil", where, metric)
	case *lo > *avg || *avg > *hi:
		p.errorf("%s: %s out of order: min=%.3f avg=%.3f max=%.3f", where, metric, *lo, *avg, *hi)
	}
}

func validDate(s string) bool {
	_, err := time.Parse(domain.DateLayout, s)
	return err == nil
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}
