// Package domain models meteorological readings as they move through the
// bronze/silver/gold layers of the lakehouse.
//
// # Data Sources
//
// Hourly weather rows originate from the Open-Meteo forecast and archive
// APIs (https://open-meteo.com/), which return parallel hourly arrays: a
// "time" array of minute-resolution local timestamps plus one array per
// requested variable. A null entry in a variable array means the value was
// not observed for that hour; it is carried as a nil pointer, never as zero.
// Air-quality rows come from the Open-Meteo air-quality API with the same
// array shape. Nearest-station rows come from the Meteostat stations/nearby
// endpoint via RapidAPI.
//
// Every bronze row carries two coordinate pairs:
//
//	station_lat/station_lon     the grid point the API actually resolved
//	requested_lat/requested_lon the coordinates the extractor asked for
//
// Aggregation groups on the station pair; the requested pair exists for
// audit only.
//
// # Layers and Partitioning
//
// Bronze holds raw per-hour rows partitioned by (city, date_retrieved).
// Silver holds per-day aggregates partitioned by (city, date), except the
// hourly pattern table, which spans all dates and is partitioned by (city).
// Gold holds scored insights with the same partitioning as silver. The
// partition is the unit of idempotent replacement: re-running a load for a
// partition replaces its rows instead of duplicating them.
//
// # Date and Time Conventions
//
// date_retrieved is the UTC calendar date of the pipeline run that fetched
// the row, formatted per [DateLayout]. It is stamped from the package clock
// so tests can freeze it. Hourly observation times are stored as UTC
// millisecond timestamps; [WeatherReading.Date] and [WeatherReading.Hour]
// derive the aggregation keys from them.
//
// # Insight Labels
//
// Gold rows carry three derived labels, pure functions of the row's own
// aggregated fields:
//
//	health_alert  GOOD | LOW_ALERT | MODERATE_ALERT | HIGH_ALERT
//	allergy_risk  LOW | MODERATE | HIGH
//	outdoor_score integer 0-100, higher is better
//
// The air-quality index behind health_alert is the simplified
// pm2_5_avg/25*100 scale capped at 100. It is not a regulatory AQI.
package domain
