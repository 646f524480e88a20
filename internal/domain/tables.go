package domain

// Layer is a lakehouse layer.
type Layer int

const (
	LayerBronze Layer = iota
	LayerSilver
	LayerGold
)

func (l Layer) String() string {
	switch l {
	case LayerBronze:
		return "bronze"
	case LayerSilver:
		return "silver"
	case LayerGold:
		return "gold"
	default:
		return "unknown"
	}
}

// TableID identifies one table of the closed catalog. Per-layer dispatch
// switches over it exhaustively; there is no string-keyed table lookup.
type TableID int

const (
	tableUnknown TableID = iota

	// Bronze: raw per-hour rows, partitioned by (city, date_retrieved).
	BronzeForecast
	BronzeHistorical
	BronzeAirQuality
	BronzeStations

	// Silver: per-day aggregates partitioned by (city, date); the hourly
	// pattern table spans all dates and is partitioned by (city).
	SilverWeatherSummary
	SilverWeatherForecast
	SilverAirQualityDaily
	SilverHourlyPatterns

	// Gold: scored insights and the promoted hourly patterns.
	GoldForecastCombined
	GoldHourlyPatterns
)

// Tables returns every table of the catalog in layer order.
func Tables() []TableID {
	return []TableID{
		BronzeForecast, BronzeHistorical, BronzeAirQuality, BronzeStations,
		SilverWeatherSummary, SilverWeatherForecast, SilverAirQualityDaily, SilverHourlyPatterns,
		GoldForecastCombined, GoldHourlyPatterns,
	}
}

// Layer returns the lakehouse layer the table belongs to.
func (t TableID) Layer() Layer {
	switch t {
	case BronzeForecast, BronzeHistorical, BronzeAirQuality, BronzeStations:
		return LayerBronze
	case SilverWeatherSummary, SilverWeatherForecast, SilverAirQualityDaily, SilverHourlyPatterns:
		return LayerSilver
	case GoldForecastCombined, GoldHourlyPatterns:
		return LayerGold
	default:
		return Layer(-1)
	}
}

// Name returns the table name within its layer.
func (t TableID) Name() string {
	switch t {
	case BronzeForecast:
		return "forecast"
	case BronzeHistorical:
		return "historical"
	case BronzeAirQuality:
		return "air_quality"
	case BronzeStations:
		return "nearest_stations"
	case SilverWeatherSummary:
		return "weather_summary"
	case SilverWeatherForecast:
		return "weather_forecast"
	case SilverAirQualityDaily:
		return "air_quality_daily"
	case SilverHourlyPatterns, GoldHourlyPatterns:
		return "hourly_historical_analysis"
	case GoldForecastCombined:
		return "forecast_combined"
	default:
		return "unknown"
	}
}

// Path returns the table's location relative to the lake root,
// "<layer>/<name>".
func (t TableID) Path() string {
	return t.Layer().String() + "/" + t.Name()
}

// String implements fmt.Stringer as the table path.
func (t TableID) String() string {
	return t.Path()
}

// PartitionColumns returns the partition column names in directory order.
// Partition values are the unit of idempotent replacement.
func (t TableID) PartitionColumns() []string {
	switch t {
	case BronzeForecast, BronzeHistorical, BronzeAirQuality, BronzeStations:
		return []string{"city", "date_retrieved"}
	case SilverWeatherSummary, SilverWeatherForecast, SilverAirQualityDaily, GoldForecastCombined:
		return []string{"city", "date"}
	case SilverHourlyPatterns, GoldHourlyPatterns:
		return []string{"city"}
	default:
		return nil
	}
}
