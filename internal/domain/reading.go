package domain

import "time"

// Site is a coordinate pair a pipeline run extracts readings for. Extractors
// receive only the site; the city name is stamped by the orchestrator before
// the bronze write.
type Site struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// WeatherReading is one hourly row of the bronze forecast and historical
// tables. Time is the observation hour as a UTC millisecond timestamp.
// Metric fields are nil when the upstream hourly array held null.
type WeatherReading struct {
	Time          int64    `parquet:"name=time,type=INT64,convertedtype=TIMESTAMP_MILLIS" json:"time"`
	Temperature   *float64 `parquet:"name=temperature_2m,type=DOUBLE,repetitiontype=OPTIONAL" json:"temperature_2m"`
	Precipitation *float64 `parquet:"name=precipitation,type=DOUBLE,repetitiontype=OPTIONAL" json:"precipitation"`
	Windspeed     *float64 `parquet:"name=windspeed_10m,type=DOUBLE,repetitiontype=OPTIONAL" json:"windspeed_10m"`
	StationLat    float64  `parquet:"name=station_lat,type=DOUBLE" json:"station_lat"`
	StationLon    float64  `parquet:"name=station_lon,type=DOUBLE" json:"station_lon"`
	RequestedLat  float64  `parquet:"name=requested_lat,type=DOUBLE" json:"requested_lat"`
	RequestedLon  float64  `parquet:"name=requested_lon,type=DOUBLE" json:"requested_lon"`
	DateRetrieved string   `parquet:"name=date_retrieved,type=BYTE_ARRAY,convertedtype=UTF8" json:"date_retrieved"`
	City          string   `parquet:"name=city,type=BYTE_ARRAY,convertedtype=UTF8" json:"city"`
}

// Date returns the UTC calendar date of the observation hour.
func (r WeatherReading) Date() string {
	return time.UnixMilli(r.Time).UTC().Format(DateLayout)
}

// Hour returns the UTC hour of day (0-23) of the observation.
func (r WeatherReading) Hour() int {
	return time.UnixMilli(r.Time).UTC().Hour()
}

// AirQualityReading is one hourly row of the bronze air-quality table.
// Concentrations are in μg/m³ as reported upstream.
type AirQualityReading struct {
	Time           int64    `parquet:"name=time,type=INT64,convertedtype=TIMESTAMP_MILLIS" json:"time"`
	PM10           *float64 `parquet:"name=pm10,type=DOUBLE,repetitiontype=OPTIONAL" json:"pm10"`
	PM25           *float64 `parquet:"name=pm2_5,type=DOUBLE,repetitiontype=OPTIONAL" json:"pm2_5"`
	CarbonMonoxide *float64 `parquet:"name=carbon_monoxide,type=DOUBLE,repetitiontype=OPTIONAL" json:"carbon_monoxide"`
	StationLat     float64  `parquet:"name=station_lat,type=DOUBLE" json:"station_lat"`
	StationLon     float64  `parquet:"name=station_lon,type=DOUBLE" json:"station_lon"`
	RequestedLat   float64  `parquet:"name=requested_lat,type=DOUBLE" json:"requested_lat"`
	RequestedLon   float64  `parquet:"name=requested_lon,type=DOUBLE" json:"requested_lon"`
	DateRetrieved  string   `parquet:"name=date_retrieved,type=BYTE_ARRAY,convertedtype=UTF8" json:"date_retrieved"`
	City           string   `parquet:"name=city,type=BYTE_ARRAY,convertedtype=UTF8" json:"city"`
}

// Date returns the UTC calendar date of the observation hour.
func (r AirQualityReading) Date() string {
	return time.UnixMilli(r.Time).UTC().Format(DateLayout)
}

// StationRecord is one row of the bronze nearest-stations table. Meteostat
// returns station names as a language-keyed map; the extractor flattens it
// to a single name and records which language key it took.
type StationRecord struct {
	StationID     string   `parquet:"name=station_id,type=BYTE_ARRAY,convertedtype=UTF8" json:"station_id"`
	Name          string   `parquet:"name=name,type=BYTE_ARRAY,convertedtype=UTF8" json:"name"`
	NameLanguage  string   `parquet:"name=name_language,type=BYTE_ARRAY,convertedtype=UTF8" json:"name_language"`
	Country       string   `parquet:"name=country,type=BYTE_ARRAY,convertedtype=UTF8" json:"country"`
	Region        *string  `parquet:"name=region,type=BYTE_ARRAY,convertedtype=UTF8,repetitiontype=OPTIONAL" json:"region"`
	Latitude      float64  `parquet:"name=latitude,type=DOUBLE" json:"latitude"`
	Longitude     float64  `parquet:"name=longitude,type=DOUBLE" json:"longitude"`
	Elevation     *float64 `parquet:"name=elevation,type=DOUBLE,repetitiontype=OPTIONAL" json:"elevation"`
	DistanceM     float64  `parquet:"name=distance_m,type=DOUBLE" json:"distance_m"`
	GeneratedAt   string   `parquet:"name=generated_at,type=BYTE_ARRAY,convertedtype=UTF8" json:"generated_at"`
	RequestedLat  float64  `parquet:"name=requested_lat,type=DOUBLE" json:"requested_lat"`
	RequestedLon  float64  `parquet:"name=requested_lon,type=DOUBLE" json:"requested_lon"`
	DateRetrieved string   `parquet:"name=date_retrieved,type=BYTE_ARRAY,convertedtype=UTF8" json:"date_retrieved"`
	City          string   `parquet:"name=city,type=BYTE_ARRAY,convertedtype=UTF8" json:"city"`
}

// Key is the natural identity used by the station merge: one row per
// station per retrieval date per city.
func (r StationRecord) Key() string {
	return r.StationID + "|" + r.DateRetrieved + "|" + r.City
}
