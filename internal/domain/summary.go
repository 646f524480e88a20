package domain

// Health alert labels, ordered from least to most severe.
const (
	HealthAlertGood     = "GOOD"
	HealthAlertLow      = "LOW_ALERT"
	HealthAlertModerate = "MODERATE_ALERT"
	HealthAlertHigh     = "HIGH_ALERT"
)

// Allergy risk labels.
const (
	AllergyRiskLow      = "LOW"
	AllergyRiskModerate = "MODERATE"
	AllergyRiskHigh     = "HIGH"
)

// DailySummary is one (date, city, geohash) row of the silver daily weather
// tables. Statistics are nil when no reading in the group carried the
// underlying metric; Latitude/Longitude are the station coordinates of the
// group's earliest reading.
type DailySummary struct {
	Date               string   `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8" json:"date"`
	City               string   `parquet:"name=city,type=BYTE_ARRAY,convertedtype=UTF8" json:"city"`
	Geohash            string   `parquet:"name=geohash,type=BYTE_ARRAY,convertedtype=UTF8" json:"geohash"`
	TempMin            *float64 `parquet:"name=temperature_min,type=DOUBLE,repetitiontype=OPTIONAL" json:"temperature_min"`
	TempMax            *float64 `parquet:"name=temperature_max,type=DOUBLE,repetitiontype=OPTIONAL" json:"temperature_max"`
	TempAvg            *float64 `parquet:"name=temperature_avg,type=DOUBLE,repetitiontype=OPTIONAL" json:"temperature_avg"`
	TotalPrecipitation float64  `parquet:"name=total_precipitation,type=DOUBLE" json:"total_precipitation"`
	AvgWindspeed       *float64 `parquet:"name=avg_windspeed,type=DOUBLE,repetitiontype=OPTIONAL" json:"avg_windspeed"`
	Latitude           float64  `parquet:"name=latitude,type=DOUBLE" json:"latitude"`
	Longitude          float64  `parquet:"name=longitude,type=DOUBLE" json:"longitude"`
	DateRetrieved      string   `parquet:"name=date_retrieved,type=BYTE_ARRAY,convertedtype=UTF8" json:"date_retrieved"`
	TempRange          *float64 `parquet:"name=temperature_range,type=DOUBLE,repetitiontype=OPTIONAL" json:"temperature_range"`
}

// AirQualityDaily is one (date, city, geohash) row of the silver air-quality
// table. AQISimplified is the non-regulatory pm2_5_avg/25*100 scale capped
// at 100; it is nil whenever pm2_5_avg is.
type AirQualityDaily struct {
	Date          string   `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8" json:"date"`
	City          string   `parquet:"name=city,type=BYTE_ARRAY,convertedtype=UTF8" json:"city"`
	Geohash       string   `parquet:"name=geohash,type=BYTE_ARRAY,convertedtype=UTF8" json:"geohash"`
	PM10Min       *float64 `parquet:"name=pm10_min,type=DOUBLE,repetitiontype=OPTIONAL" json:"pm10_min"`
	PM10Max       *float64 `parquet:"name=pm10_max,type=DOUBLE,repetitiontype=OPTIONAL" json:"pm10_max"`
	PM10Avg       *float64 `parquet:"name=pm10_avg,type=DOUBLE,repetitiontype=OPTIONAL" json:"pm10_avg"`
	PM25Min       *float64 `parquet:"name=pm2_5_min,type=DOUBLE,repetitiontype=OPTIONAL" json:"pm2_5_min"`
	PM25Max       *float64 `parquet:"name=pm2_5_max,type=DOUBLE,repetitiontype=OPTIONAL" json:"pm2_5_max"`
	PM25Avg       *float64 `parquet:"name=pm2_5_avg,type=DOUBLE,repetitiontype=OPTIONAL" json:"pm2_5_avg"`
	COMin         *float64 `parquet:"name=carbon_monoxide_min,type=DOUBLE,repetitiontype=OPTIONAL" json:"carbon_monoxide_min"`
	COMax         *float64 `parquet:"name=carbon_monoxide_max,type=DOUBLE,repetitiontype=OPTIONAL" json:"carbon_monoxide_max"`
	COAvg         *float64 `parquet:"name=carbon_monoxide_avg,type=DOUBLE,repetitiontype=OPTIONAL" json:"carbon_monoxide_avg"`
	Latitude      float64  `parquet:"name=latitude,type=DOUBLE" json:"latitude"`
	Longitude     float64  `parquet:"name=longitude,type=DOUBLE" json:"longitude"`
	DateRetrieved string   `parquet:"name=date_retrieved,type=BYTE_ARRAY,convertedtype=UTF8" json:"date_retrieved"`
	AQISimplified *float64 `parquet:"name=aqi_simplified,type=DOUBLE,repetitiontype=OPTIONAL" json:"aqi_simplified"`
}

// HourlyPattern is one (hour, city) row of the hourly historical analysis
// table. The bucket spans every retrieved date; DaysCount is the number of
// distinct dates that contributed readings to it.
type HourlyPattern struct {
	Hour             int32    `parquet:"name=hour,type=INT32" json:"hour"`
	City             string   `parquet:"name=city,type=BYTE_ARRAY,convertedtype=UTF8" json:"city"`
	TempMin          *float64 `parquet:"name=temperature_min,type=DOUBLE,repetitiontype=OPTIONAL" json:"temperature_min"`
	TempMax          *float64 `parquet:"name=temperature_max,type=DOUBLE,repetitiontype=OPTIONAL" json:"temperature_max"`
	TempAvg          *float64 `parquet:"name=temperature_avg,type=DOUBLE,repetitiontype=OPTIONAL" json:"temperature_avg"`
	PrecipitationAvg *float64 `parquet:"name=precipitation_avg,type=DOUBLE,repetitiontype=OPTIONAL" json:"precipitation_avg"`
	WindspeedAvg     *float64 `parquet:"name=windspeed_avg,type=DOUBLE,repetitiontype=OPTIONAL" json:"windspeed_avg"`
	DaysCount        int64    `parquet:"name=days_count,type=INT64" json:"days_count"`
}

// ForecastInsight is one (date, city) row of the gold combined table: a
// forecast-day weather summary joined with the matching air-quality summary
// and scored. Every scored field is required; rows that would have a nil
// input are excluded upstream rather than scored with zeros.
type ForecastInsight struct {
	Date               string   `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8" json:"date"`
	City               string   `parquet:"name=city,type=BYTE_ARRAY,convertedtype=UTF8" json:"city"`
	Geohash            string   `parquet:"name=geohash,type=BYTE_ARRAY,convertedtype=UTF8" json:"geohash"`
	TempMin            float64  `parquet:"name=temperature_min,type=DOUBLE" json:"temperature_min"`
	TempMax            float64  `parquet:"name=temperature_max,type=DOUBLE" json:"temperature_max"`
	TempAvg            float64  `parquet:"name=temperature_avg,type=DOUBLE" json:"temperature_avg"`
	TempRange          float64  `parquet:"name=temperature_range,type=DOUBLE" json:"temperature_range"`
	TotalPrecipitation float64  `parquet:"name=total_precipitation,type=DOUBLE" json:"total_precipitation"`
	AvgWindspeed       float64  `parquet:"name=avg_windspeed,type=DOUBLE" json:"avg_windspeed"`
	PM10Avg            float64  `parquet:"name=pm10_avg,type=DOUBLE" json:"pm10_avg"`
	PM25Avg            float64  `parquet:"name=pm2_5_avg,type=DOUBLE" json:"pm2_5_avg"`
	COAvg              *float64 `parquet:"name=carbon_monoxide_avg,type=DOUBLE,repetitiontype=OPTIONAL" json:"carbon_monoxide_avg"`
	AQISimplified      float64  `parquet:"name=aqi_simplified,type=DOUBLE" json:"aqi_simplified"`
	HealthAlert        string   `parquet:"name=health_alert,type=BYTE_ARRAY,convertedtype=UTF8" json:"health_alert"`
	AllergyRisk        string   `parquet:"name=allergy_risk,type=BYTE_ARRAY,convertedtype=UTF8" json:"allergy_risk"`
	OutdoorScore       int32    `parquet:"name=outdoor_score,type=INT32" json:"outdoor_score"`
	Latitude           float64  `parquet:"name=latitude,type=DOUBLE" json:"latitude"`
	Longitude          float64  `parquet:"name=longitude,type=DOUBLE" json:"longitude"`
	DateRetrieved      string   `parquet:"name=date_retrieved,type=BYTE_ARRAY,convertedtype=UTF8" json:"date_retrieved"`
}
