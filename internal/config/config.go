package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	StorageRoot  string   `envconfig:"STORAGE_ROOT" default:"./out" validate:"required"`
	Cities       CityList `envconfig:"CITIES" default:"buenos_aires:-34.611778:-58.417309,cordoba:-31.413500:-64.181056,rosario:-32.944242:-60.639321" validate:"required,dive"`
	LookbackDays int      `envconfig:"LOOKBACK_DAYS" default:"7" validate:"min=1,max=92"`
	Layers       []string `envconfig:"LAYERS" default:"bronze,silver,gold" validate:"min=1,dive,oneof=bronze silver gold"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"min=1s"`
	ScheduleCron    string        `envconfig:"SCHEDULE_CRON"`

	OpenMeteoBaseURL    string        `envconfig:"OPENMETEO_BASE_URL" default:"https://api.open-meteo.com" validate:"url"`
	OpenMeteoArchiveURL string        `envconfig:"OPENMETEO_ARCHIVE_URL" default:"https://archive-api.open-meteo.com" validate:"url"`
	OpenMeteoAirURL     string        `envconfig:"OPENMETEO_AIR_URL" default:"https://air-quality-api.open-meteo.com" validate:"url"`
	ExtractTimeout      time.Duration `envconfig:"EXTRACT_TIMEOUT" default:"10s" validate:"min=1s"`

	// Meteostat station extraction runs only when an API key is configured.
	MeteostatHost   string `envconfig:"METEOSTAT_HOST" default:"meteostat.p.rapidapi.com" validate:"required"`
	MeteostatAPIKey string `envconfig:"METEOSTAT_API_KEY"`

	KafkaBrokers   []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic     string   `envconfig:"KAFKA_TOPIC" default:"weather-insights"`
	KafkaBatchSize int      `envconfig:"KAFKA_BATCH_SIZE" default:"100" validate:"min=1,max=10000"`
	KafkaEnabled   bool     `ignored:"true"`
}

// City is one configured extraction target. Name doubles as the partition
// value of the city column, so it must stay path-safe.
type City struct {
	Name      string  `validate:"required,excludesall=/="`
	Latitude  float64 `validate:"min=-90,max=90"`
	Longitude float64 `validate:"min=-180,max=180"`
}

// CityList decodes the CITIES variable: comma-separated name:lat:lon triples.
type CityList []City

// Decode implements envconfig.Decoder.
func (c *CityList) Decode(value string) error {
	entries := strings.Split(value, ",")
	cities := make(CityList, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return fmt.Errorf("city %q: want name:lat:lon", entry)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return fmt.Errorf("city %q: latitude: %w", entry, err)
		}
		lon, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return fmt.Errorf("city %q: longitude: %w", entry, err)
		}
		cities = append(cities, City{Name: parts[0], Latitude: lat, Longitude: lon})
	}
	if len(cities) == 0 {
		return errors.New("CITIES is empty")
	}
	*c = cities
	return nil
}

// HasLayer reports whether the named layer is part of this run's layer set.
func (c *Config) HasLayer(layer string) bool {
	for _, l := range c.Layers {
		if l == layer {
			return true
		}
	}
	return false
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is honored but never overrides
// real environment variables. The process timezone is pinned to UTC so date
// stamping cannot drift with the host.
func Load() (*Config, error) {
	time.Local = time.UTC

	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	// Brokers imply publishing, KAFKA_ENABLED overrides either way.
	cfg.KafkaEnabled = len(cfg.KafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		cfg.KafkaEnabled = v == "true"
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return &cfg, nil
}
