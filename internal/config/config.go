package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/domain"
)

// satelliteBuckets maps GOES satellite identifiers to their NOAA open data buckets.
var satelliteBuckets = map[string]string{
	"G16": "noaa-goes16",
	"G17": "noaa-goes17",
	"G18": "noaa-goes18",
	"G19": "noaa-goes19",
}

// maxWorkers caps the decode pool; it matches the Workers validation bound.
const maxWorkers = 256

// defaultWorkers sizes the pool from the CPU count, clamped to maxWorkers.
func defaultWorkers(cpus int) int {
	return max(1, min(cpus, maxWorkers))
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	SaveDir     string `validate:"required"`
	DatabaseURL string `validate:"required"`
	Migrate     bool

	Satellite       string        `validate:"required,oneof=G16 G17 G18 G19"`
	Product         string        `validate:"required"`
	Bucket          string        `validate:"required"`
	NOAABaseURL     string        `validate:"required,url"`
	DownloadTimeout time.Duration `validate:"gt=0"`

	DefaultStart time.Time
	PollInterval time.Duration `validate:"gt=0"`
	RunOnce      bool
	Workers      int `validate:"min=1,max=256"`
	Timezone     string
	Region       domain.Region

	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	LogLevel        string `validate:"oneof=debug info warn warning error"`
	LogFormat       string `validate:"oneof=json text"`
	ShutdownTimeout time.Duration
}

// KafkaEnabled reports whether detections are also published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	downloadTimeout, err := parseDuration("DOWNLOAD_TIMEOUT", "5m")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDuration("POLL_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}

	defaultStart, err := time.Parse(time.RFC3339, sharedcfg.EnvOrDefault("DEFAULT_START", "2025-02-01T00:00:00Z"))
	if err != nil {
		return nil, errors.New("invalid DEFAULT_START")
	}

	workers, err := parseInt("WORKERS", defaultWorkers(runtime.NumCPU()))
	if err != nil {
		return nil, err
	}

	region, err := parseRegion()
	if err != nil {
		return nil, err
	}

	satellite := strings.ToUpper(sharedcfg.EnvOrDefault("GOES_SATELLITE", "G16"))
	bucket := satelliteBuckets[satellite]

	var brokers []string
	if s := os.Getenv("KAFKA_BROKERS"); s != "" {
		brokers = sharedcfg.ParseBrokers(s)
	}

	cfg := &Config{
		SaveDir:     sharedcfg.EnvOrDefault("SAVE_DIR", "./data"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Migrate:     sharedcfg.EnvOrDefault("MIGRATE", "true") == "true",

		Satellite:       satellite,
		Product:         sharedcfg.EnvOrDefault("GOES_PRODUCT", "ABI-L2-FDCF"),
		Bucket:          bucket,
		NOAABaseURL:     sharedcfg.EnvOrDefault("NOAA_BASE_URL", fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)),
		DownloadTimeout: downloadTimeout,

		DefaultStart: defaultStart.UTC(),
		PollInterval: pollInterval,
		RunOnce:      sharedcfg.EnvOrDefault("RUN_ONCE", "false") == "true",
		Workers:      workers,
		Timezone:     sharedcfg.EnvOrDefault("TIMEZONE", domain.DefaultTimezone),
		Region:       region,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "goes-fire-detections"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	if _, err := domain.LoadLocation(cfg.Timezone); err != nil {
		return nil, errors.New("invalid TIMEZONE")
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// envNames maps struct fields to the variables that populate them, so
// validation errors point at what the operator has to fix.
var envNames = map[string]string{
	"SaveDir":         "SAVE_DIR",
	"DatabaseURL":     "DATABASE_URL",
	"Satellite":       "GOES_SATELLITE",
	"Product":         "GOES_PRODUCT",
	"Bucket":          "GOES_SATELLITE",
	"NOAABaseURL":     "NOAA_BASE_URL",
	"DownloadTimeout": "DOWNLOAD_TIMEOUT",
	"PollInterval":    "POLL_INTERVAL",
	"Workers":         "WORKERS",
	"LogLevel":        "LOG_LEVEL",
	"LogFormat":       "LOG_FORMAT",
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate config: %w", err)
	}
	fe := verrs[0]
	name, ok := envNames[fe.Field()]
	if !ok {
		name = fe.Field()
	}
	if fe.Tag() == "required" {
		return fmt.Errorf("%s is required", name)
	}
	return fmt.Errorf("invalid %s: failed %q check", name, fe.Tag())
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseRegion() (domain.Region, error) {
	r := domain.SouthAmerica
	var err error
	if r.MinLat, err = parseFloat("REGION_MIN_LAT", r.MinLat); err != nil {
		return r, err
	}
	if r.MaxLat, err = parseFloat("REGION_MAX_LAT", r.MaxLat); err != nil {
		return r, err
	}
	if r.MinLon, err = parseFloat("REGION_MIN_LON", r.MinLon); err != nil {
		return r, err
	}
	if r.MaxLon, err = parseFloat("REGION_MAX_LON", r.MaxLon); err != nil {
		return r, err
	}
	if r.MinLat > r.MaxLat || r.MinLon > r.MaxLon {
		return r, errors.New("invalid REGION: minimum exceeds maximum")
	}
	return r, nil
}
