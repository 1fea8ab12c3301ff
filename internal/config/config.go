package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFeedURL is the CTA static feed the extractor was first built for.
const DefaultFeedURL = "https://transitfeeds.com/p/chicago-transit-authority/165/1383269401/download"

// Config holds all configuration for the extractor
type Config struct {
	// Feed
	FeedPath       string `yaml:"feed_path" validate:"required"`
	FeedURL        string `yaml:"feed_url" validate:"omitempty,url"`
	FeedMaxAgeDays int    `yaml:"feed_max_age_days" validate:"gte=0"`

	// Output
	OutputDir       string `yaml:"output_dir" validate:"required"`
	MetricsTextfile string `yaml:"metrics_textfile"`

	// Side table
	DatabasePath string `yaml:"database_path"`
	RetainRuns   int    `yaml:"retain_runs" validate:"gte=0"`

	// Extraction
	RouteType          int    `yaml:"route_type" validate:"gte=0"`
	ReferenceDate      string `yaml:"reference_date" validate:"omitempty,len=8,numeric"`
	SliceWorkers       int    `yaml:"slice_workers" validate:"gte=1"`
	ApplyCalendarDates bool   `yaml:"apply_calendar_dates"`
}

// Load reads .env files from the working directory and then configuration
// from environment variables with sensible defaults
func Load() *Config {
	// .env.local overrides .env for local development
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	return &Config{
		FeedPath:       getEnv("FEED_PATH", "./feed.zip"),
		FeedURL:        getEnv("FEED_URL", DefaultFeedURL),
		FeedMaxAgeDays: getEnvInt("FEED_MAX_AGE_DAYS", 7),

		OutputDir:       getEnv("OUTPUT_DIR", "./out"),
		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),

		DatabasePath: getEnv("SQLITE_DATABASE", ""),
		RetainRuns:   getEnvInt("RETAIN_RUNS", 5),

		RouteType:          getEnvInt("ROUTE_TYPE", 1),
		ReferenceDate:      getEnv("REFERENCE_DATE", ""),
		SliceWorkers:       getEnvInt("SLICE_WORKERS", runtime.NumCPU()),
		ApplyCalendarDates: getEnvBool("APPLY_CALENDAR_DATES", false),
	}
}

// LoadFile overlays the YAML file at path. Keys absent from the file keep
// their current values. An empty path is a no-op.
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Today returns the reference date as YYYYMMDD, falling back to now's
// local date when none is configured.
func (c *Config) Today(now time.Time) (int, error) {
	if c.ReferenceDate == "" {
		return now.Year()*10000 + int(now.Month())*100 + now.Day(), nil
	}
	date, err := time.Parse("20060102", c.ReferenceDate)
	if err != nil {
		return 0, fmt.Errorf("invalid reference date %q: %w", c.ReferenceDate, err)
	}
	return date.Year()*10000 + int(date.Month())*100 + date.Day(), nil
}

// FeedMaxAge returns the refresh threshold for the cached feed archive.
func (c *Config) FeedMaxAge() time.Duration {
	return time.Duration(c.FeedMaxAgeDays) * 24 * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
