// Package config builds the explicit configuration handed to every pipeline
// component: where the store lives, where each source is fetched from and in
// what batch size, and where reports are written.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"harvest/pkg/database"
)

// DefaultConfigPath is read when HARVEST_CONFIG is unset.
const DefaultConfigPath = "harvest.yaml"

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "HARVEST_CONFIG"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Source is shared by every fetcher.
type Source struct {
	SourceURL string        `yaml:"source_url"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Books struct {
	Source  `yaml:",inline"`
	Queries []string `yaml:"queries"`
}

type Countries struct {
	Source `yaml:",inline"`
}

// Movies pages through an OMDb search. BatchSize is the API's fixed page
// size and only turns the persisted count into a start page.
type Movies struct {
	Source            `yaml:",inline"`
	APIKey            string  `yaml:"api_key"`
	Search            string  `yaml:"search"`
	MinNewEntries     int     `yaml:"min_new_entries"`
	MaxPages          int     `yaml:"max_pages"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// OutputPaths names the report files. Relative names resolve against Dir.
type OutputPaths struct {
	Dir                 string `yaml:"dir"`
	BooksPerYear        string `yaml:"books_per_year"`
	LanguagesPerCountry string `yaml:"languages_per_country"`
	CountriesPerRegion  string `yaml:"countries_per_region"`
	GenreRatings        string `yaml:"genre_ratings"`
	BooksJSON           string `yaml:"books_json"`
}

// Resolve returns name joined onto Dir unless it is already absolute.
func (o OutputPaths) Resolve(name string) string {
	if filepath.IsAbs(name) || o.Dir == "" {
		return name
	}
	return filepath.Join(o.Dir, name)
}

type API struct {
	Addr              string  `yaml:"addr"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // <= 0 disables limiting
}

type Config struct {
	StoreLocation string      `yaml:"store_location"`
	LogLevel      string      `yaml:"log_level"`
	Books         Books       `yaml:"books"`
	Countries     Countries   `yaml:"countries"`
	Movies        Movies      `yaml:"movies"`
	OutputPaths   OutputPaths `yaml:"output_paths"`
	API           API         `yaml:"api"`
}

// Default mirrors the constants the pipeline has always run with.
func Default() *Config {
	return &Config{
		StoreLocation: database.DefaultConfig().Path,
		LogLevel:      "info",
		Books: Books{
			Source: Source{
				SourceURL: "https://openlibrary.org/search.json",
				BatchSize: 25,
				Timeout:   10 * time.Second,
			},
			Queries: []string{"fiction", "history"},
		},
		Countries: Countries{
			Source: Source{
				SourceURL: "https://restcountries.com/v3.1/all?fields=name,region,capital,landlocked,languages,continents,currencies",
				BatchSize: 25,
				Timeout:   10 * time.Second,
			},
		},
		Movies: Movies{
			Source: Source{
				SourceURL: "http://www.omdbapi.com/",
				BatchSize: 10,
				Timeout:   10 * time.Second,
			},
			Search:            "movie",
			MinNewEntries:     20,
			MaxPages:          50,
			RequestsPerSecond: 2,
		},
		OutputPaths: OutputPaths{
			Dir:                 "txtfiles",
			BooksPerYear:        "books_per_year.txt",
			LanguagesPerCountry: "languages_per_country.txt",
			CountriesPerRegion:  "countries_per_region.txt",
			GenreRatings:        "averageratingbygenre.txt",
			BooksJSON:           "books_data.json",
		},
		API: API{Addr: ":8080", RequestsPerSecond: 50},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides and validates the result.
//
// A missing file is not an error. An unreadable or invalid file is logged
// and the defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("Config file not found, using defaults", slog.String("path", path))
	case err != nil:
		slog.Warn("Failed to read config file, using defaults",
			slog.String("path", path),
			slog.String("error", err.Error()))
	case len(data) > 0:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			slog.Warn("Failed to parse config file, using defaults",
				slog.String("path", path),
				slog.String("error", err.Error()))

			cfg = Default()
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by HARVEST_CONFIG, or harvest.yaml.
func LoadFromEnv() (*Config, error) {
	return Load(GetEnvStr(ConfigPathEnvVar, DefaultConfigPath))
}

func (c *Config) applyEnv() {
	c.StoreLocation = GetEnvStr("HARVEST_DB_PATH", c.StoreLocation)
	c.Movies.APIKey = GetEnvStr("OMDB_API_KEY", c.Movies.APIKey)
	c.OutputPaths.Dir = GetEnvStr("HARVEST_OUTPUT_DIR", c.OutputPaths.Dir)
	c.API.Addr = GetEnvStr("HARVEST_API_ADDR", c.API.Addr)
	c.Books.BatchSize = GetEnvInt("HARVEST_BOOKS_BATCH_SIZE", c.Books.BatchSize)
	c.Countries.BatchSize = GetEnvInt("HARVEST_COUNTRIES_BATCH_SIZE", c.Countries.BatchSize)
	c.Movies.MinNewEntries = GetEnvInt("HARVEST_MOVIES_MIN_NEW", c.Movies.MinNewEntries)
	c.Books.Timeout = GetEnvDuration("HARVEST_HTTP_TIMEOUT", c.Books.Timeout)
	c.Countries.Timeout = GetEnvDuration("HARVEST_HTTP_TIMEOUT", c.Countries.Timeout)
	c.Movies.Timeout = GetEnvDuration("HARVEST_HTTP_TIMEOUT", c.Movies.Timeout)
}

// Validate checks the settings every component relies on.
func (c *Config) Validate() error {
	if c.StoreLocation == "" {
		return fmt.Errorf("%w: store_location cannot be empty", ErrInvalidConfig)
	}

	sources := map[string]Source{
		"books":     c.Books.Source,
		"countries": c.Countries.Source,
		"movies":    c.Movies.Source,
	}
	for name, s := range sources {
		if s.SourceURL == "" {
			return fmt.Errorf("%w: %s.source_url cannot be empty", ErrInvalidConfig, name)
		}
		if s.BatchSize <= 0 {
			return fmt.Errorf("%w: %s.batch_size must be positive, got %d", ErrInvalidConfig, name, s.BatchSize)
		}
	}

	if c.Movies.MinNewEntries <= 0 {
		return fmt.Errorf("%w: movies.min_new_entries must be positive", ErrInvalidConfig)
	}
	if c.Movies.MaxPages <= 0 {
		return fmt.Errorf("%w: movies.max_pages must be positive", ErrInvalidConfig)
	}

	return nil
}

// Level resolves the log level, HARVEST_LOG_LEVEL taking precedence.
func (c *Config) Level() slog.Level {
	return GetEnvLogLevel("HARVEST_LOG_LEVEL", parseLogLevel(c.LogLevel, slog.LevelInfo))
}

// Database returns the store settings in the form pkg/database expects.
func (c *Config) Database() database.Config {
	return database.Config{Path: c.StoreLocation}
}
