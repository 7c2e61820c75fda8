package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the duplicate-detection engine and its
// surrounding CLI/store wiring.
type Config struct {
	// Logging configuration
	Logging struct {
		// Level is the minimum log level (debug, info, warn, error, fatal, panic)
		Level string `yaml:"level" env:"LOG_LEVEL"`
		// Format is the log format (json, console)
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	// Matching holds the duplicate-matching policy options (spec §6
	// "Configuration options").
	Matching struct {
		// SearchType selects the candidate-grouping strategy: title_author,
		// identifier, binary, or author_only.
		SearchType string `yaml:"search_type" env:"SEARCH_TYPE"`
		// TitleMatch is the title comparison policy: identical, similar,
		// soundex, or fuzzy.
		TitleMatch string `yaml:"title_match" env:"TITLE_MATCH"`
		// AuthorMatch is the author comparison policy: identical, similar,
		// soundex, fuzzy, or ignore.
		AuthorMatch string `yaml:"author_match" env:"AUTHOR_MATCH"`
		// IdentifierType names the identifier scheme used in identifier
		// search mode (e.g. "isbn", "asin").
		IdentifierType string `yaml:"identifier_type" env:"IDENTIFIER_TYPE"`
		// IncludeLanguages partitions title matches by book language.
		IncludeLanguages bool `yaml:"include_languages" env:"INCLUDE_LANGUAGES"`
		// SortByTitle orders result groups by match key instead of size.
		SortByTitle bool `yaml:"sort_by_title" env:"SORT_BY_TITLE"`
	} `yaml:"matching"`

	// Soundex holds the per-field soundex code lengths (spec §4.3); these
	// are reconfigurable without a code change.
	Soundex struct {
		TitleLength     int `yaml:"title_length" env:"SOUNDEX_TITLE_LENGTH"`
		AuthorLength    int `yaml:"author_length" env:"SOUNDEX_AUTHOR_LENGTH"`
		PublisherLength int `yaml:"publisher_length" env:"SOUNDEX_PUBLISHER_LENGTH"`
		SeriesLength    int `yaml:"series_length" env:"SOUNDEX_SERIES_LENGTH"`
		TagsLength      int `yaml:"tags_length" env:"SOUNDEX_TAGS_LENGTH"`
	} `yaml:"soundex"`

	// Store configures the persisted library backend.
	Store struct {
		// Driver selects the SQL dialect: sqlite, postgres, or mysql.
		Driver string `yaml:"driver" env:"STORE_DRIVER"`
		// DSN is the connection string (or file path, for sqlite).
		DSN             string        `yaml:"dsn" env:"STORE_DSN"`
		MaxOpenConns    int           `yaml:"max_open_conns" env:"STORE_MAX_OPEN_CONNS"`
		MaxIdleConns    int           `yaml:"max_idle_conns" env:"STORE_MAX_IDLE_CONNS"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"STORE_CONN_MAX_LIFETIME"`
	} `yaml:"store"`

	// RemoteMetadata holds the settings for the optional GraphQL identifier
	// lookup in internal/store/remote. Validate checks them; cmd/bookdupe
	// does not build a lookup from them, so a scan does not use them.
	RemoteMetadata struct {
		Enabled       bool          `yaml:"enabled" env:"REMOTE_METADATA_ENABLED"`
		Endpoint      string        `yaml:"endpoint" env:"REMOTE_METADATA_ENDPOINT"`
		Token         string        `yaml:"token" env:"REMOTE_METADATA_TOKEN"`
		RateLimit     time.Duration `yaml:"rate_limit" env:"REMOTE_METADATA_RATE_LIMIT"`
		Burst         int           `yaml:"burst" env:"REMOTE_METADATA_BURST"`
		MaxConcurrent int           `yaml:"max_concurrent" env:"REMOTE_METADATA_MAX_CONCURRENT"`
	} `yaml:"remote_metadata"`

	// Paths holds on-disk locations the engine reads from or writes to.
	Paths struct {
		// ExemptionsFile is where user-asserted non-duplicate pairs persist.
		ExemptionsFile string `yaml:"exemptions_file" env:"EXEMPTIONS_FILE"`
	} `yaml:"paths"`
}

// DefaultConfig returns the engine's documented default configuration
// (spec §6 "Configuration options" defaults).
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Matching.SearchType = "title_author"
	cfg.Matching.TitleMatch = "similar"
	cfg.Matching.AuthorMatch = "similar"
	cfg.Matching.IdentifierType = "isbn"
	cfg.Matching.IncludeLanguages = false
	cfg.Matching.SortByTitle = true

	cfg.Soundex.TitleLength = 6
	cfg.Soundex.AuthorLength = 8
	cfg.Soundex.PublisherLength = 6
	cfg.Soundex.SeriesLength = 6
	cfg.Soundex.TagsLength = 4

	cfg.Store.Driver = "sqlite"
	cfg.Store.DSN = "./bookdupe.db"
	cfg.Store.MaxOpenConns = 10
	cfg.Store.MaxIdleConns = 5
	cfg.Store.ConnMaxLifetime = time.Hour

	cfg.RemoteMetadata.Enabled = false
	cfg.RemoteMetadata.RateLimit = 1500 * time.Millisecond
	cfg.RemoteMetadata.Burst = 2
	cfg.RemoteMetadata.MaxConcurrent = 3

	cfg.Paths.ExemptionsFile = "./exemptions.json"

	return cfg
}

// Load loads configuration from a file (if specified) and environment
// variables. Priority: 1) environment variables, 2) config file, 3) defaults.
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	if configFile != "" {
		absConfigFile, err := filepath.Abs(configFile)
		if err == nil {
			configFile = absConfigFile
		}

		data, err := os.ReadFile(configFile)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err == nil {
			// Seeded with the defaults so a bool the file leaves out keeps
			// its default while one the file sets to false takes effect.
			fileCfg := DefaultConfig()
			if err := yaml.Unmarshal(data, fileCfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			mergeConfigs(cfg, fileCfg)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and internally
// consistent.
func (c *Config) Validate() error {
	var missing []string

	switch c.Matching.SearchType {
	case "title_author", "identifier", "binary", "author_only":
	default:
		missing = append(missing, "matching.search_type")
	}
	if c.Matching.SearchType == "identifier" && c.Matching.IdentifierType == "" {
		missing = append(missing, "matching.identifier_type")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		missing = append(missing, "store.driver")
	}
	if c.RemoteMetadata.Enabled && c.RemoteMetadata.Endpoint == "" {
		missing = append(missing, "remote_metadata.endpoint")
	}

	if len(missing) > 0 {
		return &ConfigError{
			Field: strings.Join(missing, ", "),
			Msg:   "required configuration values are missing or invalid",
		}
	}
	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Msg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getIntFromEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getDurationFromEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getBoolFromEnv(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// loadFromEnv overlays environment variables onto cfg, taking priority over
// whatever the config file or defaults set.
func loadFromEnv(cfg *Config) {
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.Matching.SearchType = getEnv("SEARCH_TYPE", cfg.Matching.SearchType)
	cfg.Matching.TitleMatch = getEnv("TITLE_MATCH", cfg.Matching.TitleMatch)
	cfg.Matching.AuthorMatch = getEnv("AUTHOR_MATCH", cfg.Matching.AuthorMatch)
	cfg.Matching.IdentifierType = getEnv("IDENTIFIER_TYPE", cfg.Matching.IdentifierType)
	cfg.Matching.IncludeLanguages = getBoolFromEnv("INCLUDE_LANGUAGES", cfg.Matching.IncludeLanguages)
	cfg.Matching.SortByTitle = getBoolFromEnv("SORT_BY_TITLE", cfg.Matching.SortByTitle)

	cfg.Soundex.TitleLength = getIntFromEnv("SOUNDEX_TITLE_LENGTH", cfg.Soundex.TitleLength)
	cfg.Soundex.AuthorLength = getIntFromEnv("SOUNDEX_AUTHOR_LENGTH", cfg.Soundex.AuthorLength)
	cfg.Soundex.PublisherLength = getIntFromEnv("SOUNDEX_PUBLISHER_LENGTH", cfg.Soundex.PublisherLength)
	cfg.Soundex.SeriesLength = getIntFromEnv("SOUNDEX_SERIES_LENGTH", cfg.Soundex.SeriesLength)
	cfg.Soundex.TagsLength = getIntFromEnv("SOUNDEX_TAGS_LENGTH", cfg.Soundex.TagsLength)

	cfg.Store.Driver = getEnv("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.DSN = getEnv("STORE_DSN", cfg.Store.DSN)
	cfg.Store.MaxOpenConns = getIntFromEnv("STORE_MAX_OPEN_CONNS", cfg.Store.MaxOpenConns)
	cfg.Store.MaxIdleConns = getIntFromEnv("STORE_MAX_IDLE_CONNS", cfg.Store.MaxIdleConns)
	cfg.Store.ConnMaxLifetime = getDurationFromEnv("STORE_CONN_MAX_LIFETIME", cfg.Store.ConnMaxLifetime)

	cfg.RemoteMetadata.Enabled = getBoolFromEnv("REMOTE_METADATA_ENABLED", cfg.RemoteMetadata.Enabled)
	cfg.RemoteMetadata.Endpoint = getEnv("REMOTE_METADATA_ENDPOINT", cfg.RemoteMetadata.Endpoint)
	cfg.RemoteMetadata.Token = getEnv("REMOTE_METADATA_TOKEN", cfg.RemoteMetadata.Token)
	cfg.RemoteMetadata.RateLimit = getDurationFromEnv("REMOTE_METADATA_RATE_LIMIT", cfg.RemoteMetadata.RateLimit)
	cfg.RemoteMetadata.Burst = getIntFromEnv("REMOTE_METADATA_BURST", cfg.RemoteMetadata.Burst)
	cfg.RemoteMetadata.MaxConcurrent = getIntFromEnv("REMOTE_METADATA_MAX_CONCURRENT", cfg.RemoteMetadata.MaxConcurrent)

	cfg.Paths.ExemptionsFile = getEnv("EXEMPTIONS_FILE", cfg.Paths.ExemptionsFile)
}

// mergeConfigs merges src into dst, field by field, for every nested config
// section: non-zero strings and numbers are copied, and bools are always
// copied.
func mergeConfigs(dst, src *Config) {
	dstVal := reflect.ValueOf(dst).Elem()
	srcVal := reflect.ValueOf(src).Elem()
	mergeStructFields(dstVal, srcVal)
}

func mergeStructFields(dstVal, srcVal reflect.Value) {
	for i := 0; i < dstVal.NumField(); i++ {
		dstField := dstVal.Field(i)
		srcField := srcVal.Field(i)
		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Struct:
			mergeStructFields(dstField, srcField)
		case reflect.String:
			if srcField.String() != "" {
				dstField.SetString(srcField.String())
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if srcField.Int() != 0 {
				dstField.SetInt(srcField.Int())
			}
		case reflect.Float32, reflect.Float64:
			if srcField.Float() != 0 {
				dstField.SetFloat(srcField.Float())
			}
		case reflect.Bool:
			dstField.SetBool(srcField.Bool())
		}
	}
}
