// Package config loads the feed server settings. Values are layered with
// koanf: built-in defaults, then an optional YAML file, then environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/onnwee/creatorfeed/internal/tracing"
)

// Config holds the feed server settings. The koanf tags are also the YAML
// keys.
type Config struct {
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Both are optional: without a database the catalogue is in memory,
	// without Redis the page cache and rate limit windows are per process.
	DatabaseURL string `koanf:"database_url"`
	RedisURL    string `koanf:"redis_url"`

	// Viewer tokens are issued by the account service; the feed only verifies.
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	FeedCacheTTL           time.Duration `koanf:"feed_cache_ttl"`
	RankingCalibrationPath string        `koanf:"ranking_calibration_path"`
	BlockListSource        string        `koanf:"block_list_source"`

	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`

	TracingEnabled    bool    `koanf:"tracing_enabled"`
	TracingExporter   string  `koanf:"tracing_exporter"`
	TracingEndpoint   string  `koanf:"tracing_endpoint"`
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`
	TracingInsecure   bool    `koanf:"tracing_insecure"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	ProfilingEnabled   bool     `koanf:"profiling_enabled"`
}

// Block list sources.
const (
	BlockListNone     = "none"
	BlockListPostgres = "postgres"
)

// EnvProduction is the Env value that enables production checks.
const EnvProduction = "production"

// Errors reported by Load and Validate.
var (
	ErrInvalidValue              = errors.New("invalid configuration value")
	ErrMissingJWTSecret          = errors.New("JWT_SECRET is required in production")
	ErrInvalidPort               = errors.New("PORT must be between 1 and 65535")
	ErrInvalidCacheTTL           = errors.New("FEED_CACHE_TTL must be positive")
	ErrInvalidBlockListSource    = errors.New("BLOCK_LIST_SOURCE must be one of: none, postgres")
	ErrBlockListRequiresDatabase = errors.New("BLOCK_LIST_SOURCE=postgres requires DATABASE_URL")
	ErrInvalidRateLimit          = errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	ErrInvalidTracingExporter    = errors.New("TRACING_EXPORTER must be one of: otlp-http, otlp-grpc")
	ErrInvalidTracingSampleRate  = errors.New("TRACING_SAMPLE_RATE must be between 0 and 1")
	ErrProfilingInProduction     = errors.New("PROFILING_ENABLED must not be set in production")
)

// Defaults returns the settings used when neither the file nor the
// environment sets a key.
func Defaults() Config {
	return Config{
		Port:                   8080,
		Env:                    "development",
		FeedCacheTTL:           5 * time.Minute,
		RankingCalibrationPath: "configs/ranking.calibration.json",
		BlockListSource:        BlockListNone,
		RateLimitRequests:      120,
		RateLimitWindow:        time.Minute,
		TracingExporter:        tracing.ExporterOTLPHTTP,
		TracingSampleRate:      0.1,
	}
}

const (
	envPrefix             = "CREATORFEED_"
	keyCORSAllowedOrigins = "cors_allowed_origins"
)

// envBindings maps environment variables to config keys. The CREATORFEED_
// names win over their plain aliases.
var envBindings = map[string]string{
	"CREATORFEED_PORT":         "port",
	"PORT":                     "port",
	"CREATORFEED_ENV":          "env",
	"ENV":                      "env",
	"DATABASE_URL":             "database_url",
	"REDIS_URL":                "redis_url",
	"JWT_SECRET":               "jwt_secret",
	"JWT_PREVIOUS_SECRET":      "jwt_previous_secret",
	"FEED_CACHE_TTL":           "feed_cache_ttl",
	"RANKING_CALIBRATION_PATH": "ranking_calibration_path",
	"BLOCK_LIST_SOURCE":        "block_list_source",
	"RATE_LIMIT_REQUESTS":      "rate_limit_requests",
	"RATE_LIMIT_WINDOW":        "rate_limit_window",
	"TRACING_ENABLED":          "tracing_enabled",
	"TRACING_EXPORTER":         "tracing_exporter",
	"TRACING_ENDPOINT":         "tracing_endpoint",
	"TRACING_SAMPLE_RATE":      "tracing_sample_rate",
	"TRACING_INSECURE":         "tracing_insecure",
	"CORS_ALLOWED_ORIGINS":     keyCORSAllowedOrigins,
	"PROFILING_ENABLED":        "profiling_enabled",
}

// Load layers Defaults, the YAML file at path (skipped when path is empty)
// and the environment, then validates the result. A file that cannot be read
// is fatal and returns a nil Config; every other problem is collected.
func Load(path string) (*Config, []error) {
	k := koanf.New(".")

	defaults := Defaults()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return nil, []error{fmt.Errorf("failed to load defaults: %w", err)}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", path, err)}
		}
	}
	for _, prefixed := range []bool{false, true} {
		if err := k.Load(envLayer(prefixed), nil); err != nil {
			return nil, []error{fmt.Errorf("failed to load environment: %w", err)}
		}
	}

	var errs []error
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidValue, err))
	}
	cfg.BlockListSource = strings.ToLower(strings.TrimSpace(cfg.BlockListSource))
	cfg.CORSAllowedOrigins = compact(cfg.CORSAllowedOrigins)

	return cfg, append(errs, cfg.Validate()...)
}

// envLayer reads either the plain or the CREATORFEED_ bound variables. Blank
// values are skipped so they never override a file or default.
func envLayer(prefixed bool) *env.Env {
	return env.ProviderWithValue("", ".", func(name, value string) (string, any) {
		key, ok := envBindings[name]
		value = strings.TrimSpace(value)
		if !ok || value == "" || strings.HasPrefix(name, envPrefix) != prefixed {
			return "", nil
		}
		if key == keyCORSAllowedOrigins {
			return key, strings.Split(value, ",")
		}
		if b, ok := parseFlag(value); ok {
			return key, b
		}
		return key, value
	})
}

// parseFlag accepts the usual spellings of an on/off switch.
func parseFlag(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true, true
	case "false", "no", "off":
		return false, true
	}
	return false, false
}

func compact(list []string) []string {
	var out []string
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate returns every inconsistency in c; nil means valid.
func (c *Config) Validate() []error {
	var errs []error
	check := func(bad bool, err error) {
		if bad {
			errs = append(errs, err)
		}
	}

	check(c.Port <= 0 || c.Port > 65535, ErrInvalidPort)
	check(c.FeedCacheTTL <= 0, ErrInvalidCacheTTL)
	check(c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0, ErrInvalidRateLimit)
	check(c.IsProduction() && c.JWTSecret == "", ErrMissingJWTSecret)
	check(c.IsProduction() && c.ProfilingEnabled, ErrProfilingInProduction)

	switch c.BlockListSource {
	case BlockListNone:
	case BlockListPostgres:
		check(c.DatabaseURL == "", ErrBlockListRequiresDatabase)
	default:
		errs = append(errs, ErrInvalidBlockListSource)
	}

	if c.TracingEnabled {
		check(c.TracingExporter != tracing.ExporterOTLPHTTP && c.TracingExporter != tracing.ExporterOTLPGRPC,
			ErrInvalidTracingExporter)
		check(c.TracingSampleRate < 0 || c.TracingSampleRate > 1, ErrInvalidTracingSampleRate)
	}
	return errs
}
