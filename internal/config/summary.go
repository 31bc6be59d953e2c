package config

import (
	"log/slog"
	"net/url"
	"strings"
)

const notSet = "<not set>"

// LogSummary returns the settings as log attributes with secrets masked.
func (c *Config) LogSummary() []slog.Attr {
	return []slog.Attr{
		slog.Int("port", c.Port),
		slog.String("env", c.Env),
		slog.String("database_url", maskURL(c.DatabaseURL)),
		slog.String("redis_url", maskURL(c.RedisURL)),
		slog.String("jwt_secret", maskSecret(c.JWTSecret)),
		slog.String("jwt_previous_secret", maskSecret(c.JWTPreviousSecret)),
		slog.Duration("feed_cache_ttl", c.FeedCacheTTL),
		slog.String("ranking_calibration_path", c.RankingCalibrationPath),
		slog.String("block_list_source", c.BlockListSource),
		slog.Int("rate_limit_requests", c.RateLimitRequests),
		slog.Duration("rate_limit_window", c.RateLimitWindow),
		slog.Bool("tracing_enabled", c.TracingEnabled),
		slog.String("tracing_exporter", c.TracingExporter),
		slog.String("tracing_endpoint", c.TracingEndpoint),
		slog.Float64("tracing_sample_rate", c.TracingSampleRate),
		slog.String("cors_allowed_origins", strings.Join(c.CORSAllowedOrigins, ",")),
		slog.Bool("profiling_enabled", c.ProfilingEnabled),
	}
}

// maskSecret keeps the first 4 characters of secrets of 8 or more.
func maskSecret(s string) string {
	switch {
	case s == "":
		return notSet
	case len(s) < 8:
		return "****"
	default:
		return s[:4] + "****"
	}
}

// maskURL hides the password of a postgres:// or redis:// URL. Anything that
// does not parse as a URL with a scheme is treated as a secret.
func maskURL(s string) string {
	if s == "" {
		return notSet
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || !strings.Contains(s, "://") {
		return maskSecret(s)
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
