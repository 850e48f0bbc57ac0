// Package config reads the user service settings from the environment and
// exposes them as typed values.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config represents runtime configuration for the user service.
type Config struct {
	Env         string
	Address     string
	LogLevel    string
	FrontendURL string

	DatabaseURL string
	RedisURL    string

	AuthServiceURL string
	GatewayURL     string
	JWTSecret      string
	InternalSecret string

	MaxUploadBytes   int64
	IngestWorkers    int
	IngestChunkSize  int
	ProvisionTimeout time.Duration
	EnrichTimeout    time.Duration
	ProfileCacheTTL  time.Duration
	ProgressTTL      time.Duration

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool
}

const (
	defaultPort             = "3002"
	defaultRedisURL         = "redis://localhost:6379/0"
	defaultAuthServiceURL   = "https://uniz-auth.vercel.app"
	defaultGatewayURL       = "http://localhost:3000/api/v1"
	defaultMaxUploadBytes   = 10 << 20 // 10 MiB
	defaultIngestWorkers    = 2
	defaultChunkSize        = 5
	defaultProvisionTimeout = 5 * time.Second
	defaultEnrichTimeout    = 2 * time.Second
	defaultProfileCacheTTL  = time.Hour
	defaultProgressTTL      = 600 * time.Second
	defaultBucket           = "student-uploads"

	devJWTSecret      = "default_secret_unsafe"
	devInternalSecret = "uniz-core"
)

// Load reads configuration from environment variables (and an optional .env
// file) falling back to defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using process environment")
	}
	cfg := &Config{
		Env:              readEnv("APP_ENV", "development"),
		Address:          ":" + readEnv("PORT", defaultPort),
		LogLevel:         readEnv("LOG_LEVEL", "info"),
		FrontendURL:      readEnv("FRONTEND_URL", "*"),
		DatabaseURL:      readEnv("DATABASE_URL", ""),
		RedisURL:         readEnv("REDIS_URL", defaultRedisURL),
		AuthServiceURL:   strings.TrimRight(readEnv("AUTH_SERVICE_URL", defaultAuthServiceURL), "/"),
		GatewayURL:       strings.TrimRight(readEnv("GATEWAY_URL", defaultGatewayURL), "/"),
		JWTSecret:        strings.TrimSpace(readEnv("JWT_SECURITY_KEY", "")),
		InternalSecret:   strings.TrimSpace(readEnv("INTERNAL_SECRET", "")),
		MaxUploadBytes:   parseInt64("UPLOAD_MAX_BYTES", defaultMaxUploadBytes),
		IngestWorkers:    parseInt("INGEST_WORKERS", defaultIngestWorkers),
		IngestChunkSize:  parseInt("INGEST_CHUNK_SIZE", defaultChunkSize),
		ProvisionTimeout: parseDuration("PROVISION_TIMEOUT", defaultProvisionTimeout),
		EnrichTimeout:    parseDuration("ENRICH_TIMEOUT", defaultEnrichTimeout),
		ProfileCacheTTL:  parseDuration("PROFILE_CACHE_TTL", defaultProfileCacheTTL),
		ProgressTTL:      parseDuration("PROGRESS_TTL", defaultProgressTTL),
		S3Endpoint:       readEnv("S3_ENDPOINT", ""),
		S3AccessKey:      readEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:      readEnv("S3_SECRET_KEY", ""),
		S3Bucket:         readEnv("S3_BUCKET", defaultBucket),
		S3Region:         readEnv("S3_REGION", "us-east-1"),
		S3UseSSL:         parseBool("S3_USE_SSL", false),
	}
	if cfg.IsProduction() {
		if cfg.JWTSecret == "" {
			return nil, errors.New("JWT_SECURITY_KEY is required in production")
		}
		if cfg.InternalSecret == "" {
			return nil, errors.New("INTERNAL_SECRET is required in production")
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
	}
	if cfg.InternalSecret == "" {
		cfg.InternalSecret = devInternalSecret
	}
	if cfg.IngestWorkers <= 0 {
		cfg.IngestWorkers = defaultIngestWorkers
	}
	if cfg.IngestChunkSize <= 0 {
		cfg.IngestChunkSize = defaultChunkSize
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.ProgressTTL <= 0 {
		cfg.ProgressTTL = defaultProgressTTL
	}
	if cfg.ProfileCacheTTL <= 0 {
		cfg.ProfileCacheTTL = defaultProfileCacheTTL
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ArchiveEnabled reports whether uploads should be archived to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Endpoint != ""
}

// ConfigureLogging applies the log level and formatter to the global logrus logger.
func (c *Config) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if c.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
		logrus.Warnf("invalid %s value %q, using default", key, v)
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		logrus.Warnf("invalid %s value %q, using default", key, v)
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

// parseDuration accepts Go durations ("5s") or a bare number of seconds.
func parseDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	if parsed, err := time.ParseDuration(v); err == nil {
		return parsed
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	logrus.Warnf("invalid %s value %q, using default", key, v)
	return def
}
