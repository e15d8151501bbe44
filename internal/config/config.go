package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"memorylens/internal/pkg/validator"
)

const (
	defaultAPIBaseURL    = "http://localhost:8000/api"
	defaultAssetHost     = "http://localhost:8000"
	defaultListenAddr    = ":3000"
	defaultHTTPTimeout   = "30s"
	defaultUploadTimeout = "10m"
	defaultSessionSecret = "change-me-session-secret"
	defaultMinioEndpoint = "localhost:9000"
	defaultUseSSL        = "false"
)

type Config struct {
	AppEnv        string
	APIBaseURL    string `validate:"required,url"`
	AssetHost     string `validate:"required,url"`
	ListenAddr    string `validate:"required"`
	SessionSecret string
	HTTPTimeout   time.Duration `validate:"gt=0"`
	UploadTimeout time.Duration `validate:"gte=0"`
	DatabaseURL   string
	CORSOrigins   []string
	Minio         MinioConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(getEnv("API_BASE_URL", defaultAPIBaseURL)), "/")
	cfg.AssetHost = strings.TrimRight(strings.TrimSpace(getEnv("ASSET_HOST", defaultAssetHost)), "/")
	cfg.ListenAddr = strings.TrimSpace(getEnv("LISTEN_ADDR", defaultListenAddr))
	cfg.SessionSecret = strings.TrimSpace(getEnv("SESSION_SECRET", defaultSessionSecret))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.CORSOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	var err error
	cfg.HTTPTimeout, err = parseDurationEnv("HTTP_TIMEOUT", defaultHTTPTimeout)
	if err != nil {
		return nil, err
	}
	cfg.UploadTimeout, err = parseDurationEnv("UPLOAD_TIMEOUT", defaultUploadTimeout)
	if err != nil {
		return nil, err
	}

	cfg.Minio = MinioConfig{
		Endpoint:  strings.TrimSpace(getEnv("MINIO_ENDPOINT", defaultMinioEndpoint)),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		UseSSL:    parseBoolEnv("MINIO_USE_SSL", defaultUseSSL),
		Region:    strings.TrimSpace(os.Getenv("MINIO_REGION")),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config loaded: env=%s api=%s assets=%s journal=%t", cfg.AppEnv, cfg.APIBaseURL, cfg.AssetHost, cfg.DatabaseURL != "")

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if err := validator.Err(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if isProdLike(cfg.AppEnv) && isEmptyOrDefault(cfg.SessionSecret, defaultSessionSecret) {
		return fmt.Errorf("in prod/release SESSION_SECRET must be set and not default")
	}
	return nil
}

func (c *Config) IsProd() bool { return isProdLike(c.AppEnv) }

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
