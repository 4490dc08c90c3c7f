package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel string

	DBPath    string
	OutputDir string
	HTTPAddr  string

	ImageBaseURL          string
	ImageTimeoutMs        int
	ImageRateLimitRPS     int
	ImageFetchConcurrency int
	ImageMaxBytes         int64

	Locale   string
	Timezone string

	RefPrefix           string
	RefWidth            int
	ImportAutoReference bool

	ImportMaxBytes     int64
	APIRateLimitPerMin int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "catalog.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),

		ImageBaseURL:          getEnv("IMAGE_BASE_URL", "https://nyc3.digitaloceanspaces.com/moribr"),
		ImageTimeoutMs:        getEnvInt("IMAGE_TIMEOUT_MS", 10000),
		ImageRateLimitRPS:     getEnvInt("IMAGE_RATE_LIMIT_RPS", 10),
		ImageFetchConcurrency: getEnvInt("IMAGE_FETCH_CONCURRENCY", 4),
		ImageMaxBytes:         int64(getEnvInt("IMAGE_MAX_BYTES", 5<<20)),

		Locale:   getEnv("CATALOG_LOCALE", "pt-BR"),
		Timezone: getEnv("CATALOG_TIMEZONE", "America/Sao_Paulo"),

		RefPrefix:           getEnv("REF_PREFIX", "AUTO-"),
		RefWidth:            getEnvInt("REF_WIDTH", 5),
		ImportAutoReference: getEnvBool("IMPORT_AUTO_REFERENCE", false),

		ImportMaxBytes:     int64(getEnvInt("IMPORT_MAX_BYTES", 20<<20)),
		APIRateLimitPerMin: getEnvInt("API_RATE_LIMIT_PER_MIN", 60),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// Location resolves Timezone, falling back to the local zone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
