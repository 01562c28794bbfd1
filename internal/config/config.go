package config

import (
	"os"
	"strconv"
	"time"
)

// Config collects everything the process reads from the environment.
// DatabaseURL and RedisAddr may be empty; the caller falls back to the
// in-memory ledger and the noop cache.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CatalogPath   string
	InvoicePrefix string
	DailyTotalTTL time.Duration
}

func Load() Config {
	return Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CatalogPath:   getEnv("CATALOG_PATH", "catalog.json"),
		InvoicePrefix: getEnv("INVOICE_PREFIX", "abc"),
		DailyTotalTTL: time.Duration(getEnvInt("DAILY_TOTAL_TTL_SECONDS", 300)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
