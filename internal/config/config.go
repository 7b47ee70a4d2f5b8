package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all server settings in correct types
type Config struct {
	Port             string
	ArtifactsDir     string
	CleanupInterval  time.Duration
	RetentionWindow  time.Duration
	GracePeriod      time.Duration
	FetchTimeout     time.Duration
	MaxFetchAttempts int
	MaxVideoFormats  int
	MaxAudioFormats  int
	RequestsPerSec   int
	BurstSize        int
	RedisAddr        string
	MirrorTTL        time.Duration
}

// Load: The only way to get config in the app
func Load() *Config {
	cfg := &Config{
		Port:             getEnv("PORT", ":8080"),
		ArtifactsDir:     getEnv("ARTIFACTS_DIR", "artifacts"),
		CleanupInterval:  time.Duration(getEnvAsInt("CLEANUP_INTERVAL_SECONDS", 60)) * time.Second,
		RetentionWindow:  time.Duration(getEnvAsInt("RETENTION_SECONDS", 300)) * time.Second,
		GracePeriod:      time.Duration(getEnvAsInt("GRACE_PERIOD_SECONDS", 10)) * time.Second,
		FetchTimeout:     time.Duration(getEnvAsInt("FETCH_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxFetchAttempts: getEnvAsInt("MAX_FETCH_ATTEMPTS", 5),
		MaxVideoFormats:  getEnvAsInt("MAX_VIDEO_FORMATS", 15),
		MaxAudioFormats:  getEnvAsInt("MAX_AUDIO_FORMATS", 8),
		RequestsPerSec:   getEnvAsInt("REQUESTS_PER_SECOND", 20),
		BurstSize:        getEnvAsInt("BURST_SIZE", 40),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		MirrorTTL:        time.Duration(getEnvAsInt("MIRROR_TTL_HOURS", 24)) * time.Hour,
	}

	validate(cfg)

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	str := getEnv(key, "")
	if val, err := strconv.Atoi(str); err == nil {
		return val
	}
	return fallback
}

// validate ensures the server won't crash due to misconfiguration
func validate(cfg *Config) {
	if cfg.MaxFetchAttempts < 1 {
		log.Println("Warning: MAX_FETCH_ATTEMPTS must be at least 1. Resetting to 5.")
		cfg.MaxFetchAttempts = 5
	}
	if cfg.GracePeriod <= 0 {
		log.Println("Warning: GRACE_PERIOD_SECONDS must be positive. Resetting to 10.")
		cfg.GracePeriod = 10 * time.Second
	}
	if cfg.RetentionWindow <= 0 {
		log.Println("Warning: RETENTION_SECONDS must be positive. Resetting to 300.")
		cfg.RetentionWindow = 300 * time.Second
	}
	if cfg.RequestsPerSec < 1 {
		cfg.RequestsPerSec = 20
	}
}
