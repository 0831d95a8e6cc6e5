package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries every tunable the process needs. It is built once at
// startup and passed down explicitly; nothing reads the environment after
// Load returns.
type Config struct {
	// Backend connection.
	APIBaseURL     string
	APIKey         string
	RequestTimeout time.Duration

	// Acquisition behaviour.
	MaxParallel  int
	VideoFormat  string
	AudioFormat  string
	Quality      string
	ArchiveRate  float64 // CDN fetches per second while bundling, 0 disables pacing
	TextLanguage string

	// Process surfaces.
	Port    string
	DataDir string
}

// Load reads configuration from the environment, applying defaults for
// everything optional. Only the API key is required.
func Load() (Config, error) {
	cfg := Config{
		APIBaseURL:     envOrDefault("SAVEDOWN_API_URL", "http://localhost:8000"),
		APIKey:         os.Getenv("SAVEDOWN_API_KEY"),
		RequestTimeout: time.Duration(envInt("SAVEDOWN_REQUEST_TIMEOUT_SECONDS", 120)) * time.Second,
		MaxParallel:    envInt("SAVEDOWN_MAX_PARALLEL", 3),
		VideoFormat:    envOrDefault("SAVEDOWN_VIDEO_FORMAT", "mp4"),
		AudioFormat:    envOrDefault("SAVEDOWN_AUDIO_FORMAT", "mp3"),
		Quality:        os.Getenv("SAVEDOWN_QUALITY"),
		ArchiveRate:    envFloat("SAVEDOWN_ARCHIVE_RATE", 4),
		TextLanguage:   os.Getenv("SAVEDOWN_LANGUAGE"),
		Port:           envOrDefault("SAVEDOWN_PORT", "8080"),
		DataDir:        envOrDefault("SAVEDOWN_DATA_DIR", "downloads"),
	}

	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("SAVEDOWN_API_KEY environment variable not set")
	}
	if cfg.MaxParallel < 1 {
		return Config{}, fmt.Errorf("SAVEDOWN_MAX_PARALLEL must be at least 1, got %d", cfg.MaxParallel)
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
