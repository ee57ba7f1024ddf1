package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/harliandi/go-quadtree/pkg/search"
)

// Config holds application configuration
type Config struct {
	Port            int
	MaxUploadMB     int
	MaxConcurrent   int
	RateLimitPerSec int
	RateLimitBurst  int
	WorkerCount     int

	// Compression defaults, overridable per request or by CLI flags
	ErrorMethod       int
	Threshold         float64
	MinBlockSize      int
	TargetCompression float64 // 0 disables threshold search
	OutputFormat      string
	MeasureMode       string // estimate, encode or a stream algorithm
	Quality           int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	cfg := &Config{
		Port:              getEnvInt("PORT", 8080),
		MaxUploadMB:       getEnvInt("MAX_UPLOAD_MB", 10),
		MaxConcurrent:     getEnvInt("MAX_CONCURRENT", 8),
		RateLimitPerSec:   getEnvInt("RATE_LIMIT", 10),
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 20),
		WorkerCount:       getEnvInt("WORKER_COUNT", search.DefaultWorkers()),
		ErrorMethod:       getEnvInt("ERROR_METHOD", 1),
		Threshold:         getEnvFloat("THRESHOLD", 10),
		MinBlockSize:      getEnvInt("MIN_BLOCK_SIZE", 1),
		TargetCompression: getEnvFloat("TARGET_COMPRESSION", 0),
		OutputFormat:      getEnvString("OUTPUT_FORMAT", "png"),
		MeasureMode:       getEnvString("MEASURE_MODE", "estimate"),
		Quality:           getEnvInt("JPEG_QUALITY", 85),
	}
	return cfg
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvString(key, defaultValue string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return strings.ToLower(val)
	}
	return defaultValue
}
