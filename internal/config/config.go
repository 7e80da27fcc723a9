package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AnchorProviders []string
	AnchorTimeoutMS int

	SigningMode      string
	PanelSeedHex     string
	AwardWatermark   string
	EvidenceMaxBytes int64
	HashWorkers      int

	TemporalAddress   string
	TemporalNamespace string
	TemporalTaskQueue string
	WorkerHealthAddr  string

	LevelDBPath string
}

const (
	SigningModePlaceholder = "placeholder"
	SigningModeCOSE        = "cose"
)

func FromEnv() Config {
	return Config{
		HTTPAddr:               envDefault("HTTP_ADDR", ":8080"),
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
		AnchorProviders:        splitCSV(envDefault("ANCHOR_PROVIDERS", "blockchain,journal,placeholder")),
		AnchorTimeoutMS:        envIntDefault("ANCHOR_TIMEOUT_MS", 2000),
		SigningMode:            strings.ToLower(envDefault("SIGNING_MODE", SigningModePlaceholder)),
		PanelSeedHex:           os.Getenv("ARBITER_PANEL_SEED_HEX"),
		AwardWatermark:         os.Getenv("AWARD_WATERMARK"),
		EvidenceMaxBytes:       int64(envIntDefault("EVIDENCE_MAX_BYTES", 32<<20)),
		HashWorkers:            envIntDefault("HASH_WORKERS", 4),
		TemporalAddress:        envDefault("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace:      envDefault("TEMPORAL_NAMESPACE", "default"),
		TemporalTaskQueue:      envDefault("TEMPORAL_TASK_QUEUE", "arbitration"),
		WorkerHealthAddr:       envDefault("HEALTH_ADDR", ":8090"),
		LevelDBPath:            envDefault("LEVELDB_PATH", ".arbiter"),
	}
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c Config) AnchorTimeout() time.Duration {
	return time.Duration(c.AnchorTimeoutMS) * time.Millisecond
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
