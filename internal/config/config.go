package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the multi-voice session service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	DailySessionLimit      int
	ConcurrentSessionLimit int

	PhaseTurnThreshold int
	TurnTimeout        time.Duration
	TurnRetryBackoff   time.Duration

	MixTick        time.Duration
	SampleRate     int
	PrimaryGain    float64
	AmbientGain    float64
	SourceQueueLen int

	AmbientCooldown       time.Duration
	AmbientSentimentFloor float64
	AmbientEnergyFloor    float64

	ReconnectGraceWindow time.Duration

	AgentRuntimeMode string
	AgentRuntimeURL  string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "ai4joy"),
		AllowAnyOrigin:           false,
		DailySessionLimit:        10,
		ConcurrentSessionLimit:   3,
		PhaseTurnThreshold:       4,
		TurnTimeout:              20 * time.Second,
		TurnRetryBackoff:         400 * time.Millisecond,
		MixTick:                  20 * time.Millisecond,
		SampleRate:               16000,
		PrimaryGain:              1.0,
		AmbientGain:              0.3,
		SourceQueueLen:           64,
		AmbientCooldown:          15 * time.Second,
		AmbientSentimentFloor:    0.6,
		AmbientEnergyFloor:       0.5,
		ReconnectGraceWindow:     30 * time.Second,
		AgentRuntimeMode:         envOrDefault("AGENT_RUNTIME_MODE", "auto"),
		AgentRuntimeURL:          stringsTrimSpace("AGENT_RUNTIME_URL"),
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 2 * time.Minute,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	cfg.DailySessionLimit, err = intFromEnv("ADMISSION_DAILY_LIMIT", cfg.DailySessionLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.ConcurrentSessionLimit, err = intFromEnv("ADMISSION_CONCURRENT_LIMIT", cfg.ConcurrentSessionLimit)
	if err != nil {
		return Config{}, err
	}

	cfg.PhaseTurnThreshold, err = intFromEnv("TURN_PHASE_THRESHOLD", cfg.PhaseTurnThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.TurnTimeout, err = durationFromEnv("TURN_TIMEOUT", cfg.TurnTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TurnRetryBackoff, err = durationFromEnv("TURN_RETRY_BACKOFF", cfg.TurnRetryBackoff)
	if err != nil {
		return Config{}, err
	}

	cfg.MixTick, err = durationFromEnv("MIX_TICK", cfg.MixTick)
	if err != nil {
		return Config{}, err
	}
	cfg.SampleRate, err = intFromEnv("MIX_SAMPLE_RATE", cfg.SampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.PrimaryGain, err = floatFromEnv("MIX_PRIMARY_GAIN", cfg.PrimaryGain)
	if err != nil {
		return Config{}, err
	}
	cfg.AmbientGain, err = floatFromEnv("MIX_AMBIENT_GAIN", cfg.AmbientGain)
	if err != nil {
		return Config{}, err
	}
	cfg.SourceQueueLen, err = intFromEnv("MIX_SOURCE_QUEUE_LEN", cfg.SourceQueueLen)
	if err != nil {
		return Config{}, err
	}

	cfg.AmbientCooldown, err = durationFromEnv("AMBIENT_COOLDOWN", cfg.AmbientCooldown)
	if err != nil {
		return Config{}, err
	}
	cfg.AmbientSentimentFloor, err = floatFromEnv("AMBIENT_SENTIMENT_FLOOR", cfg.AmbientSentimentFloor)
	if err != nil {
		return Config{}, err
	}
	cfg.AmbientEnergyFloor, err = floatFromEnv("AMBIENT_ENERGY_FLOOR", cfg.AmbientEnergyFloor)
	if err != nil {
		return Config{}, err
	}

	cfg.ReconnectGraceWindow, err = durationFromEnv("RECONNECT_GRACE_WINDOW", cfg.ReconnectGraceWindow)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.DailySessionLimit <= 0 {
		return Config{}, fmt.Errorf("ADMISSION_DAILY_LIMIT must be positive")
	}
	if cfg.ConcurrentSessionLimit <= 0 {
		return Config{}, fmt.Errorf("ADMISSION_CONCURRENT_LIMIT must be positive")
	}
	if cfg.PhaseTurnThreshold <= 0 {
		return Config{}, fmt.Errorf("TURN_PHASE_THRESHOLD must be positive")
	}
	if cfg.TurnTimeout < time.Second {
		return Config{}, fmt.Errorf("TURN_TIMEOUT must be at least 1s")
	}
	if cfg.MixTick < 5*time.Millisecond || cfg.MixTick > 100*time.Millisecond {
		return Config{}, fmt.Errorf("MIX_TICK must be between 5ms and 100ms")
	}
	if cfg.SampleRate <= 0 {
		return Config{}, fmt.Errorf("MIX_SAMPLE_RATE must be positive")
	}
	if cfg.PrimaryGain < 0 || cfg.PrimaryGain > 1 {
		return Config{}, fmt.Errorf("MIX_PRIMARY_GAIN must be in [0,1]")
	}
	if cfg.AmbientGain < 0 || cfg.AmbientGain > 1 {
		return Config{}, fmt.Errorf("MIX_AMBIENT_GAIN must be in [0,1]")
	}
	if cfg.SourceQueueLen <= 0 {
		return Config{}, fmt.Errorf("MIX_SOURCE_QUEUE_LEN must be positive")
	}
	if cfg.AmbientCooldown <= 0 {
		return Config{}, fmt.Errorf("AMBIENT_COOLDOWN must be positive")
	}
	if cfg.AmbientSentimentFloor < 0 || cfg.AmbientSentimentFloor > 1 {
		return Config{}, fmt.Errorf("AMBIENT_SENTIMENT_FLOOR must be in [0,1]")
	}
	if cfg.AmbientEnergyFloor < 0 || cfg.AmbientEnergyFloor > 1 {
		return Config{}, fmt.Errorf("AMBIENT_ENERGY_FLOOR must be in [0,1]")
	}
	if cfg.ReconnectGraceWindow < 0 {
		return Config{}, fmt.Errorf("RECONNECT_GRACE_WINDOW must not be negative")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
