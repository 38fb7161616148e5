package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the bot. The core behaves the
// same whatever the source; this loader reads environment variables with
// safe defaults.
type Config struct {
	BindAddr         string
	MetricsNamespace string
	ShutdownTimeout  time.Duration
	Debug            bool

	BotName       string
	SystemPrompt  string
	HomeChannelID string

	MaxContextMessages    int
	SemanticSearchEnabled bool
	RetentionDays         int
	ResponseChance        float64
	Cooldown              time.Duration

	DatabaseURL string
	SQLitePath  string

	LLMMode     string
	LLMURL      string
	MaxTokens   int
	Temperature float64

	GatewayURL   string
	GatewayToken string

	MusicWorkerCommand string

	SearchBaseURL  string
	CatalogBaseURL string

	SpamThreshold int
	SpamWindow    time.Duration
}

// Load reads environment variables and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "aria"),
		ShutdownTimeout:    15 * time.Second,
		BotName:            envOrDefault("BOT_NAME", "Aria"),
		SystemPrompt:       strings.TrimSpace(os.Getenv("BOT_SYSTEM_PROMPT")),
		HomeChannelID:      strings.TrimSpace(os.Getenv("BOT_HOME_CHANNEL_ID")),
		MaxContextMessages: 20,
		RetentionDays:      30,
		ResponseChance:     0.1,
		Cooldown:           10 * time.Second,
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:         envOrDefault("SQLITE_PATH", "data/aria.db"),
		LLMMode:            envOrDefault("LLM_MODE", "auto"),
		LLMURL:             strings.TrimSpace(os.Getenv("LLM_URL")),
		MaxTokens:          256,
		Temperature:        0.9,
		GatewayURL:         strings.TrimSpace(os.Getenv("GATEWAY_URL")),
		GatewayToken:       strings.TrimSpace(os.Getenv("GATEWAY_TOKEN")),
		MusicWorkerCommand: strings.TrimSpace(os.Getenv("MUSIC_WORKER_COMMAND")),
		SearchBaseURL:      strings.TrimSpace(os.Getenv("SEARCH_BASE_URL")),
		CatalogBaseURL:     strings.TrimSpace(os.Getenv("CATALOG_BASE_URL")),
		SpamThreshold:      6,
		SpamWindow:         10 * time.Second,
	}

	var err error
	if cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Debug, err = boolFromEnv("BOT_DEBUG", cfg.Debug); err != nil {
		return Config{}, err
	}
	if cfg.MaxContextMessages, err = intFromEnv("BOT_MAX_CONTEXT_MESSAGES", cfg.MaxContextMessages); err != nil {
		return Config{}, err
	}
	if cfg.SemanticSearchEnabled, err = boolFromEnv("BOT_SEMANTIC_SEARCH", cfg.SemanticSearchEnabled); err != nil {
		return Config{}, err
	}
	if cfg.RetentionDays, err = intFromEnv("BOT_RETENTION_DAYS", cfg.RetentionDays); err != nil {
		return Config{}, err
	}
	if cfg.ResponseChance, err = floatFromEnv("BOT_RESPONSE_CHANCE", cfg.ResponseChance); err != nil {
		return Config{}, err
	}
	if cfg.Cooldown, err = millisFromEnv("BOT_COOLDOWN_MS", cfg.Cooldown); err != nil {
		return Config{}, err
	}
	if cfg.MaxTokens, err = intFromEnv("LLM_MAX_TOKENS", cfg.MaxTokens); err != nil {
		return Config{}, err
	}
	if cfg.Temperature, err = floatFromEnv("LLM_TEMPERATURE", cfg.Temperature); err != nil {
		return Config{}, err
	}
	if cfg.SpamThreshold, err = intFromEnv("BOT_SPAM_THRESHOLD", cfg.SpamThreshold); err != nil {
		return Config{}, err
	}
	if cfg.SpamWindow, err = durationFromEnv("BOT_SPAM_WINDOW", cfg.SpamWindow); err != nil {
		return Config{}, err
	}

	if cfg.MaxContextMessages <= 0 {
		return Config{}, fmt.Errorf("BOT_MAX_CONTEXT_MESSAGES must be positive")
	}
	if cfg.RetentionDays < 0 {
		return Config{}, fmt.Errorf("BOT_RETENTION_DAYS must be >= 0")
	}
	if cfg.ResponseChance < 0 || cfg.ResponseChance > 1 {
		return Config{}, fmt.Errorf("BOT_RESPONSE_CHANCE must be in [0,1]")
	}
	if cfg.Cooldown < 0 {
		return Config{}, fmt.Errorf("BOT_COOLDOWN_MS must be >= 0")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func millisFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
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
	v := strings.TrimSpace(os.Getenv(key))
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
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
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
