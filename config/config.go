package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cryptoSignalBot/internal/adapters/logger"
)

// Settings backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	// Binance API. Keys are optional, market data endpoints are public.
	APIKey           string
	SecretKey        string
	IsTestnet        bool
	BaseURL          string
	QuoteAsset       string
	ExcludedPrefixes []string
	RequestTimeout   time.Duration

	// Analysis
	TopSymbolsLimit int // symbols ranked by 24h volume before scoring
	TopPicks        int // symbols funded from a budget
	CandleLimit     int

	// Settings persistence
	SettingsBackend      string
	SettingsPath         string // json backend
	DBPath               string // sqlite backend
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	RedisKey             string
	StrategyDefaultsFile string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat string // text or json

	// Optional sinks, each disabled when empty
	MetricsAddr       string
	InfluxURL         string
	InfluxToken       string
	InfluxOrg         string
	InfluxBucket      string
	TelegramBotToken  string
	TelegramChatID    string
	DiscordWebhookURL string

	ExportDir string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)
	cfg.BaseURL = getEnv("BINANCE_BASE_URL", "")
	cfg.QuoteAsset = strings.ToUpper(getEnv("QUOTE_ASSET", "USDT"))
	cfg.ExcludedPrefixes = getEnvAsList("EXCLUDED_PREFIXES", []string{"USDT", "BUSD", "USDC", "TUSD"})

	timeoutSeconds, err := getEnvAsIntRequired("REQUEST_TIMEOUT_SECONDS", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid REQUEST_TIMEOUT_SECONDS: %v", err))
	} else if timeoutSeconds <= 0 {
		errs = append(errs, "REQUEST_TIMEOUT_SECONDS must be positive")
	}
	cfg.RequestTimeout = time.Duration(timeoutSeconds) * time.Second

	// Analysis
	cfg.TopSymbolsLimit, err = getEnvAsIntRequired("TOP_SYMBOLS_LIMIT", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TOP_SYMBOLS_LIMIT: %v", err))
	} else if cfg.TopSymbolsLimit <= 0 {
		errs = append(errs, "TOP_SYMBOLS_LIMIT must be positive")
	}

	cfg.TopPicks, err = getEnvAsIntRequired("TOP_PICKS", 4)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TOP_PICKS: %v", err))
	} else if cfg.TopPicks <= 0 {
		errs = append(errs, "TOP_PICKS must be positive")
	}

	cfg.CandleLimit, err = getEnvAsIntRequired("CANDLE_LIMIT", 300)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CANDLE_LIMIT: %v", err))
	} else if cfg.CandleLimit <= 0 || cfg.CandleLimit > 1000 {
		errs = append(errs, "CANDLE_LIMIT must be between 1 and 1000")
	}

	// Settings persistence
	cfg.SettingsBackend = strings.ToLower(getEnv("SETTINGS_BACKEND", BackendJSON))
	switch cfg.SettingsBackend {
	case BackendJSON, BackendSQLite, BackendRedis:
	default:
		errs = append(errs, fmt.Sprintf("SETTINGS_BACKEND must be one of json, sqlite, redis, got %q", cfg.SettingsBackend))
	}
	cfg.SettingsPath = getEnv("SETTINGS_PATH", "user_settings.json")
	cfg.DBPath = getEnv("DB_PATH", "./data/signal_bot.db")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvAsIntRequired("REDIS_DB", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid REDIS_DB: %v", err))
	}
	cfg.RedisKey = getEnv("REDIS_KEY", "signalbot:user_settings")
	cfg.StrategyDefaultsFile = getEnv("STRATEGY_DEFAULTS_FILE", "")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat))
	}

	// Optional sinks
	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")
	cfg.InfluxURL = getEnv("INFLUX_URL", "")
	cfg.InfluxToken = getEnv("INFLUX_TOKEN", "")
	cfg.InfluxOrg = getEnv("INFLUX_ORG", "")
	cfg.InfluxBucket = getEnv("INFLUX_BUCKET", "signals")
	if cfg.InfluxURL != "" && (cfg.InfluxToken == "" || cfg.InfluxOrg == "") {
		errs = append(errs, "INFLUX_TOKEN and INFLUX_ORG must be set when INFLUX_URL is set")
	}
	cfg.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")
	if (cfg.TelegramBotToken == "") != (cfg.TelegramChatID == "") {
		errs = append(errs, "TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	cfg.DiscordWebhookURL = getEnv("DISCORD_WEBHOOK_URL", "")

	cfg.ExportDir = getEnv("EXPORT_DIR", "./exports")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
