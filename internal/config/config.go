package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all tweakable application parameters.
// Values are loaded from environment variables or set to sensible defaults.
type Config struct {
	LogLevel      string // Environment: SIGNALBOT_LOG_LEVEL
	MaxLogSizeMB  int64  // Environment: SIGNALBOT_MAX_LOG_SIZE_MB
	MaxLogBackups int    // Environment: SIGNALBOT_MAX_LOG_BACKUPS

	TickerURL   string // Environment: TICKER_URL
	PostgresDSN string // Environment: DATABASE_URL
	RedisURL    string // Environment: REDIS_URL

	ChatBotToken    string // Environment: CHAT_BOT_TOKEN
	ChatChatID      string // Environment: CHAT_CHAT_ID
	MicroblogAPIKey string // Environment: MICROBLOG_API_KEY
	MicroblogAPISec string // Environment: MICROBLOG_API_SECRET

	ChartOutputDir  string // Environment: CHART_OUTPUT_DIR
	ChartMaxAgeDays int    // Environment: CHART_MAX_AGE_DAYS

	MetricsAddr string // Environment: METRICS_ADDR

	PollIntervalSec int // Environment: POLL_INTERVAL_SEC

	OversoldThreshold float64 // Environment: STRATEGY_OVERSOLD_THRESHOLD
	TakeProfitPct     float64 // Environment: STRATEGY_TAKE_PROFIT_PCT
	StopLossPct       float64 // Environment: STRATEGY_STOP_LOSS_PCT
	TrailPct          float64 // Environment: STRATEGY_TRAIL_PCT
	LossCooldownMin   int     // Environment: STRATEGY_LOSS_COOLDOWN_MIN
	FeePct            float64 // Environment: STRATEGY_FEE_PCT
	InitialCapital    float64 // Environment: STRATEGY_INITIAL_CAPITAL

	EnableHourlyTweet     bool // Environment: ENABLE_HOURLY_TWEET
	EnableNHourSummary    bool // Environment: ENABLE_N_HOUR_SUMMARY
	EnableVolatilityAlert bool // Environment: ENABLE_VOLATILITY_ALERT
	EnableDailySummary    bool // Environment: ENABLE_DAILY_SUMMARY
}

// requiredSecretVars are fatal-at-startup if missing.
var requiredSecretVars = map[string]bool{
	"DATABASE_URL":   true,
	"CHAT_BOT_TOKEN": true,
	"CHAT_CHAT_ID":   true,
}

// Load initializes the configuration.
// It reads .env, checks required secrets, and populates the Config struct.
func Load() *Config {
	// Load .env variables into the process environment without overwriting existing env vars
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	var missing []string
	for key := range requiredSecretVars {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		log.Fatalf("CRITICAL: Missing required environment variables: %v", missing)
	}

	// Print variables explicitly defined in the local .env file (for debugging)
	envMap, err := godotenv.Read()
	if err == nil {
		log.Println("--- .env File Variables ---")
		for key, val := range envMap {
			if requiredSecretVars[key] {
				masked := "***"
				if len(val) > 4 {
					masked = "***" + val[len(val)-4:]
				}
				log.Printf("%s=%s", key, masked)
			} else {
				log.Printf("%s=%s", key, val)
			}
		}
		log.Println("---------------------------")
	}

	cfg := &Config{
		LogLevel:      getEnv("SIGNALBOT_LOG_LEVEL", "INFO"),
		MaxLogSizeMB:  getEnvAsInt64("SIGNALBOT_MAX_LOG_SIZE_MB", 5),
		MaxLogBackups: getEnvAsInt("SIGNALBOT_MAX_LOG_BACKUPS", 3),

		TickerURL:   getEnv("TICKER_URL", "https://www.bitstamp.net/api/v2/ticker/xrpusd/"),
		PostgresDSN: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		ChatBotToken:    os.Getenv("CHAT_BOT_TOKEN"),
		ChatChatID:      os.Getenv("CHAT_CHAT_ID"),
		MicroblogAPIKey: os.Getenv("MICROBLOG_API_KEY"),
		MicroblogAPISec: os.Getenv("MICROBLOG_API_SECRET"),

		ChartOutputDir:  getEnv("CHART_OUTPUT_DIR", "./charts"),
		ChartMaxAgeDays: getEnvAsInt("CHART_MAX_AGE_DAYS", 14),

		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		PollIntervalSec: getEnvAsInt("POLL_INTERVAL_SEC", 60),

		OversoldThreshold: getEnvAsFloat64("STRATEGY_OVERSOLD_THRESHOLD", -0.019),
		TakeProfitPct:     getEnvAsFloat64("STRATEGY_TAKE_PROFIT_PCT", 0.015),
		StopLossPct:       getEnvAsFloat64("STRATEGY_STOP_LOSS_PCT", -0.02),
		TrailPct:          getEnvAsFloat64("STRATEGY_TRAIL_PCT", 0.005),
		LossCooldownMin:   getEnvAsInt("STRATEGY_LOSS_COOLDOWN_MIN", 30),
		FeePct:            getEnvAsFloat64("STRATEGY_FEE_PCT", 0.005),
		InitialCapital:    getEnvAsFloat64("STRATEGY_INITIAL_CAPITAL", 1000.0),

		EnableHourlyTweet:     getEnvAsBool("ENABLE_HOURLY_TWEET", true),
		EnableNHourSummary:    getEnvAsBool("ENABLE_N_HOUR_SUMMARY", true),
		EnableVolatilityAlert: getEnvAsBool("ENABLE_VOLATILITY_ALERT", true),
		EnableDailySummary:    getEnvAsBool("ENABLE_DAILY_SUMMARY", true),
	}

	log.Printf("Configuration Loaded: LogLevel=%s, PollInterval=%ds, OversoldThreshold=%.4f, TakeProfit=%.4f, StopLoss=%.4f",
		cfg.LogLevel, cfg.PollIntervalSec, cfg.OversoldThreshold, cfg.TakeProfitPct, cfg.StopLossPct)

	return cfg
}

// Helper to get string env with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper to get int env with default
func getEnvAsInt(key string, fallback int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return parseInt(valueStr, fallback)
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return parseInt64(valueStr, fallback)
}

func parseInt(s string, fallback int) int {
	val, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Warning: Invalid int for config %s, using default %d", s, fallback)
		return fallback
	}
	return val
}

func parseInt64(s string, fallback int64) int64 {
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Printf("Warning: Invalid int64 for config %s, using default %d", s, fallback)
		return fallback
	}
	return val
}

func getEnvAsBool(key string, fallback bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Invalid bool for config %s, using default %v", key, fallback)
		return fallback
	}
	return val
}
