// Package config loads application configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/saistv/corolla-trading-bot/internal/confluence"
	"github.com/saistv/corolla-trading-bot/internal/engine"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment
// variables.
type Config struct {
	// Instrument
	Symbol string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string
	LogLevel      string

	// Delivery
	WebhookURL string

	// Feed
	BarStream     string // Redis stream carrying inbound 1m bars
	ConsumerGroup string
	ConsumerName  string

	// Modes
	DemoMode    bool
	ReplaySpeed float64

	// Strategy parameters. Zero values fall back to the tuned NQ
	// defaults at EngineConfig time.
	ATFFastMain   int
	ATFSlowMain   int
	ATFSmooth     int
	ATFSens       float64
	SqzLength     int
	SqzBBMult     float64
	SqzKCMult     float64
	PivotLeft     int
	PivotRight    int
	WindowBars    int
	Tolerance       float64
	Threshold       float64
	MaxBars         int
	RescoreEveryBar bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	return &Config{
		Symbol: getEnv("SYMBOL", "NQ"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SQLitePath:    getEnv("SQLITE_PATH", "data/bars.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),

		WebhookURL: getEnv("WEBHOOK_URL", ""),

		BarStream:     getEnv("BAR_STREAM", "feed:bars:1m"),
		ConsumerGroup: getEnv("CONSUMER_GROUP", "signalengine"),
		ConsumerName:  getEnv("CONSUMER_NAME", "worker-1"),

		DemoMode:    getEnvBool("DEMO_MODE", false),
		ReplaySpeed: getEnvFloat("REPLAY_SPEED", 0),

		ATFFastMain:     getEnvInt("ATF_FAST_MAIN", 6),
		ATFSlowMain:     getEnvInt("ATF_SLOW_MAIN", 10),
		ATFSmooth:       getEnvInt("ATF_SMOOTH", 14),
		ATFSens:         getEnvFloat("ATF_SENS", 2.0),
		SqzLength:       getEnvInt("SQZ_LENGTH", 20),
		SqzBBMult:       getEnvFloat("SQZ_BB_MULT", 2.0),
		SqzKCMult:       getEnvFloat("SQZ_KC_MULT", 1.5),
		PivotLeft:       getEnvInt("PIVOT_LEFT", 5),
		PivotRight:      getEnvInt("PIVOT_RIGHT", 5),
		WindowBars:      getEnvInt("MOMENTUM_WINDOW", 6),
		Tolerance:       getEnvFloat("PROXIMITY_TOLERANCE", 0.001),
		Threshold:       getEnvFloat("SCORE_THRESHOLD", 0.6),
		MaxBars:         getEnvInt("MAX_BARS", 2000),
		RescoreEveryBar: getEnvBool("RESCORE_EVERY_BAR", false),
	}
}

// EngineConfig builds the engine configuration from the loaded
// environment, starting from the tuned defaults.
func (c *Config) EngineConfig() engine.Config {
	ec := engine.DefaultConfig()
	ec.Symbol = c.Symbol
	ec.MaxBars = c.MaxBars
	ec.WindowBars = c.WindowBars
	ec.RescoreEveryBar = c.RescoreEveryBar

	ec.Fast.ATFMain = c.ATFFastMain
	ec.Slow.ATFMain = c.ATFSlowMain
	ec.Fast.ATFSmooth = c.ATFSmooth
	ec.Slow.ATFSmooth = c.ATFSmooth
	ec.Fast.ATFSens = c.ATFSens
	ec.Slow.ATFSens = c.ATFSens
	ec.Fast.SqzLength = c.SqzLength
	ec.Slow.SqzLength = c.SqzLength
	ec.Fast.SqzBBMult = c.SqzBBMult
	ec.Slow.SqzBBMult = c.SqzBBMult
	ec.Fast.SqzKCMult = c.SqzKCMult
	ec.Slow.SqzKCMult = c.SqzKCMult
	ec.Fast.PivotLeft = c.PivotLeft
	ec.Slow.PivotLeft = c.PivotLeft
	ec.Fast.PivotRight = c.PivotRight
	ec.Slow.PivotRight = c.PivotRight

	ec.Confluence = confluence.Config{
		Weights:   confluence.DefaultWeights(),
		Tolerance: c.Tolerance,
		Threshold: c.Threshold,
	}
	return ec
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid int env var, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid float env var, using default", "key", key, "value", v)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid bool env var, using default", "key", key, "value", v)
		return fallback
	}
	return b
}
