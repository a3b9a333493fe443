// Package config provides application configuration loaded from environment
// variables with defaults and validation. It covers the bot transport, the
// party engine tuning knobs, storage, the HTTP server and observability.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// DefaultProhibited mirrors the parser's default symbol set.
const DefaultProhibited = ",.;:!?()[]{}<>'\"`*/\\|#$%^&+=~"

// BotConfig defines chat-platform settings.
type BotConfig struct {
	Token         string // TELEGRAM_TOKEN
	Username      string // BOT_USERNAME; empty asks the platform
	LongPoll      bool   // IS_LONGPOLL
	AppURL        string // APP_URL, public base URL for the webhook
	WebhookSecret string // WEBHOOK_SECRET; empty derives one from the token
	DevelopChatID int64  // DEVELOP_CHAT_ID; 0 disables /feedback
	CallTimeout   time.Duration
}

// EngineConfig tunes parsing, suggestions and update handling.
type EngineConfig struct {
	Prohibited          string
	SimilarityThreshold float64
	MaxSuggestions      int
	MessageLimit        int
	AdminFetchTimeout   time.Duration
	UpdateTimeout       time.Duration
	Workers             int
	FeedbackRPS         float64
	FeedbackBurst       int
}

// StorageConfig selects and tunes the directory store.
type StorageConfig struct {
	Driver           string // sqlite|postgres
	DBPath           string // sqlite file
	DatabaseURL      string // postgres DSN
	ReceiptTTL       time.Duration
	ReceiptPurgeCron string
}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	Bot     BotConfig
	Engine  EngineConfig
	Storage StorageConfig

	// Server
	Port              string // just the number
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Read API
	APIEnabled  bool
	APIToken    string
	APIBasePath string

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool

	// Rate limiting for the HTTP API
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// WebhookPath returns the secret route the platform posts updates to.
func (c Config) WebhookPath() string {
	return "/webhook/" + c.Bot.WebhookSecret
}

// WebhookURL returns the absolute URL registered with the platform.
func (c Config) WebhookURL() string {
	return strings.TrimRight(c.Bot.AppURL, "/") + c.WebhookPath()
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result. Errors name the offending key.
func Load() (Config, error) {
	cfg := Config{
		Bot: BotConfig{
			Token:         strings.TrimSpace(getenv("TELEGRAM_TOKEN", "")),
			Username:      strings.TrimPrefix(strings.TrimSpace(getenv("BOT_USERNAME", "")), "@"),
			LongPoll:      getbool("IS_LONGPOLL", false),
			AppURL:        strings.TrimSpace(getenv("APP_URL", "")),
			WebhookSecret: strings.Trim(strings.TrimSpace(getenv("WEBHOOK_SECRET", "")), "/"),
			DevelopChatID: getint64("DEVELOP_CHAT_ID", 0),
			CallTimeout:   getdur("TELEGRAM_CALL_TIMEOUT", 10*time.Second),
		},
		Engine: EngineConfig{
			Prohibited:          getenv("PROHIBITED_SYMBOLS", DefaultProhibited),
			SimilarityThreshold: getfloat("SIMILARITY_THRESHOLD", 0.8),
			MaxSuggestions:      getint("MAX_SUGGESTIONS", 10),
			MessageLimit:        getint("MESSAGE_LIMIT", 4096),
			AdminFetchTimeout:   getdur("ADMIN_FETCH_TIMEOUT", 5*time.Second),
			UpdateTimeout:       getdur("UPDATE_TIMEOUT", 30*time.Second),
			Workers:             getint("WORKERS", 16),
			FeedbackRPS:         getfloat("FEEDBACK_RPS", 0.05),
			FeedbackBurst:       getint("FEEDBACK_BURST", 3),
		},
		Storage: StorageConfig{
			Driver:           strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			DBPath:           getenv("DB_PATH", "partybot.db"),
			DatabaseURL:      getenv("DATABASE_URL", ""),
			ReceiptTTL:       getdur("RECEIPT_TTL", 48*time.Hour),
			ReceiptPurgeCron: getenv("RECEIPT_PURGE_CRON", "0 * * * *"),
		},

		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		APIEnabled:  getbool("API_ENABLED", false),
		APIToken:    getenv("API_TOKEN", ""),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "pull-party-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Bot.WebhookSecret == "" && cfg.Bot.Token != "" {
		cfg.Bot.WebhookSecret = tokenSecret(cfg.Bot.Token)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}

	// Bot
	if cfg.Bot.Token == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	if !cfg.Bot.LongPoll && cfg.Bot.AppURL == "" {
		return errors.New("APP_URL is required unless IS_LONGPOLL is set")
	}
	if cfg.Bot.CallTimeout <= 0 {
		return errors.New("TELEGRAM_CALL_TIMEOUT must be > 0")
	}

	// Engine
	if cfg.Engine.SimilarityThreshold < 0 || cfg.Engine.SimilarityThreshold > 1 {
		return errors.New("SIMILARITY_THRESHOLD must be between 0 and 1")
	}
	if cfg.Engine.MaxSuggestions < 0 {
		return errors.New("MAX_SUGGESTIONS must be >= 0")
	}
	if cfg.Engine.MessageLimit < 64 {
		return errors.New("MESSAGE_LIMIT must be >= 64")
	}
	if cfg.Engine.AdminFetchTimeout <= 0 || cfg.Engine.UpdateTimeout <= 0 {
		return errors.New("ADMIN_FETCH_TIMEOUT and UPDATE_TIMEOUT must be positive durations")
	}
	if cfg.Engine.Workers < 1 {
		return errors.New("WORKERS must be >= 1")
	}
	if cfg.Engine.FeedbackRPS < 0 {
		return errors.New("FEEDBACK_RPS must be >= 0")
	}
	if cfg.Engine.FeedbackBurst < 1 {
		return errors.New("FEEDBACK_BURST must be >= 1")
	}

	// Storage
	switch cfg.Storage.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.Storage.DBPath) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.Storage.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required for DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", cfg.Storage.Driver)
	}
	if cfg.Storage.ReceiptTTL <= 0 {
		return errors.New("RECEIPT_TTL must be > 0")
	}
	if !gronx.IsValid(cfg.Storage.ReceiptPurgeCron) {
		return fmt.Errorf("RECEIPT_PURGE_CRON is not a valid cron expression: %q", cfg.Storage.ReceiptPurgeCron)
	}

	// Server
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.APIEnabled && cfg.APIToken == "" {
		return errors.New("API_TOKEN is required when API_ENABLED is set")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// tokenSecret derives a stable, URL-safe path secret from the bot token.
func tokenSecret(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}
