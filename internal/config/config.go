package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// Store backends.
const (
	StoreMemory    = "memory"
	StoreFirestore = "firestore"
	StoreSupabase  = "supabase"
)

// Auth providers.
const (
	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
)

// Cache and rate limit backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string
	Timezone string

	// Storage
	StoreBackend              string
	FirebaseProjectID         string
	FirebaseCredentialsFile   string
	FirebaseCredentialsBase64 string
	SupabaseURL               string
	SupabaseAnonKey           string
	SupabaseServiceKey        string

	// Auth
	AuthProvider string
	JWTSecret    string

	// Coach
	LLMAPIURL          string
	LLMAPIKey          string
	LLMModel           string
	LLMTimeout         time.Duration
	LLMMaxTokens       int
	LLMTemperature     float64
	CoachRatePerMinute int
	CoachBurst         int

	// Billing
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration

	// Cache
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// HTTP client / resilience
	HTTPTimeout    time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Observability
	OTLPEndpoint string

	// DefaultsFile points to a YAML file overriding the built-in pay plan
	// and goals for new accounts.
	DefaultsFile string
}

// LoadDotEnv reads a .env file into the environment. Variables already set
// win. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TIMEZONE", "UTC"),

		StoreBackend:              strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		FirebaseProjectID:         getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile:   getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		FirebaseCredentialsBase64: getEnv("FIREBASE_CREDENTIALS_BASE64", ""),
		SupabaseURL:               getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:           getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey:        getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		AuthProvider: strings.ToLower(getEnv("AUTH_PROVIDER", AuthJWT)),
		JWTSecret:    getEnv("JWT_SECRET", "carcash-default-dev-secret-change-me"),

		LLMAPIURL:          getEnv("LLM_API_URL", "https://api.openai.com"),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		LLMModel:           getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:         getEnvDuration("LLM_TIMEOUT", 20*time.Second),
		LLMMaxTokens:       getEnvInt("LLM_MAX_TOKENS", 500),
		LLMTemperature:     getEnvFloat("LLM_TEMPERATURE", 0.7),
		CoachRatePerMinute: getEnvInt("COACH_RATE_PER_MINUTE", 10),
		CoachBurst:         getEnvInt("COACH_BURST", 3),

		StripeWebhookSecret:    getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeWebhookTolerance: getEnvDuration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute),

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", CacheMemory)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),

		HTTPTimeout:    getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 20),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		DefaultsFile: getEnv("DEFAULTS_FILE", ""),
	}
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreFirestore:
	case StoreSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return errors.New("STORE_BACKEND=supabase requires SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.AuthProvider {
	case AuthJWT:
		if c.JWTSecret == "" {
			return errors.New("AUTH_PROVIDER=jwt requires JWT_SECRET")
		}
	case AuthFirebase:
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	switch c.CacheBackend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadDefaults returns the built-in defaults overlaid with DefaultsFile.
// Keys absent from the file keep their built-in values.
func (c *Config) LoadDefaults() (domain.Defaults, error) {
	defaults := domain.BuiltinDefaults()
	if c.DefaultsFile == "" {
		return defaults, nil
	}

	raw, err := os.ReadFile(c.DefaultsFile)
	if err != nil {
		return defaults, fmt.Errorf("read defaults file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &defaults); err != nil {
		return domain.BuiltinDefaults(), fmt.Errorf("parse defaults file: %w", err)
	}
	return defaults, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
