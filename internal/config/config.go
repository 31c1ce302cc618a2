package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	AuthJWTSecret string
	AuthTokenTTL  time.Duration

	// AdminAPIKeyHash is the bcrypt hash of the key that guards code minting.
	// Admin routes stay disabled while it is empty.
	AdminAPIKeyHash string

	// DebitPolicy selects how batched generations are charged:
	// "upfront" debits unitCost*N before the first item, "per-item" debits
	// after each successful item.
	DebitPolicy string

	CostPerImage int64

	GenerationBaseURL string
	GenerationAPIKey  string
	GenerationTimeout time.Duration

	ImagesDir     string
	PublicBaseURL string

	RedisAddr     string
	RedisPassword string

	SeedDemoCodes bool

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
}

const (
	DebitPolicyUpfront = "upfront"
	DebitPolicyPerItem = "per-item"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "pointgate"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthTokenTTL:  getenvDuration("AUTH_TOKEN_TTL", 365*24*time.Hour),

		AdminAPIKeyHash: strings.TrimSpace(getenv("ADMIN_API_KEY_HASH", "")),

		DebitPolicy: normalizeDebitPolicy(getenv("DEBIT_POLICY", DebitPolicyUpfront)),

		CostPerImage: getenvInt64("COST_PER_IMAGE", 10),

		GenerationBaseURL: strings.TrimSpace(getenv("GENERATION_BASE_URL", "")),
		GenerationAPIKey:  strings.TrimSpace(getenv("GENERATION_API_KEY", "")),
		GenerationTimeout: getenvDuration("GENERATION_TIMEOUT", 120*time.Second),

		ImagesDir:     getenv("IMAGES_DIR", "./public/images"),
		PublicBaseURL: strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		SeedDemoCodes: getenvBool("SEED_DEMO_CODES", environment != "production"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "pointgate"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func normalizeDebitPolicy(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case DebitPolicyPerItem:
		return DebitPolicyPerItem
	default:
		return DebitPolicyUpfront
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
