package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

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
	DBConnMaxIdleTime int
	DBMetricsEnabled  bool

	ESign     ESignConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
}

// ESignConfig selects the e-signature provider and its webhook credentials.
type ESignConfig struct {
	Provider              string
	WebhookSecret         string
	SkipWebhookSignature  bool
	SigningLockTTLSeconds int
}

type StorageConfig struct {
	Driver     string
	Root       string
	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	WebhookRate  float64
	WebhookBurst int
}

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "gridsign"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "gridsign"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBMetricsEnabled:  getenvBool("DATABASE_METRICS_ENABLED", true),
		ESign: ESignConfig{
			Provider:              strings.ToLower(strings.TrimSpace(getenv("ESIGN_PROVIDER", "stub"))),
			WebhookSecret:         strings.TrimSpace(getenv("ESIGN_WEBHOOK_SECRET", "")),
			SkipWebhookSignature:  getenvBool("ESIGN_SKIP_WEBHOOK_SIGNATURE", false),
			SigningLockTTLSeconds: getenvInt("ESIGN_SIGNING_LOCK_TTL_SECONDS", 30),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(strings.TrimSpace(getenv("STORAGE_DRIVER", StorageDriverLocal))),
			Root:       getenv("STORAGE_ROOT", "./storage"),
			S3Bucket:   strings.TrimSpace(getenv("STORAGE_S3_BUCKET", "")),
			S3Region:   strings.TrimSpace(getenv("STORAGE_S3_REGION", "eu-central-1")),
			S3Endpoint: strings.TrimSpace(getenv("STORAGE_S3_ENDPOINT", "")),
			S3Prefix:   strings.TrimSpace(getenv("STORAGE_S3_PREFIX", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "localhost:6379")),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getenvInt("REDIS_DB", 0),
			WebhookRate:   getenvFloat("RATE_LIMIT_WEBHOOK_RATE", 20),
			WebhookBurst:  getenvInt("RATE_LIMIT_WEBHOOK_BURST", 40),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
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

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
