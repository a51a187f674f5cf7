package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Identity providers accepted in AUTH_MODE.
const (
	AuthFirebase = "firebase"
	AuthJWT      = "jwt"
)

type Config struct {
	Port     string
	Env      string
	LogLevel slog.Level

	StorageDriver   string
	SQLitePath      string
	PostgresConnStr string
	MongoURI        string
	MongoDatabase   string
	QuotaBytes      int64

	AuthMode                string
	FirebaseCredentialsPath string
	JWTSecret               string

	SeedSampleData bool
}

// Load reads the configuration from the environment, after loading a .env
// file when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, assuming environment variables are set")
	}

	quota, err := strconv.ParseInt(getEnv("KV_QUOTA_BYTES", "5242880"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("KV_QUOTA_BYTES: %w", err)
	}
	seed, err := strconv.ParseBool(getEnv("SEED_SAMPLE_DATA", "true"))
	if err != nil {
		return nil, fmt.Errorf("SEED_SAMPLE_DATA: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		LogLevel:                level,
		StorageDriver:           strings.ToLower(getEnv("STORAGE_DRIVER", DriverSQLite)),
		SQLitePath:              getEnv("SQLITE_PATH", "quill.db"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "quill"),
		QuotaBytes:              quota,
		AuthMode:                strings.ToLower(getEnv("AUTH_MODE", AuthJWT)),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		SeedSampleData:          seed,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.PostgresConnStr == "" {
			return fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI environment variable not set")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.AuthMode {
	case AuthFirebase:
	case AuthJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET environment variable not set")
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}

	if c.QuotaBytes < 0 {
		return fmt.Errorf("KV_QUOTA_BYTES must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
