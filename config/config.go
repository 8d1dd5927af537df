package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

type Config struct {
	App   AppConfig
	Slot  SlotConfig
	Photo PhotoConfig
}

type AppConfig struct {
	Environment string // development, production
	Port        string
	LogLevel    string
}

type SlotConfig struct {
	Driver         string
	Key            string
	SqlitePath     string
	DatabaseURL    string
	MaxConnections int
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	CacheEnabled   bool
	StrictLoad     bool
}

type PhotoConfig struct {
	MaxBytes int64
	MaxSide  int
}

// Load reads the configuration from the environment, after applying an
// optional .env file from the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "9999"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Slot: SlotConfig{
			Driver:         strings.ToLower(getEnv("SLOT_DRIVER", DriverSqlite)),
			Key:            getEnv("SLOT_KEY", "peopleDB_v1"),
			SqlitePath:     getEnv("SQLITE_PATH", "cadastro.db"),
			DatabaseURL:    getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("MAX_CONNECTIONS", 10),
			RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:  getEnv("REDIS_PASSWORD", ""),
			RedisDB:        getEnvInt("REDIS_DB", 0),
			CacheEnabled:   getEnvBool("CACHE_ENABLED", false),
			StrictLoad:     getEnvBool("STRICT_LOAD", false),
		},
		Photo: PhotoConfig{
			MaxBytes: int64(getEnvInt("PHOTO_MAX_BYTES", 5*1024*1024)),
			MaxSide:  getEnvInt("PHOTO_MAX_SIDE", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Slot.Driver {
	case DriverSqlite, DriverRedis, DriverMemory:
	case DriverPostgres:
		if c.Slot.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres slot driver")
		}
	default:
		return fmt.Errorf("unknown SLOT_DRIVER %q", c.Slot.Driver)
	}

	if c.Slot.Key == "" {
		return fmt.Errorf("SLOT_KEY must not be empty")
	}
	if c.Photo.MaxSide < 0 {
		return fmt.Errorf("PHOTO_MAX_SIDE must not be negative")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
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
