// Package config loads the process configuration once at startup; every
// component receives it by injection, there is no ambient global lookup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Maps      MapsConfig
	Recommend RecommendConfig
}

type ServerConfig struct {
	Addr            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MapsConfig struct {
	APIKey       string
	QPS          int
	Timeout      time.Duration
	Language     string
	TravelMode   string
	MaxRetries   uint64
	RetryBackoff time.Duration
}

type RecommendConfig struct {
	WideRadiusM        int
	DefaultRadiusM     int
	CacheLookupRadiusM int
	CacheTTL           time.Duration

	InterestWeight float64
	SearchWeight   float64
	TypeWeight     float64
	RatingWeight   float64
}

// Load reads .env if present, then the environment. Every value has a
// development default except the provider API key.
func Load(logger *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment only")
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("SERVER_ADDR", ":8080"),
			Environment:     getEnv("APP_ENV", "development"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "meetupspot"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Maps: MapsConfig{
			APIKey:       os.Getenv("GOOGLE_MAPS_API_KEY"),
			QPS:          getEnvInt("MAPS_QPS", 10),
			Timeout:      getEnvDuration("MAPS_TIMEOUT", 5*time.Second),
			Language:     getEnv("MAPS_LANGUAGE", "ko"),
			TravelMode:   getEnv("MAPS_TRAVEL_MODE", "transit"),
			MaxRetries:   uint64(getEnvInt("MAPS_MAX_RETRIES", 2)),
			RetryBackoff: getEnvDuration("MAPS_RETRY_BACKOFF", 200*time.Millisecond),
		},
		Recommend: RecommendConfig{
			WideRadiusM:        getEnvInt("RECOMMEND_WIDE_RADIUS_M", 50000),
			DefaultRadiusM:     getEnvInt("RECOMMEND_DEFAULT_RADIUS_M", 1000),
			CacheLookupRadiusM: getEnvInt("RECOMMEND_CACHE_RADIUS_M", 1000),
			CacheTTL:           getEnvDuration("RECOMMEND_CACHE_TTL", time.Hour),
			InterestWeight:     getEnvFloat("RECOMMEND_INTEREST_WEIGHT", 5.0),
			SearchWeight:       getEnvFloat("RECOMMEND_SEARCH_WEIGHT", 1.0),
			TypeWeight:         getEnvFloat("RECOMMEND_TYPE_WEIGHT", 2.0),
			RatingWeight:       getEnvFloat("RECOMMEND_RATING_WEIGHT", 1.0),
		},
	}

	if cfg.Maps.APIKey == "" && cfg.Server.Environment != "test" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY is not set")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
