package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Cheertaboi/hotel-discount-service/pkg/db"
	"github.com/Cheertaboi/hotel-discount-service/pkg/logger"
)

// Config holds application configuration.
type Config struct {
	HTTPAddr       string
	Environment    string
	JWTSecret      string
	RequestTimeout time.Duration
	MigrateOnStart bool

	Log      logger.Config
	Postgres db.PostgresConfig
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("REQUEST_TIMEOUT", "8s")
	v.SetDefault("MIGRATE_ON_START", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "discounts")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("JWT_SECRET", "")

	cfg := Config{
		HTTPAddr:       v.GetString("HTTP_ADDR"),
		Environment:    v.GetString("APP_ENV"),
		JWTSecret:      strings.TrimSpace(v.GetString("JWT_SECRET")),
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		MigrateOnStart: v.GetBool("MIGRATE_ON_START"),
		Log: logger.Config{
			ServiceName: "discount-service",
			Environment: v.GetString("APP_ENV"),
			Level:       v.GetString("LOG_LEVEL"),
			Format:      v.GetString("LOG_FORMAT"),
		},
		Postgres: db.PostgresConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
	}

	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}
