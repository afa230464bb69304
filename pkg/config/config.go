// Package config loads service configuration from the environment with viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Secret string
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// RedisConfig holds the Redis connection URL.
type RedisConfig struct {
	URL string
}

// commonKeys are bound for every service in addition to its own keys.
var commonKeys = []string{
	"APP_ENV", "LOG_FILE",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_SSLMODE",
	"JWT_SECRET", "KAFKA_BROKERS", "KAFKA_GROUP_PREFIX", "REDIS_URL",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
}

// Load returns a viper instance bound to the environment. Each key is read
// both bare (DB_HOST) and with the service prefix (BOOKING_DB_HOST); the
// prefixed form wins. A .env file in the working directory is loaded first
// when present.
func Load(prefix string, keys ...string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "campusmarket-")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")

	for _, key := range append(commonKeys, keys...) {
		envs := []string{key}
		if prefix != "" {
			envs = []string{strings.ToUpper(prefix) + "_" + key, key}
		}
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return v, nil
}

// GetServicePort returns the listen address for key, defaulting to :8080.
func GetServicePort(v *viper.Viper, key string) string {
	port := v.GetString(key)
	if port == "" {
		port = "8080"
	}
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

// GetAppEnv returns APP_ENV.
func GetAppEnv(v *viper.Viper) string {
	return v.GetString("APP_ENV")
}

// LoadDatabaseConfig reads the DB_* keys. dbNameKey lets each service keep
// its own database name variable.
func LoadDatabaseConfig(v *viper.Viper, dbNameKey string) DatabaseConfig {
	return DatabaseConfig{
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		User:     v.GetString("DB_USER"),
		Password: v.GetString("DB_PASSWORD"),
		DBName:   v.GetString(dbNameKey),
		SSLMode:  v.GetString("DB_SSLMODE"),
	}
}

// LoadJWTConfig reads JWT_SECRET.
func LoadJWTConfig(v *viper.Viper) JWTConfig {
	return JWTConfig{Secret: v.GetString("JWT_SECRET")}
}

// LoadKafkaConfig reads KAFKA_BROKERS (comma separated) and KAFKA_GROUP_PREFIX.
func LoadKafkaConfig(v *viper.Viper) KafkaConfig {
	var brokers []string
	for _, b := range strings.Split(v.GetString("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return KafkaConfig{
		Brokers:     brokers,
		GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
	}
}

// LoadRedisConfig reads REDIS_URL.
func LoadRedisConfig(v *viper.Viper) RedisConfig {
	return RedisConfig{URL: v.GetString("REDIS_URL")}
}

// DSN renders the lib/pq style connection string used by gorm.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// DatabaseURL renders the URL form used by golang-migrate.
func (c DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}
