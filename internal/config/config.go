package config

import (
	"github.com/campusmarket/service-booking/pkg/config"
)

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port         string
	AppEnv       string
	LogFile      string
	DBConfig     config.DatabaseConfig
	JWTConfig    config.JWTConfig
	KafkaConfig  config.KafkaConfig
	RedisConfig  config.RedisConfig
	ReminderCron string
	OTLPEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("BOOKING", "SERVICE_PORT", "DB_NAME", "REMINDER_CRON")
	if err != nil {
		return nil, err
	}
	v.SetDefault("SERVICE_PORT", "8004")
	v.SetDefault("DB_NAME", "campus_booking")
	v.SetDefault("REMINDER_CRON", "0 * * * *")

	return &ServiceConfig{
		Port:         config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:       config.GetAppEnv(v),
		LogFile:      v.GetString("LOG_FILE"),
		DBConfig:     config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:    config.LoadJWTConfig(v),
		KafkaConfig:  config.LoadKafkaConfig(v),
		RedisConfig:  config.LoadRedisConfig(v),
		ReminderCron: v.GetString("REMINDER_CRON"),
		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
