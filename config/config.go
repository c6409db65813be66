package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Registry RegistryConfig `yaml:"registry"`
	Worker   WorkerConfig   `yaml:"worker"`
	Auth     AuthConfig     `yaml:"auth"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers        []string `yaml:"brokers"`
	OccupancyTopic string   `yaml:"occupancy_topic"`
	GroupID        string   `yaml:"group_id"`
}

type BookingConfig struct {
	OccupancyTTLSeconds     int `yaml:"occupancy_ttl_seconds"`
	SessionsCacheTTLSeconds int `yaml:"sessions_cache_ttl_seconds"`
	BulkMaxRows             int `yaml:"bulk_max_rows"`
	SyncMaxAttempts         int `yaml:"sync_max_attempts"`
	SyncBackoffBaseMS       int `yaml:"sync_backoff_base_ms"`
	OverrideRateLimit       int `yaml:"override_rate_limit"`
	OverrideRateWindowSecs  int `yaml:"override_rate_window_seconds"`
}

type RegistryConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type WorkerConfig struct {
	DriftSweepMinutes int `yaml:"drift_sweep_minutes"`
}

type AuthConfig struct {
	AdminToken string `yaml:"admin_token"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
