// Package config loads the service configuration from features.yaml with
// environment variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/fionalabs/outreach-orchestrator/internal/tracing"
)

// Config is the full service configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	AgentRuntime AgentRuntimeConfig `mapstructure:"agent_runtime"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	Temporal     TemporalConfig     `mapstructure:"temporal"`
	Approval     ApprovalConfig     `mapstructure:"approval"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Tracing      tracing.Config     `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port        int `mapstructure:"port"`
	MetricsPort int `mapstructure:"metrics_port"`
}

type AgentRuntimeConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
}

type ApprovalConfig struct {
	// AuthToken guards the decision endpoint. Empty disables auth (dev only).
	AuthToken string `mapstructure:"auth_token"`
	// TimeoutSeconds is how long each draft waits for a reviewer.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads features.yaml from CONFIG_PATH (default config/features.yaml)
// and applies environment overrides. A missing file is not an error; the
// defaults plus environment carry a local run.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/features.yaml"
	}
	v.SetConfigFile(cfgPath)
	if err := v.ReadInConfig(); err != nil {
		if fileExists(cfgPath) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.metrics_port", 2112)
	v.SetDefault("agent_runtime.base_url", "http://localhost:8000")
	v.SetDefault("agent_runtime.model", "gemini-2.0-flash")
	v.SetDefault("agent_runtime.request_timeout", "120s")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "outreach")
	v.SetDefault("postgres.database", "outreach")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("approval.timeout_seconds", 86400)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func applyEnvOverrides(cfg *Config) {
	if s := os.Getenv("AGENT_RUNTIME_URL"); s != "" {
		cfg.AgentRuntime.BaseURL = s
	}
	if s := os.Getenv("REDIS_ADDR"); s != "" {
		cfg.Redis.Addr = s
	}
	if s := os.Getenv("REDIS_PASSWORD"); s != "" {
		cfg.Redis.Password = s
	}
	if s := os.Getenv("POSTGRES_HOST"); s != "" {
		cfg.Postgres.Host = s
	}
	if s := os.Getenv("POSTGRES_PASSWORD"); s != "" {
		cfg.Postgres.Password = s
	}
	if s := os.Getenv("TEMPORAL_HOST_PORT"); s != "" {
		cfg.Temporal.HostPort = s
	}
	if s := os.Getenv("APPROVAL_AUTH_TOKEN"); s != "" {
		cfg.Approval.AuthToken = s
	}
	if s := os.Getenv("PORT"); s != "" {
		if p, err := strconv.Atoi(s); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
	if s := os.Getenv("METRICS_PORT"); s != "" {
		if p, err := strconv.Atoi(s); err == nil && p > 0 {
			cfg.Server.MetricsPort = p
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// PostgresDSN renders the connection string for sqlx.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}
