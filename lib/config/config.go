// Package config loads the service configuration from defaults, an
// optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// SQLGRADER_SESSIONS_TTL=10m.
const EnvPrefix = "SQLGRADER"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Query     QueryConfig     `mapstructure:"query"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Exercises ExercisesConfig `mapstructure:"exercises"`
	Expected  ExpectedConfig  `mapstructure:"expected"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type QueryConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type SessionsConfig struct {
	Max int           `mapstructure:"max"`
	TTL time.Duration `mapstructure:"ttl"`
}

type ExercisesConfig struct {
	// File is a YAML exercise catalog. Empty means the built-in one.
	File string `mapstructure:"file"`
}

type ExpectedConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}

type TelemetryConfig struct {
	TracesExporter string `mapstructure:"traces_exporter"`
	LogsExporter   string `mapstructure:"logs_exporter"`
}

// Addr is the listen address of the HTTP server.
func (c ServerConfig) Addr() string {
	return ":" + c.Port
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("query.timeout", time.Minute)
	v.SetDefault("sessions.max", 1000)
	v.SetDefault("sessions.ttl", 2*time.Hour)
	v.SetDefault("exercises.file", "")
	v.SetDefault("expected.cache_size", 100)
	v.SetDefault("telemetry.traces_exporter", "console")
	v.SetDefault("telemetry.logs_exporter", "console")
}

// Load builds the configuration. path may be empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional variables honored next to the prefixed ones.
	for key, env := range map[string]string{
		"server.port":               "PORT",
		"telemetry.traces_exporter": "OTEL_TRACES_EXPORTER",
		"telemetry.logs_exporter":   "OTEL_LOGS_EXPORTER",
	} {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Query.Timeout <= 0 {
		errs = append(errs, errors.New("query.timeout must be positive"))
	}
	if c.Sessions.Max <= 0 {
		errs = append(errs, errors.New("sessions.max must be positive"))
	}
	if c.Sessions.TTL <= 0 {
		errs = append(errs, errors.New("sessions.ttl must be positive"))
	}
	if c.Expected.CacheSize <= 0 {
		errs = append(errs, errors.New("expected.cache_size must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
