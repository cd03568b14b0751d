package config

import (
	"fmt"

	"xplist/adapters/sqlx"
)

// LoadProfile returns the defaults for a named environment profile, with
// environment variables applied on top.
func LoadProfile(name string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Profile = name

	switch name {
	case "development":
		cfg.Environment = EnvDevelopment
		cfg.Logging.Level = "debug"
		cfg.Storage.Adapter = "file"
	case "testing":
		cfg.Environment = EnvTesting
		cfg.Logging.Level = "warn"
		cfg.Storage.Adapter = "memory"
	case "staging":
		cfg.Environment = EnvStaging
		cfg.Logging.Format = "json"
		cfg.Storage.Adapter = "redis"
		cfg.Events.Mode = "async"
	case "production":
		cfg.Environment = EnvProduction
		cfg.Logging.Format = "json"
		cfg.Storage.Adapter = "sql"
		cfg.Storage.SQL = sqlx.DefaultConfig(sqlx.DriverPostgres)
		cfg.Events.Mode = "async"
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.LoadSecretsFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	return cfg, nil
}
