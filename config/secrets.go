package config

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// SecretStore resolves named secrets.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	GetWithDefault(ctx context.Context, key, def string) string
}

// EnvironmentSecretStore reads secrets from environment variables. A variable
// named KEY_FILE takes precedence and names a file holding the value.
type EnvironmentSecretStore struct{}

func NewEnvironmentSecretStore() *EnvironmentSecretStore { return &EnvironmentSecretStore{} }

func (s *EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	if path := os.Getenv(key + "_FILE"); path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - path supplied by operator
		if err != nil {
			return "", fmt.Errorf("read secret file for %s: %w", key, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("secret %s not set", key)
}

func (s *EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	v, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	return v
}

// LoadSecretsFromEnv fills the SQL DSN and Redis password from *_FILE variables.
func (c *Config) LoadSecretsFromEnv() error {
	secrets := []struct {
		key    string
		target *string
	}{
		{"XPLIST_SQL_DSN", &c.Storage.SQL.DSN},
		{"XPLIST_REDIS_PASSWORD", &c.Storage.Redis.Password},
	}
	for _, sec := range secrets {
		path := os.Getenv(sec.key + "_FILE")
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path) // #nosec G304 - path supplied by operator
		if err != nil {
			return fmt.Errorf("read %s_FILE: %w", sec.key, err)
		}
		*sec.target = strings.TrimSpace(string(data))
	}
	return nil
}
