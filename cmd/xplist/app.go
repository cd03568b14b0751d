package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"xplist"
	"xplist/adapters/jsonfile"
	mem "xplist/adapters/memory"
	redisAdapter "xplist/adapters/redis"
	sqlxAdapter "xplist/adapters/sqlx"
	"xplist/analytics"
	"xplist/config"
	"xplist/core"
	"xplist/engine"
)

// configPath is the --config flag value; empty means defaults plus environment.
type configPath string

// App aggregates the assembled CLI components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Service *engine.LevelService
}

func provideConfig(path configPath) (*config.Config, error) {
	if path == "" {
		return config.LoadWithDefaults(cliDefaults())
	}
	return config.LoadFromFileWithDefaults(string(path), cliDefaults())
}

// cliDefaults keeps state in a JSON file, since every command is a new process.
func cliDefaults() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.Adapter = "file"
	cfg.Storage.File.Path = defaultDataFile()
	return cfg
}

// defaultDataFile is xplist/xplist.json under the user's config directory.
func defaultDataFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join("data", "xplist.json")
	}
	return filepath.Join(dir, "xplist", "xplist.json")
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideStorage(cfg *config.Config, logger *slog.Logger) (engine.Storage, func(), error) {
	store, err := setupStorage(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("storage ready", "adapter", cfg.Storage.Adapter)
	cleanup := func() {
		if c, ok := store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn("failed to close storage", "error", err)
			}
		}
	}
	return store, cleanup, nil
}

func provideService(cfg *config.Config, logger *slog.Logger, storage engine.Storage) (*engine.LevelService, func(), error) {
	mode := engine.DispatchSync
	var busOpts []engine.BusOption
	if cfg.Events.Mode == "async" {
		mode = engine.DispatchAsync
		busOpts = append(busOpts, engine.WithQueueSize(cfg.Events.QueueSize), engine.WithWorkers(cfg.Events.Workers))
	}
	svc, err := xplist.New(
		xplist.WithStorage(storage),
		xplist.WithDispatchMode(mode, busOpts...),
		xplist.WithLevelingConfig(cfg.Leveling),
		xplist.WithLogger(logger),
		xplist.WithHook(eventLogger(logger)),
	)
	if err != nil {
		return nil, nil, err
	}
	return svc, svc.Close, nil
}

// eventLogger records every domain event at debug level.
func eventLogger(logger *slog.Logger) analytics.Hook {
	return analytics.HookFunc(func(e core.Event) {
		logger.LogAttrs(context.Background(), slog.LevelDebug, "event",
			slog.String("type", string(e.Type)),
			slog.String("user", string(e.UserID)),
			slog.Int64("delta", e.Delta),
			slog.Int64("total", e.Total),
			slog.Int("level", e.Level),
		)
	})
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	var out io.Writer = os.Stderr
	if cfg.Logging.Output == "stdout" {
		out = os.Stdout
	}

	switch cfg.Logging.Format {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the appropriate storage adapter based on configuration.
func setupStorage(cfg *config.Config) (engine.Storage, error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), nil
	case "redis":
		return redisAdapter.New(cfg.Storage.Redis)
	case "sql":
		return sqlxAdapter.New(cfg.Storage.SQL)
	case "file":
		return jsonfile.New(cfg.Storage.File.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
