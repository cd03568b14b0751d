// Package xplist assembles a LevelService from functional options.
package xplist

import (
	"context"
	"fmt"
	"log/slog"

	mem "xplist/adapters/memory"
	"xplist/analytics"
	"xplist/core"
	"xplist/engine"
	"xplist/leveling"
)

// Option configures the service builder.
type Option func(*config)

type config struct {
	storage  engine.Storage
	mode     engine.DispatchMode
	busOpts  []engine.BusOption
	leveling *leveling.Config
	system   *leveling.System
	logger   *slog.Logger
	hooks    []analytics.Hook
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode, opts ...engine.BusOption) Option {
	return func(c *config) {
		c.mode = m
		c.busOpts = append(c.busOpts, opts...)
	}
}

// WithLevelingConfig builds the leveling system from cfg. It is validated by New.
func WithLevelingConfig(cfg leveling.Config) Option {
	return func(c *config) { c.leveling = &cfg }
}

// WithSystem uses an already built leveling system and takes precedence over WithLevelingConfig.
func WithSystem(s *leveling.System) Option { return func(c *config) { c.system = s } }

// WithLogger sets the logger for the service and its bus.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// WithHook receives every task_completed, xp_awarded and level_up event.
func WithHook(h analytics.Hook) Option { return func(c *config) { c.hooks = append(c.hooks, h) } }

var hookedEvents = []core.EventType{core.EventTaskCompleted, core.EventXPAwarded, core.EventLevelUp}

// New builds a configured LevelService. If not provided, defaults are used:
//   - storage: in-memory
//   - leveling: leveling.DefaultConfig
//   - dispatch: sync
func New(opts ...Option) (*engine.LevelService, error) {
	cfg := &config{mode: engine.DispatchSync}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = mem.New()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	system := cfg.system
	if system == nil {
		lc := leveling.DefaultConfig()
		if cfg.leveling != nil {
			lc = *cfg.leveling
		}
		s, err := leveling.New(lc)
		if err != nil {
			return nil, fmt.Errorf("xplist: %w", err)
		}
		system = s
	}

	busOpts := append([]engine.BusOption{engine.WithBusLogger(cfg.logger)}, cfg.busOpts...)
	bus := engine.NewEventBus(cfg.mode, busOpts...)
	if len(cfg.hooks) > 0 {
		hook := analytics.NewBridge(cfg.hooks...)
		for _, typ := range hookedEvents {
			bus.Subscribe(typ, func(_ context.Context, e core.Event) { hook.OnEvent(e) })
		}
	}
	return engine.NewLevelService(cfg.storage, bus, system, cfg.logger), nil
}
