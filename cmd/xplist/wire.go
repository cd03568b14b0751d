//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
)

// BuildApp wires the CLI components using Google Wire.
func BuildApp(path configPath) (*App, func(), error) {
	wire.Build(
		provideConfig,
		provideLogger,
		provideStorage,
		provideService,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
