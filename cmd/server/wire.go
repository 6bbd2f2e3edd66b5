//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"menulens-server/internal/config"
	"menulens-server/internal/domain/dish"
	"menulens-server/internal/domain/scan"
	"menulens-server/internal/domain/visibility"
	"menulens-server/internal/infrastructure/inference"
	"menulens-server/internal/infrastructure/logger"
	"menulens-server/internal/interfaces/httpserver"
)

var scanSet = wire.NewSet(
	dish.NewStore,
	inference.NewImageService,
	wire.Bind(new(dish.Generator), new(*inference.ImageService)),
	provideImageSink,
	dish.NewScheduler,
	provideTrigger,
	inference.NewMenuService,
	wire.Bind(new(scan.MenuParser), new(*inference.MenuService)),
	scan.NewService,
)

// BuildApplication assembles the scan API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		provideLogger,
		scanSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func provideLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logger.New(cfg)
}

func provideTrigger(cfg *config.Config, log zerolog.Logger) *visibility.Trigger {
	return visibility.New(visibility.Config{
		ProximityMargin: cfg.ProximityMargin,
		VisibleFraction: cfg.VisibleFraction,
	}, log)
}
