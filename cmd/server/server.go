package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"menulens-server/internal/config"
	"menulens-server/internal/domain/dish"
	"menulens-server/internal/domain/scan"
	"menulens-server/internal/domain/visibility"
	"menulens-server/internal/infrastructure/inference"
	"menulens-server/internal/infrastructure/logger"
	"menulens-server/internal/infrastructure/observability"
	"menulens-server/internal/infrastructure/storage"
	"menulens-server/internal/interfaces/httpserver"
)

// @title Menu Scan API
// @version 1.0
// @description Menu photo analysis and dish image generation service
// @BasePath /
type Application struct {
	httpServer *httpserver.HttpServer
	scheduler  *dish.Scheduler
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, scheduler *dish.Scheduler, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		scheduler:  scheduler,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	err := a.httpServer.Run(ctx)
	a.scheduler.Wait()
	return err
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	imageSink, err := provideImageSink(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	store := dish.NewStore(log)
	generator := inference.NewImageService(cfg, log)
	scheduler := dish.NewScheduler(store, generator, imageSink, log)

	trigger := visibility.New(visibility.Config{
		ProximityMargin: cfg.ProximityMargin,
		VisibleFraction: cfg.VisibleFraction,
	}, log)

	parser := inference.NewMenuService(cfg, log)
	scanService := scan.NewService(cfg, parser, store, trigger, scheduler, log)

	httpServer := httpserver.New(cfg, log, scanService)
	app := NewApplication(httpServer, scheduler, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// provideImageSink picks the storage backend for generated dish images. A nil
// sink keeps images inline on the dish record.
func provideImageSink(ctx context.Context, cfg *config.Config, log zerolog.Logger) (dish.ImageSink, error) {
	if cfg.IsStorageDisabled() {
		return nil, nil
	}

	var backend storage.Backend
	var err error
	if cfg.IsLocalStorage() {
		backend, err = storage.NewLocalStorage(cfg, log)
	} else {
		backend, err = storage.NewS3Storage(ctx, cfg, log)
	}
	if err != nil {
		return nil, err
	}
	return storage.NewDishImageSink(backend, log), nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
