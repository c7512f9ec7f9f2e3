package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"go.uber.org/zap"

	"esgss-backend/infrastructure/config"
	"esgss-backend/infrastructure/di"
	"esgss-backend/interfaces/http/rest"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Optional tuning overrides picked up from disk without a restart
	var dynCfg *config.DynamicConfig
	if overridesPath := os.Getenv("CONFIG_OVERRIDES_PATH"); overridesPath != "" {
		dynCfg, err = config.NewDynamicConfig(overridesPath, di.ProvideDomainConfig(cfg), container.Logger)
		if err != nil {
			container.Logger.Warn("config watcher unavailable", zap.Error(err))
		} else {
			dynCfg.OnChange(container.Engine.UpdateConfig)
			defer dynCfg.Close()
		}
	}

	// Stream node evolution to connected dashboards
	if cfg.EnableLivePush {
		container.LivePush.Attach(container.Engine)
		defer container.LivePush.Detach()
	}

	router := rest.NewRouter(
		container.CommandBus,
		container.QueryBus,
		container.Purification,
		container.AcquireCards,
		container.Logger,
	)
	handler := router.Setup()

	if cfg.EnableTracing {
		handler = xray.Handler(xray.NewFixedSegmentNamer("esgss-api"), handler)
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := container.Metrics.Close(); err != nil {
		container.Logger.Error("Metrics flush error", zap.Error(err))
	}

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
