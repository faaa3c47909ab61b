package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"vlm-search-agent/internal/bootstrap"
	"vlm-search-agent/internal/config"
	"vlm-search-agent/internal/server"
	"vlm-search-agent/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Unable to bootstrap agent: %v", err)
	}
	defer container.Logger.Sync()
	if container.Redis != nil {
		defer container.Redis.Close()
	}

	// 3. Initialize Tracer before the server so otelfiber picks it up
	shutdownTracer, err := tracer.InitTracer(cfg.Tracing, cfg.App.Environment, container.Logger)
	if err != nil {
		container.Logger.Warn("tracer", "tracing disabled", map[string]interface{}{"error": err.Error()})
	}
	defer shutdownTracer(context.Background())

	// 4. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		container.Logger.Info("server", "shutting down", nil)
		if err := srv.Shutdown(); err != nil {
			container.Logger.Error("server", "shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// 5. Run Server
	if err := srv.Run(); err != nil {
		container.Logger.Error("server", "stopped", map[string]interface{}{"error": err.Error()})
	}
}
