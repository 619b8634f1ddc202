package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"career-bot/internal/bootstrap"
	"career-bot/internal/config"
	"career-bot/internal/pkg/logger"
	"career-bot/internal/tracer"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration:\n%v", err)
	}

	systemPrompt, err := config.LoadSystemPrompt(cfg.Session.SystemPromptPath)
	if err != nil {
		log.Fatalf("Unable to load system prompt: %v", err)
	}

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production", cfg.App.LogLevel)
	defer sysLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.App.OtelEnabled, cfg.App.OtelEndpoint, sysLogger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg, systemPrompt, sysLogger)
	if err != nil {
		sysLogger.Error("MAIN", "Startup failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	// 4. Run background services until a signal arrives or one of them fails
	g, gctx := errgroup.WithContext(ctx)

	if err := container.EventConsumer.Consume(gctx); err != nil {
		sysLogger.Error("MAIN", "Event consumer failed to start", map[string]interface{}{"error": err.Error()})
	}
	g.Go(func() error { return container.Reaper.Run(gctx) })
	g.Go(func() error { return container.Poller.Run(gctx) })
	if container.OpsServer != nil {
		g.Go(func() error { return container.OpsServer.Run(gctx) })
	}

	sysLogger.Info("MAIN", "Bot is running", nil)
	if err := g.Wait(); err != nil {
		sysLogger.Error("MAIN", "Service stopped with error", map[string]interface{}{"error": err.Error()})
	}

	// 5. Teardown
	if err := container.Close(context.Background()); err != nil {
		sysLogger.Warn("MAIN", "Teardown incomplete", map[string]interface{}{"error": err.Error()})
	}
	sysLogger.Info("MAIN", "Bot stopped", nil)
}
