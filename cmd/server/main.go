package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/lmittmann/tint"
	"github.com/samber/do/v2"
	slogmulti "github.com/samber/slog-multi"

	"github.com/popmarket/popmarket/internal/di"
	catalogService "github.com/popmarket/popmarket/internal/modules/catalog/service"
	"github.com/popmarket/popmarket/internal/shared/config"
	httpServer "github.com/popmarket/popmarket/internal/transport/http"
)

func main() {
	setupLogging(config.AppEnv(os.Getenv("app_env")))

	injector, err := di.Setup()
	if err != nil {
		slog.Error("Failed to setup dependency injection", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	cfg := do.MustInvoke[*config.Config](injector)
	catalog := do.MustInvoke[*catalogService.Service](injector)
	server := do.MustInvoke[*httpServer.Server](injector)
	b := do.MustInvoke[*bot.Bot](injector)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Warm the ad snapshot before serving
	warmCtx, warmCancel := context.WithTimeout(ctx, 15*time.Second)
	if err := catalog.Refresh(warmCtx); err != nil {
		slog.Error("Failed to load initial ad snapshot", "error", err)
	}
	warmCancel()

	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Failed to start HTTP server", "error", err)
			os.Exit(1)
		}
	}()

	go b.Start(ctx)

	slog.Info("Application started", "port", cfg.HTTPPort, "env", cfg.AppEnv)

	<-ctx.Done()
	slog.Info("Shutting down...")
}

// setupLogging fans logs out to a readable stdout handler and a JSON
// stderr handler for errors. Local runs get the tinted console handler.
func setupLogging(env config.AppEnv) {
	var textHandler slog.Handler
	if env == config.EnvLocal {
		textHandler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		})
	} else {
		textHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	logger := slog.New(slogmulti.Fanout(textHandler, jsonHandler))
	slog.SetDefault(logger)
}
