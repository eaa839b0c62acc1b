package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/mindmapper/internal/api"
	"github.com/dgallion1/mindmapper/internal/config"
	"github.com/dgallion1/mindmapper/internal/parser"
	"github.com/dgallion1/mindmapper/internal/pathstore"
	"github.com/dgallion1/mindmapper/internal/pipeline"
	"github.com/dgallion1/mindmapper/internal/render"
	"github.com/dgallion1/mindmapper/internal/render/builtin"
	"github.com/dgallion1/mindmapper/internal/render/command"
	"github.com/dgallion1/mindmapper/internal/security"
)

func main() {
	cfg, err := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage and path policy.
	writer := pathstore.NewWriter(cfg.StorageRoot, pathstore.NewDiskStore())
	if err := writer.EnsureRoot(); err != nil {
		log.Error("storage root unavailable", "root", cfg.StorageRoot, "error", err)
		os.Exit(1)
	}
	guard, err := security.NewGuard(cfg.StorageRoot)
	if err != nil {
		log.Error("path guard", "error", err)
		os.Exit(1)
	}

	// Rendering.
	var engine render.Engine
	switch cfg.RenderEngine {
	case config.EngineCommand:
		cmd, err := command.Parse(cfg.RenderCommand)
		if err != nil {
			log.Error("invalid render command", "error", err)
			os.Exit(1)
		}
		engine = cmd
	default:
		engine = builtin.New(cfg.Limits())
	}
	adapter := render.NewAdapter(engine,
		render.WithTimeout(cfg.RenderTimeout),
		render.WithStats(render.NewStats(time.Hour)),
		render.WithLogger(log),
	)

	history := pipeline.NewHistory(cfg.HistoryTTL)
	go history.Run(ctx, 5*time.Minute)

	svc := pipeline.NewService(parser.NewMarkdownParser(cfg.Limits()), adapter, writer, guard, history, log)
	srv := api.NewServer(svc, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RenderTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting mindmapper",
		"port", cfg.Port,
		"storage_root", cfg.StorageRoot,
		"engine", engine.Name(),
		"auth", cfg.APIKey != "",
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
