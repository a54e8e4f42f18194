package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/quillhq/convoexport/internal/api"
	"github.com/quillhq/convoexport/internal/config"
	"github.com/quillhq/convoexport/internal/exportfile"
	"github.com/quillhq/convoexport/internal/pipeline"
	"github.com/quillhq/convoexport/internal/relay"
	"github.com/quillhq/convoexport/internal/store"
)

func main() {
	input := flag.String("input", "", "export a single payload file and exit")
	platform := flag.String("platform", "", "platform of the -input payload (chatgpt|claude|copilot|deepseek)")
	outDir := flag.String("out", ".", "output directory for -input mode")
	flag.Parse()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	pipe := pipeline.New(cfg.MaxPayloadBytes, slog.Default())

	// File mode: no daemon, no database.
	if *input != "" {
		runner := exportfile.NewRunner(exportfile.Config{
			InputPath: *input,
			Platform:  *platform,
			OutDir:    *outDir,
		}, pipe, slog.Default())
		if err := runner.Run(); err != nil {
			slog.Error("export failed", "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("convoexport starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required (or use -input for file mode)")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected")

	// NATS relay (optional — without it, captures arrive over HTTP only)
	if cfg.NatsURL != "" {
		relayClient, err := relay.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer relayClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)

		consumer := relay.NewConsumer(relayClient, db, pipe, slog.Default())
		if err := consumer.Start(); err != nil {
			slog.Error("failed to subscribe to capture events", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("NATS not configured — captures accepted over HTTP only")
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, pipe, db)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("convoexport ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("convoexport stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
