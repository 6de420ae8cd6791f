package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wedding-planner/internal/config"
	"wedding-planner/internal/handler"
	"wedding-planner/internal/storage"
	"wedding-planner/internal/whatsapp"
)

func main() {
	cfg := config.LoadConfig()
	log := config.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := storage.Open(ctx, cfg.DBDriver, cfg.DBDSN, storage.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("Error initializing storage")
	}
	defer store.Close()

	// WhatsApp sharing is optional; the API answers 503 without it
	var sharer handler.Sharer
	if cfg.WhatsAppEnabled {
		wa, err := whatsapp.NewService(ctx, &whatsapp.Config{DataDir: cfg.WhatsAppDataDir}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing WhatsApp service")
		}
		log.Info().Msg("Connecting to WhatsApp...")
		if err := wa.Connect(ctx, os.Stdout); err != nil {
			log.Fatal().Err(err).Msg("Error connecting to WhatsApp")
		}
		defer wa.Disconnect()
		sharer = wa
	}

	h := handler.NewHandler(store, sharer, &handler.Config{
		WeddingTTL:   cfg.WeddingTTL,
		CodeLength:   cfg.CodeLength,
		CodeAttempts: cfg.CodeAttempts,
	}, log)
	app := handler.NewApp(h, log)

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("driver", cfg.DBDriver).Msg("Wedding planner API listening")
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Error().Err(err).Msg("Server stopped")
			stop()
		}
	}()

	<-ctx.Done()

	log.Info().Msg("Shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}
