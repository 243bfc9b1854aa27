package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/koinot-markazi/split-bill-bot/internal/api"
	"github.com/koinot-markazi/split-bill-bot/internal/config"
	"github.com/koinot-markazi/split-bill-bot/internal/db"
	"github.com/koinot-markazi/split-bill-bot/internal/ocr"
	"github.com/koinot-markazi/split-bill-bot/internal/splitbill"
	"github.com/koinot-markazi/split-bill-bot/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	svc := splitbill.NewService(database)

	// Receipt recognition is optional; without a key /resto photos are
	// rejected with a hint instead of failing at startup.
	var recognizer *ocr.Client
	if cfg.OpenAIAPIKey != "" {
		recognizer = ocr.NewClient(cfg.OpenAIAPIKey)
	} else {
		log.Println("OPENAI_API_KEY is not set, receipt recognition disabled")
	}

	// Initialize Telegram bot
	tgBot, err := telegram.New(cfg.TelegramToken, svc, recognizer)
	if err != nil {
		log.Fatalf("Failed to create telegram bot: %v", err)
	}

	// Initialize API server
	apiServer := api.New(cfg, svc)

	// Start Telegram bot (long polling blocks, so run it in a goroutine)
	go func() {
		if err := tgBot.Start(ctx); err != nil {
			log.Printf("Telegram bot error: %v", err)
		}
	}()

	// Start API server
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("API server error: %v", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
}
