package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finbot/internal/api"
	"github.com/dvloznov/finbot/internal/app"
	"github.com/dvloznov/finbot/internal/assistant"
	"github.com/dvloznov/finbot/internal/chat"
	"github.com/dvloznov/finbot/internal/config"
	"github.com/dvloznov/finbot/internal/jobs"
	"github.com/dvloznov/finbot/internal/jobs/inmemory"
	"github.com/dvloznov/finbot/internal/logger"
	"github.com/dvloznov/finbot/internal/notionsync"
	"github.com/dvloznov/finbot/internal/receipts"
	"golang.org/x/time/rate"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log = logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := cfg.Validate(true); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	repo, err := app.OpenRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to open data service")
	}
	defer repo.Close()

	completion, err := assistant.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, float32(cfg.GeminiTemperature))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	services := app.NewServices(cfg, repo, completion, log)
	if err := app.SeedCategories(ctx, repo, services.Catalog); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed categories")
	}

	if cfg.ReceiptsBucket != "" {
		archive, err := receipts.NewGCSArchive(ctx, cfg.ReceiptsBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create receipt archive")
		}
		defer archive.Close()
		services.Archive = archive
	} else {
		log.Warn().Msg("No receipts bucket configured - images will not be archived")
	}

	// Notion mirror queue
	var (
		jobStore jobs.JobStore
		jobQueue *inmemory.Queue
	)
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if cfg.NotionEnabled() {
		store := inmemory.NewStore()
		jobStore = store
		jobQueue = inmemory.NewQueue(100, store)
		mirror := notionsync.NewMirror(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionTransactionsDB, cfg.Currency)

		log.Info().Msg("Starting Notion mirror workers")
		if err := jobQueue.Start(workerCtx, mirror.Handler()); err != nil {
			log.Fatal().Err(err).Msg("Failed to start Notion mirror workers")
		}
		services.Publisher = jobQueue
	}

	registry := chat.NewRegistry(cfg.SessionTTL, services.NewConversation)

	handler := api.NewRouter(api.Deps{
		Repository:    repo,
		Conversations: registry,
		Jobs:          jobStore,
		OnChange:      app.RefreshLive(registry, log),
		Limiter:       rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		MaxImageBytes: cfg.MaxImageBytes,
		Logger:        log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // model calls can be slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.StoreBackend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if jobQueue != nil {
		// Stop waits for in-flight mirror jobs.
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
		cancelWorker()
		if err := jobQueue.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close job queue")
		}
	}

	log.Info().Msg("Server exited")
}
