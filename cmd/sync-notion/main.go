package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/finbot/internal/app"
	"github.com/dvloznov/finbot/internal/config"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/logger"
	"github.com/dvloznov/finbot/internal/notionsync"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Parse CLI flags
	monthStr := flag.String("month", domain.MonthOf(time.Now()).String(), "Month to reconcile, YYYY-MM")
	userID := flag.String("user", cfg.DefaultUserID, "User whose transactions are mirrored")
	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", cfg.NotionTransactionsDB, "Notion database ID (or set NOTION_TRANSACTIONS_DB)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	month, err := domain.ParseMonth(*monthStr)
	if err != nil {
		log.Fatal().Err(err).Str("month", *monthStr).Msg("Error: invalid month format, expected YYYY-MM")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := app.OpenRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to open data service")
	}
	defer repo.Close()

	mirror := notionsync.NewMirror(notionsync.NewNotionClient(*notionToken), *notionDBID, cfg.Currency)

	stats, err := mirror.SyncMonth(ctx, repo, *userID, month, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d deleted, %d unchanged, %d failed.\n",
		stats.Created, stats.Deleted, stats.Skipped, stats.Failed)
}
