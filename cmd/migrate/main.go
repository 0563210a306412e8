package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/finbot/internal/app"
	"github.com/dvloznov/finbot/internal/catalog"
	"github.com/dvloznov/finbot/internal/config"
	"github.com/dvloznov/finbot/internal/logger"
	bqstore "github.com/dvloznov/finbot/internal/store/bigquery"
	"github.com/dvloznov/finbot/internal/store/sqlite"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	backend := flag.String("backend", cfg.StoreBackend, "Data service backend: sqlite or bigquery")
	sqlitePath := flag.String("sqlite-path", cfg.SQLitePath, "SQLite database file")
	project := flag.String("project", cfg.BigQueryProject, "GCP project ID for the bigquery backend")
	dataset := flag.String("dataset", cfg.BigQueryDataset, "BigQuery dataset ID")
	flag.Parse()

	log = logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cat := catalog.Default()

	switch *backend {
	case config.BackendSQLite:
		st, err := sqlite.Open(ctx, *sqlitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open database")
		}
		defer st.Close()

		if err := st.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
		log.Info().Str("path", *sqlitePath).Msg("SQLite schema is up to date")

		if err := app.SeedCategories(ctx, st, cat); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed categories")
		}

	case config.BackendBigQuery:
		if *project == "" {
			log.Fatal().Msg("Error: -project is required for the bigquery backend")
		}
		repo, err := bqstore.New(ctx, *project, *dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		defer repo.Close()

		if err := repo.EnsureTables(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to create tables")
		}
		log.Info().Str("project", *project).Str("dataset", *dataset).Msg("BigQuery tables are in place")

		if err := app.SeedCategories(ctx, repo, cat); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed categories")
		}

	default:
		log.Fatal().Str("backend", *backend).Msg("Error: -backend must be sqlite or bigquery")
	}

	fmt.Printf("Migration completed, %d categories seeded.\n", len(cat.Categories()))
}
