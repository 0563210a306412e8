// Package app wires configuration into the services shared by the finbot
// binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finbot/internal/actions"
	"github.com/dvloznov/finbot/internal/assistant"
	"github.com/dvloznov/finbot/internal/catalog"
	"github.com/dvloznov/finbot/internal/chat"
	"github.com/dvloznov/finbot/internal/config"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/executor"
	"github.com/dvloznov/finbot/internal/jobs"
	"github.com/dvloznov/finbot/internal/locale"
	"github.com/dvloznov/finbot/internal/store"
	bqstore "github.com/dvloznov/finbot/internal/store/bigquery"
	"github.com/dvloznov/finbot/internal/store/inmemory"
	"github.com/dvloznov/finbot/internal/store/sqlite"
	"github.com/rs/zerolog"
)

// OpenRepository opens the configured data service. sqlite databases are
// migrated on open; BigQuery tables are created by cmd/migrate.
func OpenRepository(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return inmemory.New(), nil
	case config.BackendSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		if err := st.Migrate(); err != nil {
			st.Close()
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		return st, nil
	case config.BackendBigQuery:
		repo, err := bqstore.New(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		return repo, nil
	}
	return nil, fmt.Errorf("OpenRepository: unknown backend %q", cfg.StoreBackend)
}

// SeedCategories writes the catalog's categories to repo.
func SeedCategories(ctx context.Context, repo store.CategoryStore, cat *catalog.Catalog) error {
	if err := repo.UpsertCategories(ctx, cat.Categories()); err != nil {
		return fmt.Errorf("SeedCategories: %w", err)
	}
	return nil
}

// Services holds everything a conversation needs. Archive and Publisher are
// optional.
type Services struct {
	Repository store.Repository
	Completion assistant.CompletionService
	Catalog    *catalog.Catalog
	Messages   *locale.Messages
	Money      *locale.Money
	Archive    chat.ReceiptArchive
	Publisher  jobs.Publisher
	Location   *time.Location
	Clock      func() time.Time
	Logger     zerolog.Logger
}

// NewServices builds Services with the configured language and currency.
func NewServices(cfg *config.Config, repo store.Repository, completion assistant.CompletionService, log zerolog.Logger) *Services {
	msgs := locale.For(cfg.Language)
	return &Services{
		Repository: repo,
		Completion: completion,
		Catalog:    catalog.Default(),
		Messages:   msgs,
		Money:      locale.NewMoney(msgs, cfg.Currency),
		Location:   time.Local,
		Clock:      time.Now,
		Logger:     log,
	}
}

// NewConversation builds and loads a conversation for userID. It has the
// chat.Factory signature.
func (s *Services) NewConversation(ctx context.Context, userID string) (*chat.Conversation, error) {
	log := s.Logger.With().Str("user_id", userID).Logger()

	client := assistant.NewClient(s.Completion, assistant.SystemInstruction(s.Catalog, s.Messages), s.Messages,
		assistant.WithClock(s.Clock),
		assistant.WithLocation(s.Location),
		assistant.WithLogger(log),
	)
	parser := actions.NewParser(
		actions.WithClock(s.Clock),
		actions.WithLocation(s.Location),
		actions.WithPlaceholders(s.Messages.DefaultDescription, s.Messages.DefaultGoalName),
	)

	execOpts := []executor.Option{
		executor.WithCatalog(s.Catalog),
		executor.WithClock(s.Clock),
		executor.WithLogger(log),
	}
	if s.Publisher != nil {
		execOpts = append(execOpts, executor.WithTransactionHook(s.mirrorHook(log)))
	}

	deps := chat.Deps{
		Client:   client,
		Parser:   parser,
		Executor: executor.New(s.Repository, s.Messages, s.Money, execOpts...),
		Ledger:   s.Repository,
		Archive:  s.Archive,
		Messages: s.Messages,
		Clock:    s.Clock,
		Logger:   log,
	}

	conv := chat.New(userID, deps)
	if err := conv.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("NewConversation: %w", err)
	}
	return conv, nil
}

func (s *Services) mirrorHook(log zerolog.Logger) executor.TransactionHook {
	return func(ctx context.Context, tx domain.Transaction) {
		job := &jobs.MirrorTransactionJob{Transaction: tx}
		if err := s.Publisher.PublishMirrorTransaction(ctx, job); err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to enqueue Notion mirror job")
			return
		}
		log.Debug().Str("job_id", job.JobID).Str("transaction_id", tx.ID).Msg("Enqueued Notion mirror job")
	}
}

// RefreshLive reloads the ledger of a user's live conversation, if any.
func RefreshLive(registry *chat.Registry, log zerolog.Logger) func(ctx context.Context, userID string) {
	return func(ctx context.Context, userID string) {
		conv, ok := registry.Peek(userID)
		if !ok {
			return
		}
		if err := conv.Refresh(ctx); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to refresh conversation ledger")
		}
	}
}
