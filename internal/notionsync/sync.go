package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/logger"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/jomei/notionapi"
)

// TransactionLister reads a user's stored transactions.
type TransactionLister interface {
	ListTransactions(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error)
}

// Stats counts what a sync did, or would do in a dry run.
type Stats struct {
	Created int `json:"created"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// SyncMonth reconciles the Notion database with a user's stored transactions
// for one month. Pages whose transaction no longer exists are archived and
// missing transactions get a page. Failures on single pages are counted and
// logged; only listing errors abort the sync.
func (m *Mirror) SyncMonth(ctx context.Context, lister TransactionLister, userID string, month domain.Month, dryRun bool) (Stats, error) {
	log := logger.FromContext(ctx).With().
		Str("user_id", userID).
		Str("month", month.String()).
		Bool("dry_run", dryRun).
		Logger()

	log.Info().Msg("Starting transaction sync to Notion")

	var stats Stats

	txs, err := lister.ListTransactions(ctx, userID, store.TransactionFilter{Month: &month})
	if err != nil {
		return stats, fmt.Errorf("SyncMonth: listing transactions: %w", err)
	}
	valid := make(map[string]bool, len(txs))
	for _, tx := range txs {
		valid[tx.ID] = true
	}

	pages, err := m.queryAll(ctx, monthFilter(userID, month))
	if err != nil {
		return stats, fmt.Errorf("SyncMonth: querying pages: %w", err)
	}

	log.Info().
		Int("transaction_count", len(txs)).
		Int("notion_page_count", len(pages)).
		Msg("Loaded both sides")

	existing := make(map[string]bool, len(pages))
	for _, page := range pages {
		txID := transactionID(page)
		if txID != "" && valid[txID] {
			existing[txID] = true
			continue
		}

		if dryRun {
			log.Info().Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would delete stale Notion page")
			stats.Deleted++
			continue
		}
		if err := m.service.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("Failed to delete stale Notion page")
			stats.Failed++
			continue
		}
		stats.Deleted++
	}

	for _, tx := range txs {
		if existing[tx.ID] {
			stats.Skipped++
			continue
		}

		if dryRun {
			log.Info().Str("transaction_id", tx.ID).Msg("[DRY RUN] Would create Notion page")
			stats.Created++
			continue
		}
		page, err := m.service.CreatePage(ctx, m.databaseID, TransactionToProperties(tx, m.currency))
		if err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
			stats.Failed++
			continue
		}
		log.Debug().Str("transaction_id", tx.ID).Str("page_id", string(page.ID)).Msg("Created Notion page")
		stats.Created++
	}

	log.Info().
		Int("created", stats.Created).
		Int("deleted", stats.Deleted).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("Transaction sync completed")

	return stats, nil
}

func monthFilter(userID string, month domain.Month) notionapi.Filter {
	return notionapi.AndCompoundFilter{
		notionapi.PropertyFilter{
			Property: PropUser,
			RichText: &notionapi.TextFilterCondition{Equals: userID},
		},
		notionapi.PropertyFilter{
			Property: PropDate,
			Date:     &notionapi.DateFilterCondition{OnOrAfter: notionDate(month.First())},
		},
		notionapi.PropertyFilter{
			Property: PropDate,
			Date:     &notionapi.DateFilterCondition{OnOrBefore: notionDate(month.Last())},
		},
	}
}
