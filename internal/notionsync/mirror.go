package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/jobs"
	"github.com/dvloznov/finbot/internal/logger"
	"github.com/jomei/notionapi"
)

// pageSize is the Notion maximum for database queries.
const pageSize = 100

// Mirror writes transactions to one Notion database.
type Mirror struct {
	service    NotionService
	databaseID string
	currency   string
}

// NewMirror creates a Mirror. currency is written to every page.
func NewMirror(service NotionService, databaseID, currency string) *Mirror {
	return &Mirror{service: service, databaseID: databaseID, currency: currency}
}

// MirrorTransaction creates a page for tx unless one with the same
// Transaction ID already exists. It returns the page ID.
func (m *Mirror) MirrorTransaction(ctx context.Context, tx domain.Transaction) (string, error) {
	log := logger.FromContext(ctx)

	if tx.ID == "" {
		return "", fmt.Errorf("MirrorTransaction: transaction has no ID")
	}

	existing, err := m.findPage(ctx, tx.ID)
	if err != nil {
		return "", fmt.Errorf("MirrorTransaction: %w", err)
	}
	if existing != "" {
		log.Debug().Str("transaction_id", tx.ID).Str("page_id", existing).Msg("Transaction already mirrored")
		return existing, nil
	}

	page, err := m.service.CreatePage(ctx, m.databaseID, TransactionToProperties(tx, m.currency))
	if err != nil {
		return "", fmt.Errorf("MirrorTransaction: %w", err)
	}
	log.Info().Str("transaction_id", tx.ID).Str("page_id", string(page.ID)).Msg("Created Notion page")
	return string(page.ID), nil
}

func (m *Mirror) findPage(ctx context.Context, txID string) (string, error) {
	resp, err := m.service.QueryDatabase(ctx, m.databaseID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropTransactionID,
			RichText: &notionapi.TextFilterCondition{Equals: txID},
		},
		PageSize: 1,
	})
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", txID, err)
	}
	for _, page := range resp.Results {
		if id := transactionID(page); id == "" || id == txID {
			return string(page.ID), nil
		}
	}
	return "", nil
}

// queryAll pages through every result matching filter.
func (m *Mirror) queryAll(ctx context.Context, filter notionapi.Filter) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor
	for {
		req := &notionapi.DatabaseQueryRequest{Filter: filter, PageSize: pageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := m.service.QueryDatabase(ctx, m.databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAll: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return all, nil
}

// Handler returns a jobs.Handler that mirrors the job's transaction and
// records the resulting page ID on the job.
func (m *Mirror) Handler() jobs.Handler {
	return func(ctx context.Context, job *jobs.MirrorTransactionJob) error {
		pageID, err := m.MirrorTransaction(ctx, job.Transaction)
		if err != nil {
			return err
		}
		job.PageID = pageID
		return nil
	}
}
