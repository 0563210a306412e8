package notionsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/jobs"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
)

type mockService struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePageFunc    func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	DeletePageFunc    func(ctx context.Context, pageID string) error
}

func (m *mockService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.CreatePageFunc != nil {
		return m.CreatePageFunc(ctx, databaseID, properties)
	}
	return &notionapi.Page{ID: "page-new"}, nil
}

func (m *mockService) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.UpdatePageFunc != nil {
		return m.UpdatePageFunc(ctx, pageID, properties)
	}
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (m *mockService) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if m.QueryDatabaseFunc != nil {
		return m.QueryDatabaseFunc(ctx, databaseID, req)
	}
	return &notionapi.DatabaseQueryResponse{}, nil
}

func (m *mockService) DeletePage(ctx context.Context, pageID string) error {
	if m.DeletePageFunc != nil {
		return m.DeletePageFunc(ctx, pageID)
	}
	return nil
}

type listerFunc func(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error)

func (f listerFunc) ListTransactions(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error) {
	return f(ctx, userID, filter)
}

func page(id, txID string) notionapi.Page {
	props := notionapi.Properties{}
	if txID != "" {
		props[PropTransactionID] = &notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{PlainText: txID}},
		}
	}
	return notionapi.Page{ID: notionapi.ObjectID(id), Properties: props}
}

func sampleTx(id string) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		UserID:      "user-1",
		Type:        domain.Expense,
		Amount:      decimal.RequireFromString("45.50"),
		Description: "Lunch",
		CategoryID:  "food",
		Category:    &domain.Category{ID: "food", Name: "Food"},
		Date:        civil.Date{Year: 2026, Month: time.February, Day: 10},
		CreatedAt:   time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestTransactionToProperties(t *testing.T) {
	props := TransactionToProperties(sampleTx("tx-1"), "BRL")

	title, ok := props[PropDescription].(notionapi.TitleProperty)
	if !ok || title.Title[0].Text.Content != "Lunch" {
		t.Errorf("Description = %#v", props[PropDescription])
	}
	amount, ok := props[PropAmount].(notionapi.NumberProperty)
	if !ok || amount.Number != -45.5 {
		t.Errorf("Amount = %#v, want -45.5", props[PropAmount])
	}
	category, ok := props[PropCategory].(notionapi.SelectProperty)
	if !ok || category.Select.Name != "Food" {
		t.Errorf("Category = %#v, want Food", props[PropCategory])
	}
	currency, ok := props[PropCurrency].(notionapi.SelectProperty)
	if !ok || currency.Select.Name != "BRL" {
		t.Errorf("Currency = %#v, want BRL", props[PropCurrency])
	}
	date, ok := props[PropDate].(notionapi.DateProperty)
	if !ok || time.Time(*date.Date.Start).Format("2006-01-02") != "2026-02-10" {
		t.Errorf("Date = %#v", props[PropDate])
	}
}

func TestTransactionToPropertiesWithoutCategory(t *testing.T) {
	tx := sampleTx("tx-1")
	tx.Category = nil
	tx.CategoryID = ""
	tx.Type = domain.Income

	props := TransactionToProperties(tx, "")
	if _, ok := props[PropCategory]; ok {
		t.Error("Category should be omitted")
	}
	if _, ok := props[PropCurrency]; ok {
		t.Error("Currency should be omitted")
	}
	if amount := props[PropAmount].(notionapi.NumberProperty); amount.Number != 45.5 {
		t.Errorf("Amount = %v, want 45.5", amount.Number)
	}
}

func TestMirrorTransaction(t *testing.T) {
	tests := []struct {
		name        string
		existing    []notionapi.Page
		wantPage    string
		wantCreated bool
	}{
		{name: "creates missing page", wantPage: "page-new", wantCreated: true},
		{name: "reuses existing page", existing: []notionapi.Page{page("page-old", "tx-1")}, wantPage: "page-old"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := false
			svc := &mockService{
				QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
					filter, ok := req.Filter.(notionapi.PropertyFilter)
					if !ok || filter.RichText == nil || filter.RichText.Equals != "tx-1" {
						t.Errorf("unexpected filter %#v", req.Filter)
					}
					return &notionapi.DatabaseQueryResponse{Results: tt.existing}, nil
				},
				CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
					created = true
					if databaseID != "db-1" {
						t.Errorf("databaseID = %q", databaseID)
					}
					return &notionapi.Page{ID: "page-new"}, nil
				},
			}

			got, err := NewMirror(svc, "db-1", "BRL").MirrorTransaction(context.Background(), sampleTx("tx-1"))
			if err != nil {
				t.Fatalf("MirrorTransaction() error = %v", err)
			}
			if got != tt.wantPage {
				t.Errorf("page = %q, want %q", got, tt.wantPage)
			}
			if created != tt.wantCreated {
				t.Errorf("created = %v, want %v", created, tt.wantCreated)
			}
		})
	}
}

func TestMirrorTransactionErrors(t *testing.T) {
	m := NewMirror(&mockService{}, "db-1", "")
	if _, err := m.MirrorTransaction(context.Background(), domain.Transaction{}); err == nil {
		t.Error("expected error for transaction without ID")
	}

	m = NewMirror(&mockService{
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			return nil, errors.New("rate limited")
		},
	}, "db-1", "")
	if _, err := m.MirrorTransaction(context.Background(), sampleTx("tx-1")); err == nil {
		t.Error("expected create error")
	}
}

func TestHandlerSetsPageID(t *testing.T) {
	handler := NewMirror(&mockService{}, "db-1", "BRL").Handler()

	job := &jobs.MirrorTransactionJob{JobID: "job-1", Transaction: sampleTx("tx-1")}
	if err := handler(context.Background(), job); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if job.PageID != "page-new" {
		t.Errorf("PageID = %q, want page-new", job.PageID)
	}
}

func TestSyncMonth(t *testing.T) {
	month := domain.Month{Year: 2026, Month: time.February}
	txs := []domain.Transaction{sampleTx("tx-1"), sampleTx("tx-2")}

	var deleted, createdFor []string
	calls := 0
	svc := &mockService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			calls++
			if calls == 1 {
				if req.StartCursor != "" {
					t.Errorf("first query has cursor %q", req.StartCursor)
				}
				return &notionapi.DatabaseQueryResponse{
					Results:    []notionapi.Page{page("p1", "tx-1"), page("p-stale", "tx-gone")},
					HasMore:    true,
					NextCursor: "next",
				}, nil
			}
			if req.StartCursor != "next" {
				t.Errorf("second query cursor = %q, want next", req.StartCursor)
			}
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{page("p-legacy", "")}}, nil
		},
		DeletePageFunc: func(ctx context.Context, pageID string) error {
			deleted = append(deleted, pageID)
			return nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			id := properties[PropTransactionID].(notionapi.RichTextProperty).RichText[0].Text.Content
			createdFor = append(createdFor, id)
			return &notionapi.Page{ID: "p-" + notionapi.ObjectID(id)}, nil
		},
	}
	lister := listerFunc(func(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error) {
		if userID != "user-1" || filter.Month == nil || *filter.Month != month {
			t.Errorf("unexpected list call %q %#v", userID, filter)
		}
		return txs, nil
	})

	stats, err := NewMirror(svc, "db-1", "BRL").SyncMonth(context.Background(), lister, "user-1", month, false)
	if err != nil {
		t.Fatalf("SyncMonth() error = %v", err)
	}

	want := Stats{Created: 1, Deleted: 2, Skipped: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if len(deleted) != 2 || deleted[0] != "p-stale" || deleted[1] != "p-legacy" {
		t.Errorf("deleted = %v", deleted)
	}
	if len(createdFor) != 1 || createdFor[0] != "tx-2" {
		t.Errorf("created for = %v, want [tx-2]", createdFor)
	}
}

func TestSyncMonthDryRun(t *testing.T) {
	svc := &mockService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{page("p-stale", "tx-gone")}}, nil
		},
		DeletePageFunc: func(ctx context.Context, pageID string) error {
			t.Error("DeletePage called in dry run")
			return nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			t.Error("CreatePage called in dry run")
			return nil, nil
		},
	}
	lister := listerFunc(func(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error) {
		return []domain.Transaction{sampleTx("tx-1")}, nil
	})

	stats, err := NewMirror(svc, "db-1", "").SyncMonth(context.Background(), lister, "user-1", domain.Month{Year: 2026, Month: time.February}, true)
	if err != nil {
		t.Fatalf("SyncMonth() error = %v", err)
	}
	if want := (Stats{Created: 1, Deleted: 1}); stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestSyncMonthCountsFailures(t *testing.T) {
	svc := &mockService{
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			return nil, errors.New("boom")
		},
	}
	lister := listerFunc(func(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error) {
		return []domain.Transaction{sampleTx("tx-1")}, nil
	})

	stats, err := NewMirror(svc, "db-1", "").SyncMonth(context.Background(), lister, "user-1", domain.Month{Year: 2026, Month: time.February}, false)
	if err != nil {
		t.Fatalf("SyncMonth() error = %v", err)
	}
	if stats.Failed != 1 || stats.Created != 0 {
		t.Errorf("stats = %+v", stats)
	}

	failing := listerFunc(func(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error) {
		return nil, errors.New("db down")
	})
	if _, err := NewMirror(svc, "db-1", "").SyncMonth(context.Background(), failing, "user-1", domain.Month{Year: 2026, Month: time.February}, false); err == nil {
		t.Error("expected listing error")
	}
}
