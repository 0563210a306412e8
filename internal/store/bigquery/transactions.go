package bigquery

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/google/uuid"
)

// CreateTransaction implements store.TransactionStore.
func (r *Repository) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if err := store.ValidateTransaction(tx); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}
	cat, err := r.category(ctx, tx.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}

	tx.ID = uuid.NewString()
	tx.CreatedAt = r.now().UTC()
	_, err = r.runDML(ctx, `
		INSERT INTO `+r.table(transactionsTable)+`
		  (id, user_id, type, amount, description, category_id, date, created_ts)
		VALUES (@id, @user_id, @type, @amount, @description, @category_id, @date, @created_ts)`,
		[]bigquery.QueryParameter{
			{Name: "id", Value: tx.ID},
			{Name: "user_id", Value: tx.UserID},
			{Name: "type", Value: string(tx.Type)},
			{Name: "amount", Value: toNumeric(tx.Amount)},
			{Name: "description", Value: tx.Description},
			{Name: "category_id", Value: tx.CategoryID},
			{Name: "date", Value: tx.Date},
			{Name: "created_ts", Value: tx.CreatedAt},
		})
	if err != nil {
		return nil, fmt.Errorf("CreateTransaction: inserting: %w", err)
	}

	tx.Category = cat
	return &tx, nil
}

// ListTransactions implements store.TransactionStore.
func (r *Repository) ListTransactions(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error) {
	where := []string{"t.user_id = @user_id"}
	params := []bigquery.QueryParameter{{Name: "user_id", Value: userID}}
	if filter.Type != "" {
		where = append(where, "t.type = @type")
		params = append(params, bigquery.QueryParameter{Name: "type", Value: string(filter.Type)})
	}
	if filter.Month != nil {
		where = append(where, "t.date BETWEEN @start_date AND @end_date")
		params = append(params,
			bigquery.QueryParameter{Name: "start_date", Value: filter.Month.First()},
			bigquery.QueryParameter{Name: "end_date", Value: filter.Month.Last()},
		)
	}
	if filter.CategoryID != "" {
		where = append(where, "t.category_id = @category_id")
		params = append(params, bigquery.QueryParameter{Name: "category_id", Value: filter.CategoryID})
	}

	sql := `
		SELECT
		  t.id, t.user_id, t.type, t.amount, t.description, t.category_id, t.date, t.created_ts,
		  c.name AS category_name, c.type AS category_type, c.icon AS category_icon, c.color AS category_color
		FROM ` + r.table(transactionsTable) + ` t
		LEFT JOIN ` + r.table(categoriesTable) + ` c ON c.id = t.category_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY t.date DESC, t.created_ts DESC`
	if filter.Limit > 0 {
		sql += ` LIMIT @limit`
		params = append(params, bigquery.QueryParameter{Name: "limit", Value: filter.Limit})
	}

	rows, err := readAll[transactionRow](ctx, r, sql, params)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}

	out := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: %w", err)
		}
		out = append(out, tx)
	}
	return out, nil
}

// DeleteTransaction implements store.TransactionStore.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := r.deleteOwned(ctx, transactionsTable, userID, id); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}
