package sqlite

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/google/uuid"
)

const transactionColumns = `
	t.id, t.user_id, t.type, t.amount, t.description, t.category_id, t.date, t.created_at,
	c.id, c.name, c.type, c.icon, c.color`

// CreateTransaction implements store.TransactionStore.
func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if err := store.ValidateTransaction(tx); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}
	cat, err := s.category(ctx, tx.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}

	tx.ID = uuid.NewString()
	var createdAt int64
	tx.CreatedAt, createdAt = s.timestamp()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, description, category_id, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, string(tx.Type), tx.Amount.String(), tx.Description, tx.CategoryID, tx.Date.String(), createdAt)
	if err != nil {
		return nil, fmt.Errorf("CreateTransaction: inserting: %w", err)
	}

	tx.Category = cat
	return &tx, nil
}

// ListTransactions implements store.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error) {
	where := []string{"t.user_id = ?"}
	args := []interface{}{userID}
	if filter.Type != "" {
		where = append(where, "t.type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Month != nil {
		where = append(where, "t.date BETWEEN ? AND ?")
		args = append(args, filter.Month.First().String(), filter.Month.Last().String())
	}
	if filter.CategoryID != "" {
		where = append(where, "t.category_id = ?")
		args = append(args, filter.CategoryID)
	}

	query := "SELECT " + transactionColumns + `
		FROM transactions t JOIN categories c ON c.id = t.category_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY t.date DESC, t.created_at DESC, t.rowid DESC`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: querying: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			tx        domain.Transaction
			cat       domain.Category
			date      string
			createdAt int64
		)
		err := rows.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Amount, &tx.Description, &tx.CategoryID, &date, &createdAt,
			&cat.ID, &cat.Name, &cat.Type, &cat.Icon, &cat.Color)
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: scanning: %w", err)
		}
		if tx.Date, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("ListTransactions: row %s: %w", tx.ID, err)
		}
		tx.CreatedAt = fromUnix(createdAt)
		tx.Category = &cat
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: iterating: %w", err)
	}
	return out, nil
}

// DeleteTransaction implements store.TransactionStore.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := s.deleteOwned(ctx, "transactions", userID, id); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}
