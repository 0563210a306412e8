package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/store"
)

// ListCategories implements store.CategoryStore.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, type, icon, color FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: querying: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("ListCategories: scanning: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategories: iterating: %w", err)
	}
	return out, nil
}

// UpsertCategories implements store.CategoryStore.
func (s *Store) UpsertCategories(ctx context.Context, cats []domain.Category) error {
	for _, c := range cats {
		if err := store.ValidateCategory(c); err != nil {
			return fmt.Errorf("UpsertCategories: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("UpsertCategories: beginning: %w", err)
	}
	defer tx.Rollback()

	for _, c := range cats {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, name, type, icon, color) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name, type = excluded.type, icon = excluded.icon, color = excluded.color`,
			c.ID, c.Name, string(c.Type), c.Icon, c.Color)
		if err != nil {
			return fmt.Errorf("UpsertCategories: upserting %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("UpsertCategories: committing: %w", err)
	}
	return nil
}

// category loads one category; unknown ids are reported as errors.
func (s *Store) category(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	err := s.db.QueryRowContext(ctx, `SELECT id, name, type, icon, color FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Type, &c.Icon, &c.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: unknown category %q", store.ErrInvalid, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading category %s: %w", id, err)
	}
	return &c, nil
}
