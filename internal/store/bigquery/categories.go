package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/store"
)

// ListCategories implements store.CategoryStore.
func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := readAll[categoryRow](ctx, r, `
		SELECT id, name, type, icon, color
		FROM `+r.table(categoriesTable)+`
		ORDER BY name, id`, nil)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}

	out := make([]domain.Category, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// UpsertCategories implements store.CategoryStore with one MERGE per category.
func (r *Repository) UpsertCategories(ctx context.Context, cats []domain.Category) error {
	for _, c := range cats {
		if err := store.ValidateCategory(c); err != nil {
			return fmt.Errorf("UpsertCategories: %w", err)
		}
	}

	for _, c := range cats {
		_, err := r.runDML(ctx, `
			MERGE `+r.table(categoriesTable)+` T
			USING (SELECT @id AS id) S
			ON T.id = S.id
			WHEN MATCHED THEN
			  UPDATE SET name = @name, type = @type, icon = @icon, color = @color
			WHEN NOT MATCHED THEN
			  INSERT (id, name, type, icon, color) VALUES (@id, @name, @type, @icon, @color)
		`, []bigquery.QueryParameter{
			{Name: "id", Value: c.ID},
			{Name: "name", Value: c.Name},
			{Name: "type", Value: string(c.Type)},
			{Name: "icon", Value: c.Icon},
			{Name: "color", Value: c.Color},
		})
		if err != nil {
			return fmt.Errorf("UpsertCategories: merging %s: %w", c.ID, err)
		}
	}
	return nil
}

// category loads one category; unknown ids are reported as errors.
func (r *Repository) category(ctx context.Context, id string) (*domain.Category, error) {
	rows, err := readAll[categoryRow](ctx, r, `
		SELECT id, name, type, icon, color
		FROM `+r.table(categoriesTable)+`
		WHERE id = @id`,
		[]bigquery.QueryParameter{{Name: "id", Value: id}})
	if err != nil {
		return nil, fmt.Errorf("loading category %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: unknown category %q", store.ErrInvalid, id)
	}
	c := rows[0].toDomain()
	return &c, nil
}
