package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/google/uuid"
)

// CreateGoal implements store.GoalStore.
func (s *Store) CreateGoal(ctx context.Context, g domain.Goal) (*domain.Goal, error) {
	if err := store.ValidateGoal(g); err != nil {
		return nil, fmt.Errorf("CreateGoal: %w", err)
	}

	g.ID = uuid.NewString()
	var createdAt int64
	g.CreatedAt, createdAt = s.timestamp()

	var target sql.NullString
	if g.TargetDate != nil {
		target = sql.NullString{String: g.TargetDate.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, name, target_amount, current_amount, target_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), target, createdAt)
	if err != nil {
		return nil, fmt.Errorf("CreateGoal: inserting: %w", err)
	}
	return &g, nil
}

// ListGoals implements store.GoalStore.
func (s *Store) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, target_amount, current_amount, target_date, created_at
		FROM goals WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListGoals: querying: %w", err)
	}
	defer rows.Close()

	var out []domain.Goal
	for rows.Next() {
		var (
			g         domain.Goal
			target    sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &target, &createdAt); err != nil {
			return nil, fmt.Errorf("ListGoals: scanning: %w", err)
		}
		if target.Valid {
			d, err := civil.ParseDate(target.String)
			if err != nil {
				return nil, fmt.Errorf("ListGoals: goal %s: %w", g.ID, err)
			}
			g.TargetDate = &d
		}
		g.CreatedAt = fromUnix(createdAt)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListGoals: iterating: %w", err)
	}
	return out, nil
}

// DeleteGoal implements store.GoalStore.
func (s *Store) DeleteGoal(ctx context.Context, userID, id string) error {
	if err := s.deleteOwned(ctx, "goals", userID, id); err != nil {
		return fmt.Errorf("DeleteGoal: %w", err)
	}
	return nil
}

// CreateBudget implements store.BudgetStore.
func (s *Store) CreateBudget(ctx context.Context, b domain.Budget) (*domain.Budget, error) {
	if err := store.ValidateBudget(b); err != nil {
		return nil, fmt.Errorf("CreateBudget: %w", err)
	}
	cat, err := s.category(ctx, b.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("CreateBudget: %w", err)
	}

	_, createdAt := s.timestamp()
	var storedAt int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO budgets (id, user_id, category_id, limit_amount, month, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, category_id, month) DO UPDATE SET limit_amount = excluded.limit_amount
		RETURNING id, created_at`,
		uuid.NewString(), b.UserID, b.CategoryID, b.LimitAmount.String(), b.Month.String(), createdAt).
		Scan(&b.ID, &storedAt)
	if err != nil {
		return nil, fmt.Errorf("CreateBudget: upserting: %w", err)
	}

	b.CreatedAt = fromUnix(storedAt)
	b.Category = cat
	return &b, nil
}

// ListBudgets implements store.BudgetStore.
func (s *Store) ListBudgets(ctx context.Context, userID string, month domain.Month) ([]domain.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.user_id, b.category_id, b.limit_amount, b.created_at,
			c.id, c.name, c.type, c.icon, c.color
		FROM budgets b JOIN categories c ON c.id = b.category_id
		WHERE b.user_id = ? AND b.month = ?
		ORDER BY b.created_at DESC, b.rowid DESC`, userID, month.String())
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: querying: %w", err)
	}
	defer rows.Close()

	var out []domain.Budget
	for rows.Next() {
		var (
			b         domain.Budget
			cat       domain.Category
			createdAt int64
		)
		err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.LimitAmount, &createdAt,
			&cat.ID, &cat.Name, &cat.Type, &cat.Icon, &cat.Color)
		if err != nil {
			return nil, fmt.Errorf("ListBudgets: scanning: %w", err)
		}
		b.Month = month
		b.CreatedAt = fromUnix(createdAt)
		b.Category = &cat
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListBudgets: iterating: %w", err)
	}
	return out, nil
}

// DeleteBudget implements store.BudgetStore.
func (s *Store) DeleteBudget(ctx context.Context, userID, id string) error {
	if err := s.deleteOwned(ctx, "budgets", userID, id); err != nil {
		return fmt.Errorf("DeleteBudget: %w", err)
	}
	return nil
}

// CreateInvestment implements store.InvestmentStore.
func (s *Store) CreateInvestment(ctx context.Context, inv domain.Investment) (*domain.Investment, error) {
	if err := store.ValidateInvestment(inv); err != nil {
		return nil, fmt.Errorf("CreateInvestment: %w", err)
	}

	inv.ID = uuid.NewString()
	var createdAt int64
	inv.CreatedAt, createdAt = s.timestamp()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO investments (id, user_id, name, type, amount, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.UserID, inv.Name, string(inv.Type), inv.Amount.String(), createdAt)
	if err != nil {
		return nil, fmt.Errorf("CreateInvestment: inserting: %w", err)
	}
	return &inv, nil
}

// ListInvestments implements store.InvestmentStore.
func (s *Store) ListInvestments(ctx context.Context, userID string) ([]domain.Investment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, type, amount, created_at
		FROM investments WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListInvestments: querying: %w", err)
	}
	defer rows.Close()

	var out []domain.Investment
	for rows.Next() {
		var (
			inv       domain.Investment
			createdAt int64
		)
		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.Name, &inv.Type, &inv.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("ListInvestments: scanning: %w", err)
		}
		inv.CreatedAt = fromUnix(createdAt)
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListInvestments: iterating: %w", err)
	}
	return out, nil
}

// DeleteInvestment implements store.InvestmentStore.
func (s *Store) DeleteInvestment(ctx context.Context, userID, id string) error {
	if err := s.deleteOwned(ctx, "investments", userID, id); err != nil {
		return fmt.Errorf("DeleteInvestment: %w", err)
	}
	return nil
}
