package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/google/uuid"
)

// CreateGoal implements store.GoalStore.
func (r *Repository) CreateGoal(ctx context.Context, g domain.Goal) (*domain.Goal, error) {
	if err := store.ValidateGoal(g); err != nil {
		return nil, fmt.Errorf("CreateGoal: %w", err)
	}

	g.ID = uuid.NewString()
	g.CreatedAt = r.now().UTC()

	var target bigquery.NullDate
	if g.TargetDate != nil {
		target = bigquery.NullDate{Date: *g.TargetDate, Valid: true}
	}
	_, err := r.runDML(ctx, `
		INSERT INTO `+r.table(goalsTable)+`
		  (id, user_id, name, target_amount, current_amount, target_date, created_ts)
		VALUES (@id, @user_id, @name, @target_amount, @current_amount, @target_date, @created_ts)`,
		[]bigquery.QueryParameter{
			{Name: "id", Value: g.ID},
			{Name: "user_id", Value: g.UserID},
			{Name: "name", Value: g.Name},
			{Name: "target_amount", Value: toNumeric(g.TargetAmount)},
			{Name: "current_amount", Value: toNumeric(g.CurrentAmount)},
			{Name: "target_date", Value: target},
			{Name: "created_ts", Value: g.CreatedAt},
		})
	if err != nil {
		return nil, fmt.Errorf("CreateGoal: inserting: %w", err)
	}
	return &g, nil
}

// ListGoals implements store.GoalStore.
func (r *Repository) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	rows, err := readAll[goalRow](ctx, r, `
		SELECT id, user_id, name, target_amount, current_amount, target_date, created_ts
		FROM `+r.table(goalsTable)+`
		WHERE user_id = @user_id
		ORDER BY created_ts DESC`,
		[]bigquery.QueryParameter{{Name: "user_id", Value: userID}})
	if err != nil {
		return nil, fmt.Errorf("ListGoals: %w", err)
	}

	out := make([]domain.Goal, 0, len(rows))
	for _, row := range rows {
		g, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListGoals: %w", err)
		}
		out = append(out, g)
	}
	return out, nil
}

// DeleteGoal implements store.GoalStore.
func (r *Repository) DeleteGoal(ctx context.Context, userID, id string) error {
	if err := r.deleteOwned(ctx, goalsTable, userID, id); err != nil {
		return fmt.Errorf("DeleteGoal: %w", err)
	}
	return nil
}

// CreateBudget implements store.BudgetStore. The MERGE keeps one row per
// user, category and month.
func (r *Repository) CreateBudget(ctx context.Context, b domain.Budget) (*domain.Budget, error) {
	if err := store.ValidateBudget(b); err != nil {
		return nil, fmt.Errorf("CreateBudget: %w", err)
	}
	if _, err := r.category(ctx, b.CategoryID); err != nil {
		return nil, fmt.Errorf("CreateBudget: %w", err)
	}

	_, err := r.runDML(ctx, `
		MERGE `+r.table(budgetsTable)+` T
		USING (SELECT @user_id AS user_id, @category_id AS category_id, @month AS month) S
		ON T.user_id = S.user_id AND T.category_id = S.category_id AND T.month = S.month
		WHEN MATCHED THEN
		  UPDATE SET limit_amount = @limit_amount
		WHEN NOT MATCHED THEN
		  INSERT (id, user_id, category_id, limit_amount, month, created_ts)
		  VALUES (@id, @user_id, @category_id, @limit_amount, @month, @created_ts)
	`, []bigquery.QueryParameter{
		{Name: "id", Value: uuid.NewString()},
		{Name: "user_id", Value: b.UserID},
		{Name: "category_id", Value: b.CategoryID},
		{Name: "limit_amount", Value: toNumeric(b.LimitAmount)},
		{Name: "month", Value: b.Month.String()},
		{Name: "created_ts", Value: r.now().UTC()},
	})
	if err != nil {
		return nil, fmt.Errorf("CreateBudget: merging: %w", err)
	}

	budgets, err := r.listBudgets(ctx, b.UserID, b.Month, b.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("CreateBudget: %w", err)
	}
	if len(budgets) == 0 {
		return nil, fmt.Errorf("CreateBudget: merged row for %s %s not found", b.CategoryID, b.Month)
	}
	return &budgets[0], nil
}

// ListBudgets implements store.BudgetStore.
func (r *Repository) ListBudgets(ctx context.Context, userID string, month domain.Month) ([]domain.Budget, error) {
	budgets, err := r.listBudgets(ctx, userID, month, "")
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: %w", err)
	}
	return budgets, nil
}

func (r *Repository) listBudgets(ctx context.Context, userID string, month domain.Month, categoryID string) ([]domain.Budget, error) {
	sql := `
		SELECT
		  b.id, b.user_id, b.category_id, b.limit_amount, b.month, b.created_ts,
		  c.name AS category_name, c.type AS category_type, c.icon AS category_icon, c.color AS category_color
		FROM ` + r.table(budgetsTable) + ` b
		LEFT JOIN ` + r.table(categoriesTable) + ` c ON c.id = b.category_id
		WHERE b.user_id = @user_id AND b.month = @month`
	params := []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "month", Value: month.String()},
	}
	if categoryID != "" {
		sql += ` AND b.category_id = @category_id`
		params = append(params, bigquery.QueryParameter{Name: "category_id", Value: categoryID})
	}
	sql += ` ORDER BY b.created_ts DESC`

	rows, err := readAll[budgetRow](ctx, r, sql, params)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Budget, 0, len(rows))
	for _, row := range rows {
		b, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// DeleteBudget implements store.BudgetStore.
func (r *Repository) DeleteBudget(ctx context.Context, userID, id string) error {
	if err := r.deleteOwned(ctx, budgetsTable, userID, id); err != nil {
		return fmt.Errorf("DeleteBudget: %w", err)
	}
	return nil
}

// CreateInvestment implements store.InvestmentStore.
func (r *Repository) CreateInvestment(ctx context.Context, inv domain.Investment) (*domain.Investment, error) {
	if err := store.ValidateInvestment(inv); err != nil {
		return nil, fmt.Errorf("CreateInvestment: %w", err)
	}

	inv.ID = uuid.NewString()
	inv.CreatedAt = r.now().UTC()
	_, err := r.runDML(ctx, `
		INSERT INTO `+r.table(investmentsTable)+` (id, user_id, name, type, amount, created_ts)
		VALUES (@id, @user_id, @name, @type, @amount, @created_ts)`,
		[]bigquery.QueryParameter{
			{Name: "id", Value: inv.ID},
			{Name: "user_id", Value: inv.UserID},
			{Name: "name", Value: inv.Name},
			{Name: "type", Value: string(inv.Type)},
			{Name: "amount", Value: toNumeric(inv.Amount)},
			{Name: "created_ts", Value: inv.CreatedAt},
		})
	if err != nil {
		return nil, fmt.Errorf("CreateInvestment: inserting: %w", err)
	}
	return &inv, nil
}

// ListInvestments implements store.InvestmentStore.
func (r *Repository) ListInvestments(ctx context.Context, userID string) ([]domain.Investment, error) {
	rows, err := readAll[investmentRow](ctx, r, `
		SELECT id, user_id, name, type, amount, created_ts
		FROM `+r.table(investmentsTable)+`
		WHERE user_id = @user_id
		ORDER BY created_ts DESC`,
		[]bigquery.QueryParameter{{Name: "user_id", Value: userID}})
	if err != nil {
		return nil, fmt.Errorf("ListInvestments: %w", err)
	}

	out := make([]domain.Investment, 0, len(rows))
	for _, row := range rows {
		inv, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListInvestments: %w", err)
		}
		out = append(out, inv)
	}
	return out, nil
}

// DeleteInvestment implements store.InvestmentStore.
func (r *Repository) DeleteInvestment(ctx context.Context, userID, id string) error {
	if err := r.deleteOwned(ctx, investmentsTable, userID, id); err != nil {
		return fmt.Errorf("DeleteInvestment: %w", err)
	}
	return nil
}
