// Package storetest is a conformance suite run against every store.Repository
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/shopspring/decimal"
)

// Categories seeded before each test.
var Categories = []domain.Category{
	{ID: "food", Name: "Food", Type: domain.Expense, Icon: "restaurant"},
	{ID: "transport", Name: "Transport", Type: domain.Expense},
	{ID: "other", Name: "Other", Type: domain.Expense},
	{ID: "salary", Name: "Salary", Type: domain.Income},
}

// Run exercises repo behavior. newRepo must return an empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) store.Repository) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repo store.Repository)
	}{
		{"CreateTransactionEnriches", testCreateTransactionEnriches},
		{"CreateTransactionUnknownCategory", testCreateTransactionUnknownCategory},
		{"CreateTransactionInvalid", testCreateTransactionInvalid},
		{"ListTransactionsOrderAndFilter", testListTransactionsOrderAndFilter},
		{"DeleteTransactionScopedToUser", testDeleteTransactionScopedToUser},
		{"GoalsNewestFirst", testGoalsNewestFirst},
		{"BudgetsByMonthUpsert", testBudgetsByMonthUpsert},
		{"InvestmentsCRUD", testInvestmentsCRUD},
		{"CategoriesUpsert", testCategoriesUpsert},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			t.Cleanup(func() { _ = repo.Close() })
			if err := repo.UpsertCategories(context.Background(), Categories); err != nil {
				t.Fatalf("UpsertCategories() error = %v", err)
			}
			tt.fn(t, repo)
		})
	}
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func tx(user string, typ domain.TransactionType, amount string, category string, d civil.Date) domain.Transaction {
	return domain.Transaction{
		UserID:      user,
		Type:        typ,
		Amount:      decimal.RequireFromString(amount),
		Description: "test " + amount,
		CategoryID:  category,
		Date:        d,
	}
}

func testCreateTransactionEnriches(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	created, err := repo.CreateTransaction(ctx, tx("u1", domain.Expense, "45.90", "food", date(2026, 2, 24)))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if created.ID == "" {
		t.Error("ID not assigned")
	}
	if created.CreatedAt.IsZero() {
		t.Error("CreatedAt not assigned")
	}
	if created.Category == nil || created.Category.Name != "Food" {
		t.Errorf("Category = %+v, want joined Food", created.Category)
	}
	if !created.Amount.Equal(decimal.RequireFromString("45.9")) {
		t.Errorf("Amount = %s, want 45.9", created.Amount)
	}

	list, err := repo.ListTransactions(ctx, "u1", store.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("ListTransactions() = %+v", list)
	}
	if list[0].Category == nil || list[0].Category.ID != "food" {
		t.Errorf("listed Category = %+v", list[0].Category)
	}
	if list[0].Date != date(2026, 2, 24) || list[0].Description != "test 45.90" {
		t.Errorf("listed transaction = %+v", list[0])
	}
}

func testCreateTransactionUnknownCategory(t *testing.T, repo store.Repository) {
	_, err := repo.CreateTransaction(context.Background(), tx("u1", domain.Expense, "1", "spaceships", date(2026, 2, 1)))
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("CreateTransaction(unknown category) error = %v, want ErrInvalid", err)
	}
	list, _ := repo.ListTransactions(context.Background(), "u1", store.TransactionFilter{})
	if len(list) != 0 {
		t.Errorf("failed create left %d rows", len(list))
	}
}

func testCreateTransactionInvalid(t *testing.T, repo store.Repository) {
	_, err := repo.CreateTransaction(context.Background(), tx("u1", domain.Expense, "0", "food", date(2026, 2, 1)))
	if !errors.Is(err, store.ErrInvalid) {
		t.Errorf("CreateTransaction(zero amount) error = %v, want ErrInvalid", err)
	}
}

func testListTransactionsOrderAndFilter(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	inputs := []domain.Transaction{
		tx("u1", domain.Expense, "10", "food", date(2026, 1, 31)),
		tx("u1", domain.Income, "5000", "salary", date(2026, 2, 5)),
		tx("u1", domain.Expense, "20", "transport", date(2026, 2, 10)),
		tx("u1", domain.Expense, "30", "food", date(2026, 2, 10)),
		tx("u2", domain.Expense, "99", "food", date(2026, 2, 10)),
	}
	for _, in := range inputs {
		if _, err := repo.CreateTransaction(ctx, in); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
		// Creation order breaks date ties.
		time.Sleep(2 * time.Millisecond)
	}

	all, err := repo.ListTransactions(ctx, "u1", store.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	wantAmounts := []string{"30", "20", "5000", "10"}
	if len(all) != len(wantAmounts) {
		t.Fatalf("ListTransactions() returned %d rows, want %d", len(all), len(wantAmounts))
	}
	for i, want := range wantAmounts {
		if !all[i].Amount.Equal(decimal.RequireFromString(want)) {
			t.Errorf("row %d amount = %s, want %s", i, all[i].Amount, want)
		}
	}

	feb := domain.Month{Year: 2026, Month: time.February}
	expenses, err := repo.ListTransactions(ctx, "u1", store.TransactionFilter{Type: domain.Expense, Month: &feb})
	if err != nil {
		t.Fatalf("ListTransactions(filter) error = %v", err)
	}
	if len(expenses) != 2 {
		t.Errorf("February expenses = %d, want 2", len(expenses))
	}

	food, err := repo.ListTransactions(ctx, "u1", store.TransactionFilter{CategoryID: "food", Limit: 1})
	if err != nil {
		t.Fatalf("ListTransactions(category) error = %v", err)
	}
	if len(food) != 1 || !food[0].Amount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("food limit 1 = %+v", food)
	}
}

func testDeleteTransactionScopedToUser(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	created, err := repo.CreateTransaction(ctx, tx("u1", domain.Expense, "10", "food", date(2026, 2, 1)))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	if err := repo.DeleteTransaction(ctx, "u2", created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteTransaction(other user) error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteTransaction(ctx, "u1", created.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "u1", created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second DeleteTransaction() error = %v, want ErrNotFound", err)
	}
}

func testGoalsNewestFirst(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	target := date(2026, 5, 25)
	for _, name := range []string{"Car", "Trip"} {
		_, err := repo.CreateGoal(ctx, domain.Goal{
			UserID:        "u1",
			Name:          name,
			TargetAmount:  decimal.NewFromInt(1000),
			CurrentAmount: decimal.NewFromInt(100),
			TargetDate:    &target,
		})
		if err != nil {
			t.Fatalf("CreateGoal() error = %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	goals, err := repo.ListGoals(ctx, "u1")
	if err != nil {
		t.Fatalf("ListGoals() error = %v", err)
	}
	if len(goals) != 2 || goals[0].Name != "Trip" || goals[1].Name != "Car" {
		t.Fatalf("ListGoals() = %+v, want Trip then Car", goals)
	}
	if goals[0].TargetDate == nil || *goals[0].TargetDate != target {
		t.Errorf("TargetDate = %v, want %s", goals[0].TargetDate, target)
	}
	if !goals[0].CurrentAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("CurrentAmount = %s", goals[0].CurrentAmount)
	}

	if other, _ := repo.ListGoals(ctx, "u2"); len(other) != 0 {
		t.Errorf("ListGoals(u2) = %d goals, want 0", len(other))
	}
	if err := repo.DeleteGoal(ctx, "u1", goals[0].ID); err != nil {
		t.Errorf("DeleteGoal() error = %v", err)
	}
	if err := repo.DeleteGoal(ctx, "u1", "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteGoal(missing) error = %v, want ErrNotFound", err)
	}
}

func testBudgetsByMonthUpsert(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	feb := domain.Month{Year: 2026, Month: time.February}
	mar := feb.Next()

	first, err := repo.CreateBudget(ctx, domain.Budget{UserID: "u1", CategoryID: "food", LimitAmount: decimal.NewFromInt(800), Month: feb})
	if err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}
	if first.Category == nil || first.Category.Name != "Food" {
		t.Errorf("Category = %+v, want joined Food", first.Category)
	}
	second, err := repo.CreateBudget(ctx, domain.Budget{UserID: "u1", CategoryID: "food", LimitAmount: decimal.NewFromInt(600), Month: feb})
	if err != nil {
		t.Fatalf("CreateBudget(update) error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("updated budget ID = %s, want %s", second.ID, first.ID)
	}
	if _, err := repo.CreateBudget(ctx, domain.Budget{UserID: "u1", CategoryID: "transport", LimitAmount: decimal.NewFromInt(200), Month: mar}); err != nil {
		t.Fatalf("CreateBudget(march) error = %v", err)
	}
	if _, err := repo.CreateBudget(ctx, domain.Budget{UserID: "u1", CategoryID: "nope", LimitAmount: decimal.NewFromInt(1), Month: feb}); err == nil {
		t.Error("CreateBudget(unknown category) succeeded")
	}

	budgets, err := repo.ListBudgets(ctx, "u1", feb)
	if err != nil {
		t.Fatalf("ListBudgets() error = %v", err)
	}
	if len(budgets) != 1 {
		t.Fatalf("ListBudgets(feb) = %+v, want one budget", budgets)
	}
	b := budgets[0]
	if !b.LimitAmount.Equal(decimal.NewFromInt(600)) || b.Month != feb || b.Category == nil || b.Category.ID != "food" {
		t.Errorf("budget = %+v", b)
	}

	if err := repo.DeleteBudget(ctx, "u1", b.ID); err != nil {
		t.Errorf("DeleteBudget() error = %v", err)
	}
	if left, _ := repo.ListBudgets(ctx, "u1", feb); len(left) != 0 {
		t.Errorf("budgets after delete = %d", len(left))
	}
}

func testInvestmentsCRUD(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	created, err := repo.CreateInvestment(ctx, domain.Investment{
		UserID: "u1",
		Name:   "Tesouro Selic",
		Type:   domain.InvestmentFixedIncome,
		Amount: decimal.RequireFromString("1500.25"),
	})
	if err != nil {
		t.Fatalf("CreateInvestment() error = %v", err)
	}
	if _, err := repo.CreateInvestment(ctx, domain.Investment{UserID: "u1", Name: "x", Type: "beans", Amount: decimal.NewFromInt(1)}); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("CreateInvestment(bad type) error = %v, want ErrInvalid", err)
	}

	list, err := repo.ListInvestments(ctx, "u1")
	if err != nil {
		t.Fatalf("ListInvestments() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID || !list[0].Amount.Equal(decimal.RequireFromString("1500.25")) {
		t.Fatalf("ListInvestments() = %+v", list)
	}
	if err := repo.DeleteInvestment(ctx, "u1", created.ID); err != nil {
		t.Errorf("DeleteInvestment() error = %v", err)
	}
}

func testCategoriesUpsert(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	err := repo.UpsertCategories(ctx, []domain.Category{
		{ID: "food", Name: "Groceries", Type: domain.Expense, Color: "#fff"},
		{ID: "gift", Name: "Gift", Type: domain.Income},
	})
	if err != nil {
		t.Fatalf("UpsertCategories() error = %v", err)
	}

	cats, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(cats) != len(Categories)+1 {
		t.Fatalf("ListCategories() = %d categories, want %d", len(cats), len(Categories)+1)
	}
	for i := 1; i < len(cats); i++ {
		if cats[i-1].Name > cats[i].Name {
			t.Errorf("categories not ordered by name: %s before %s", cats[i-1].Name, cats[i].Name)
		}
	}
	for _, c := range cats {
		if c.ID == "food" && (c.Name != "Groceries" || c.Color != "#fff") {
			t.Errorf("food after upsert = %+v", c)
		}
	}

	if err := repo.UpsertCategories(ctx, []domain.Category{{ID: "bad"}}); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("UpsertCategories(invalid) error = %v, want ErrInvalid", err)
	}
}
