// Package store defines the data service the assistant writes to. All
// operations are scoped to one user.
package store

import (
	"context"
	"errors"

	"github.com/dvloznov/finbot/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist for the user.
	ErrNotFound = errors.New("not found")

	// ErrInvalid is returned when a record fails validation.
	ErrInvalid = errors.New("invalid record")
)

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	// Type filters by direction when set.
	Type domain.TransactionType

	// Month limits results to one calendar month when set.
	Month *domain.Month

	// CategoryID filters by category when set.
	CategoryID string

	// Limit caps the number of results when positive.
	Limit int
}

// TransactionStore persists transactions.
type TransactionStore interface {
	// CreateTransaction stores tx and returns it with ID, CreatedAt and Category populated.
	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)

	// ListTransactions returns the user's transactions, newest date first.
	ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]domain.Transaction, error)

	// DeleteTransaction removes one transaction.
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// GoalStore persists savings goals.
type GoalStore interface {
	CreateGoal(ctx context.Context, g domain.Goal) (*domain.Goal, error)

	// ListGoals returns the user's goals, newest first.
	ListGoals(ctx context.Context, userID string) ([]domain.Goal, error)

	DeleteGoal(ctx context.Context, userID, id string) error
}

// BudgetStore persists monthly budgets.
type BudgetStore interface {
	// CreateBudget sets a category limit for a month. An existing budget for
	// the same user, category and month is updated in place.
	CreateBudget(ctx context.Context, b domain.Budget) (*domain.Budget, error)

	// ListBudgets returns the user's budgets for month with categories joined.
	ListBudgets(ctx context.Context, userID string, month domain.Month) ([]domain.Budget, error)

	DeleteBudget(ctx context.Context, userID, id string) error
}

// CategoryStore persists the shared category list.
type CategoryStore interface {
	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]domain.Category, error)

	// UpsertCategories inserts or updates categories by ID.
	UpsertCategories(ctx context.Context, cats []domain.Category) error
}

// InvestmentStore persists investments.
type InvestmentStore interface {
	CreateInvestment(ctx context.Context, inv domain.Investment) (*domain.Investment, error)

	// ListInvestments returns the user's investments, newest first.
	ListInvestments(ctx context.Context, userID string) ([]domain.Investment, error)

	DeleteInvestment(ctx context.Context, userID, id string) error
}

// Repository is the complete data service.
type Repository interface {
	TransactionStore
	GoalStore
	BudgetStore
	CategoryStore
	InvestmentStore

	// Close releases resources.
	Close() error
}
