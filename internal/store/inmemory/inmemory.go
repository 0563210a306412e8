// Package inmemory is a store.Repository kept in process memory.
// Data is lost on restart; it backs tests and the "memory" backend.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/google/uuid"
)

// Store is safe for concurrent use. Records are copied in and out.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	seq         int64
	categories  map[string]domain.Category
	txs         map[string]record[domain.Transaction]
	goals       map[string]record[domain.Goal]
	budgets     map[string]record[domain.Budget]
	investments map[string]record[domain.Investment]
}

// record pairs a value with its insertion sequence for stable ordering.
type record[T any] struct {
	seq   int64
	value T
}

// New creates an empty store.
func New() *Store {
	return &Store{
		now:         time.Now,
		categories:  make(map[string]domain.Category),
		txs:         make(map[string]record[domain.Transaction]),
		goals:       make(map[string]record[domain.Goal]),
		budgets:     make(map[string]record[domain.Budget]),
		investments: make(map[string]record[domain.Investment]),
	}
}

// Close implements store.Repository.
func (s *Store) Close() error {
	return nil
}

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

// category returns the joined category. Once any categories exist, unknown ids
// are rejected like a foreign key would.
func (s *Store) category(id string) (*domain.Category, error) {
	c, ok := s.categories[id]
	if !ok {
		if len(s.categories) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: unknown category %q", store.ErrInvalid, id)
	}
	return &c, nil
}

// CreateTransaction implements store.TransactionStore.
func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if err := store.ValidateTransaction(tx); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cat, err := s.category(tx.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}
	tx.ID = uuid.NewString()
	tx.CreatedAt = s.now().UTC()
	tx.Category = nil
	s.txs[tx.ID] = record[domain.Transaction]{seq: s.next(), value: tx}

	tx.Category = cat
	return &tx, nil
}

// ListTransactions implements store.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []record[domain.Transaction]
	for _, r := range s.txs {
		if r.value.UserID == userID && filter.Match(r.value) {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].value, recs[j].value
		if a.Date != b.Date {
			return a.Date.After(b.Date)
		}
		return recs[i].seq > recs[j].seq
	})
	if filter.Limit > 0 && filter.Limit < len(recs) {
		recs = recs[:filter.Limit]
	}

	out := make([]domain.Transaction, len(recs))
	for i, r := range recs {
		out[i] = r.value
		out[i].Category, _ = s.category(r.value.CategoryID)
	}
	return out, nil
}

// DeleteTransaction implements store.TransactionStore.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.txs[id]
	if !ok || r.value.UserID != userID {
		return fmt.Errorf("DeleteTransaction: %s: %w", id, store.ErrNotFound)
	}
	delete(s.txs, id)
	return nil
}

// CreateGoal implements store.GoalStore.
func (s *Store) CreateGoal(ctx context.Context, g domain.Goal) (*domain.Goal, error) {
	if err := store.ValidateGoal(g); err != nil {
		return nil, fmt.Errorf("CreateGoal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g.ID = uuid.NewString()
	g.CreatedAt = s.now().UTC()
	if g.TargetDate != nil {
		d := *g.TargetDate
		g.TargetDate = &d
	}
	s.goals[g.ID] = record[domain.Goal]{seq: s.next(), value: g}
	return &g, nil
}

// ListGoals implements store.GoalStore.
func (s *Store) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return newestFirst(s.goals, func(g domain.Goal) bool { return g.UserID == userID }), nil
}

// DeleteGoal implements store.GoalStore.
func (s *Store) DeleteGoal(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.goals[id]
	if !ok || r.value.UserID != userID {
		return fmt.Errorf("DeleteGoal: %s: %w", id, store.ErrNotFound)
	}
	delete(s.goals, id)
	return nil
}

// CreateBudget implements store.BudgetStore.
func (s *Store) CreateBudget(ctx context.Context, b domain.Budget) (*domain.Budget, error) {
	if err := store.ValidateBudget(b); err != nil {
		return nil, fmt.Errorf("CreateBudget: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cat, err := s.category(b.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("CreateBudget: %w", err)
	}

	b.Category = nil
	for id, r := range s.budgets {
		existing := r.value
		if existing.UserID == b.UserID && existing.CategoryID == b.CategoryID && existing.Month == b.Month {
			existing.LimitAmount = b.LimitAmount
			s.budgets[id] = record[domain.Budget]{seq: r.seq, value: existing}
			existing.Category = cat
			return &existing, nil
		}
	}

	b.ID = uuid.NewString()
	b.CreatedAt = s.now().UTC()
	s.budgets[b.ID] = record[domain.Budget]{seq: s.next(), value: b}
	b.Category = cat
	return &b, nil
}

// ListBudgets implements store.BudgetStore.
func (s *Store) ListBudgets(ctx context.Context, userID string, month domain.Month) ([]domain.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := newestFirst(s.budgets, func(b domain.Budget) bool { return b.UserID == userID && b.Month == month })
	for i := range out {
		out[i].Category, _ = s.category(out[i].CategoryID)
	}
	return out, nil
}

// DeleteBudget implements store.BudgetStore.
func (s *Store) DeleteBudget(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.budgets[id]
	if !ok || r.value.UserID != userID {
		return fmt.Errorf("DeleteBudget: %s: %w", id, store.ErrNotFound)
	}
	delete(s.budgets, id)
	return nil
}

// ListCategories implements store.CategoryStore.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpsertCategories implements store.CategoryStore.
func (s *Store) UpsertCategories(ctx context.Context, cats []domain.Category) error {
	for _, c := range cats {
		if err := store.ValidateCategory(c); err != nil {
			return fmt.Errorf("UpsertCategories: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range cats {
		s.categories[c.ID] = c
	}
	return nil
}

// CreateInvestment implements store.InvestmentStore.
func (s *Store) CreateInvestment(ctx context.Context, inv domain.Investment) (*domain.Investment, error) {
	if err := store.ValidateInvestment(inv); err != nil {
		return nil, fmt.Errorf("CreateInvestment: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inv.ID = uuid.NewString()
	inv.CreatedAt = s.now().UTC()
	s.investments[inv.ID] = record[domain.Investment]{seq: s.next(), value: inv}
	return &inv, nil
}

// ListInvestments implements store.InvestmentStore.
func (s *Store) ListInvestments(ctx context.Context, userID string) ([]domain.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return newestFirst(s.investments, func(inv domain.Investment) bool { return inv.UserID == userID }), nil
}

// DeleteInvestment implements store.InvestmentStore.
func (s *Store) DeleteInvestment(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.investments[id]
	if !ok || r.value.UserID != userID {
		return fmt.Errorf("DeleteInvestment: %s: %w", id, store.ErrNotFound)
	}
	delete(s.investments, id)
	return nil
}

// newestFirst filters records and orders them by insertion, latest first.
func newestFirst[T any](m map[string]record[T], keep func(T) bool) []T {
	var recs []record[T]
	for _, r := range m {
		if keep(r.value) {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })

	out := make([]T, len(recs))
	for i, r := range recs {
		out[i] = r.value
	}
	return out
}

// Ensure Store implements store.Repository.
var _ store.Repository = (*Store)(nil)
