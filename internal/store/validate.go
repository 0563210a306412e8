package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/finbot/internal/domain"
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// ValidateTransaction checks the fields every backend requires.
func ValidateTransaction(tx domain.Transaction) error {
	switch {
	case tx.UserID == "":
		return invalid("user id is required")
	case !tx.Type.Valid():
		return invalid("transaction type %q", tx.Type)
	case !tx.Amount.IsPositive():
		return invalid("amount must be positive, got %s", tx.Amount)
	case strings.TrimSpace(tx.Description) == "":
		return invalid("description is required")
	case tx.CategoryID == "":
		return invalid("category is required")
	case !tx.Date.IsValid():
		return invalid("date %s", tx.Date)
	}
	return nil
}

// ValidateGoal checks the fields every backend requires.
func ValidateGoal(g domain.Goal) error {
	switch {
	case g.UserID == "":
		return invalid("user id is required")
	case strings.TrimSpace(g.Name) == "":
		return invalid("goal name is required")
	case !g.TargetAmount.IsPositive():
		return invalid("target amount must be positive, got %s", g.TargetAmount)
	case g.CurrentAmount.IsNegative():
		return invalid("current amount must not be negative, got %s", g.CurrentAmount)
	case g.TargetDate != nil && !g.TargetDate.IsValid():
		return invalid("target date %s", g.TargetDate)
	}
	return nil
}

// ValidateBudget checks the fields every backend requires.
func ValidateBudget(b domain.Budget) error {
	switch {
	case b.UserID == "":
		return invalid("user id is required")
	case b.CategoryID == "":
		return invalid("category is required")
	case !b.LimitAmount.IsPositive():
		return invalid("limit must be positive, got %s", b.LimitAmount)
	case b.Month.IsZero() || b.Month.Month < 1 || b.Month.Month > 12:
		return invalid("month %s", b.Month)
	}
	return nil
}

// ValidateInvestment checks the fields every backend requires.
func ValidateInvestment(inv domain.Investment) error {
	switch {
	case inv.UserID == "":
		return invalid("user id is required")
	case strings.TrimSpace(inv.Name) == "":
		return invalid("investment name is required")
	case !inv.Type.Valid():
		return invalid("investment type %q", inv.Type)
	case !inv.Amount.IsPositive():
		return invalid("amount must be positive, got %s", inv.Amount)
	}
	return nil
}

// ValidateCategory checks a category before upsert.
func ValidateCategory(c domain.Category) error {
	switch {
	case c.ID == "":
		return invalid("category id is required")
	case strings.TrimSpace(c.Name) == "":
		return invalid("category %s: name is required", c.ID)
	case !c.Type.Valid():
		return invalid("category %s: type %q", c.ID, c.Type)
	}
	return nil
}

// SortTransactions orders transactions by date then creation time, newest first.
func SortTransactions(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if a.Date != b.Date {
			return a.Date.After(b.Date)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// Match reports whether tx passes filter.
func (f TransactionFilter) Match(tx domain.Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Month != nil && !f.Month.Contains(tx.Date) {
		return false
	}
	if f.CategoryID != "" && tx.CategoryID != f.CategoryID {
		return false
	}
	return true
}
