package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money for a transaction.
type TransactionType string

const (
	// Income is money received.
	Income TransactionType = "income"
	// Expense is money spent.
	Expense TransactionType = "expense"
)

// ParseTransactionType maps a free-form type word to a TransactionType.
// Portuguese words used by older prompts are accepted too.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "receita", "entrada":
		return Income, nil
	case "expense", "despesa", "saida", "saída":
		return Expense, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// Valid reports whether t is one of the known types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Transaction is one recorded income or expense.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CategoryID  string          `json:"category_id"`
	Category    *Category       `json:"category,omitempty"` // joined on read
	Date        civil.Date      `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Category is an income or expense category.
type Category struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  TransactionType `json:"type"`
	Icon  string          `json:"icon,omitempty"`
	Color string          `json:"color,omitempty"`
}
