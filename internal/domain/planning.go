package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Goal is a savings target.
type Goal struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	TargetDate    *civil.Date     `json:"target_date,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

var hundred = decimal.NewFromInt(100)

// Progress returns how much of the target has been saved, as a percentage capped at 100.
func (g Goal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	p := g.CurrentAmount.Div(g.TargetAmount).Mul(hundred).Round(1)
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// Budget is a spending limit for one category in one month.
type Budget struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	CategoryID  string          `json:"category_id"`
	Category    *Category       `json:"category,omitempty"`
	LimitAmount decimal.Decimal `json:"limit_amount"`
	Month       Month           `json:"month"`
	CreatedAt   time.Time       `json:"created_at"`
}

// InvestmentType classifies an investment.
type InvestmentType string

const (
	InvestmentStocks      InvestmentType = "stocks"
	InvestmentFixedIncome InvestmentType = "fixed_income"
	InvestmentCrypto      InvestmentType = "crypto"
	InvestmentFunds       InvestmentType = "funds"
	InvestmentRealEstate  InvestmentType = "real_estate"
	InvestmentOther       InvestmentType = "other"
)

// Valid reports whether t is a known investment type.
func (t InvestmentType) Valid() bool {
	switch t {
	case InvestmentStocks, InvestmentFixedIncome, InvestmentCrypto, InvestmentFunds, InvestmentRealEstate, InvestmentOther:
		return true
	}
	return false
}

// Investment is a tracked holding.
type Investment struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Type      InvestmentType  `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
