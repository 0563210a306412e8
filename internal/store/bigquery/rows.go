package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/shopspring/decimal"
)

// numericScale is the fractional precision of the BigQuery NUMERIC type.
const numericScale = 9

type categoryRow struct {
	ID    string              `bigquery:"id"`    // REQUIRED
	Name  string              `bigquery:"name"`  // REQUIRED
	Type  string              `bigquery:"type"`  // REQUIRED income|expense
	Icon  bigquery.NullString `bigquery:"icon"`  // NULLABLE
	Color bigquery.NullString `bigquery:"color"` // NULLABLE
}

// transactionRow is a transactions row joined with its category.
type transactionRow struct {
	ID          string     `bigquery:"id"`
	UserID      string     `bigquery:"user_id"`
	Type        string     `bigquery:"type"`
	Amount      *big.Rat   `bigquery:"amount"` // NUMERIC
	Description string     `bigquery:"description"`
	CategoryID  string     `bigquery:"category_id"`
	Date        civil.Date `bigquery:"date"`
	CreatedTS   time.Time  `bigquery:"created_ts"`

	CategoryName  bigquery.NullString `bigquery:"category_name"`
	CategoryType  bigquery.NullString `bigquery:"category_type"`
	CategoryIcon  bigquery.NullString `bigquery:"category_icon"`
	CategoryColor bigquery.NullString `bigquery:"category_color"`
}

type goalRow struct {
	ID            string            `bigquery:"id"`
	UserID        string            `bigquery:"user_id"`
	Name          string            `bigquery:"name"`
	TargetAmount  *big.Rat          `bigquery:"target_amount"`
	CurrentAmount *big.Rat          `bigquery:"current_amount"`
	TargetDate    bigquery.NullDate `bigquery:"target_date"` // NULLABLE
	CreatedTS     time.Time         `bigquery:"created_ts"`
}

// budgetRow is a budgets row joined with its category.
type budgetRow struct {
	ID          string    `bigquery:"id"`
	UserID      string    `bigquery:"user_id"`
	CategoryID  string    `bigquery:"category_id"`
	LimitAmount *big.Rat  `bigquery:"limit_amount"`
	Month       string    `bigquery:"month"` // YYYY-MM
	CreatedTS   time.Time `bigquery:"created_ts"`

	CategoryName  bigquery.NullString `bigquery:"category_name"`
	CategoryType  bigquery.NullString `bigquery:"category_type"`
	CategoryIcon  bigquery.NullString `bigquery:"category_icon"`
	CategoryColor bigquery.NullString `bigquery:"category_color"`
}

type investmentRow struct {
	ID        string    `bigquery:"id"`
	UserID    string    `bigquery:"user_id"`
	Name      string    `bigquery:"name"`
	Type      string    `bigquery:"type"`
	Amount    *big.Rat  `bigquery:"amount"`
	CreatedTS time.Time `bigquery:"created_ts"`
}

// toNumeric converts an amount to a NUMERIC parameter value.
func toNumeric(d decimal.Decimal) *big.Rat {
	r, _ := new(big.Rat).SetString(d.Round(numericScale).String())
	return r
}

// fromNumeric converts a NUMERIC column. NULL reads as zero.
func fromNumeric(r *big.Rat) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(r.FloatString(numericScale))
	if err != nil {
		return decimal.Zero, fmt.Errorf("converting NUMERIC %s: %w", r.String(), err)
	}
	return d, nil
}

func joinedCategory(id string, name, typ, icon, color bigquery.NullString) *domain.Category {
	if !name.Valid {
		return nil
	}
	return &domain.Category{
		ID:    id,
		Name:  name.StringVal,
		Type:  domain.TransactionType(typ.StringVal),
		Icon:  icon.StringVal,
		Color: color.StringVal,
	}
}

func (r categoryRow) toDomain() domain.Category {
	return domain.Category{
		ID:    r.ID,
		Name:  r.Name,
		Type:  domain.TransactionType(r.Type),
		Icon:  r.Icon.StringVal,
		Color: r.Color.StringVal,
	}
}

func (r transactionRow) toDomain() (domain.Transaction, error) {
	amount, err := fromNumeric(r.Amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	return domain.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		Type:        domain.TransactionType(r.Type),
		Amount:      amount,
		Description: r.Description,
		CategoryID:  r.CategoryID,
		Category:    joinedCategory(r.CategoryID, r.CategoryName, r.CategoryType, r.CategoryIcon, r.CategoryColor),
		Date:        r.Date,
		CreatedAt:   r.CreatedTS.UTC(),
	}, nil
}

func (r goalRow) toDomain() (domain.Goal, error) {
	target, err := fromNumeric(r.TargetAmount)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("goal %s: %w", r.ID, err)
	}
	current, err := fromNumeric(r.CurrentAmount)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("goal %s: %w", r.ID, err)
	}
	g := domain.Goal{
		ID:            r.ID,
		UserID:        r.UserID,
		Name:          r.Name,
		TargetAmount:  target,
		CurrentAmount: current,
		CreatedAt:     r.CreatedTS.UTC(),
	}
	if r.TargetDate.Valid {
		d := r.TargetDate.Date
		g.TargetDate = &d
	}
	return g, nil
}

func (r budgetRow) toDomain() (domain.Budget, error) {
	limit, err := fromNumeric(r.LimitAmount)
	if err != nil {
		return domain.Budget{}, fmt.Errorf("budget %s: %w", r.ID, err)
	}
	month, err := domain.ParseMonth(r.Month)
	if err != nil {
		return domain.Budget{}, fmt.Errorf("budget %s: %w", r.ID, err)
	}
	return domain.Budget{
		ID:          r.ID,
		UserID:      r.UserID,
		CategoryID:  r.CategoryID,
		Category:    joinedCategory(r.CategoryID, r.CategoryName, r.CategoryType, r.CategoryIcon, r.CategoryColor),
		LimitAmount: limit,
		Month:       month,
		CreatedAt:   r.CreatedTS.UTC(),
	}, nil
}

func (r investmentRow) toDomain() (domain.Investment, error) {
	amount, err := fromNumeric(r.Amount)
	if err != nil {
		return domain.Investment{}, fmt.Errorf("investment %s: %w", r.ID, err)
	}
	return domain.Investment{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Type:      domain.InvestmentType(r.Type),
		Amount:    amount,
		CreatedAt: r.CreatedTS.UTC(),
	}, nil
}
