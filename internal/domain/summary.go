package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summary is the headline balance for a month.
type Summary struct {
	Balance      decimal.Decimal `json:"balance"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
}

// Summarize totals the transactions dated within month.
func Summarize(txs []Transaction, month Month) Summary {
	var s Summary
	for _, tx := range txs {
		if !month.Contains(tx.Date) {
			continue
		}
		switch tx.Type {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		case Expense:
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// CategorySpending is the expense total for one category.
type CategorySpending struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
}

// BudgetUsage compares a budget with what was actually spent.
type BudgetUsage struct {
	Budget    Budget          `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Percent   decimal.Decimal `json:"percent"`
	Exceeded  bool            `json:"exceeded"`
}

// MonthlyReport breaks a month down by category and budget.
type MonthlyReport struct {
	Month      Month              `json:"month"`
	Summary    Summary            `json:"summary"`
	ByCategory []CategorySpending `json:"by_category"`
	Budgets    []BudgetUsage      `json:"budgets"`
}

// BuildMonthlyReport aggregates txs and budgets for month. Budgets for other
// months are ignored.
func BuildMonthlyReport(month Month, txs []Transaction, budgets []Budget) MonthlyReport {
	report := MonthlyReport{
		Month:   month,
		Summary: Summarize(txs, month),
	}

	spent := make(map[string]*CategorySpending)
	for _, tx := range txs {
		if tx.Type != Expense || !month.Contains(tx.Date) {
			continue
		}
		cs, ok := spent[tx.CategoryID]
		if !ok {
			cs = &CategorySpending{CategoryID: tx.CategoryID, Name: tx.CategoryID}
			if tx.Category != nil && tx.Category.Name != "" {
				cs.Name = tx.Category.Name
			}
			spent[tx.CategoryID] = cs
		}
		cs.Total = cs.Total.Add(tx.Amount)
		cs.Count++
	}

	for _, cs := range spent {
		report.ByCategory = append(report.ByCategory, *cs)
	}
	sort.Slice(report.ByCategory, func(i, j int) bool {
		a, b := report.ByCategory[i], report.ByCategory[j]
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		return a.CategoryID < b.CategoryID
	})

	for _, b := range budgets {
		if b.Month != month {
			continue
		}
		usage := BudgetUsage{Budget: b}
		if cs, ok := spent[b.CategoryID]; ok {
			usage.Spent = cs.Total
		}
		usage.Remaining = b.LimitAmount.Sub(usage.Spent)
		if b.LimitAmount.IsPositive() {
			usage.Percent = usage.Spent.Div(b.LimitAmount).Mul(hundred).Round(1)
		}
		usage.Exceeded = usage.Spent.GreaterThan(b.LimitAmount)
		report.Budgets = append(report.Budgets, usage)
	}

	return report
}
