package domain

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func d(s string) civil.Date {
	date, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return date
}

func TestSummarize(t *testing.T) {
	oct := Month{Year: 2026, Month: time.October}
	txs := []Transaction{
		{Type: Income, Amount: decimal.RequireFromString("5000"), Date: d("2026-10-01")},
		{Type: Expense, Amount: decimal.RequireFromString("45.50"), Date: d("2026-10-03")},
		{Type: Expense, Amount: decimal.RequireFromString("100"), Date: d("2026-09-30")},
	}

	s := Summarize(txs, oct)

	if !s.TotalIncome.Equal(decimal.RequireFromString("5000")) {
		t.Errorf("TotalIncome = %s, want 5000", s.TotalIncome)
	}
	if !s.TotalExpense.Equal(decimal.RequireFromString("45.5")) {
		t.Errorf("TotalExpense = %s, want 45.5", s.TotalExpense)
	}
	if !s.Balance.Equal(decimal.RequireFromString("4954.5")) {
		t.Errorf("Balance = %s, want 4954.5", s.Balance)
	}
}

func TestBuildMonthlyReport(t *testing.T) {
	oct := Month{Year: 2026, Month: time.October}
	txs := []Transaction{
		{Type: Expense, Amount: decimal.RequireFromString("30"), CategoryID: "food", Date: d("2026-10-02")},
		{Type: Expense, Amount: decimal.RequireFromString("90"), CategoryID: "food", Date: d("2026-10-05")},
		{Type: Expense, Amount: decimal.RequireFromString("50"), CategoryID: "transport", Date: d("2026-10-05")},
		{Type: Income, Amount: decimal.RequireFromString("1000"), CategoryID: "salary", Date: d("2026-10-01")},
	}
	budgets := []Budget{
		{CategoryID: "food", LimitAmount: decimal.RequireFromString("100"), Month: oct},
		{CategoryID: "leisure", LimitAmount: decimal.RequireFromString("200"), Month: oct},
		{CategoryID: "food", LimitAmount: decimal.RequireFromString("10"), Month: oct.Next()},
	}

	r := BuildMonthlyReport(oct, txs, budgets)

	if len(r.ByCategory) != 2 {
		t.Fatalf("ByCategory len = %d, want 2", len(r.ByCategory))
	}
	if r.ByCategory[0].CategoryID != "food" || r.ByCategory[0].Count != 2 {
		t.Errorf("ByCategory[0] = %+v, want food with 2 transactions", r.ByCategory[0])
	}
	if len(r.Budgets) != 2 {
		t.Fatalf("Budgets len = %d, want 2", len(r.Budgets))
	}
	food := r.Budgets[0]
	if !food.Exceeded || !food.Percent.Equal(decimal.RequireFromString("120")) {
		t.Errorf("food usage = %+v, want exceeded at 120%%", food)
	}
	leisure := r.Budgets[1]
	if leisure.Exceeded || !leisure.Remaining.Equal(decimal.RequireFromString("200")) {
		t.Errorf("leisure usage = %+v, want 200 remaining", leisure)
	}
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in      string
		want    Month
		wantErr bool
	}{
		{in: "2026-10", want: Month{Year: 2026, Month: time.October}},
		{in: "2026-01-15", want: Month{Year: 2026, Month: time.January}},
		{in: "10/2026", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMonth(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMonth(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseMonth(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMonthBounds(t *testing.T) {
	m := Month{Year: 2024, Month: time.February}
	if got := m.Last(); got != d("2024-02-29") {
		t.Errorf("Last() = %s, want 2024-02-29", got)
	}
	if got := (Month{Year: 2025, Month: time.December}).Next(); got.String() != "2026-01" {
		t.Errorf("Next() = %s, want 2026-01", got)
	}
}

func TestGoalProgress(t *testing.T) {
	g := Goal{TargetAmount: decimal.NewFromInt(200), CurrentAmount: decimal.NewFromInt(50)}
	if got := g.Progress(); !got.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Progress() = %s, want 25", got)
	}
	g.CurrentAmount = decimal.NewFromInt(500)
	if got := g.Progress(); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Progress() = %s, want capped 100", got)
	}
}
