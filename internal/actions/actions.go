// Package actions extracts structured financial actions from assistant replies.
//
// A reply may embed any number of tagged blocks such as
//
//	[TRANSACTION]
//	type: expense
//	amount: 45.90
//	description: Lunch
//	category: food
//	date: 2026-02-24
//	[/TRANSACTION]
//
// Each recognized block becomes one Action and is removed from the text shown
// to the user.
package actions

import (
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/shopspring/decimal"
)

// Kind identifies the action variant.
type Kind string

const (
	KindTransaction Kind = "transaction"
	KindGoal        Kind = "goal"
	KindBudget      Kind = "budget"
)

// Action is one operation requested by the assistant.
type Action interface {
	Kind() Kind
}

// TransactionAction records an income or expense.
type TransactionAction struct {
	Type        domain.TransactionType
	Amount      decimal.Decimal
	Description string
	Category    string // raw id as written by the model, resolved by the executor
	Date        civil.Date
}

// Kind implements Action.
func (TransactionAction) Kind() Kind { return KindTransaction }

// GoalAction creates a savings goal.
type GoalAction struct {
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
}

// Kind implements Action.
func (GoalAction) Kind() Kind { return KindGoal }

// BudgetAction sets a monthly spending limit for a category.
type BudgetAction struct {
	Category    string
	LimitAmount decimal.Decimal
	Month       domain.Month
}

// Kind implements Action.
func (BudgetAction) Kind() Kind { return KindBudget }
