package actions

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/shopspring/decimal"
)

// Result is the outcome of parsing one reply.
type Result struct {
	// Actions in document order across all kinds.
	Actions []Action

	// CleanText is the reply with every recognized block removed, trimmed.
	CleanText string

	// Dropped counts recognized blocks that produced no action.
	Dropped int
}

// Parser turns assistant replies into actions. The zero value is not usable;
// call NewParser.
type Parser struct {
	now         func() time.Time
	location    *time.Location
	description string
	goalName    string
	category    string
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the time source used for default dates and months.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithLocation sets the time zone "today" is computed in.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) { p.location = loc }
}

// WithPlaceholders sets the default transaction description and goal name.
func WithPlaceholders(description, goalName string) Option {
	return func(p *Parser) {
		if description != "" {
			p.description = description
		}
		if goalName != "" {
			p.goalName = goalName
		}
	}
}

// WithDefaultCategory sets the category used when a block has none.
func WithDefaultCategory(id string) Option {
	return func(p *Parser) {
		if id != "" {
			p.category = id
		}
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		now:         time.Now,
		location:    time.Local,
		description: "Transaction",
		goalName:    "Goal",
		category:    "other",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) today() civil.Date {
	return civil.DateOf(p.now().In(p.location))
}

// Parse extracts actions from text. It never fails: malformed blocks are
// dropped and unterminated blocks are left in the text.
func (p *Parser) Parse(text string) Result {
	blocks := pair(text, tokenize(text))

	var res Result
	var clean strings.Builder
	last := 0
	for _, b := range blocks {
		clean.WriteString(text[last:b.start])
		last = b.end

		action, ok := p.decode(b)
		if !ok {
			res.Dropped++
			continue
		}
		res.Actions = append(res.Actions, action)
	}
	clean.WriteString(text[last:])
	res.CleanText = strings.TrimSpace(clean.String())
	return res
}

func (p *Parser) decode(b block) (Action, bool) {
	f := parseFields(b.body)
	switch b.kind {
	case KindTransaction:
		return p.decodeTransaction(f)
	case KindGoal:
		return p.decodeGoal(f)
	case KindBudget:
		return p.decodeBudget(f)
	}
	return nil, false
}

func (p *Parser) decodeTransaction(f fields) (Action, bool) {
	v, ok := f.resolve(transactionRules)
	if !ok {
		return nil, false
	}
	amount, ok := parseAmount(v["amount"])
	if !ok {
		return nil, false
	}

	a := TransactionAction{
		Type:        domain.Expense,
		Amount:      amount,
		Description: p.description,
		Category:    p.category,
		Date:        p.today(),
	}
	if t, err := domain.ParseTransactionType(v["type"]); err == nil {
		a.Type = t
	}
	if s := v["description"]; s != "" {
		a.Description = s
	}
	if s := v["category"]; s != "" {
		a.Category = s
	}
	if d, ok := parseDate(v["date"]); ok {
		a.Date = d
	}
	return a, true
}

func (p *Parser) decodeGoal(f fields) (Action, bool) {
	v, ok := f.resolve(goalRules)
	if !ok {
		return nil, false
	}
	target, ok := parseAmount(v["target_amount"])
	if !ok {
		return nil, false
	}

	a := GoalAction{
		Name:          p.goalName,
		TargetAmount:  target,
		CurrentAmount: decimal.Zero,
	}
	if s := v["name"]; s != "" {
		a.Name = s
	}
	if s, present := v["current_amount"]; present {
		if current, ok := parseAmount(s); ok {
			a.CurrentAmount = current
		}
	}
	return a, true
}

func (p *Parser) decodeBudget(f fields) (Action, bool) {
	v, ok := f.resolve(budgetRules)
	if !ok {
		return nil, false
	}
	limit, ok := parseAmount(v["limit"])
	if !ok {
		return nil, false
	}

	a := BudgetAction{
		Category:    p.category,
		LimitAmount: limit,
		Month:       domain.MonthOf(p.now().In(p.location)),
	}
	if s := v["category"]; s != "" {
		a.Category = s
	}
	return a, true
}
