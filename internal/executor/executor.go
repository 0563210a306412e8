// Package executor applies parsed actions to the user's records.
//
// Actions run one after another in the order they appeared. Each one has its
// own failure boundary: an error or panic produces a failed Result and the
// next action still runs. The Ledger is only changed after the data service
// confirms a write.
package executor

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finbot/internal/actions"
	"github.com/dvloznov/finbot/internal/catalog"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/locale"
	"github.com/rs/zerolog"
)

// DefaultGoalHorizon is how far ahead a new goal's target date is set.
const DefaultGoalHorizon = 90 * 24 * time.Hour

// Store is the part of the data service the executor writes to.
type Store interface {
	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	CreateGoal(ctx context.Context, g domain.Goal) (*domain.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]domain.Goal, error)
	CreateBudget(ctx context.Context, b domain.Budget) (*domain.Budget, error)
	ListBudgets(ctx context.Context, userID string, month domain.Month) ([]domain.Budget, error)
}

// Result is the outcome of one attempted action.
type Result struct {
	Kind      actions.Kind `json:"kind"`
	Succeeded bool         `json:"succeeded"`
	Summary   string       `json:"summary"`
}

// Ledger is the caller's local view of the user's records.
type Ledger struct {
	Transactions []domain.Transaction `json:"transactions"`
	Goals        []domain.Goal        `json:"goals"`
	Budgets      []domain.Budget      `json:"budgets"`
}

// TransactionHook is called after a transaction is stored.
type TransactionHook func(ctx context.Context, tx domain.Transaction)

// Executor applies actions against a Store.
type Executor struct {
	store   Store
	catalog *catalog.Catalog
	msgs    *locale.Messages
	money   *locale.Money
	now     func() time.Time
	horizon time.Duration
	onTx    TransactionHook
	log     zerolog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithCatalog resolves raw category ids through c. Unknown ids map to c's fallback.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Executor) { e.catalog = c }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithGoalHorizon overrides DefaultGoalHorizon.
func WithGoalHorizon(d time.Duration) Option {
	return func(e *Executor) { e.horizon = d }
}

// WithTransactionHook registers fn to run after every stored transaction.
func WithTransactionHook(fn TransactionHook) Option {
	return func(e *Executor) { e.onTx = fn }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// New creates an Executor.
func New(st Store, msgs *locale.Messages, money *locale.Money, opts ...Option) *Executor {
	e := &Executor{
		store:   st,
		msgs:    msgs,
		money:   money,
		now:     time.Now,
		horizon: DefaultGoalHorizon,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute applies acts in order and returns one Result per action.
func (e *Executor) Execute(ctx context.Context, userID string, ledger *Ledger, acts []actions.Action) []Result {
	results := make([]Result, 0, len(acts))
	for i, act := range acts {
		res := e.executeOne(ctx, userID, ledger, act)
		log := e.log.With().Str("user_id", userID).Int("index", i).Str("kind", string(res.Kind)).Logger()
		if res.Succeeded {
			log.Info().Msg("Action applied")
		} else {
			log.Warn().Msg("Action failed")
		}
		results = append(results, res)
	}
	return results
}

func (e *Executor) executeOne(ctx context.Context, userID string, ledger *Ledger, act actions.Action) (res Result) {
	res = Result{Kind: act.Kind(), Summary: e.msgs.ActionFailed}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("kind", string(res.Kind)).Msg("Panic while applying action")
			res = Result{Kind: act.Kind(), Summary: e.msgs.ActionFailed}
		}
	}()

	var (
		summary string
		err     error
	)
	switch a := act.(type) {
	case actions.TransactionAction:
		summary, err = e.transaction(ctx, userID, ledger, a)
	case actions.GoalAction:
		summary, err = e.goal(ctx, userID, ledger, a)
	case actions.BudgetAction:
		summary, err = e.budget(ctx, userID, ledger, a)
	default:
		err = fmt.Errorf("unsupported action %T", act)
	}
	if err != nil {
		e.log.Warn().Err(err).Str("kind", string(res.Kind)).Msg("Applying action")
		return res
	}
	return Result{Kind: act.Kind(), Succeeded: true, Summary: summary}
}

func (e *Executor) resolveCategory(raw string) string {
	if e.catalog == nil {
		if raw == "" {
			return "other"
		}
		return raw
	}
	id, ok := e.catalog.Resolve(raw)
	if !ok {
		e.log.Debug().Str("category", raw).Str("fallback", id).Msg("Unknown category")
	}
	return id
}

func (e *Executor) transaction(ctx context.Context, userID string, ledger *Ledger, a actions.TransactionAction) (string, error) {
	created, err := e.store.CreateTransaction(ctx, domain.Transaction{
		UserID:      userID,
		Type:        a.Type,
		Amount:      a.Amount,
		Description: a.Description,
		CategoryID:  e.resolveCategory(a.Category),
		Date:        a.Date,
	})
	if err != nil {
		return "", fmt.Errorf("transaction: %w", err)
	}

	ledger.Transactions = append([]domain.Transaction{*created}, ledger.Transactions...)
	if e.onTx != nil {
		e.onTx(ctx, *created)
	}

	format := e.msgs.Sent
	if created.Type == domain.Income {
		format = e.msgs.Received
	}
	return fmt.Sprintf(format, e.money.Format(created.Amount)), nil
}

func (e *Executor) goal(ctx context.Context, userID string, ledger *Ledger, a actions.GoalAction) (string, error) {
	target := civil.DateOf(e.now().Add(e.horizon))
	created, err := e.store.CreateGoal(ctx, domain.Goal{
		UserID:        userID,
		Name:          a.Name,
		TargetAmount:  a.TargetAmount,
		CurrentAmount: a.CurrentAmount,
		TargetDate:    &target,
	})
	if err != nil {
		return "", fmt.Errorf("goal: %w", err)
	}

	goals, err := e.store.ListGoals(ctx, userID)
	if err != nil {
		e.log.Warn().Err(err).Str("goal_id", created.ID).Msg("Refreshing goals after create")
	} else {
		ledger.Goals = goals
	}
	return fmt.Sprintf(e.msgs.GoalCreated, created.Name), nil
}

func (e *Executor) budget(ctx context.Context, userID string, ledger *Ledger, a actions.BudgetAction) (string, error) {
	month := a.Month
	if month.IsZero() {
		month = domain.MonthOf(e.now())
	}
	created, err := e.store.CreateBudget(ctx, domain.Budget{
		UserID:      userID,
		CategoryID:  e.resolveCategory(a.Category),
		LimitAmount: a.LimitAmount,
		Month:       month,
	})
	if err != nil {
		return "", fmt.Errorf("budget: %w", err)
	}

	budgets, err := e.store.ListBudgets(ctx, userID, month)
	if err != nil {
		e.log.Warn().Err(err).Str("budget_id", created.ID).Msg("Refreshing budgets after create")
	} else {
		ledger.Budgets = budgets
	}
	return e.msgs.BudgetCreated, nil
}
