package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finbot/internal/api/middleware"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/logger"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ChangeFunc is called after a user's records change outside the chat.
type ChangeFunc func(ctx context.Context, userID string)

// LedgerHandler handles the transaction, goal, budget and investment endpoints.
type LedgerHandler struct {
	repo     store.Repository
	now      Clock
	onChange ChangeFunc
}

// NewLedgerHandler creates a ledger handler. onChange may be nil.
func NewLedgerHandler(repo store.Repository, now Clock, onChange ChangeFunc) *LedgerHandler {
	return &LedgerHandler{repo: repo, now: orNow(now), onChange: onChange}
}

func (h *LedgerHandler) changed(r *http.Request, userID string) {
	if h.onChange != nil {
		h.onChange(r.Context(), userID)
	}
}

// ListTransactions handles GET /api/transactions
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := store.TransactionFilter{CategoryID: query.Get("category_id")}
	if t := query.Get("type"); t != "" {
		typ, err := domain.ParseTransactionType(t)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid type")
			return
		}
		filter.Type = typ
	}
	if m := query.Get("month"); m != "" {
		month, err := domain.ParseMonth(m)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid month format")
			return
		}
		filter.Month = &month
	}
	if l := query.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	txs, err := h.repo.ListTransactions(ctx, middleware.UserIDFromContext(ctx), filter)
	if err != nil {
		writeStoreError(w, logger.FromContext(ctx), err, "transactions")
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// CreateTransaction handles POST /api/transactions
func (h *LedgerHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Type        string          `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		CategoryID  string          `json:"category_id"`
		Date        string          `json:"date"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	typ, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "type must be income or expense")
		return
	}
	date := civil.DateOf(h.now())
	if req.Date != "" {
		date, err = civil.ParseDate(req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date format, want YYYY-MM-DD")
			return
		}
	}

	userID := middleware.UserIDFromContext(ctx)
	tx, err := h.repo.CreateTransaction(ctx, domain.Transaction{
		UserID:      userID,
		Type:        typ,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		CategoryID:  req.CategoryID,
		Date:        date,
	})
	if err != nil {
		writeStoreError(w, logger.FromContext(ctx), err, "transaction")
		return
	}
	h.changed(r, userID)
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *LedgerHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "transaction", h.repo.DeleteTransaction, true)
}

// ListGoals handles GET /api/goals
func (h *LedgerHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	goals, err := h.repo.ListGoals(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		writeStoreError(w, logger.FromContext(ctx), err, "goals")
		return
	}
	if goals == nil {
		goals = []domain.Goal{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"goals": goals,
		"count": len(goals),
	})
}

// CreateGoal handles POST /api/goals
func (h *LedgerHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		TargetDate    string          `json:"target_date"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := middleware.UserIDFromContext(ctx)
	goal := domain.Goal{
		UserID:        userID,
		Name:          strings.TrimSpace(req.Name),
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
	}
	if req.TargetDate != "" {
		d, err := civil.ParseDate(req.TargetDate)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid target_date format, want YYYY-MM-DD")
			return
		}
		goal.TargetDate = &d
	}

	created, err := h.repo.CreateGoal(ctx, goal)
	if err != nil {
		writeStoreError(w, logger.FromContext(ctx), err, "goal")
		return
	}
	h.changed(r, userID)
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// DeleteGoal handles DELETE /api/goals/{id}
func (h *LedgerHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "goal", h.repo.DeleteGoal, true)
}

// ListBudgets handles GET /api/budgets?month=YYYY-MM
func (h *LedgerHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	month, err := monthParam(r, h.now)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid month format")
		return
	}

	budgets, err := h.repo.ListBudgets(ctx, middleware.UserIDFromContext(ctx), month)
	if err != nil {
		writeStoreError(w, logger.FromContext(ctx), err, "budgets")
		return
	}
	if budgets == nil {
		budgets = []domain.Budget{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"month":   month,
		"budgets": budgets,
		"count":   len(budgets),
	})
}

// CreateBudget handles POST /api/budgets
func (h *LedgerHandler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		CategoryID  string          `json:"category_id"`
		LimitAmount decimal.Decimal `json:"limit_amount"`
		Month       string          `json:"month"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	month := domain.MonthOf(h.now())
	if req.Month != "" {
		m, err := domain.ParseMonth(req.Month)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid month format")
			return
		}
		month = m
	}

	userID := middleware.UserIDFromContext(ctx)
	budget, err := h.repo.CreateBudget(ctx, domain.Budget{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		LimitAmount: req.LimitAmount,
		Month:       month,
	})
	if err != nil {
		writeStoreError(w, logger.FromContext(ctx), err, "budget")
		return
	}
	h.changed(r, userID)
	middleware.WriteJSON(w, http.StatusCreated, budget)
}

// DeleteBudget handles DELETE /api/budgets/{id}
func (h *LedgerHandler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "budget", h.repo.DeleteBudget, true)
}

// ListInvestments handles GET /api/investments
func (h *LedgerHandler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	investments, err := h.repo.ListInvestments(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		writeStoreError(w, logger.FromContext(ctx), err, "investments")
		return
	}
	if investments == nil {
		investments = []domain.Investment{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"investments": investments,
		"count":       len(investments),
	})
}

// CreateInvestment handles POST /api/investments
func (h *LedgerHandler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name   string          `json:"name"`
		Type   string          `json:"type"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inv, err := h.repo.CreateInvestment(ctx, domain.Investment{
		UserID: middleware.UserIDFromContext(ctx),
		Name:   strings.TrimSpace(req.Name),
		Type:   domain.InvestmentType(strings.ToLower(req.Type)),
		Amount: req.Amount,
	})
	if err != nil {
		writeStoreError(w, logger.FromContext(ctx), err, "investment")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, inv)
}

// DeleteInvestment handles DELETE /api/investments/{id}
func (h *LedgerHandler) DeleteInvestment(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "investment", h.repo.DeleteInvestment, false)
}

func (h *LedgerHandler) remove(w http.ResponseWriter, r *http.Request, what string, del func(ctx context.Context, userID, id string) error, notify bool) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)
	id := chi.URLParam(r, "id")

	if err := del(ctx, userID, id); err != nil {
		writeStoreError(w, logger.FromContext(ctx), err, what)
		return
	}
	if notify {
		h.changed(r, userID)
	}
	w.WriteHeader(http.StatusNoContent)
}
