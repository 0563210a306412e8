package handlers

import (
	"net/http"

	"github.com/dvloznov/finbot/internal/api/middleware"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/logger"
	"github.com/dvloznov/finbot/internal/store"
	"golang.org/x/sync/errgroup"
)

// ReportsHandler handles categories, summary and report endpoints.
type ReportsHandler struct {
	repo store.Repository
	now  Clock
}

// NewReportsHandler creates a reports handler.
func NewReportsHandler(repo store.Repository, now Clock) *ReportsHandler {
	return &ReportsHandler{repo: repo, now: orNow(now)}
}

// ListCategories handles GET /api/categories
func (h *ReportsHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categories, err := h.repo.ListCategories(ctx)
	if err != nil {
		writeStoreError(w, logger.FromContext(ctx), err, "categories")
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// Summary handles GET /api/summary
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	month := domain.MonthOf(h.now())

	txs, err := h.repo.ListTransactions(ctx, middleware.UserIDFromContext(ctx), store.TransactionFilter{Month: &month})
	if err != nil {
		writeStoreError(w, logger.FromContext(ctx), err, "summary")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, domain.Summarize(txs, month))
}

// MonthlyReport handles GET /api/reports/monthly?month=YYYY-MM
func (h *ReportsHandler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	month, err := monthParam(r, h.now)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid month format")
		return
	}

	var (
		txs     []domain.Transaction
		budgets []domain.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = h.repo.ListTransactions(gctx, userID, store.TransactionFilter{Month: &month})
		return err
	})
	g.Go(func() error {
		var err error
		budgets, err = h.repo.ListBudgets(gctx, userID, month)
		return err
	})
	if err := g.Wait(); err != nil {
		writeStoreError(w, logger.FromContext(ctx), err, "report")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, domain.BuildMonthlyReport(month, txs, budgets))
}
