// Package api assembles the finbot HTTP router.
package api

import (
	"net/http"

	"github.com/dvloznov/finbot/internal/api/handlers"
	"github.com/dvloznov/finbot/internal/api/middleware"
	"github.com/dvloznov/finbot/internal/jobs"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Deps are the services behind the router. Jobs may be nil when the Notion
// mirror is disabled.
type Deps struct {
	Repository    store.Repository
	Conversations handlers.ConversationSource
	Jobs          jobs.JobStore
	OnChange      handlers.ChangeFunc
	Limiter       *rate.Limiter
	MaxImageBytes int64
	Clock         handlers.Clock
	Logger        zerolog.Logger
}

// NewRouter builds the router with the middleware chain
// Recovery, RequestID, Logger, CORS, RateLimit and, under /api, Auth.
func NewRouter(deps Deps) http.Handler {
	chatHandler := handlers.NewChatHandler(deps.Conversations, deps.MaxImageBytes)
	ledgerHandler := handlers.NewLedgerHandler(deps.Repository, deps.Clock, deps.OnChange)
	reportsHandler := handlers.NewReportsHandler(deps.Repository, deps.Clock)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS)
	if deps.Limiter != nil {
		r.Use(middleware.RateLimit(deps.Limiter))
	}

	r.Get("/health", handlers.Health(deps.Clock))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth)

		r.Route("/chat", func(r chi.Router) {
			r.Post("/messages", chatHandler.SendMessage)
			r.Post("/images", chatHandler.SendImage)
			r.Get("/turns", chatHandler.ListTurns)
			r.Delete("/", chatHandler.NewConversation)
		})

		r.Get("/transactions", ledgerHandler.ListTransactions)
		r.Post("/transactions", ledgerHandler.CreateTransaction)
		r.Delete("/transactions/{id}", ledgerHandler.DeleteTransaction)

		r.Get("/goals", ledgerHandler.ListGoals)
		r.Post("/goals", ledgerHandler.CreateGoal)
		r.Delete("/goals/{id}", ledgerHandler.DeleteGoal)

		r.Get("/budgets", ledgerHandler.ListBudgets)
		r.Post("/budgets", ledgerHandler.CreateBudget)
		r.Delete("/budgets/{id}", ledgerHandler.DeleteBudget)

		r.Get("/investments", ledgerHandler.ListInvestments)
		r.Post("/investments", ledgerHandler.CreateInvestment)
		r.Delete("/investments/{id}", ledgerHandler.DeleteInvestment)

		r.Get("/categories", reportsHandler.ListCategories)
		r.Get("/summary", reportsHandler.Summary)
		r.Get("/reports/monthly", reportsHandler.MonthlyReport)

		if deps.Jobs != nil {
			jobsHandler := handlers.NewJobsHandler(deps.Jobs)
			r.Get("/jobs", jobsHandler.ListJobs)
			r.Get("/jobs/{id}", jobsHandler.GetJob)
		}
	})

	return r
}
