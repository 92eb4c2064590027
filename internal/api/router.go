package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/crossledger/reconciler/internal/ingestion"
	"github.com/crossledger/reconciler/internal/reconciliation"
	"github.com/crossledger/reconciler/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	txnRepo *repository.TransactionRepo,
	engine *reconciliation.Engine,
	ingestionSvc *ingestion.Service,
	log *logrus.Logger,
) http.Handler {
	h := &Handlers{
		txnRepo:      txnRepo,
		engine:       engine,
		ingestionSvc: ingestionSvc,
		log:          log,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Transactions.
		r.Post("/transactions", h.CreateTransaction)
		r.Post("/transactions/import", h.ImportTransactions)
		r.Get("/transactions", h.ListTransactions)
		r.Get("/transactions/{id}", h.GetTransaction)
		r.Post("/transactions/{id}/reconcile", h.ReconcileTransaction)

		// Reconciliation.
		r.Get("/reconciliation/summary", h.GetReconciliationSummary)

		// Health.
		r.Get("/health", h.Health)
	})

	return r
}
