package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/savannahq/pettycash/internal/dashboard"
	"github.com/savannahq/pettycash/internal/expense"
	"github.com/savannahq/pettycash/internal/ledger"
	"github.com/savannahq/pettycash/internal/notification"
	"github.com/savannahq/pettycash/internal/pettycash"
	"github.com/savannahq/pettycash/internal/reconciliation"
	"github.com/savannahq/pettycash/internal/topup"
	"github.com/savannahq/pettycash/internal/transport/middleware"
)

func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	accountHandler *pettycash.Handler,
	expenseHandler *expense.Handler,
	topupHandler *topup.Handler,
	reconciliationHandler *reconciliation.Handler,
	notificationHandler *notification.Handler,
	ledgerHandler *ledger.Handler,
	dashboardHandler *dashboard.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Identity arrives via gateway headers; everything below needs it.
		r.Group(func(pr chi.Router) {
			pr.Use(middleware.ActorMiddleware(logger))

			if accountHandler != nil {
				pr.Route("/accounts", func(ar chi.Router) {
					ar.Post("/", accountHandler.CreateAccount)
					ar.Get("/", accountHandler.ListAccounts)
					ar.Get("/{id}", accountHandler.GetAccount)
					ar.Patch("/{id}", accountHandler.UpdateAccount)
					ar.Delete("/{id}", accountHandler.DeactivateAccount)

					if topupHandler != nil {
						ar.Post("/{accountID}/topups", topupHandler.CreateTopUp)
					}
				})
			}

			if expenseHandler != nil {
				pr.Route("/expenses", func(er chi.Router) {
					er.Post("/", expenseHandler.CreateExpense)
					er.Get("/", expenseHandler.ListExpenses)
					er.Get("/{id}", expenseHandler.GetExpense)
					er.Patch("/{id}", expenseHandler.UpdateExpense)
					er.Delete("/{id}", expenseHandler.DeactivateExpense)
					er.Patch("/{id}/decide", expenseHandler.DecideExpense)
					er.Patch("/{id}/disburse", expenseHandler.DisburseExpense)

					if reconciliationHandler != nil {
						er.Get("/{expenseID}/reconciliation", reconciliationHandler.GetByExpense)
					}
				})
			}

			if topupHandler != nil {
				pr.Route("/topups", func(tr chi.Router) {
					tr.Get("/", topupHandler.ListTopUps)
					tr.Get("/{id}", topupHandler.GetTopUp)
					tr.Patch("/{id}", topupHandler.UpdateTopUp)
					tr.Delete("/{id}", topupHandler.DeactivateTopUp)
					tr.Patch("/{id}/decide", topupHandler.DecideTopUp)
					tr.Patch("/{id}/disburse", topupHandler.DisburseTopUp)
				})
			}

			if reconciliationHandler != nil {
				pr.Route("/reconciliations", func(rr chi.Router) {
					rr.Get("/", reconciliationHandler.ListReconciliations)
					rr.Get("/{id}", reconciliationHandler.GetReconciliation)
					rr.Patch("/{id}/receipts", reconciliationHandler.SubmitReceipt)
					rr.Patch("/{id}/review", reconciliationHandler.ReviewReconciliation)
				})
			}

			if notificationHandler != nil {
				pr.Route("/notifications", func(nr chi.Router) {
					nr.Get("/", notificationHandler.ListNotifications)
					nr.Get("/unread-count", notificationHandler.UnreadCount)
					nr.Patch("/{id}/read", notificationHandler.MarkRead)
					nr.Patch("/read-all", notificationHandler.MarkAllRead)
				})
			}

			if ledgerHandler != nil {
				pr.Route("/transaction-logs", func(lr chi.Router) {
					lr.Get("/", ledgerHandler.ListEntries)
					lr.Get("/{id}", ledgerHandler.GetEntry)
				})
			}

			if dashboardHandler != nil {
				pr.Get("/dashboard", dashboardHandler.GetOverview)
			}
		})
	})
}
