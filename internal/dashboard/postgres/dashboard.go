package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/savannahq/pettycash/internal/core/database"
	"github.com/savannahq/pettycash/internal/dashboard"
	"github.com/savannahq/pettycash/internal/ledger"
	"gorm.io/gorm"
)

// DashboardRepository implements dashboard.Repository with GROUP BY
// aggregates over the workflow tables. Read-only.
type DashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) dashboard.Repository {
	return &DashboardRepository{db: db}
}

type statusCount struct {
	Code  string
	Total int64
}

func (r *DashboardRepository) CountExpensesByStatus(ctx context.Context, employeeID *uuid.UUID) (dashboard.StatusCounts, error) {
	q := database.FromContext(ctx, r.db).
		Table("expense_requests").
		Select("statuses.code AS code, COUNT(*) AS total").
		Joins("JOIN statuses ON statuses.id = expense_requests.status_id").
		Where("expense_requests.is_active = ?", true)
	if employeeID != nil {
		q = q.Where("expense_requests.employee_id = ?", *employeeID)
	}
	return scanCounts(q)
}

func (r *DashboardRepository) CountTopUpsByStatus(ctx context.Context, requesterID *uuid.UUID) (dashboard.StatusCounts, error) {
	q := database.FromContext(ctx, r.db).
		Table("topup_requests").
		Select("statuses.code AS code, COUNT(*) AS total").
		Joins("JOIN statuses ON statuses.id = topup_requests.status_id").
		Where("topup_requests.is_active = ?", true)
	if requesterID != nil {
		q = q.Where("topup_requests.requested_by_id = ?", *requesterID)
	}
	return scanCounts(q)
}

func (r *DashboardRepository) CountReconciliationsByStatus(ctx context.Context, submitterID *uuid.UUID) (dashboard.StatusCounts, error) {
	q := database.FromContext(ctx, r.db).
		Table("disbursement_reconciliations").
		Select("statuses.code AS code, COUNT(*) AS total").
		Joins("JOIN statuses ON statuses.id = disbursement_reconciliations.status_id").
		Where("disbursement_reconciliations.is_active = ?", true)
	if submitterID != nil {
		q = q.Where("disbursement_reconciliations.submitted_by_id = ?", *submitterID)
	}
	return scanCounts(q)
}

// CountExpenseDecisions reads the transaction log rather than the request
// rows so decisions on since-deactivated requests still count.
func (r *DashboardRepository) CountExpenseDecisions(ctx context.Context, since time.Time) (int64, int64, error) {
	var results []statusCount
	err := database.FromContext(ctx, r.db).
		Table("transaction_logs").
		Select("event_types.code AS code, COUNT(*) AS total").
		Joins("JOIN event_types ON event_types.id = transaction_logs.event_type_id").
		Where("event_types.code IN ?", []string{ledger.EventExpenseApproved, ledger.EventExpenseRejected}).
		Where("transaction_logs.created_at >= ?", since).
		Group("event_types.code").
		Scan(&results).Error
	if err != nil {
		return 0, 0, err
	}

	var approved, rejected int64
	for _, row := range results {
		switch row.Code {
		case ledger.EventExpenseApproved:
			approved = row.Total
		case ledger.EventExpenseRejected:
			rejected = row.Total
		}
	}
	return approved, rejected, nil
}

func scanCounts(q *gorm.DB) (dashboard.StatusCounts, error) {
	var results []statusCount
	if err := q.Group("statuses.code").Scan(&results).Error; err != nil {
		return nil, err
	}
	counts := make(dashboard.StatusCounts, len(results))
	for _, row := range results {
		counts[row.Code] = row.Total
	}
	return counts, nil
}
