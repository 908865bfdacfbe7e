package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/database"
	"github.com/savannahq/pettycash/internal/reconciliation"
	"github.com/savannahq/pettycash/internal/status"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReconciliationRepository implements reconciliation.Repository using GORM.
type ReconciliationRepository struct {
	db *gorm.DB
}

func NewReconciliationRepository(db *gorm.DB) reconciliation.Repository {
	return &ReconciliationRepository{db: db}
}

func (r *ReconciliationRepository) Create(ctx context.Context, rec *reconciliation.Reconciliation) error {
	return database.FromContext(ctx, r.db).Omit("Status").Create(rec).Error
}

func (r *ReconciliationRepository) GetByID(ctx context.Context, id uuid.UUID) (*reconciliation.Reconciliation, error) {
	var rec reconciliation.Reconciliation
	err := database.FromContext(ctx, r.db).
		Preload("Status").
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrReconciliationNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// GetByIDForUpdate locks the reconciliation row, then loads its status
// separately; FOR UPDATE cannot apply across a joined lookup table.
func (r *ReconciliationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*reconciliation.Reconciliation, error) {
	db := database.FromContext(ctx, r.db)

	var rec reconciliation.Reconciliation
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrReconciliationNotFound
		}
		return nil, err
	}

	var st status.Status
	if err := db.Where("id = ?", rec.StatusID).First(&st).Error; err != nil {
		return nil, err
	}
	rec.Status = &st
	return &rec, nil
}

func (r *ReconciliationRepository) GetByExpenseID(ctx context.Context, expenseID uuid.UUID) (*reconciliation.Reconciliation, error) {
	var rec reconciliation.Reconciliation
	err := database.FromContext(ctx, r.db).
		Preload("Status").
		Where("expense_request_id = ?", expenseID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrReconciliationNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *ReconciliationRepository) Save(ctx context.Context, rec *reconciliation.Reconciliation) error {
	rec.UpdatedAt = time.Now()
	return database.FromContext(ctx, r.db).Omit("Status").Save(rec).Error
}

func (r *ReconciliationRepository) ListAll(ctx context.Context, limit, offset int) ([]*reconciliation.Reconciliation, error) {
	var recs []*reconciliation.Reconciliation
	err := database.FromContext(ctx, r.db).
		Preload("Status").
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	return recs, err
}

func (r *ReconciliationRepository) ListBySubmitter(ctx context.Context, submitterID uuid.UUID, limit, offset int) ([]*reconciliation.Reconciliation, error) {
	var recs []*reconciliation.Reconciliation
	err := database.FromContext(ctx, r.db).
		Preload("Status").
		Where("submitted_by_id = ? AND is_active = ?", submitterID, true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	return recs, err
}

func (r *ReconciliationRepository) ListByStatus(ctx context.Context, statusCode string, limit, offset int) ([]*reconciliation.Reconciliation, error) {
	var recs []*reconciliation.Reconciliation
	err := database.FromContext(ctx, r.db).
		Preload("Status").
		Joins("JOIN statuses ON statuses.id = disbursement_reconciliations.status_id").
		Where("statuses.code = ? AND disbursement_reconciliations.is_active = ?", statusCode, true).
		Order("disbursement_reconciliations.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	return recs, err
}
