package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/database"
	"github.com/savannahq/pettycash/internal/status"
	"github.com/savannahq/pettycash/internal/topup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TopUpRepository implements topup.Repository using GORM.
type TopUpRepository struct {
	db *gorm.DB
}

func NewTopUpRepository(db *gorm.DB) topup.Repository {
	return &TopUpRepository{db: db}
}

func (r *TopUpRepository) Create(ctx context.Context, req *topup.Request) error {
	return database.FromContext(ctx, r.db).Omit("Account", "Status").Create(req).Error
}

func (r *TopUpRepository) GetByID(ctx context.Context, id uuid.UUID) (*topup.Request, error) {
	var req topup.Request
	err := database.FromContext(ctx, r.db).
		Preload("Status").
		Preload("Account").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrTopUpNotFound
		}
		return nil, err
	}
	return &req, nil
}

// GetByIDForUpdate locks the request row, then loads its status separately;
// FOR UPDATE cannot apply across a joined lookup table.
func (r *TopUpRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*topup.Request, error) {
	db := database.FromContext(ctx, r.db)

	var req topup.Request
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrTopUpNotFound
		}
		return nil, err
	}

	var st status.Status
	if err := db.Where("id = ?", req.StatusID).First(&st).Error; err != nil {
		return nil, err
	}
	req.Status = &st
	return &req, nil
}

func (r *TopUpRepository) Save(ctx context.Context, req *topup.Request) error {
	req.UpdatedAt = time.Now()
	return database.FromContext(ctx, r.db).Omit("Account", "Status").Save(req).Error
}

func (r *TopUpRepository) HasPendingForAccount(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var count int64
	err := database.FromContext(ctx, r.db).
		Model(&topup.Request{}).
		Joins("JOIN statuses ON statuses.id = topup_requests.status_id").
		Where("topup_requests.pettycash_account_id = ? AND statuses.code = ? AND topup_requests.is_active = ?",
			accountID, status.CodePending, true).
		Count(&count).Error
	return count > 0, err
}

func (r *TopUpRepository) ListAll(ctx context.Context, limit, offset int) ([]*topup.Request, error) {
	var reqs []*topup.Request
	err := database.FromContext(ctx, r.db).
		Preload("Status").
		Preload("Account").
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reqs).Error
	return reqs, err
}

func (r *TopUpRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*topup.Request, error) {
	var reqs []*topup.Request
	err := database.FromContext(ctx, r.db).
		Preload("Status").
		Preload("Account").
		Where("requested_by_id = ? AND is_active = ?", requesterID, true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reqs).Error
	return reqs, err
}

func (r *TopUpRepository) ListByStatus(ctx context.Context, statusCode string, limit, offset int) ([]*topup.Request, error) {
	var reqs []*topup.Request
	err := database.FromContext(ctx, r.db).
		Preload("Status").
		Preload("Account").
		Joins("JOIN statuses ON statuses.id = topup_requests.status_id").
		Where("statuses.code = ? AND topup_requests.is_active = ?", statusCode, true).
		Order("topup_requests.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reqs).Error
	return reqs, err
}

func (r *TopUpRepository) ListAutoTriggered(ctx context.Context, limit, offset int) ([]*topup.Request, error) {
	var reqs []*topup.Request
	err := database.FromContext(ctx, r.db).
		Preload("Status").
		Preload("Account").
		Where("is_auto_triggered = ? AND is_active = ?", true, true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reqs).Error
	return reqs, err
}
