package postgres

import (
	"context"
	"errors"

	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/database"
	"github.com/savannahq/pettycash/internal/status"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusRepository implements status.Repository using GORM.
type StatusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) status.Repository {
	return &StatusRepository{db: db}
}

func (r *StatusRepository) GetByCode(ctx context.Context, code string) (*status.Status, error) {
	var st status.Status
	err := database.FromContext(ctx, r.db).Where("code = ?", code).First(&st).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrStatusNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (r *StatusRepository) GetByID(ctx context.Context, id uuid.UUID) (*status.Status, error) {
	var st status.Status
	err := database.FromContext(ctx, r.db).Where("id = ?", id).First(&st).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrStatusNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (r *StatusRepository) ListAll(ctx context.Context) ([]*status.Status, error) {
	var statuses []*status.Status
	err := database.FromContext(ctx, r.db).Order("code ASC").Find(&statuses).Error
	return statuses, err
}
