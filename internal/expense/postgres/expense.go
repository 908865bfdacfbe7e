package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/database"
	"github.com/savannahq/pettycash/internal/expense"
	"github.com/savannahq/pettycash/internal/status"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExpenseRepository implements expense.Repository using GORM.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, req *expense.Request) error {
	return database.FromContext(ctx, r.db).Omit("Status").Create(req).Error
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*expense.Request, error) {
	var req expense.Request
	err := database.FromContext(ctx, r.db).
		Preload("Status").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, err
	}
	return &req, nil
}

// GetByIDForUpdate locks the request row, then loads its status separately;
// FOR UPDATE cannot apply across a joined lookup table.
func (r *ExpenseRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*expense.Request, error) {
	db := database.FromContext(ctx, r.db)

	var req expense.Request
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrExpenseNotFound
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

func (r *ExpenseRepository) Save(ctx context.Context, req *expense.Request) error {
	req.UpdatedAt = time.Now()
	return database.FromContext(ctx, r.db).Omit("Status").Save(req).Error
}

func (r *ExpenseRepository) ListAll(ctx context.Context, limit, offset int) ([]*expense.Request, error) {
	var reqs []*expense.Request
	err := database.FromContext(ctx, r.db).
		Preload("Status").
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reqs).Error
	return reqs, err
}

func (r *ExpenseRepository) ListByEmployee(ctx context.Context, employeeID uuid.UUID, limit, offset int) ([]*expense.Request, error) {
	var reqs []*expense.Request
	err := database.FromContext(ctx, r.db).
		Preload("Status").
		Where("employee_id = ? AND is_active = ?", employeeID, true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reqs).Error
	return reqs, err
}
