package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/database"
	"github.com/savannahq/pettycash/internal/pettycash"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepository implements pettycash.Repository using GORM.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) pettycash.Repository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *pettycash.Account) error {
	return database.FromContext(ctx, r.db).Create(account).Error
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*pettycash.Account, error) {
	var account pettycash.Account
	err := database.FromContext(ctx, r.db).
		Where("id = ? AND is_active = ?", id, true).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*pettycash.Account, error) {
	var account pettycash.Account
	err := database.FromContext(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) Save(ctx context.Context, account *pettycash.Account) error {
	account.UpdatedAt = time.Now()
	return database.FromContext(ctx, r.db).Save(account).Error
}

func (r *AccountRepository) HasActiveAccount(ctx context.Context) (bool, error) {
	var count int64
	err := database.FromContext(ctx, r.db).
		Model(&pettycash.Account{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count > 0, err
}

func (r *AccountRepository) ListActive(ctx context.Context) ([]*pettycash.Account, error) {
	var accounts []*pettycash.Account
	err := database.FromContext(ctx, r.db).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&accounts).Error
	return accounts, err
}
