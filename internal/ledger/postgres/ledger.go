package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/database"
	"github.com/savannahq/pettycash/internal/ledger"
	"gorm.io/gorm"
)

// LedgerRepository implements ledger.Repository using GORM. Append-only:
// there is deliberately no Update or Delete method on this type.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) ledger.Repository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	// Omit associations so an entry can never mutate its lookups.
	return database.FromContext(ctx, r.db).
		Omit("EventType", "Status").
		Create(entry).Error
}

func (r *LedgerRepository) GetEventTypeByCode(ctx context.Context, code string) (*ledger.EventType, error) {
	var et ledger.EventType
	err := database.FromContext(ctx, r.db).
		Where("code = ? AND is_active = ?", code, true).
		First(&et).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.NewNotFoundError("event type not found: "+code, internal.ErrCodeUnknownEventType)
		}
		return nil, err
	}
	return &et, nil
}

func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	var entry ledger.Entry
	err := database.FromContext(ctx, r.db).
		Preload("EventType").
		Preload("Status").
		Where("id = ?", id).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.NewNotFoundError("transaction log entry not found", internal.ErrCodeAuditWriteFailed)
		}
		return nil, err
	}
	return &entry, nil
}

func (r *LedgerRepository) ListForEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	err := database.FromContext(ctx, r.db).
		Preload("EventType").
		Preload("Status").
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}

func (r *LedgerRepository) ListByEventCode(ctx context.Context, eventCode string, limit, offset int) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	err := database.FromContext(ctx, r.db).
		Preload("EventType").
		Preload("Status").
		Joins("JOIN event_types ON event_types.id = transaction_logs.event_type_id").
		Where("event_types.code = ?", eventCode).
		Order("transaction_logs.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}

func (r *LedgerRepository) ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	err := database.FromContext(ctx, r.db).
		Preload("EventType").
		Preload("Status").
		Where("triggered_by_id = ?", actorID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}
