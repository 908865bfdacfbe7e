package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/database"
	"github.com/savannahq/pettycash/internal/notification"
	"gorm.io/gorm"
)

// NotificationRepository implements notification.Repository using GORM.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) notification.Repository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return database.FromContext(ctx, r.db).Omit("TransactionLog").Create(n).Error
}

func (r *NotificationRepository) CreateBatch(ctx context.Context, ns []*notification.Notification) error {
	return database.FromContext(ctx, r.db).Omit("TransactionLog").Create(&ns).Error
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID, readAt time.Time) (int64, error) {
	res := database.FromContext(ctx, r.db).
		Model(&notification.Notification{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", id, recipientID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": readAt,
		})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, readAt time.Time) (int64, error) {
	res := database.FromContext(ctx, r.db).
		Model(&notification.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": readAt,
		})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	var n notification.Notification
	err := database.FromContext(ctx, r.db).
		Preload("TransactionLog").
		Preload("TransactionLog.EventType").
		Preload("TransactionLog.Status").
		Where("id = ?", id).
		First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*notification.Notification, error) {
	var ns []*notification.Notification
	err := database.FromContext(ctx, r.db).
		Preload("TransactionLog").
		Preload("TransactionLog.EventType").
		Preload("TransactionLog.Status").
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&ns).Error
	return ns, err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := database.FromContext(ctx, r.db).
		Model(&notification.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}
