package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/ledger"
	"github.com/savannahq/pettycash/internal/user"
)

// Repository defines the data access methods for notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	CreateBatch(ctx context.Context, ns []*Notification) error
	// MarkRead updates the row only when it belongs to the recipient and is
	// still unread; returns the rows affected.
	MarkRead(ctx context.Context, id, recipientID uuid.UUID, readAt time.Time) (int64, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, readAt time.Time) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	ListForRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*Notification, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

// Service creates notification records alongside ledger entries and owns the
// read/unread lifecycle.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Notify creates one notification linked to the given ledger entry. Invoked
// inside the workflow transaction so the entry and its notifications commit
// or roll back together.
func (s *Service) Notify(ctx context.Context, entry *ledger.Entry, recipientID uuid.UUID, channel Channel) (*Notification, error) {
	if channel == "" {
		channel = ChannelInApp
	}
	if !channel.Valid() {
		return nil, internal.NewValidationError("invalid notification channel", internal.ErrCodeValidationFailed)
	}

	n := &Notification{
		ID:               uuid.New(),
		TransactionLogID: entry.ID,
		RecipientID:      recipientID,
		Channel:          channel,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("failed to create notification",
			"transaction_log_id", entry.ID,
			"recipient_id", recipientID,
			"error", err)
		return nil, err
	}
	return n, nil
}

// NotifyMany fans one ledger entry out to multiple recipients.
func (s *Service) NotifyMany(ctx context.Context, entry *ledger.Entry, recipientIDs []uuid.UUID, channel Channel) ([]*Notification, error) {
	if channel == "" {
		channel = ChannelInApp
	}
	if !channel.Valid() {
		return nil, internal.NewValidationError("invalid notification channel", internal.ErrCodeValidationFailed)
	}
	if len(recipientIDs) == 0 {
		return nil, nil
	}

	ns := make([]*Notification, 0, len(recipientIDs))
	for _, rid := range recipientIDs {
		ns = append(ns, &Notification{
			ID:               uuid.New(),
			TransactionLogID: entry.ID,
			RecipientID:      rid,
			Channel:          channel,
		})
	}
	if err := s.repo.CreateBatch(ctx, ns); err != nil {
		s.logger.Error("failed to create notifications",
			"transaction_log_id", entry.ID,
			"recipients", len(recipientIDs),
			"error", err)
		return nil, err
	}
	return ns, nil
}

// MarkRead marks one notification read, scoped to the acting user. A
// notification that belongs to someone else or is already read is reported
// as not found: only unread rows of the actor are actionable.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID, actor *user.Actor) (*Notification, error) {
	affected, err := s.repo.MarkRead(ctx, id, actor.ID, time.Now())
	if err != nil {
		s.logger.Error("failed to mark notification read", "notification_id", id, "error", err)
		return nil, err
	}
	if affected == 0 {
		return nil, internal.ErrNotificationNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// MarkAllRead marks every unread notification of the actor read and returns
// the count affected; zero when nothing was unread.
func (s *Service) MarkAllRead(ctx context.Context, actor *user.Actor) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, actor.ID, time.Now())
	if err != nil {
		s.logger.Error("failed to mark all notifications read", "recipient_id", actor.ID, "error", err)
		return 0, err
	}
	s.logger.Info("notifications marked read", "recipient_id", actor.ID, "count", count)
	return count, nil
}

// ListForActor returns the actor's inbox, most recent first, with the
// underlying ledger entry context preloaded.
func (s *Service) ListForActor(ctx context.Context, actor *user.Actor, limit, offset int) ([]*Notification, error) {
	return s.repo.ListForRecipient(ctx, actor.ID, limit, offset)
}

// UnreadCount backs the badge counter.
func (s *Service) UnreadCount(ctx context.Context, actor *user.Actor) (int64, error) {
	return s.repo.CountUnread(ctx, actor.ID)
}
