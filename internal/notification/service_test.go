package notification_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/ledger"
	"github.com/savannahq/pettycash/internal/notification"
	"github.com/savannahq/pettycash/internal/user"
)

func TestNotificationService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "NotificationService Suite")
}

// Mock repository for testing
type mockNotificationRepository struct {
	notifications map[uuid.UUID]*notification.Notification
}

func newMockNotificationRepository() *mockNotificationRepository {
	return &mockNotificationRepository{notifications: make(map[uuid.UUID]*notification.Notification)}
}

func (m *mockNotificationRepository) Create(_ context.Context, n *notification.Notification) error {
	m.notifications[n.ID] = n
	return nil
}

func (m *mockNotificationRepository) CreateBatch(_ context.Context, ns []*notification.Notification) error {
	for _, n := range ns {
		m.notifications[n.ID] = n
	}
	return nil
}

func (m *mockNotificationRepository) MarkRead(_ context.Context, id, recipientID uuid.UUID, readAt time.Time) (int64, error) {
	n, ok := m.notifications[id]
	if !ok || n.RecipientID != recipientID || n.IsRead {
		return 0, nil
	}
	n.IsRead = true
	n.ReadAt = &readAt
	return 1, nil
}

func (m *mockNotificationRepository) MarkAllRead(_ context.Context, recipientID uuid.UUID, readAt time.Time) (int64, error) {
	var count int64
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &readAt
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepository) GetByID(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	n, ok := m.notifications[id]
	if !ok {
		return nil, internal.ErrNotificationNotFound
	}
	return n, nil
}

func (m *mockNotificationRepository) ListForRecipient(_ context.Context, recipientID uuid.UUID, limit, offset int) ([]*notification.Notification, error) {
	out := make([]*notification.Notification, 0)
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepository) CountUnread(_ context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

var _ = Describe("NotificationService", func() {
	var (
		svc      *notification.Service
		mockRepo *mockNotificationRepository
		entry    *ledger.Entry
		actor    *user.Actor
		stranger *user.Actor
		ctx      context.Context
	)

	BeforeEach(func() {
		mockRepo = newMockNotificationRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = notification.NewService(mockRepo, logger)

		entry = &ledger.Entry{ID: uuid.New(), EventMessage: "Expense approved"}
		actor = &user.Actor{ID: uuid.New(), Email: "jane@savannah.example"}
		stranger = &user.Actor{ID: uuid.New(), Email: "joe@savannah.example"}
		ctx = context.Background()
	})

	Describe("Notify", func() {
		It("should create an unread in-app notification linked to the ledger entry", func() {
			n, err := svc.Notify(ctx, entry, actor.ID, "")

			Expect(err).ToNot(HaveOccurred())
			Expect(n.TransactionLogID).To(Equal(entry.ID))
			Expect(n.RecipientID).To(Equal(actor.ID))
			Expect(n.Channel).To(Equal(notification.ChannelInApp))
			Expect(n.IsRead).To(BeFalse())
		})

		It("should reject an unknown channel", func() {
			_, err := svc.Notify(ctx, entry, actor.ID, notification.Channel("pigeon"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("NotifyMany", func() {
		It("should fan out to every recipient", func() {
			recipients := []uuid.UUID{actor.ID, stranger.ID}

			ns, err := svc.NotifyMany(ctx, entry, recipients, notification.ChannelInApp)

			Expect(err).ToNot(HaveOccurred())
			Expect(ns).To(HaveLen(2))
			count, err := svc.UnreadCount(ctx, actor)
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("should do nothing for an empty recipient list", func() {
			ns, err := svc.NotifyMany(ctx, entry, nil, notification.ChannelInApp)
			Expect(err).ToNot(HaveOccurred())
			Expect(ns).To(BeNil())
		})
	})

	Describe("MarkRead", func() {
		It("should mark the actor's own notification read", func() {
			n, err := svc.Notify(ctx, entry, actor.ID, notification.ChannelInApp)
			Expect(err).ToNot(HaveOccurred())

			read, err := svc.MarkRead(ctx, n.ID, actor)

			Expect(err).ToNot(HaveOccurred())
			Expect(read.IsRead).To(BeTrue())
			Expect(read.ReadAt).ToNot(BeNil())
		})

		It("should report someone else's notification as not found", func() {
			n, err := svc.Notify(ctx, entry, actor.ID, notification.ChannelInApp)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.MarkRead(ctx, n.ID, stranger)

			Expect(err).To(Equal(internal.ErrNotificationNotFound))
		})

		It("should report an already-read notification as not found", func() {
			n, err := svc.Notify(ctx, entry, actor.ID, notification.ChannelInApp)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.MarkRead(ctx, n.ID, actor)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.MarkRead(ctx, n.ID, actor)

			Expect(err).To(Equal(internal.ErrNotificationNotFound))
		})
	})

	Describe("MarkAllRead", func() {
		It("should mark only the actor's unread notifications", func() {
			for range [3]struct{}{} {
				_, err := svc.Notify(ctx, entry, actor.ID, notification.ChannelInApp)
				Expect(err).ToNot(HaveOccurred())
			}
			_, err := svc.Notify(ctx, entry, stranger.ID, notification.ChannelInApp)
			Expect(err).ToNot(HaveOccurred())

			count, err := svc.MarkAllRead(ctx, actor)

			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(Equal(int64(3)))

			unread, err := svc.UnreadCount(ctx, actor)
			Expect(err).ToNot(HaveOccurred())
			Expect(unread).To(BeZero())

			strangerUnread, err := svc.UnreadCount(ctx, stranger)
			Expect(err).ToNot(HaveOccurred())
			Expect(strangerUnread).To(Equal(int64(1)))
		})

		It("should return zero when nothing was unread", func() {
			count, err := svc.MarkAllRead(ctx, actor)
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})
})
