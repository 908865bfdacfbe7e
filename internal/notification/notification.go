package notification

import (
	"time"

	"github.com/google/uuid"
	"github.com/savannahq/pettycash/internal/ledger"
)

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelInApp, ChannelSMS, ChannelEmail:
		return true
	}
	return false
}

// Notification addresses one ledger entry to one recipient. Delivery over
// the channel (SMS/email rendering) is an external concern; this record is
// the in-app inbox row and the read/unread lifecycle.
type Notification struct {
	ID               uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	TransactionLogID uuid.UUID     `json:"transaction_log_id" gorm:"type:uuid;not null;index:idx_notifications_inbox"`
	TransactionLog   *ledger.Entry `json:"transaction_log,omitempty" gorm:"foreignKey:TransactionLogID"`

	RecipientID uuid.UUID  `json:"recipient_id" gorm:"type:uuid;not null;index:idx_notifications_inbox"`
	Channel     Channel    `json:"channel" gorm:"default:in_app"`
	IsRead      bool       `json:"is_read" gorm:"default:false;index:idx_notifications_inbox"`
	ReadAt      *time.Time `json:"read_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// MarkRead flips the read flag and stamps read_at; clearing the flag also
// clears the stamp.
func (n *Notification) MarkRead(now time.Time) {
	n.IsRead = true
	n.ReadAt = &now
}

func (n *Notification) MarkUnread() {
	n.IsRead = false
	n.ReadAt = nil
}
