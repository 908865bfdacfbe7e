package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/savannahq/pettycash/internal/status"
)

// EntityKind enumerates the entity types a ledger entry may reference. The
// table stores the reference as plain strings so it can describe any row
// without owning it; the enum keeps call sites exhaustive.
type EntityKind string

const (
	EntityPettyCashAccount EntityKind = "PettyCashAccount"
	EntityExpenseRequest   EntityKind = "ExpenseRequest"
	EntityTopUpRequest     EntityKind = "TopUpRequest"
	EntityReconciliation   EntityKind = "DisbursementReconciliation"
	EntityUser             EntityKind = "User"
)

// EntityRef is a typed back-reference to the entity an entry describes.
// The ledger never cascades from it.
type EntityRef struct {
	Kind EntityKind
	ID   uuid.UUID
}

func RefAccount(id uuid.UUID) EntityRef        { return EntityRef{Kind: EntityPettyCashAccount, ID: id} }
func RefExpense(id uuid.UUID) EntityRef        { return EntityRef{Kind: EntityExpenseRequest, ID: id} }
func RefTopUp(id uuid.UUID) EntityRef          { return EntityRef{Kind: EntityTopUpRequest, ID: id} }
func RefReconciliation(id uuid.UUID) EntityRef { return EntityRef{Kind: EntityReconciliation, ID: id} }
func RefUser(id uuid.UUID) EntityRef           { return EntityRef{Kind: EntityUser, ID: id} }

// ParseEntityKind validates a raw entity type string from the API.
func ParseEntityKind(s string) (EntityKind, bool) {
	switch EntityKind(s) {
	case EntityPettyCashAccount, EntityExpenseRequest, EntityTopUpRequest, EntityReconciliation, EntityUser:
		return EntityKind(s), true
	}
	return "", false
}

// EventType is the lookup row an entry's event code resolves against.
// Unknown codes make the ledger write fail; codes are seeded, never created
// on the fly.
type EventType struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Code        string    `json:"code" gorm:"uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	Category    string    `json:"category" gorm:"index"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (EventType) TableName() string {
	return "event_types"
}

// Event codes, one per business transition. Seeded by the seeder.
const (
	EventAccountCreated = "petty_cash_account_created"
	EventAccountUpdated = "petty_cash_account_updated"

	EventExpenseSubmitted = "expense_submitted"
	EventExpenseApproved  = "expense_approved"
	EventExpenseRejected  = "expense_rejected"
	EventExpenseDisbursed = "expense_disbursed"
	EventExpenseUpdated   = "expense_updated"
	EventExpenseCompleted = "expense_completed"

	EventTopUpRequested     = "topup_requested"
	EventTopUpAutoTriggered = "topup_auto_triggered"
	EventTopUpApproved      = "topup_approved"
	EventTopUpRejected      = "topup_rejected"
	EventTopUpDisbursed     = "topup_disbursed"
	EventTopUpUpdated       = "topup_updated"

	EventReconciliationSubmitted = "reconciliation_submitted"
	EventReconciliationCompleted = "reconciliation_completed"
	EventReconciliationReturned  = "reconciliation_returned"
)

// Metadata is the free-form structured payload of an entry: old/new values,
// actor context, derived fields. Callers populate it; the ledger stores it
// verbatim.
type Metadata map[string]interface{}

// Entry is one immutable transaction-log row. Append-only: no update or
// delete path exists anywhere in this package, and notifications referencing
// an entry protect it at the schema level.
type Entry struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	EventTypeID uuid.UUID `json:"-" gorm:"type:uuid;not null"`
	StatusID    uuid.UUID `json:"-" gorm:"type:uuid;not null"`

	EventType *EventType     `json:"event_type,omitempty" gorm:"foreignKey:EventTypeID"`
	Status    *status.Status `json:"status,omitempty" gorm:"foreignKey:StatusID"`

	// Nil means the system itself triggered the event.
	TriggeredByID    *uuid.UUID `json:"triggered_by_id" gorm:"type:uuid;index"`
	TriggeredByEmail string     `json:"triggered_by_email"`

	EventMessage  string   `json:"event_message"`
	Metadata      Metadata `json:"metadata" gorm:"serializer:json"`
	EntityType    string   `json:"entity_type" gorm:"index:idx_transaction_logs_entity"`
	EntityID      string   `json:"entity_id" gorm:"index:idx_transaction_logs_entity"`
	UserIPAddress string   `json:"user_ip_address,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Entry) TableName() string {
	return "transaction_logs"
}
