package topup

import (
	"time"

	"github.com/google/uuid"
	"github.com/savannahq/pettycash/internal/ledger"
	"github.com/savannahq/pettycash/internal/pettycash"
	"github.com/savannahq/pettycash/internal/status"
	"github.com/shopspring/decimal"
)

// Request is a petition to increase the petty cash balance, either raised by
// a user or auto-triggered by the threshold check.
//
// States: pending -> approved -> complete (disbursed) | rejected, plus INACT.
type Request struct {
	ID        uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	AccountID uuid.UUID          `json:"pettycash_account_id" gorm:"column:pettycash_account_id;type:uuid;not null;index"`
	Account   *pettycash.Account `json:"account,omitempty" gorm:"foreignKey:AccountID"`

	StatusID uuid.UUID      `json:"-" gorm:"type:uuid;not null"`
	Status   *status.Status `json:"status,omitempty" gorm:"foreignKey:StatusID"`

	// Nil requester means the system raised the request.
	RequestedByID    *uuid.UUID `json:"requested_by_id" gorm:"type:uuid;index"`
	RequestedByEmail string     `json:"requested_by_email"`
	DecisionByID     *uuid.UUID `json:"decision_by_id" gorm:"type:uuid"`
	DecisionByEmail  string     `json:"decision_by_email,omitempty"`

	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(15,2);not null"`
	RequestReason   string          `json:"request_reason"`
	DecisionReason  string          `json:"decision_reason"`
	IsAutoTriggered bool            `json:"is_auto_triggered" gorm:"default:false"`
	IsActive        bool            `json:"is_active" gorm:"default:true"`

	Metadata ledger.Metadata `json:"metadata" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Request) TableName() string {
	return "topup_requests"
}

func (r *Request) StatusCode() string {
	if r.Status == nil {
		return ""
	}
	return r.Status.Code
}

func (r *Request) IsPending() bool {
	return r.StatusCode() == status.CodePending
}

func (r *Request) IsApproved() bool {
	return r.StatusCode() == status.CodeApproved
}

func (r *Request) IsComplete() bool {
	return r.StatusCode() == status.CodeComplete
}
