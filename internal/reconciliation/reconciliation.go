package reconciliation

import (
	"time"

	"github.com/google/uuid"
	"github.com/savannahq/pettycash/internal/ledger"
	"github.com/savannahq/pettycash/internal/status"
	"github.com/shopspring/decimal"
)

// Reconciliation tracks the receipts for a disbursement-type expense. One
// row per expense, opened automatically at disbursement time.
//
// States: pending -> under_review -> completed, with under_review ->
// returned when the reviewer sends it back for correction; a returned
// reconciliation accepts a fresh receipt submission directly.
type Reconciliation struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ExpenseRequestID uuid.UUID `json:"expense_request_id" gorm:"type:uuid;not null;uniqueIndex"`

	SubmittedByID    uuid.UUID `json:"submitted_by_id" gorm:"type:uuid;not null;index"`
	SubmittedByEmail string    `json:"submitted_by_email"`

	ApprovedByID    *uuid.UUID `json:"approved_by_id,omitempty" gorm:"type:uuid"`
	ApprovedByEmail string     `json:"approved_by_email,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`

	// TotalAmount mirrors the disbursed expense amount. ReconciledAmount and
	// SurplusReturned stay nil until the employee submits receipts.
	TotalAmount      decimal.Decimal  `json:"total_amount" gorm:"type:numeric(15,2);not null"`
	ReconciledAmount *decimal.Decimal `json:"reconciled_amount,omitempty" gorm:"type:numeric(15,2)"`
	SurplusReturned  *decimal.Decimal `json:"surplus_returned,omitempty" gorm:"type:numeric(15,2)"`

	ReceiptURL string `json:"receipt_url"`
	Comments   string `json:"comments"`

	StatusID uuid.UUID      `json:"-" gorm:"type:uuid;not null"`
	Status   *status.Status `json:"status,omitempty" gorm:"foreignKey:StatusID"`

	Metadata ledger.Metadata `json:"metadata" gorm:"serializer:json"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Reconciliation) TableName() string {
	return "disbursement_reconciliations"
}

func (r *Reconciliation) StatusCode() string {
	if r.Status == nil {
		return ""
	}
	return r.Status.Code
}

func (r *Reconciliation) IsPending() bool {
	return r.StatusCode() == status.CodePending
}

func (r *Reconciliation) IsUnderReview() bool {
	return r.StatusCode() == status.CodeUnderReview
}

func (r *Reconciliation) IsCompleted() bool {
	return r.StatusCode() == status.CodeCompleted
}

// Surplus is the unspent difference between the disbursed total and the
// submitted receipts, the most the employee can hand back. Zero until
// receipts are in.
func (r *Reconciliation) Surplus() decimal.Decimal {
	if r.ReconciledAmount == nil {
		return decimal.Zero
	}
	return r.TotalAmount.Sub(*r.ReconciledAmount)
}
