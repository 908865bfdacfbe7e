package expense

import (
	"time"

	"github.com/google/uuid"
	"github.com/savannahq/pettycash/internal/ledger"
	"github.com/savannahq/pettycash/internal/status"
	"github.com/shopspring/decimal"
)

const (
	TypeReimbursement = "reimbursement"
	TypeDisbursement  = "disbursement"
)

// Request is an employee expense claim.
//
// States: pending -> approved -> disbursed -> completed | rejected, plus
// INACT reachable from anywhere by deactivation. A disbursement-type request
// only reaches completed through its reconciliation; a reimbursement-type
// request is terminal at disbursed.
type Request struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	EmployeeID    uuid.UUID `json:"employee_id" gorm:"type:uuid;not null;index"`
	EmployeeEmail string    `json:"employee_email"`

	// Optional reviewer the employee addressed the request to. Nil means any
	// finance officer picks it up.
	AssignedToID    *uuid.UUID `json:"assigned_to_id,omitempty" gorm:"type:uuid;index"`
	AssignedToEmail string     `json:"assigned_to_email,omitempty"`

	ExpenseType string          `json:"expense_type" gorm:"not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(15,2);not null"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	MpesaPhone  string          `json:"mpesa_phone"`
	ReceiptURLs []string        `json:"receipt_urls" gorm:"serializer:json"`

	StatusID uuid.UUID      `json:"-" gorm:"type:uuid;not null"`
	Status   *status.Status `json:"status,omitempty" gorm:"foreignKey:StatusID"`

	// Decision and disbursement audit fields (decision_by, decision_at,
	// disbursed_by, disbursed_at, ...) live here; they are not first-class
	// columns.
	Metadata ledger.Metadata `json:"metadata" gorm:"serializer:json"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Request) TableName() string {
	return "expense_requests"
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

func (r *Request) IsDisbursed() bool {
	return r.StatusCode() == status.CodeDisbursed
}

// RequiresReconciliation reports whether disbursing this request opens a
// reconciliation sub-workflow.
func (r *Request) RequiresReconciliation() bool {
	return r.ExpenseType == TypeDisbursement
}
