package expense

import (
	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

type CreateExpenseDTO struct {
	ExpenseType     string          `json:"expense_type"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	MpesaPhone      string          `json:"mpesa_phone"`
	Amount          decimal.Decimal `json:"amount"`
	ReceiptURLs     []string        `json:"receipt_urls,omitempty"`
	AssignedToID    *uuid.UUID      `json:"assigned_to_id,omitempty"`
	AssignedToEmail string          `json:"assigned_to_email,omitempty"`
}

func (d *CreateExpenseDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("expense_type", d.ExpenseType).Required().OneOf(TypeReimbursement, TypeDisbursement)
	v.Field("title", d.Title).Required().MaxLength(100)
	v.Field("description", d.Description).Required()
	v.Field("amount", d.Amount).Required().PositiveAmount()
	if err := v.Validate(); err != nil {
		return err
	}

	// A reimbursement claims money already spent, so proof comes up front.
	// Disbursement receipts arrive later through reconciliation.
	if d.ExpenseType == TypeReimbursement && len(d.ReceiptURLs) == 0 {
		return internal.NewValidationError("receipt is required for reimbursement requests", internal.ErrCodeReceiptRequired)
	}
	return nil
}

type UpdateExpenseDTO struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	MpesaPhone  *string          `json:"mpesa_phone,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	ReceiptURLs []string         `json:"receipt_urls,omitempty"`
}

func (d *UpdateExpenseDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Title != nil {
		v.Field("title", *d.Title).Required().MaxLength(100)
	}
	if d.Amount != nil {
		v.Field("amount", *d.Amount).PositiveAmount()
	}
	return v.Validate()
}

type DecideExpenseDTO struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

func (d *DecideExpenseDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("decision", d.Decision).Required().OneOf(DecisionApprove, DecisionReject)
	return v.Validate()
}
