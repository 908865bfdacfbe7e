package reconciliation

import (
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

const (
	DecisionComplete = "completed"
	DecisionReturn   = "returned_for_correction"
)

// SubmitReceiptDTO carries the employee's declaration: what the receipts
// cover and how much unspent cash is handed back. SurplusReturned is the
// employee's own figure, not a derived one, so a shortfall (returning less
// than the unspent difference) stays visible to the reviewer.
type SubmitReceiptDTO struct {
	ReconciledAmount decimal.Decimal `json:"reconciled_amount"`
	SurplusReturned  decimal.Decimal `json:"surplus_returned"`
	ReceiptURL       string          `json:"receipt_url"`
	Comments         string          `json:"comments,omitempty"`
}

func (d *SubmitReceiptDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("reconciled_amount", d.ReconciledAmount).Required().NonNegativeAmount()
	v.Field("surplus_returned", d.SurplusReturned).NonNegativeAmount()
	v.Field("receipt_url", d.ReceiptURL).Required().MaxLength(500)
	return v.Validate()
}

type ReviewDTO struct {
	Decision string `json:"decision"`
	Comments string `json:"comments,omitempty"`
}

func (d *ReviewDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("decision", d.Decision).Required().OneOf(DecisionComplete, DecisionReturn)
	return v.Validate()
}
