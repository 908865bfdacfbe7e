package topup

import (
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/common/validation"
	"github.com/savannahq/pettycash/internal/status"
	"github.com/shopspring/decimal"
)

type CreateTopUpDTO struct {
	Amount        decimal.Decimal `json:"amount"`
	RequestReason string          `json:"request_reason"`
}

func (d *CreateTopUpDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("amount", d.Amount).Required().PositiveAmount()
	v.Field("request_reason", d.RequestReason).Required().MaxLength(100)
	return v.Validate()
}

type UpdateTopUpDTO struct {
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	RequestReason *string          `json:"request_reason,omitempty"`
}

func (d *UpdateTopUpDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Amount != nil {
		v.Field("amount", *d.Amount).PositiveAmount()
	}
	if d.RequestReason != nil {
		v.Field("request_reason", *d.RequestReason).Required().MaxLength(100)
	}
	return v.Validate()
}

type DecideTopUpDTO struct {
	Decision       string `json:"decision"`
	DecisionReason string `json:"decision_reason"`
}

func (d *DecideTopUpDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("decision", d.Decision).Required().OneOf(status.CodeApproved, status.CodeRejected)
	return v.Validate()
}
