package pettycash

import (
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

type CreateAccountDTO struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	PhoneNumber      string          `json:"phone_number"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
}

func (d *CreateAccountDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("phone_number", d.PhoneNumber).Required().MaxLength(15)
	v.Field("minimum_threshold", d.MinimumThreshold).NonNegativeAmount()
	return v.Validate()
}

// UpdateAccountDTO carries only the mutable descriptive fields; balance moves
// exclusively through credit and debit.
type UpdateAccountDTO struct {
	Name             *string          `json:"name,omitempty"`
	Description      *string          `json:"description,omitempty"`
	PhoneNumber      *string          `json:"phone_number,omitempty"`
	AccountType      *string          `json:"account_type,omitempty"`
	MinimumThreshold *decimal.Decimal `json:"minimum_threshold,omitempty"`
}

func (d *UpdateAccountDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MaxLength(100)
	}
	if d.PhoneNumber != nil {
		v.Field("phone_number", *d.PhoneNumber).Required().MaxLength(15)
	}
	if d.MinimumThreshold != nil {
		v.Field("minimum_threshold", *d.MinimumThreshold).NonNegativeAmount()
	}
	return v.Validate()
}
