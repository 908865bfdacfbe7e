package pettycash

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is the single operational cash pool funding disbursement-type
// expenses. At most one account is active at a time and its balance never
// goes negative.
type Account struct {
	ID               uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Name             string          `json:"name" gorm:"not null"`
	Description      string          `json:"description"`
	AccountType      string          `json:"account_type" gorm:"default:mpesa"`
	PhoneNumber      string          `json:"phone_number"`
	CurrentBalance   decimal.Decimal `json:"current_balance" gorm:"type:numeric(15,2);not null"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold" gorm:"type:numeric(15,2);not null"`
	IsActive         bool            `json:"is_active" gorm:"default:true"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Account) TableName() string {
	return "pettycash_accounts"
}

// BelowThreshold reports whether the balance has dropped under the
// replenishment threshold.
func (a *Account) BelowThreshold() bool {
	return a.CurrentBalance.LessThan(a.MinimumThreshold)
}

// Shortfall is the amount an auto-triggered top-up is sized at.
func (a *Account) Shortfall() decimal.Decimal {
	return a.MinimumThreshold.Sub(a.CurrentBalance)
}

// Credit increases the balance. Callers hold a row lock.
func (a *Account) Credit(amount decimal.Decimal) {
	a.CurrentBalance = a.CurrentBalance.Add(amount)
	a.UpdatedAt = time.Now()
}

// Debit decreases the balance; reports false when it would go negative.
func (a *Account) Debit(amount decimal.Decimal) bool {
	next := a.CurrentBalance.Sub(amount)
	if next.IsNegative() {
		return false
	}
	a.CurrentBalance = next
	a.UpdatedAt = time.Now()
	return true
}
