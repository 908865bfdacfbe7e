package dashboard

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Overview is the role-aware snapshot backing the landing dashboard. Finance
// officers see the whole system including account balances; everyone else
// sees only their own requests.
type Overview struct {
	Expenses        StatusCounts     `json:"expenses"`
	TopUps          StatusCounts     `json:"topups"`
	Reconciliations StatusCounts     `json:"reconciliations"`
	Accounts        []AccountSummary `json:"accounts,omitempty"`
	Approvals       ApprovalStats    `json:"approvals"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// StatusCounts maps a status code to how many records sit in it.
type StatusCounts map[string]int64

// AccountSummary is the balance line of one petty cash account.
type AccountSummary struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	BelowThreshold   bool            `json:"below_threshold"`
}

// ApprovalStats aggregates the expense decisions recorded in the transaction
// log since the start of the current month.
type ApprovalStats struct {
	MonthStart   time.Time       `json:"month_start"`
	Approved     int64           `json:"approved"`
	Rejected     int64           `json:"rejected"`
	ApprovalRate decimal.Decimal `json:"approval_rate"`
}
