package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/savannahq/pettycash/internal/pettycash"
	"github.com/savannahq/pettycash/internal/user"
	"github.com/shopspring/decimal"
)

// Roles that see the global dashboard. Anyone else gets a view scoped to
// their own requests, without account balances.
const (
	RoleFinance = "finance"
	RoleAdmin   = "admin"
)

// Repository defines the aggregate queries behind the dashboard. A nil
// userID means count across everyone.
type Repository interface {
	CountExpensesByStatus(ctx context.Context, employeeID *uuid.UUID) (StatusCounts, error)
	CountTopUpsByStatus(ctx context.Context, requesterID *uuid.UUID) (StatusCounts, error)
	CountReconciliationsByStatus(ctx context.Context, submitterID *uuid.UUID) (StatusCounts, error)
	// CountExpenseDecisions returns how many expense requests were approved
	// and rejected since the given instant.
	CountExpenseDecisions(ctx context.Context, since time.Time) (approved, rejected int64, err error)
}

// AccountLister is the slice of the account workflow the dashboard needs.
type AccountLister interface {
	ListActive(ctx context.Context) ([]*pettycash.Account, error)
}

type Service struct {
	repo     Repository
	accounts AccountLister
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, accounts AccountLister, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		logger:   logger,
		now:      time.Now,
	}
}

// Overview assembles the dashboard for the given actor. Finance and admin
// roles see every request plus account balances and the monthly approval
// rate; other roles see only the counts of their own requests.
func (s *Service) Overview(ctx context.Context, actor *user.Actor) (*Overview, error) {
	var scope *uuid.UUID
	privileged := actor != nil && (actor.Role == RoleFinance || actor.Role == RoleAdmin)
	if !privileged && actor != nil {
		scope = &actor.ID
	}

	expenses, err := s.repo.CountExpensesByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}
	topups, err := s.repo.CountTopUpsByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}
	reconciliations, err := s.repo.CountReconciliationsByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	overview := &Overview{
		Expenses:        expenses,
		TopUps:          topups,
		Reconciliations: reconciliations,
		GeneratedAt:     now,
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	approved, rejected, err := s.repo.CountExpenseDecisions(ctx, monthStart)
	if err != nil {
		return nil, err
	}
	overview.Approvals = ApprovalStats{
		MonthStart:   monthStart,
		Approved:     approved,
		Rejected:     rejected,
		ApprovalRate: approvalRate(approved, rejected),
	}

	if privileged {
		accounts, err := s.accounts.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		summaries := make([]AccountSummary, 0, len(accounts))
		for _, acc := range accounts {
			summaries = append(summaries, AccountSummary{
				ID:               acc.ID,
				Name:             acc.Name,
				CurrentBalance:   acc.CurrentBalance,
				MinimumThreshold: acc.MinimumThreshold,
				BelowThreshold:   acc.BelowThreshold(),
			})
		}
		overview.Accounts = summaries
	}

	return overview, nil
}

// approvalRate is approved over all decisions, rounded to four places. Zero
// when the month has no decisions yet.
func approvalRate(approved, rejected int64) decimal.Decimal {
	total := approved + rejected
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(approved).
		Div(decimal.NewFromInt(total)).
		Round(4)
}
