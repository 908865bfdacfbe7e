package pettycash

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/database"
	"github.com/savannahq/pettycash/internal/ledger"
	"github.com/savannahq/pettycash/internal/user"
	"github.com/shopspring/decimal"
)

// Repository defines the data access methods for petty cash accounts.
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// GetByIDForUpdate acquires an exclusive row lock; must run inside a
	// transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	Save(ctx context.Context, account *Account) error
	HasActiveAccount(ctx context.Context) (bool, error)
	ListActive(ctx context.Context) ([]*Account, error)
}

// AuditLogger appends to the transaction log within the ambient transaction.
type AuditLogger interface {
	Record(ctx context.Context, params ledger.LogParams) (*ledger.Entry, error)
}

// AutoTopUpCreator is the slice of the top-up workflow the threshold trigger
// needs. Wired by cmd after both services exist.
type AutoTopUpCreator interface {
	HasPendingForAccount(ctx context.Context, accountID uuid.UUID) (bool, error)
	CreateAuto(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error
}

// Service owns the canonical petty cash balance.
type Service struct {
	repo   Repository
	audit  AuditLogger
	tx     database.TxManager
	topups AutoTopUpCreator
	logger *slog.Logger
}

func NewService(repo Repository, audit AuditLogger, tx database.TxManager, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		audit:  audit,
		tx:     tx,
		logger: logger,
	}
}

// SetAutoTopUps injects the top-up collaborator. Separate from the
// constructor because the top-up service itself needs this service to credit
// balances.
func (s *Service) SetAutoTopUps(topups AutoTopUpCreator) {
	s.topups = topups
}

// CreateAccount creates the petty cash account. Only one account may be
// active at a time.
func (s *Service) CreateAccount(ctx context.Context, dto CreateAccountDTO, actor *user.Actor, ipAddress string) (*Account, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("account validation failed", "error", err)
		return nil, err
	}

	var account *Account
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		exists, err := s.repo.HasActiveAccount(ctx)
		if err != nil {
			return err
		}
		if exists {
			return internal.ErrActiveAccountExists
		}

		account = &Account{
			ID:               uuid.New(),
			Name:             dto.Name,
			Description:      dto.Description,
			PhoneNumber:      dto.PhoneNumber,
			CurrentBalance:   decimal.Zero,
			MinimumThreshold: dto.MinimumThreshold,
			IsActive:         true,
		}
		if err := s.repo.Create(ctx, account); err != nil {
			return err
		}

		_, err = s.audit.Record(ctx, ledger.LogParams{
			EventCode:   ledger.EventAccountCreated,
			TriggeredBy: actor,
			Entity:      ledger.RefAccount(account.ID),
			Message:     fmt.Sprintf("Petty cash account %q created", account.Name),
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"account_id":        account.ID.String(),
				"account_name":      account.Name,
				"minimum_threshold": account.MinimumThreshold.String(),
				"phone_number":      account.PhoneNumber,
				"created_by":        actor.Email,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("petty cash account created", "account_id", account.ID, "name", account.Name)
	return account, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListActive(ctx context.Context) ([]*Account, error) {
	return s.repo.ListActive(ctx)
}

// UpdateAccount applies descriptive field changes under a row lock and
// records the old/new diff in the audit trail.
func (s *Service) UpdateAccount(ctx context.Context, id uuid.UUID, dto UpdateAccountDTO, actor *user.Actor, ipAddress string) (*Account, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var account *Account
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		oldValues := ledger.Metadata{}
		newValues := ledger.Metadata{}
		changed := make([]string, 0, 5)

		apply := func(field string, old string, set func()) {
			oldValues[field] = old
			set()
			changed = append(changed, field)
		}

		if dto.Name != nil && *dto.Name != account.Name {
			apply("name", account.Name, func() { account.Name = *dto.Name })
			newValues["name"] = account.Name
		}
		if dto.Description != nil && *dto.Description != account.Description {
			apply("description", account.Description, func() { account.Description = *dto.Description })
			newValues["description"] = account.Description
		}
		if dto.PhoneNumber != nil && *dto.PhoneNumber != account.PhoneNumber {
			apply("phone_number", account.PhoneNumber, func() { account.PhoneNumber = *dto.PhoneNumber })
			newValues["phone_number"] = account.PhoneNumber
		}
		if dto.AccountType != nil && *dto.AccountType != account.AccountType {
			apply("account_type", account.AccountType, func() { account.AccountType = *dto.AccountType })
			newValues["account_type"] = account.AccountType
		}
		if dto.MinimumThreshold != nil && !dto.MinimumThreshold.Equal(account.MinimumThreshold) {
			apply("minimum_threshold", account.MinimumThreshold.String(), func() { account.MinimumThreshold = *dto.MinimumThreshold })
			newValues["minimum_threshold"] = account.MinimumThreshold.String()
		}

		if len(changed) == 0 {
			return nil
		}

		if err := s.repo.Save(ctx, account); err != nil {
			return err
		}

		_, err = s.audit.Record(ctx, ledger.LogParams{
			EventCode:   ledger.EventAccountUpdated,
			TriggeredBy: actor,
			Entity:      ledger.RefAccount(account.ID),
			Message:     fmt.Sprintf("Petty cash account %q updated", account.Name),
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"account_id":     account.ID.String(),
				"account_name":   account.Name,
				"updated_by":     actor.Email,
				"changed_fields": changed,
				"old_values":     oldValues,
				"new_values":     newValues,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Deactivate soft-deletes the account. The balance stays on the row; hard
// deletion never happens.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, actor *user.Actor, ipAddress string) (*Account, error) {
	var account *Account
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		account.IsActive = false
		if err := s.repo.Save(ctx, account); err != nil {
			return err
		}

		_, err = s.audit.Record(ctx, ledger.LogParams{
			EventCode:   ledger.EventAccountUpdated,
			TriggeredBy: actor,
			Entity:      ledger.RefAccount(account.ID),
			StatusCode:  "INACT",
			Message:     fmt.Sprintf("Petty cash account %s deactivated", account.Name),
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"account_id":     account.ID.String(),
				"account_name":   account.Name,
				"deactivated_by": actor.Email,
				"action":         "deactivate",
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("petty cash account deactivated", "account_id", account.ID)
	return account, nil
}

// Credit increases the balance under a row lock. Invoked by the top-up
// disbursement step inside its transaction, which runs the threshold check
// afterwards.
func (s *Service) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*Account, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, internal.NewValidationError("credit amount must be greater than zero", internal.ErrCodeInvalidAmount)
	}

	var account *Account
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.repo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		account.Credit(amount)
		return s.repo.Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("petty cash account credited",
		"account_id", accountID,
		"amount", amount.String(),
		"balance", account.CurrentBalance.String())
	return account, nil
}

// Debit decreases the balance under a row lock; the balance never goes
// negative. Reserved for the future expense-disbursement debit path.
func (s *Service) Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*Account, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, internal.NewValidationError("debit amount must be greater than zero", internal.ErrCodeInvalidAmount)
	}

	var account *Account
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.repo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if !account.Debit(amount) {
			return internal.ErrInsufficientBalance
		}
		return s.repo.Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// CheckAndTriggerTopUp creates one auto top-up sized at the shortfall when
// the balance is below threshold. A pending request for the account makes
// this a silent no-op so repeated balance checks never spam duplicates.
func (s *Service) CheckAndTriggerTopUp(ctx context.Context, account *Account) error {
	if s.topups == nil || !account.BelowThreshold() {
		return nil
	}

	pending, err := s.topups.HasPendingForAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	if pending {
		s.logger.Debug("pending top-up already exists, skipping auto trigger", "account_id", account.ID)
		return nil
	}

	shortfall := account.Shortfall()
	if err := s.topups.CreateAuto(ctx, account.ID, shortfall); err != nil {
		return err
	}

	s.logger.Info("auto top-up triggered",
		"account_id", account.ID,
		"amount", shortfall.String(),
		"balance", account.CurrentBalance.String(),
		"threshold", account.MinimumThreshold.String())
	return nil
}
