package topup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/database"
	"github.com/savannahq/pettycash/internal/ledger"
	"github.com/savannahq/pettycash/internal/notification"
	"github.com/savannahq/pettycash/internal/pettycash"
	"github.com/savannahq/pettycash/internal/status"
	"github.com/savannahq/pettycash/internal/user"
	"github.com/shopspring/decimal"
)

// Repository defines the data access methods for top-up requests.
type Repository interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Request, error)
	Save(ctx context.Context, req *Request) error
	HasPendingForAccount(ctx context.Context, accountID uuid.UUID) (bool, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Request, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*Request, error)
	ListByStatus(ctx context.Context, statusCode string, limit, offset int) ([]*Request, error)
	ListAutoTriggered(ctx context.Context, limit, offset int) ([]*Request, error)
}

// AuditLogger appends to the transaction log within the ambient transaction.
type AuditLogger interface {
	Record(ctx context.Context, params ledger.LogParams) (*ledger.Entry, error)
}

// Notifier creates notification records alongside ledger entries.
type Notifier interface {
	Notify(ctx context.Context, entry *ledger.Entry, recipientID uuid.UUID, channel notification.Channel) (*notification.Notification, error)
}

// AccountManager is the slice of the petty cash manager the disbursement
// step needs.
type AccountManager interface {
	GetByID(ctx context.Context, id uuid.UUID) (*pettycash.Account, error)
	Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*pettycash.Account, error)
	CheckAndTriggerTopUp(ctx context.Context, account *pettycash.Account) error
}

// Service drives the top-up request workflow.
type Service struct {
	repo     Repository
	statuses status.Repository
	accounts AccountManager
	audit    AuditLogger
	notifier Notifier
	tx       database.TxManager
	logger   *slog.Logger
}

func NewService(repo Repository, statuses status.Repository, accounts AccountManager, audit AuditLogger, notifier Notifier, tx database.TxManager, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		statuses: statuses,
		accounts: accounts,
		audit:    audit,
		notifier: notifier,
		tx:       tx,
		logger:   logger,
	}
}

// Create raises a user-initiated top-up request against the account.
func (s *Service) Create(ctx context.Context, accountID uuid.UUID, dto CreateTopUpDTO, actor *user.Actor, ipAddress string) (*Request, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("top-up validation failed", "error", err)
		return nil, err
	}

	var req *Request
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		account, err := s.accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}

		pending, err := s.statuses.GetByCode(ctx, status.CodePending)
		if err != nil {
			return err
		}

		actorID := actor.ID
		req = &Request{
			ID:               uuid.New(),
			AccountID:        account.ID,
			StatusID:         pending.ID,
			Status:           pending,
			RequestedByID:    &actorID,
			RequestedByEmail: actor.Email,
			Amount:           dto.Amount,
			RequestReason:    dto.RequestReason,
			IsActive:         true,
		}
		if err := s.repo.Create(ctx, req); err != nil {
			return err
		}

		_, err = s.audit.Record(ctx, ledger.LogParams{
			EventCode:   ledger.EventTopUpRequested,
			TriggeredBy: actor,
			Entity:      ledger.RefTopUp(req.ID),
			Message:     fmt.Sprintf("Top-up of %s requested for account %q", req.Amount.String(), account.Name),
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"topup_id":       req.ID.String(),
				"account_id":     account.ID.String(),
				"amount":         req.Amount.String(),
				"request_reason": req.RequestReason,
				"requested_by":   actor.Email,
				"action":         "create",
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("top-up request created", "topup_id", req.ID, "account_id", accountID, "amount", dto.Amount.String())
	return req, nil
}

// CreateAuto raises a system-triggered top-up sized at the account
// shortfall. Satisfies the petty cash manager's AutoTopUpCreator.
func (s *Service) CreateAuto(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	return s.tx.Do(ctx, func(ctx context.Context) error {
		pending, err := s.statuses.GetByCode(ctx, status.CodePending)
		if err != nil {
			return err
		}

		req := &Request{
			ID:              uuid.New(),
			AccountID:       accountID,
			StatusID:        pending.ID,
			Status:          pending,
			Amount:          amount,
			RequestReason:   "Balance below minimum threshold",
			IsAutoTriggered: true,
			IsActive:        true,
		}
		if err := s.repo.Create(ctx, req); err != nil {
			return err
		}

		_, err = s.audit.Record(ctx, ledger.LogParams{
			EventCode:   ledger.EventTopUpAutoTriggered,
			TriggeredBy: user.System(),
			Entity:      ledger.RefTopUp(req.ID),
			Message:     fmt.Sprintf("Auto top-up of %s triggered, balance below threshold", amount.String()),
			Metadata: ledger.Metadata{
				"topup_id":   req.ID.String(),
				"account_id": accountID.String(),
				"amount":     amount.String(),
				"action":     "auto_trigger",
			},
		})
		return err
	})
}

// HasPendingForAccount satisfies the petty cash manager's AutoTopUpCreator.
func (s *Service) HasPendingForAccount(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return s.repo.HasPendingForAccount(ctx, accountID)
}

// Decide approves or rejects a pending request. Idempotent: deciding a
// request already in the target state returns it unchanged with no second
// ledger entry, making client retries safe.
func (s *Service) Decide(ctx context.Context, id uuid.UUID, dto DecideTopUpDTO, actor *user.Actor, ipAddress string) (*Request, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var req *Request
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if req.StatusCode() == dto.Decision {
			s.logger.Info("top-up already decided, returning unchanged", "topup_id", id, "decision", dto.Decision)
			return nil
		}
		if !req.IsPending() {
			return internal.NewIllegalStateError(
				fmt.Sprintf("cannot %s a top-up in status %q", dto.Decision, req.StatusCode()),
				internal.ErrCodeIllegalTransition)
		}

		target, err := s.statuses.GetByCode(ctx, dto.Decision)
		if err != nil {
			return err
		}

		actorID := actor.ID
		req.StatusID = target.ID
		req.Status = target
		req.DecisionByID = &actorID
		req.DecisionByEmail = actor.Email
		req.DecisionReason = dto.DecisionReason
		if err := s.repo.Save(ctx, req); err != nil {
			return err
		}

		eventCode := ledger.EventTopUpApproved
		if dto.Decision == status.CodeRejected {
			eventCode = ledger.EventTopUpRejected
		}
		entry, err := s.audit.Record(ctx, ledger.LogParams{
			EventCode:   eventCode,
			TriggeredBy: actor,
			Entity:      ledger.RefTopUp(req.ID),
			Message:     fmt.Sprintf("Top-up request %s", dto.Decision),
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"topup_id":        req.ID.String(),
				"account_id":      req.AccountID.String(),
				"amount":          req.Amount.String(),
				"decision":        dto.Decision,
				"decision_reason": dto.DecisionReason,
				"decision_by":     actor.Email,
			},
		})
		if err != nil {
			return err
		}

		if req.RequestedByID != nil {
			if _, err := s.notifier.Notify(ctx, entry, *req.RequestedByID, notification.ChannelInApp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Disburse credits the account with the approved amount and completes the
// request. Idempotent on complete. The credit may itself re-trigger the
// threshold check, keeping the replenish loop going.
func (s *Service) Disburse(ctx context.Context, id uuid.UUID, actor *user.Actor, ipAddress string) (*Request, error) {
	var req *Request
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if req.IsComplete() {
			s.logger.Info("top-up already disbursed, returning unchanged", "topup_id", id)
			return nil
		}
		if !req.IsApproved() {
			return internal.NewIllegalStateError(
				fmt.Sprintf("cannot disburse a top-up in status %q", req.StatusCode()),
				internal.ErrCodeIllegalTransition)
		}

		account, err := s.accounts.Credit(ctx, req.AccountID, req.Amount)
		if err != nil {
			return err
		}

		complete, err := s.statuses.GetByCode(ctx, status.CodeComplete)
		if err != nil {
			return err
		}
		req.StatusID = complete.ID
		req.Status = complete
		if err := s.repo.Save(ctx, req); err != nil {
			return err
		}

		entry, err := s.audit.Record(ctx, ledger.LogParams{
			EventCode:   ledger.EventTopUpDisbursed,
			TriggeredBy: actor,
			Entity:      ledger.RefTopUp(req.ID),
			Message:     fmt.Sprintf("Top-up of %s disbursed to account %q", req.Amount.String(), account.Name),
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"topup_id":     req.ID.String(),
				"account_id":   account.ID.String(),
				"amount":       req.Amount.String(),
				"new_balance":  account.CurrentBalance.String(),
				"disbursed_by": actor.Email,
			},
		})
		if err != nil {
			return err
		}

		if req.RequestedByID != nil {
			if _, err := s.notifier.Notify(ctx, entry, *req.RequestedByID, notification.ChannelInApp); err != nil {
				return err
			}
		}

		return s.accounts.CheckAndTriggerTopUp(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Update edits amount or reason while the request is still pending.
func (s *Service) Update(ctx context.Context, id uuid.UUID, dto UpdateTopUpDTO, actor *user.Actor, ipAddress string) (*Request, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var req *Request
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if !req.IsPending() {
			return internal.NewIllegalStateError(
				fmt.Sprintf("cannot update a top-up in status %q", req.StatusCode()),
				internal.ErrCodeImmutableRecord)
		}

		oldValues := ledger.Metadata{}
		newValues := ledger.Metadata{}
		changed := make([]string, 0, 2)

		if dto.Amount != nil && !dto.Amount.Equal(req.Amount) {
			oldValues["amount"] = req.Amount.String()
			req.Amount = *dto.Amount
			newValues["amount"] = req.Amount.String()
			changed = append(changed, "amount")
		}
		if dto.RequestReason != nil && *dto.RequestReason != req.RequestReason {
			oldValues["request_reason"] = req.RequestReason
			req.RequestReason = *dto.RequestReason
			newValues["request_reason"] = req.RequestReason
			changed = append(changed, "request_reason")
		}

		if len(changed) == 0 {
			return nil
		}

		if err := s.repo.Save(ctx, req); err != nil {
			return err
		}

		_, err = s.audit.Record(ctx, ledger.LogParams{
			EventCode:   ledger.EventTopUpUpdated,
			TriggeredBy: actor,
			Entity:      ledger.RefTopUp(req.ID),
			Message:     "Top-up request updated",
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"topup_id":       req.ID.String(),
				"updated_fields": changed,
				"old_values":     oldValues,
				"new_values":     newValues,
				"updated_by":     actor.Email,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Deactivate soft-deletes the request from any state.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, actor *user.Actor, ipAddress string) (*Request, error) {
	var req *Request
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		inactive, err := s.statuses.GetByCode(ctx, status.CodeInactive)
		if err != nil {
			return err
		}
		req.StatusID = inactive.ID
		req.Status = inactive
		req.IsActive = false
		if err := s.repo.Save(ctx, req); err != nil {
			return err
		}

		_, err = s.audit.Record(ctx, ledger.LogParams{
			EventCode:   ledger.EventTopUpUpdated,
			TriggeredBy: actor,
			Entity:      ledger.RefTopUp(req.ID),
			StatusCode:  status.CodeInactive,
			Message:     "Top-up request deactivated",
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"topup_id":       req.ID.String(),
				"deactivated_by": actor.Email,
				"action":         "deactivate",
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]*Request, error) {
	return s.repo.ListAll(ctx, limit, offset)
}

func (s *Service) ListForActor(ctx context.Context, actor *user.Actor, limit, offset int) ([]*Request, error) {
	return s.repo.ListByRequester(ctx, actor.ID, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, statusCode string, limit, offset int) ([]*Request, error) {
	return s.repo.ListByStatus(ctx, statusCode, limit, offset)
}

func (s *Service) ListAutoTriggered(ctx context.Context, limit, offset int) ([]*Request, error) {
	return s.repo.ListAutoTriggered(ctx, limit, offset)
}
