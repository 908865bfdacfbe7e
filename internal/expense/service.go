package expense

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/database"
	"github.com/savannahq/pettycash/internal/ledger"
	"github.com/savannahq/pettycash/internal/notification"
	"github.com/savannahq/pettycash/internal/status"
	"github.com/savannahq/pettycash/internal/user"
	"github.com/shopspring/decimal"
)

// Repository defines the data access methods for expense requests.
type Repository interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Request, error)
	Save(ctx context.Context, req *Request) error
	ListAll(ctx context.Context, limit, offset int) ([]*Request, error)
	ListByEmployee(ctx context.Context, employeeID uuid.UUID, limit, offset int) ([]*Request, error)
}

// AuditLogger appends to the transaction log within the ambient transaction.
type AuditLogger interface {
	Record(ctx context.Context, params ledger.LogParams) (*ledger.Entry, error)
}

// Notifier creates notification records alongside ledger entries.
type Notifier interface {
	Notify(ctx context.Context, entry *ledger.Entry, recipientID uuid.UUID, channel notification.Channel) (*notification.Notification, error)
}

// ReconciliationOpener is the slice of the reconciliation workflow the
// disbursement step needs. Wired by cmd after both services exist.
type ReconciliationOpener interface {
	OpenForExpense(ctx context.Context, expenseID, employeeID uuid.UUID, employeeEmail string, totalAmount decimal.Decimal) error
}

// Service drives the expense request workflow.
type Service struct {
	repo            Repository
	statuses        status.Repository
	audit           AuditLogger
	notifier        Notifier
	reconciliations ReconciliationOpener
	tx              database.TxManager
	logger          *slog.Logger
}

func NewService(repo Repository, statuses status.Repository, audit AuditLogger, notifier Notifier, tx database.TxManager, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		statuses: statuses,
		audit:    audit,
		notifier: notifier,
		tx:       tx,
		logger:   logger,
	}
}

// SetReconciliations injects the reconciliation collaborator. Separate from
// the constructor because the reconciliation service needs this service for
// its completion cascade.
func (s *Service) SetReconciliations(r ReconciliationOpener) {
	s.reconciliations = r
}

// Create submits a new expense request for the acting employee.
// Reimbursement requests must carry a receipt at submission time.
func (s *Service) Create(ctx context.Context, dto CreateExpenseDTO, actor *user.Actor, ipAddress string) (*Request, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("expense validation failed", "error", err, "employee_id", actor.ID)
		return nil, err
	}

	var req *Request
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		pending, err := s.statuses.GetByCode(ctx, status.CodePending)
		if err != nil {
			return err
		}

		req = &Request{
			ID:              uuid.New(),
			EmployeeID:      actor.ID,
			EmployeeEmail:   actor.Email,
			AssignedToID:    dto.AssignedToID,
			AssignedToEmail: dto.AssignedToEmail,
			ExpenseType:     dto.ExpenseType,
			Amount:          dto.Amount,
			Title:           dto.Title,
			Description:     dto.Description,
			MpesaPhone:      dto.MpesaPhone,
			ReceiptURLs:     dto.ReceiptURLs,
			StatusID:        pending.ID,
			Status:          pending,
			Metadata:        ledger.Metadata{},
			IsActive:        true,
		}
		if err := s.repo.Create(ctx, req); err != nil {
			return err
		}

		meta := ledger.Metadata{
			"expense_id":     req.ID.String(),
			"title":          req.Title,
			"amount":         req.Amount.String(),
			"expense_type":   req.ExpenseType,
			"employee_id":    actor.ID.String(),
			"employee_email": actor.Email,
			"receipt_urls":   req.ReceiptURLs,
			"action":         "create",
		}
		if req.AssignedToID != nil {
			meta["assigned_to_id"] = req.AssignedToID.String()
			meta["assigned_to_email"] = req.AssignedToEmail
		}

		entry, err := s.audit.Record(ctx, ledger.LogParams{
			EventCode:   ledger.EventExpenseSubmitted,
			TriggeredBy: actor,
			Entity:      ledger.RefExpense(req.ID),
			Message:     fmt.Sprintf("Expense request %q submitted", req.Title),
			IPAddress:   ipAddress,
			Metadata:    meta,
		})
		if err != nil {
			return err
		}

		if req.AssignedToID != nil {
			_, err = s.notifier.Notify(ctx, entry, *req.AssignedToID, notification.ChannelInApp)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense request created",
		"expense_id", req.ID,
		"employee_id", actor.ID,
		"amount", dto.Amount.String(),
		"type", dto.ExpenseType)
	return req, nil
}

// Decide approves or rejects a pending request under a row lock so two
// reviewers cannot race. Idempotent: deciding a request already in the
// target state returns it unchanged with no second ledger entry.
func (s *Service) Decide(ctx context.Context, id uuid.UUID, dto DecideExpenseDTO, actor *user.Actor, ipAddress string) (*Request, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	targetCode := status.CodeApproved
	eventCode := ledger.EventExpenseApproved
	if dto.Decision == DecisionReject {
		targetCode = status.CodeRejected
		eventCode = ledger.EventExpenseRejected
	}

	var req *Request
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if req.StatusCode() == targetCode {
			s.logger.Info("expense already decided, returning unchanged", "expense_id", id, "decision", dto.Decision)
			return nil
		}
		if !req.IsPending() {
			return internal.NewIllegalStateError(
				fmt.Sprintf("cannot %s an expense in status %q", dto.Decision, req.StatusCode()),
				internal.ErrCodeIllegalTransition)
		}

		target, err := s.statuses.GetByCode(ctx, targetCode)
		if err != nil {
			return err
		}

		now := time.Now()
		req.StatusID = target.ID
		req.Status = target
		if req.Metadata == nil {
			req.Metadata = ledger.Metadata{}
		}
		req.Metadata["decision_by"] = actor.Email
		req.Metadata["decision_by_id"] = actor.ID.String()
		req.Metadata["decision_at"] = now.Format(time.RFC3339)
		if dto.Reason != "" {
			req.Metadata["decision_reason"] = dto.Reason
		}
		if err := s.repo.Save(ctx, req); err != nil {
			return err
		}

		entry, err := s.audit.Record(ctx, ledger.LogParams{
			EventCode:   eventCode,
			TriggeredBy: actor,
			Entity:      ledger.RefExpense(req.ID),
			Message:     fmt.Sprintf("Expense request %q %s", req.Title, targetCode),
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"expense_id":      req.ID.String(),
				"title":           req.Title,
				"amount":          req.Amount.String(),
				"decision":        dto.Decision,
				"decision_reason": dto.Reason,
				"decision_by":     actor.Email,
				"employee_id":     req.EmployeeID.String(),
			},
		})
		if err != nil {
			return err
		}

		_, err = s.notifier.Notify(ctx, entry, req.EmployeeID, notification.ChannelInApp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Disburse hands the approved cash out. For disbursement-type requests the
// paired reconciliation row is opened in the same transaction as the status
// flip, so the two can never diverge. Idempotent on disbursed.
func (s *Service) Disburse(ctx context.Context, id uuid.UUID, actor *user.Actor, ipAddress string) (*Request, error) {
	var req *Request
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if req.IsDisbursed() {
			s.logger.Info("expense already disbursed, returning unchanged", "expense_id", id)
			return nil
		}
		if !req.IsApproved() {
			return internal.NewIllegalStateError(
				fmt.Sprintf("cannot disburse an expense in status %q", req.StatusCode()),
				internal.ErrCodeIllegalTransition)
		}

		disbursed, err := s.statuses.GetByCode(ctx, status.CodeDisbursed)
		if err != nil {
			return err
		}

		now := time.Now()
		req.StatusID = disbursed.ID
		req.Status = disbursed
		if req.Metadata == nil {
			req.Metadata = ledger.Metadata{}
		}
		req.Metadata["disbursed_by"] = actor.Email
		req.Metadata["disbursed_by_id"] = actor.ID.String()
		req.Metadata["disbursed_at"] = now.Format(time.RFC3339)
		if err := s.repo.Save(ctx, req); err != nil {
			return err
		}

		if req.RequiresReconciliation() {
			if s.reconciliations == nil {
				return internal.NewInternalError("reconciliation workflow not wired", nil)
			}
			if err := s.reconciliations.OpenForExpense(ctx, req.ID, req.EmployeeID, req.EmployeeEmail, req.Amount); err != nil {
				return err
			}
		}

		entry, err := s.audit.Record(ctx, ledger.LogParams{
			EventCode:   ledger.EventExpenseDisbursed,
			TriggeredBy: actor,
			Entity:      ledger.RefExpense(req.ID),
			Message:     fmt.Sprintf("Expense request %q disbursed", req.Title),
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"expense_id":   req.ID.String(),
				"title":        req.Title,
				"amount":       req.Amount.String(),
				"expense_type": req.ExpenseType,
				"disbursed_by": actor.Email,
				"employee_id":  req.EmployeeID.String(),
			},
		})
		if err != nil {
			return err
		}

		_, err = s.notifier.Notify(ctx, entry, req.EmployeeID, notification.ChannelInApp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// CompleteFromReconciliation flips a disbursed expense to completed. Called
// by the reconciliation review inside its own transaction so the cascade is
// atomic. Satisfies the reconciliation workflow's ExpenseCompleter.
func (s *Service) CompleteFromReconciliation(ctx context.Context, expenseID uuid.UUID, actor *user.Actor, ipAddress string) error {
	return s.tx.Do(ctx, func(ctx context.Context) error {
		req, err := s.repo.GetByIDForUpdate(ctx, expenseID)
		if err != nil {
			return err
		}

		if !req.IsDisbursed() {
			return internal.NewIllegalStateError(
				fmt.Sprintf("cannot complete an expense in status %q", req.StatusCode()),
				internal.ErrCodeIllegalTransition)
		}

		completed, err := s.statuses.GetByCode(ctx, status.CodeCompleted)
		if err != nil {
			return err
		}
		req.StatusID = completed.ID
		req.Status = completed
		if err := s.repo.Save(ctx, req); err != nil {
			return err
		}

		entry, err := s.audit.Record(ctx, ledger.LogParams{
			EventCode:   ledger.EventExpenseCompleted,
			TriggeredBy: actor,
			Entity:      ledger.RefExpense(req.ID),
			Message:     fmt.Sprintf("Expense request %q completed after reconciliation", req.Title),
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"expense_id":  req.ID.String(),
				"title":       req.Title,
				"amount":      req.Amount.String(),
				"employee_id": req.EmployeeID.String(),
			},
		})
		if err != nil {
			return err
		}

		_, err = s.notifier.Notify(ctx, entry, req.EmployeeID, notification.ChannelInApp)
		return err
	})
}

// Update edits the request while it is still pending; old and new values go
// into the audit metadata.
func (s *Service) Update(ctx context.Context, id uuid.UUID, dto UpdateExpenseDTO, actor *user.Actor, ipAddress string) (*Request, error) {
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
				fmt.Sprintf("cannot update an expense in status %q", req.StatusCode()),
				internal.ErrCodeImmutableRecord)
		}

		oldValues := ledger.Metadata{}
		newValues := ledger.Metadata{}
		changed := make([]string, 0, 5)

		if dto.Title != nil && *dto.Title != req.Title {
			oldValues["title"] = req.Title
			req.Title = *dto.Title
			newValues["title"] = req.Title
			changed = append(changed, "title")
		}
		if dto.Description != nil && *dto.Description != req.Description {
			oldValues["description"] = req.Description
			req.Description = *dto.Description
			newValues["description"] = req.Description
			changed = append(changed, "description")
		}
		if dto.MpesaPhone != nil && *dto.MpesaPhone != req.MpesaPhone {
			oldValues["mpesa_phone"] = req.MpesaPhone
			req.MpesaPhone = *dto.MpesaPhone
			newValues["mpesa_phone"] = req.MpesaPhone
			changed = append(changed, "mpesa_phone")
		}
		if dto.Amount != nil && !dto.Amount.Equal(req.Amount) {
			oldValues["amount"] = req.Amount.String()
			req.Amount = *dto.Amount
			newValues["amount"] = req.Amount.String()
			changed = append(changed, "amount")
		}
		if dto.ReceiptURLs != nil {
			oldValues["receipt_urls"] = req.ReceiptURLs
			req.ReceiptURLs = dto.ReceiptURLs
			newValues["receipt_urls"] = req.ReceiptURLs
			changed = append(changed, "receipt_urls")
		}

		if len(changed) == 0 {
			return nil
		}

		if err := s.repo.Save(ctx, req); err != nil {
			return err
		}

		_, err = s.audit.Record(ctx, ledger.LogParams{
			EventCode:   ledger.EventExpenseUpdated,
			TriggeredBy: actor,
			Entity:      ledger.RefExpense(req.ID),
			Message:     fmt.Sprintf("Expense request %q updated", req.Title),
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"expense_id":     req.ID.String(),
				"updated_fields": changed,
				"old_values":     oldValues,
				"new_values":     newValues,
				"updated_by":     actor.Email,
				"employee_id":    req.EmployeeID.String(),
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
			EventCode:   ledger.EventExpenseUpdated,
			TriggeredBy: actor,
			Entity:      ledger.RefExpense(req.ID),
			StatusCode:  status.CodeInactive,
			Message:     fmt.Sprintf("Expense request %q deactivated", req.Title),
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"expense_id":     req.ID.String(),
				"title":          req.Title,
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
	return s.repo.ListByEmployee(ctx, actor.ID, limit, offset)
}
