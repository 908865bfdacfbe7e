package reconciliation

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

// Repository defines the data access methods for reconciliations.
type Repository interface {
	Create(ctx context.Context, rec *Reconciliation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reconciliation, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Reconciliation, error)
	GetByExpenseID(ctx context.Context, expenseID uuid.UUID) (*Reconciliation, error)
	Save(ctx context.Context, rec *Reconciliation) error
	ListAll(ctx context.Context, limit, offset int) ([]*Reconciliation, error)
	ListBySubmitter(ctx context.Context, submitterID uuid.UUID, limit, offset int) ([]*Reconciliation, error)
	ListByStatus(ctx context.Context, statusCode string, limit, offset int) ([]*Reconciliation, error)
}

// AuditLogger appends to the transaction log within the ambient transaction.
type AuditLogger interface {
	Record(ctx context.Context, params ledger.LogParams) (*ledger.Entry, error)
}

// Notifier creates notification records alongside ledger entries.
type Notifier interface {
	Notify(ctx context.Context, entry *ledger.Entry, recipientID uuid.UUID, channel notification.Channel) (*notification.Notification, error)
}

// ExpenseCompleter is the slice of the expense workflow the review cascade
// needs. Wired by cmd after both services exist.
type ExpenseCompleter interface {
	CompleteFromReconciliation(ctx context.Context, expenseID uuid.UUID, actor *user.Actor, ipAddress string) error
}

// Service drives the disbursement reconciliation workflow.
type Service struct {
	repo     Repository
	statuses status.Repository
	audit    AuditLogger
	notifier Notifier
	expenses ExpenseCompleter
	tx       database.TxManager
	logger   *slog.Logger
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

// SetExpenses injects the expense collaborator. Separate from the
// constructor because the expense service needs this service to open
// reconciliations at disbursement time.
func (s *Service) SetExpenses(e ExpenseCompleter) {
	s.expenses = e
}

// OpenForExpense creates the pending reconciliation paired with a freshly
// disbursed expense. Runs inside the caller's transaction; the disbursement
// ledger entry covers the event, so no separate entry is written here.
// Satisfies the expense workflow's ReconciliationOpener.
func (s *Service) OpenForExpense(ctx context.Context, expenseID, employeeID uuid.UUID, employeeEmail string, totalAmount decimal.Decimal) error {
	return s.tx.Do(ctx, func(ctx context.Context) error {
		pending, err := s.statuses.GetByCode(ctx, status.CodePending)
		if err != nil {
			return err
		}

		rec := &Reconciliation{
			ID:               uuid.New(),
			ExpenseRequestID: expenseID,
			SubmittedByID:    employeeID,
			SubmittedByEmail: employeeEmail,
			TotalAmount:      totalAmount,
			StatusID:         pending.ID,
			Status:           pending,
			Metadata:         ledger.Metadata{},
			IsActive:         true,
		}
		if err := s.repo.Create(ctx, rec); err != nil {
			return err
		}

		s.logger.Info("reconciliation opened",
			"reconciliation_id", rec.ID,
			"expense_id", expenseID,
			"total_amount", totalAmount.String())
		return nil
	})
}

// SubmitReceipt records the employee's receipts and declared surplus and
// moves the reconciliation to under_review. Accepted while pending or
// returned for correction; the reconciled amount can never exceed the
// disbursed total and the surplus can never exceed the unspent difference.
func (s *Service) SubmitReceipt(ctx context.Context, id uuid.UUID, dto SubmitReceiptDTO, actor *user.Actor, ipAddress string) (*Reconciliation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var rec *Reconciliation
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		code := rec.StatusCode()
		if code != status.CodePending && code != status.CodeReturned {
			return internal.NewIllegalStateError(
				fmt.Sprintf("cannot submit receipts for a reconciliation in status %q", code),
				internal.ErrCodeIllegalTransition)
		}
		if dto.ReconciledAmount.GreaterThan(rec.TotalAmount) {
			return internal.NewValidationFieldError("reconciled_amount",
				fmt.Sprintf("reconciled amount %s exceeds disbursed total %s",
					dto.ReconciledAmount.String(), rec.TotalAmount.String()),
				internal.ErrCodeInvalidAmount)
		}

		underReview, err := s.statuses.GetByCode(ctx, status.CodeUnderReview)
		if err != nil {
			return err
		}

		// The surplus is the employee's declaration, stored verbatim. It can
		// fall short of the unspent difference (a shortfall the reviewer will
		// see) but never exceed it.
		rec.ReconciledAmount = &dto.ReconciledAmount
		if dto.SurplusReturned.GreaterThan(rec.Surplus()) {
			return internal.NewValidationFieldError("surplus_returned",
				fmt.Sprintf("surplus returned %s exceeds the unspent difference %s",
					dto.SurplusReturned.String(), rec.Surplus().String()),
				internal.ErrCodeInvalidAmount)
		}
		rec.SurplusReturned = &dto.SurplusReturned
		rec.ReceiptURL = dto.ReceiptURL
		rec.Comments = dto.Comments
		rec.StatusID = underReview.ID
		rec.Status = underReview
		if err := s.repo.Save(ctx, rec); err != nil {
			return err
		}

		_, err = s.audit.Record(ctx, ledger.LogParams{
			EventCode:   ledger.EventReconciliationSubmitted,
			TriggeredBy: actor,
			Entity:      ledger.RefReconciliation(rec.ID),
			Message:     fmt.Sprintf("Receipts submitted for reconciliation of expense %s", rec.ExpenseRequestID),
			IPAddress:   ipAddress,
			Metadata: ledger.Metadata{
				"reconciliation_id": rec.ID.String(),
				"expense_id":        rec.ExpenseRequestID.String(),
				"total_amount":      rec.TotalAmount.String(),
				"reconciled_amount": dto.ReconciledAmount.String(),
				"surplus_returned":  dto.SurplusReturned.String(),
				"unspent_amount":    rec.Surplus().String(),
				"receipt_url":       dto.ReceiptURL,
				"submitted_by":      actor.Email,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Review completes the reconciliation or returns it for correction.
// Completing cascades the parent expense to completed in the same
// transaction. Idempotent on completed: reviewing an already completed
// reconciliation returns it unchanged with no second ledger entry.
func (s *Service) Review(ctx context.Context, id uuid.UUID, dto ReviewDTO, actor *user.Actor, ipAddress string) (*Reconciliation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var rec *Reconciliation
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if rec.IsCompleted() {
			s.logger.Info("reconciliation already completed, returning unchanged", "reconciliation_id", id)
			return nil
		}
		if !rec.IsUnderReview() {
			return internal.NewIllegalStateError(
				fmt.Sprintf("cannot review a reconciliation in status %q", rec.StatusCode()),
				internal.ErrCodeIllegalTransition)
		}

		if dto.Decision == DecisionComplete {
			return s.complete(ctx, rec, dto, actor, ipAddress)
		}
		return s.returnForCorrection(ctx, rec, dto, actor, ipAddress)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) complete(ctx context.Context, rec *Reconciliation, dto ReviewDTO, actor *user.Actor, ipAddress string) error {
	completed, err := s.statuses.GetByCode(ctx, status.CodeCompleted)
	if err != nil {
		return err
	}

	now := time.Now()
	rec.StatusID = completed.ID
	rec.Status = completed
	rec.ApprovedByID = &actor.ID
	rec.ApprovedByEmail = actor.Email
	rec.ApprovedAt = &now
	if dto.Comments != "" {
		if rec.Metadata == nil {
			rec.Metadata = ledger.Metadata{}
		}
		rec.Metadata["review_comments"] = dto.Comments
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return err
	}

	if s.expenses == nil {
		return internal.NewInternalError("expense workflow not wired", nil)
	}
	if err := s.expenses.CompleteFromReconciliation(ctx, rec.ExpenseRequestID, actor, ipAddress); err != nil {
		return err
	}

	entry, err := s.audit.Record(ctx, ledger.LogParams{
		EventCode:   ledger.EventReconciliationCompleted,
		TriggeredBy: actor,
		Entity:      ledger.RefReconciliation(rec.ID),
		Message:     fmt.Sprintf("Reconciliation of expense %s completed", rec.ExpenseRequestID),
		IPAddress:   ipAddress,
		Metadata: ledger.Metadata{
			"reconciliation_id": rec.ID.String(),
			"expense_id":        rec.ExpenseRequestID.String(),
			"reconciled_amount": rec.ReconciledAmount.String(),
			"surplus_returned":  rec.SurplusReturned.String(),
			"approved_by":       actor.Email,
		},
	})
	if err != nil {
		return err
	}

	_, err = s.notifier.Notify(ctx, entry, rec.SubmittedByID, notification.ChannelInApp)
	return err
}

// returnForCorrection clears the submitted receipt fields and hands the
// reconciliation back to the employee. Non-terminal, unlike a rejection.
func (s *Service) returnForCorrection(ctx context.Context, rec *Reconciliation, dto ReviewDTO, actor *user.Actor, ipAddress string) error {
	returned, err := s.statuses.GetByCode(ctx, status.CodeReturned)
	if err != nil {
		return err
	}

	priorAmount := ""
	if rec.ReconciledAmount != nil {
		priorAmount = rec.ReconciledAmount.String()
	}

	rec.StatusID = returned.ID
	rec.Status = returned
	rec.ReconciledAmount = nil
	rec.SurplusReturned = nil
	rec.ReceiptURL = ""
	if rec.Metadata == nil {
		rec.Metadata = ledger.Metadata{}
	}
	rec.Metadata["returned_by"] = actor.Email
	rec.Metadata["returned_at"] = time.Now().Format(time.RFC3339)
	if dto.Comments != "" {
		rec.Metadata["return_comments"] = dto.Comments
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return err
	}

	entry, err := s.audit.Record(ctx, ledger.LogParams{
		EventCode:   ledger.EventReconciliationReturned,
		TriggeredBy: actor,
		Entity:      ledger.RefReconciliation(rec.ID),
		StatusCode:  status.CodeReturned,
		Message:     fmt.Sprintf("Reconciliation of expense %s returned for correction", rec.ExpenseRequestID),
		IPAddress:   ipAddress,
		Metadata: ledger.Metadata{
			"reconciliation_id":       rec.ID.String(),
			"expense_id":              rec.ExpenseRequestID.String(),
			"prior_reconciled_amount": priorAmount,
			"returned_by":             actor.Email,
			"comments":                dto.Comments,
		},
	})
	if err != nil {
		return err
	}

	_, err = s.notifier.Notify(ctx, entry, rec.SubmittedByID, notification.ChannelInApp)
	return err
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Reconciliation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByExpenseID(ctx context.Context, expenseID uuid.UUID) (*Reconciliation, error) {
	return s.repo.GetByExpenseID(ctx, expenseID)
}

func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]*Reconciliation, error) {
	return s.repo.ListAll(ctx, limit, offset)
}

func (s *Service) ListForActor(ctx context.Context, actor *user.Actor, limit, offset int) ([]*Reconciliation, error) {
	return s.repo.ListBySubmitter(ctx, actor.ID, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, statusCode string, limit, offset int) ([]*Reconciliation, error) {
	return s.repo.ListByStatus(ctx, statusCode, limit, offset)
}
