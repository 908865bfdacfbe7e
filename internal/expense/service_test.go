package expense_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/expense"
	"github.com/savannahq/pettycash/internal/ledger"
	"github.com/savannahq/pettycash/internal/notification"
	"github.com/savannahq/pettycash/internal/status"
	"github.com/savannahq/pettycash/internal/user"
	"github.com/shopspring/decimal"
)

func TestExpenseService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ExpenseService Suite")
}

// Mock repository for testing
type mockExpenseRepository struct {
	requests  map[uuid.UUID]*expense.Request
	createErr error
	saveErr   error
}

func newMockExpenseRepository() *mockExpenseRepository {
	return &mockExpenseRepository{requests: make(map[uuid.UUID]*expense.Request)}
}

func (m *mockExpenseRepository) Create(_ context.Context, req *expense.Request) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.requests[req.ID] = req
	return nil
}

func (m *mockExpenseRepository) GetByID(_ context.Context, id uuid.UUID) (*expense.Request, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, internal.ErrExpenseNotFound
	}
	return req, nil
}

func (m *mockExpenseRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*expense.Request, error) {
	return m.GetByID(ctx, id)
}

func (m *mockExpenseRepository) Save(_ context.Context, req *expense.Request) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.requests[req.ID] = req
	return nil
}

func (m *mockExpenseRepository) ListAll(_ context.Context, limit, offset int) ([]*expense.Request, error) {
	out := make([]*expense.Request, 0, len(m.requests))
	for _, req := range m.requests {
		out = append(out, req)
	}
	return out, nil
}

func (m *mockExpenseRepository) ListByEmployee(_ context.Context, employeeID uuid.UUID, limit, offset int) ([]*expense.Request, error) {
	out := make([]*expense.Request, 0)
	for _, req := range m.requests {
		if req.EmployeeID == employeeID {
			out = append(out, req)
		}
	}
	return out, nil
}

// Mock status lookup seeded with every workflow code
type mockStatusRepository struct {
	byCode map[string]*status.Status
}

func newMockStatusRepository() *mockStatusRepository {
	m := &mockStatusRepository{byCode: make(map[string]*status.Status)}
	for _, code := range []string{
		status.CodeActive, status.CodeInactive, status.CodePending,
		status.CodeApproved, status.CodeRejected, status.CodeDisbursed,
		status.CodeCompleted, status.CodeUnderReview, status.CodeComplete,
		status.CodeReturned,
	} {
		m.byCode[code] = &status.Status{ID: uuid.New(), Code: code, Name: code}
	}
	return m
}

func (m *mockStatusRepository) GetByCode(_ context.Context, code string) (*status.Status, error) {
	st, ok := m.byCode[code]
	if !ok {
		return nil, internal.ErrStatusNotFound
	}
	return st, nil
}

func (m *mockStatusRepository) GetByID(_ context.Context, id uuid.UUID) (*status.Status, error) {
	for _, st := range m.byCode {
		if st.ID == id {
			return st, nil
		}
	}
	return nil, internal.ErrStatusNotFound
}

func (m *mockStatusRepository) ListAll(_ context.Context) ([]*status.Status, error) {
	out := make([]*status.Status, 0, len(m.byCode))
	for _, st := range m.byCode {
		out = append(out, st)
	}
	return out, nil
}

// Mock audit logger capturing every ledger write
type mockAuditLogger struct {
	records   []ledger.LogParams
	recordErr error
}

func (m *mockAuditLogger) Record(_ context.Context, params ledger.LogParams) (*ledger.Entry, error) {
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	m.records = append(m.records, params)
	return &ledger.Entry{ID: uuid.New()}, nil
}

func (m *mockAuditLogger) lastEventCode() string {
	if len(m.records) == 0 {
		return ""
	}
	return m.records[len(m.records)-1].EventCode
}

// Mock notifier capturing recipients
type mockNotifier struct {
	recipients []uuid.UUID
}

func (m *mockNotifier) Notify(_ context.Context, entry *ledger.Entry, recipientID uuid.UUID, _ notification.Channel) (*notification.Notification, error) {
	m.recipients = append(m.recipients, recipientID)
	return &notification.Notification{ID: uuid.New(), TransactionLogID: entry.ID, RecipientID: recipientID}, nil
}

// Mock reconciliation opener
type mockReconciliationOpener struct {
	opened  []uuid.UUID
	openErr error
}

func (m *mockReconciliationOpener) OpenForExpense(_ context.Context, expenseID, _ uuid.UUID, _ string, _ decimal.Decimal) error {
	if m.openErr != nil {
		return m.openErr
	}
	m.opened = append(m.opened, expenseID)
	return nil
}

// Pass-through transaction manager
type mockTxManager struct{}

func (mockTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ = Describe("ExpenseService", func() {
	var (
		svc       *expense.Service
		mockRepo  *mockExpenseRepository
		statuses  *mockStatusRepository
		audit     *mockAuditLogger
		notifier  *mockNotifier
		recons    *mockReconciliationOpener
		actor     *user.Actor
		ctx       context.Context
		ipAddress string
	)

	BeforeEach(func() {
		mockRepo = newMockExpenseRepository()
		statuses = newMockStatusRepository()
		audit = &mockAuditLogger{}
		notifier = &mockNotifier{}
		recons = &mockReconciliationOpener{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		svc = expense.NewService(mockRepo, statuses, audit, notifier, mockTxManager{}, logger)
		svc.SetReconciliations(recons)

		actor = &user.Actor{ID: uuid.New(), Email: "jane@savannah.example", Name: "Jane"}
		ctx = context.Background()
		ipAddress = "10.0.0.1"
	})

	Describe("Create", func() {
		Context("with a valid disbursement request", func() {
			It("should create a pending request and log the submission", func() {
				dto := expense.CreateExpenseDTO{
					ExpenseType: expense.TypeDisbursement,
					Title:       "Office supplies",
					Description: "Printer paper and toner",
					Amount:      decimal.NewFromInt(4500),
				}

				result, err := svc.Create(ctx, dto, actor, ipAddress)

				Expect(err).ToNot(HaveOccurred())
				Expect(result).ToNot(BeNil())
				Expect(result.StatusCode()).To(Equal(status.CodePending))
				Expect(result.EmployeeID).To(Equal(actor.ID))
				Expect(audit.lastEventCode()).To(Equal(ledger.EventExpenseSubmitted))
			})

			It("should not notify anyone when no approver is assigned", func() {
				_, err := svc.Create(ctx, expense.CreateExpenseDTO{
					ExpenseType: expense.TypeDisbursement,
					Title:       "Office supplies",
					Description: "Printer paper and toner",
					Amount:      decimal.NewFromInt(4500),
				}, actor, ipAddress)

				Expect(err).ToNot(HaveOccurred())
				Expect(notifier.recipients).To(BeEmpty())
			})
		})

		Context("addressed to a specific approver", func() {
			It("should record the assignment and notify the approver", func() {
				approverID := uuid.New()

				result, err := svc.Create(ctx, expense.CreateExpenseDTO{
					ExpenseType:     expense.TypeDisbursement,
					Title:           "Office supplies",
					Description:     "Printer paper and toner",
					Amount:          decimal.NewFromInt(4500),
					AssignedToID:    &approverID,
					AssignedToEmail: "boss@savannah.example",
				}, actor, ipAddress)

				Expect(err).ToNot(HaveOccurred())
				Expect(result.AssignedToID).ToNot(BeNil())
				Expect(*result.AssignedToID).To(Equal(approverID))
				Expect(notifier.recipients).To(ConsistOf(approverID))

				last := audit.records[len(audit.records)-1]
				Expect(last.Metadata["assigned_to_id"]).To(Equal(approverID.String()))
				Expect(last.Metadata["assigned_to_email"]).To(Equal("boss@savannah.example"))
			})
		})

		Context("with a reimbursement missing its receipt", func() {
			It("should reject the submission", func() {
				dto := expense.CreateExpenseDTO{
					ExpenseType: expense.TypeReimbursement,
					Title:       "Taxi fare",
					Description: "Client site visit",
					Amount:      decimal.NewFromInt(1200),
				}

				result, err := svc.Create(ctx, dto, actor, ipAddress)

				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("receipt is required"))
				Expect(result).To(BeNil())
				Expect(audit.records).To(BeEmpty())
			})
		})

		Context("with a reimbursement carrying a receipt", func() {
			It("should create the request", func() {
				dto := expense.CreateExpenseDTO{
					ExpenseType: expense.TypeReimbursement,
					Title:       "Taxi fare",
					Description: "Client site visit",
					Amount:      decimal.NewFromInt(1200),
					ReceiptURLs: []string{"https://receipts.example/r1.pdf"},
				}

				result, err := svc.Create(ctx, dto, actor, ipAddress)

				Expect(err).ToNot(HaveOccurred())
				Expect(result.ReceiptURLs).To(HaveLen(1))
			})
		})

		Context("with a non-positive amount", func() {
			It("should return a validation error", func() {
				dto := expense.CreateExpenseDTO{
					ExpenseType: expense.TypeDisbursement,
					Title:       "Nothing",
					Description: "Zero amount",
					Amount:      decimal.Zero,
				}

				_, err := svc.Create(ctx, dto, actor, ipAddress)

				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Decide", func() {
		var req *expense.Request

		BeforeEach(func() {
			var err error
			req, err = svc.Create(ctx, expense.CreateExpenseDTO{
				ExpenseType: expense.TypeDisbursement,
				Title:       "Office supplies",
				Description: "Printer paper",
				Amount:      decimal.NewFromInt(4500),
			}, actor, ipAddress)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should approve a pending request and notify the employee", func() {
			approver := &user.Actor{ID: uuid.New(), Email: "boss@savannah.example"}

			result, err := svc.Decide(ctx, req.ID, expense.DecideExpenseDTO{Decision: expense.DecisionApprove}, approver, ipAddress)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.StatusCode()).To(Equal(status.CodeApproved))
			Expect(result.Metadata["decision_by"]).To(Equal(approver.Email))
			Expect(audit.lastEventCode()).To(Equal(ledger.EventExpenseApproved))
			Expect(notifier.recipients).To(ContainElement(actor.ID))
		})

		It("should reject a pending request with a reason", func() {
			approver := &user.Actor{ID: uuid.New(), Email: "boss@savannah.example"}

			result, err := svc.Decide(ctx, req.ID, expense.DecideExpenseDTO{
				Decision: expense.DecisionReject,
				Reason:   "Not budgeted",
			}, approver, ipAddress)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.StatusCode()).To(Equal(status.CodeRejected))
			Expect(result.Metadata["decision_reason"]).To(Equal("Not budgeted"))
			Expect(audit.lastEventCode()).To(Equal(ledger.EventExpenseRejected))
		})

		It("should be idempotent when the request is already in the target state", func() {
			approver := &user.Actor{ID: uuid.New(), Email: "boss@savannah.example"}
			_, err := svc.Decide(ctx, req.ID, expense.DecideExpenseDTO{Decision: expense.DecisionApprove}, approver, ipAddress)
			Expect(err).ToNot(HaveOccurred())
			entriesAfterFirst := len(audit.records)

			result, err := svc.Decide(ctx, req.ID, expense.DecideExpenseDTO{Decision: expense.DecisionApprove}, approver, ipAddress)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.StatusCode()).To(Equal(status.CodeApproved))
			Expect(audit.records).To(HaveLen(entriesAfterFirst))
		})

		It("should refuse to reject an approved request", func() {
			approver := &user.Actor{ID: uuid.New(), Email: "boss@savannah.example"}
			_, err := svc.Decide(ctx, req.ID, expense.DecideExpenseDTO{Decision: expense.DecisionApprove}, approver, ipAddress)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.Decide(ctx, req.ID, expense.DecideExpenseDTO{Decision: expense.DecisionReject}, approver, ipAddress)

			Expect(err).To(HaveOccurred())
			var appErr *internal.AppError
			Expect(err).To(BeAssignableToTypeOf(appErr))
			Expect(err.(*internal.AppError).Type).To(Equal(internal.ErrorTypeIllegalState))
		})

		It("should return not found for an unknown ID", func() {
			_, err := svc.Decide(ctx, uuid.New(), expense.DecideExpenseDTO{Decision: expense.DecisionApprove}, actor, ipAddress)
			Expect(err).To(Equal(internal.ErrExpenseNotFound))
		})
	})

	Describe("Disburse", func() {
		var approver *user.Actor

		BeforeEach(func() {
			approver = &user.Actor{ID: uuid.New(), Email: "boss@savannah.example"}
		})

		createApproved := func(expenseType string) *expense.Request {
			dto := expense.CreateExpenseDTO{
				ExpenseType: expenseType,
				Title:       "Field work cash",
				Description: "Site survey advance",
				Amount:      decimal.NewFromInt(10000),
			}
			if expenseType == expense.TypeReimbursement {
				dto.ReceiptURLs = []string{"https://receipts.example/r1.pdf"}
			}
			req, err := svc.Create(ctx, dto, actor, ipAddress)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.Decide(ctx, req.ID, expense.DecideExpenseDTO{Decision: expense.DecisionApprove}, approver, ipAddress)
			Expect(err).ToNot(HaveOccurred())
			return req
		}

		It("should disburse an approved disbursement request and open its reconciliation", func() {
			req := createApproved(expense.TypeDisbursement)

			result, err := svc.Disburse(ctx, req.ID, approver, ipAddress)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.StatusCode()).To(Equal(status.CodeDisbursed))
			Expect(recons.opened).To(ConsistOf(req.ID))
			Expect(audit.lastEventCode()).To(Equal(ledger.EventExpenseDisbursed))
		})

		It("should not open a reconciliation for a reimbursement", func() {
			req := createApproved(expense.TypeReimbursement)

			result, err := svc.Disburse(ctx, req.ID, approver, ipAddress)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.StatusCode()).To(Equal(status.CodeDisbursed))
			Expect(recons.opened).To(BeEmpty())
		})

		It("should be idempotent once disbursed", func() {
			req := createApproved(expense.TypeDisbursement)
			_, err := svc.Disburse(ctx, req.ID, approver, ipAddress)
			Expect(err).ToNot(HaveOccurred())
			entriesAfterFirst := len(audit.records)

			result, err := svc.Disburse(ctx, req.ID, approver, ipAddress)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.StatusCode()).To(Equal(status.CodeDisbursed))
			Expect(audit.records).To(HaveLen(entriesAfterFirst))
			Expect(recons.opened).To(HaveLen(1))
		})

		It("should refuse to disburse a pending request", func() {
			req, err := svc.Create(ctx, expense.CreateExpenseDTO{
				ExpenseType: expense.TypeDisbursement,
				Title:       "Field work cash",
				Description: "Site survey advance",
				Amount:      decimal.NewFromInt(10000),
			}, actor, ipAddress)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.Disburse(ctx, req.ID, approver, ipAddress)

			Expect(err).To(HaveOccurred())
			Expect(err.(*internal.AppError).Type).To(Equal(internal.ErrorTypeIllegalState))
		})

		It("should fail the whole disbursement when opening the reconciliation fails", func() {
			req := createApproved(expense.TypeDisbursement)
			recons.openErr = internal.NewInternalError("reconciliation insert failed", nil)

			_, err := svc.Disburse(ctx, req.ID, approver, ipAddress)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("CompleteFromReconciliation", func() {
		It("should complete a disbursed request", func() {
			approver := &user.Actor{ID: uuid.New(), Email: "boss@savannah.example"}
			req, err := svc.Create(ctx, expense.CreateExpenseDTO{
				ExpenseType: expense.TypeDisbursement,
				Title:       "Field work cash",
				Description: "Site survey advance",
				Amount:      decimal.NewFromInt(10000),
			}, actor, ipAddress)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.Decide(ctx, req.ID, expense.DecideExpenseDTO{Decision: expense.DecisionApprove}, approver, ipAddress)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.Disburse(ctx, req.ID, approver, ipAddress)
			Expect(err).ToNot(HaveOccurred())

			err = svc.CompleteFromReconciliation(ctx, req.ID, approver, ipAddress)

			Expect(err).ToNot(HaveOccurred())
			stored, err := svc.GetByID(ctx, req.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.StatusCode()).To(Equal(status.CodeCompleted))
			Expect(audit.lastEventCode()).To(Equal(ledger.EventExpenseCompleted))
		})

		It("should refuse to complete a pending request", func() {
			req, err := svc.Create(ctx, expense.CreateExpenseDTO{
				ExpenseType: expense.TypeDisbursement,
				Title:       "Field work cash",
				Description: "Site survey advance",
				Amount:      decimal.NewFromInt(10000),
			}, actor, ipAddress)
			Expect(err).ToNot(HaveOccurred())

			err = svc.CompleteFromReconciliation(ctx, req.ID, actor, ipAddress)

			Expect(err).To(HaveOccurred())
			Expect(err.(*internal.AppError).Type).To(Equal(internal.ErrorTypeIllegalState))
		})
	})

	Describe("Update", func() {
		It("should update a pending request and record old and new values", func() {
			req, err := svc.Create(ctx, expense.CreateExpenseDTO{
				ExpenseType: expense.TypeDisbursement,
				Title:       "Office supplies",
				Description: "Printer paper",
				Amount:      decimal.NewFromInt(4500),
			}, actor, ipAddress)
			Expect(err).ToNot(HaveOccurred())

			newTitle := "Office supplies and stationery"
			newAmount := decimal.NewFromInt(5200)
			result, err := svc.Update(ctx, req.ID, expense.UpdateExpenseDTO{
				Title:  &newTitle,
				Amount: &newAmount,
			}, actor, ipAddress)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Title).To(Equal(newTitle))
			Expect(result.Amount.Equal(newAmount)).To(BeTrue())
			Expect(audit.lastEventCode()).To(Equal(ledger.EventExpenseUpdated))
			last := audit.records[len(audit.records)-1]
			Expect(last.Metadata["old_values"]).ToNot(BeNil())
			Expect(last.Metadata["new_values"]).ToNot(BeNil())
		})

		It("should refuse to update an approved request", func() {
			approver := &user.Actor{ID: uuid.New(), Email: "boss@savannah.example"}
			req, err := svc.Create(ctx, expense.CreateExpenseDTO{
				ExpenseType: expense.TypeDisbursement,
				Title:       "Office supplies",
				Description: "Printer paper",
				Amount:      decimal.NewFromInt(4500),
			}, actor, ipAddress)
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.Decide(ctx, req.ID, expense.DecideExpenseDTO{Decision: expense.DecisionApprove}, approver, ipAddress)
			Expect(err).ToNot(HaveOccurred())

			newTitle := "Changed"
			_, err = svc.Update(ctx, req.ID, expense.UpdateExpenseDTO{Title: &newTitle}, actor, ipAddress)

			Expect(err).To(HaveOccurred())
			Expect(err.(*internal.AppError).Type).To(Equal(internal.ErrorTypeIllegalState))
		})
	})

	Describe("Deactivate", func() {
		It("should soft-delete the request", func() {
			req, err := svc.Create(ctx, expense.CreateExpenseDTO{
				ExpenseType: expense.TypeDisbursement,
				Title:       "Office supplies",
				Description: "Printer paper",
				Amount:      decimal.NewFromInt(4500),
			}, actor, ipAddress)
			Expect(err).ToNot(HaveOccurred())

			result, err := svc.Deactivate(ctx, req.ID, actor, ipAddress)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.IsActive).To(BeFalse())
			Expect(result.StatusCode()).To(Equal(status.CodeInactive))
		})
	})
})
