package pettycash_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/ledger"
	"github.com/savannahq/pettycash/internal/pettycash"
	"github.com/savannahq/pettycash/internal/user"
	"github.com/shopspring/decimal"
)

func TestPettyCashService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PettyCashService Suite")
}

// Mock repository for testing
type mockAccountRepository struct {
	accounts map[uuid.UUID]*pettycash.Account
}

func newMockAccountRepository() *mockAccountRepository {
	return &mockAccountRepository{accounts: make(map[uuid.UUID]*pettycash.Account)}
}

func (m *mockAccountRepository) Create(_ context.Context, account *pettycash.Account) error {
	m.accounts[account.ID] = account
	return nil
}

func (m *mockAccountRepository) GetByID(_ context.Context, id uuid.UUID) (*pettycash.Account, error) {
	account, ok := m.accounts[id]
	if !ok {
		return nil, internal.ErrAccountNotFound
	}
	return account, nil
}

func (m *mockAccountRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*pettycash.Account, error) {
	return m.GetByID(ctx, id)
}

func (m *mockAccountRepository) Save(_ context.Context, account *pettycash.Account) error {
	m.accounts[account.ID] = account
	return nil
}

func (m *mockAccountRepository) HasActiveAccount(_ context.Context) (bool, error) {
	for _, account := range m.accounts {
		if account.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAccountRepository) ListActive(_ context.Context) ([]*pettycash.Account, error) {
	out := make([]*pettycash.Account, 0)
	for _, account := range m.accounts {
		if account.IsActive {
			out = append(out, account)
		}
	}
	return out, nil
}

// Mock audit logger
type mockAuditLogger struct {
	records []ledger.LogParams
}

func (m *mockAuditLogger) Record(_ context.Context, params ledger.LogParams) (*ledger.Entry, error) {
	m.records = append(m.records, params)
	return &ledger.Entry{ID: uuid.New()}, nil
}

// Mock auto top-up collaborator
type mockAutoTopUpCreator struct {
	pending    bool
	pendingErr error
	created    []decimal.Decimal
	createErr  error
}

func (m *mockAutoTopUpCreator) HasPendingForAccount(_ context.Context, _ uuid.UUID) (bool, error) {
	return m.pending, m.pendingErr
}

func (m *mockAutoTopUpCreator) CreateAuto(_ context.Context, _ uuid.UUID, amount decimal.Decimal) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, amount)
	return nil
}

// Pass-through transaction manager
type mockTxManager struct{}

func (mockTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ = Describe("PettyCashService", func() {
	var (
		svc       *pettycash.Service
		mockRepo  *mockAccountRepository
		audit     *mockAuditLogger
		topups    *mockAutoTopUpCreator
		admin     *user.Actor
		ctx       context.Context
		ipAddress string
	)

	BeforeEach(func() {
		mockRepo = newMockAccountRepository()
		audit = &mockAuditLogger{}
		topups = &mockAutoTopUpCreator{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		svc = pettycash.NewService(mockRepo, audit, mockTxManager{}, logger)
		svc.SetAutoTopUps(topups)

		admin = &user.Actor{ID: uuid.New(), Email: "admin@savannah.example"}
		ctx = context.Background()
		ipAddress = "10.0.0.1"
	})

	createAccount := func() *pettycash.Account {
		account, err := svc.CreateAccount(ctx, pettycash.CreateAccountDTO{
			Name:             "Operations Float",
			PhoneNumber:      "+254700000001",
			MinimumThreshold: decimal.NewFromInt(50000),
		}, admin, ipAddress)
		Expect(err).ToNot(HaveOccurred())
		return account
	}

	Describe("CreateAccount", func() {
		It("should create an active account with a zero balance", func() {
			account := createAccount()

			Expect(account.IsActive).To(BeTrue())
			Expect(account.CurrentBalance.IsZero()).To(BeTrue())
			Expect(account.MinimumThreshold.Equal(decimal.NewFromInt(50000))).To(BeTrue())
			Expect(audit.records).To(HaveLen(1))
			Expect(audit.records[0].EventCode).To(Equal(ledger.EventAccountCreated))
		})

		It("should refuse a second active account", func() {
			createAccount()

			_, err := svc.CreateAccount(ctx, pettycash.CreateAccountDTO{
				Name:             "Second Float",
				PhoneNumber:      "+254700000002",
				MinimumThreshold: decimal.NewFromInt(10000),
			}, admin, ipAddress)

			Expect(err).To(Equal(internal.ErrActiveAccountExists))
		})

		It("should reject a missing name", func() {
			_, err := svc.CreateAccount(ctx, pettycash.CreateAccountDTO{
				PhoneNumber:      "+254700000001",
				MinimumThreshold: decimal.NewFromInt(50000),
			}, admin, ipAddress)

			Expect(err).To(HaveOccurred())
			Expect(err.(*internal.AppError).Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("should allow creating after the previous account was deactivated", func() {
			account := createAccount()
			_, err := svc.Deactivate(ctx, account.ID, admin, ipAddress)
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.CreateAccount(ctx, pettycash.CreateAccountDTO{
				Name:             "Replacement Float",
				PhoneNumber:      "+254700000003",
				MinimumThreshold: decimal.NewFromInt(20000),
			}, admin, ipAddress)

			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("Credit", func() {
		It("should increase the balance", func() {
			account := createAccount()

			credited, err := svc.Credit(ctx, account.ID, decimal.NewFromInt(75000))

			Expect(err).ToNot(HaveOccurred())
			Expect(credited.CurrentBalance.Equal(decimal.NewFromInt(75000))).To(BeTrue())
		})

		It("should reject a non-positive amount", func() {
			account := createAccount()

			_, err := svc.Credit(ctx, account.ID, decimal.Zero)

			Expect(err).To(HaveOccurred())
			Expect(err.(*internal.AppError).Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("Debit", func() {
		It("should decrease the balance", func() {
			account := createAccount()
			_, err := svc.Credit(ctx, account.ID, decimal.NewFromInt(75000))
			Expect(err).ToNot(HaveOccurred())

			debited, err := svc.Debit(ctx, account.ID, decimal.NewFromInt(30000))

			Expect(err).ToNot(HaveOccurred())
			Expect(debited.CurrentBalance.Equal(decimal.NewFromInt(45000))).To(BeTrue())
		})

		It("should refuse to drive the balance negative", func() {
			account := createAccount()
			_, err := svc.Credit(ctx, account.ID, decimal.NewFromInt(10000))
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.Debit(ctx, account.ID, decimal.NewFromInt(10001))

			Expect(err).To(Equal(internal.ErrInsufficientBalance))

			account, err = svc.GetByID(ctx, account.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(account.CurrentBalance.Equal(decimal.NewFromInt(10000))).To(BeTrue())
		})
	})

	Describe("CheckAndTriggerTopUp", func() {
		It("should create a shortfall-sized auto top-up below threshold", func() {
			account := createAccount()
			_, err := svc.Credit(ctx, account.ID, decimal.NewFromInt(30000))
			Expect(err).ToNot(HaveOccurred())
			account, err = svc.GetByID(ctx, account.ID)
			Expect(err).ToNot(HaveOccurred())

			err = svc.CheckAndTriggerTopUp(ctx, account)

			Expect(err).ToNot(HaveOccurred())
			Expect(topups.created).To(HaveLen(1))
			Expect(topups.created[0].Equal(decimal.NewFromInt(20000))).To(BeTrue())
		})

		It("should do nothing at or above threshold", func() {
			account := createAccount()
			_, err := svc.Credit(ctx, account.ID, decimal.NewFromInt(50000))
			Expect(err).ToNot(HaveOccurred())
			account, err = svc.GetByID(ctx, account.ID)
			Expect(err).ToNot(HaveOccurred())

			err = svc.CheckAndTriggerTopUp(ctx, account)

			Expect(err).ToNot(HaveOccurred())
			Expect(topups.created).To(BeEmpty())
		})

		It("should skip silently while a pending top-up exists", func() {
			topups.pending = true
			account := createAccount()

			err := svc.CheckAndTriggerTopUp(ctx, account)

			Expect(err).ToNot(HaveOccurred())
			Expect(topups.created).To(BeEmpty())
		})
	})

	Describe("UpdateAccount", func() {
		It("should apply changes and record the field diff", func() {
			account := createAccount()
			name := "Operations Float KES"
			threshold := decimal.NewFromInt(60000)

			updated, err := svc.UpdateAccount(ctx, account.ID, pettycash.UpdateAccountDTO{
				Name:             &name,
				MinimumThreshold: &threshold,
			}, admin, ipAddress)

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Name).To(Equal("Operations Float KES"))
			Expect(updated.MinimumThreshold.Equal(threshold)).To(BeTrue())

			last := audit.records[len(audit.records)-1]
			Expect(last.EventCode).To(Equal(ledger.EventAccountUpdated))
			Expect(last.Metadata["changed_fields"]).To(ConsistOf("name", "minimum_threshold"))
		})

		It("should not log when nothing changed", func() {
			account := createAccount()
			entriesBefore := len(audit.records)
			name := account.Name

			_, err := svc.UpdateAccount(ctx, account.ID, pettycash.UpdateAccountDTO{Name: &name}, admin, ipAddress)

			Expect(err).ToNot(HaveOccurred())
			Expect(audit.records).To(HaveLen(entriesBefore))
		})

		It("should fail for an unknown account", func() {
			name := "Ghost"
			_, err := svc.UpdateAccount(ctx, uuid.New(), pettycash.UpdateAccountDTO{Name: &name}, admin, ipAddress)
			Expect(err).To(Equal(internal.ErrAccountNotFound))
		})
	})

	Describe("Deactivate", func() {
		It("should soft-delete the account and keep the balance", func() {
			account := createAccount()
			_, err := svc.Credit(ctx, account.ID, decimal.NewFromInt(12345))
			Expect(err).ToNot(HaveOccurred())

			deactivated, err := svc.Deactivate(ctx, account.ID, admin, ipAddress)

			Expect(err).ToNot(HaveOccurred())
			Expect(deactivated.IsActive).To(BeFalse())
			Expect(deactivated.CurrentBalance.Equal(decimal.NewFromInt(12345))).To(BeTrue())
			Expect(audit.records[len(audit.records)-1].StatusCode).To(Equal("INACT"))
		})
	})
})
