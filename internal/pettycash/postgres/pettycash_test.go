package postgres_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/pettycash"
	accountPostgres "github.com/savannahq/pettycash/internal/pettycash/postgres"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAccountPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Account Postgres Suite")
}

var _ = Describe("Account Repository", func() {
	var (
		db   *gorm.DB
		repo pettycash.Repository
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		// Use SQLite in-memory database for testing
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&pettycash.Account{})
		Expect(err).NotTo(HaveOccurred())

		repo = accountPostgres.NewAccountRepository(db)
		ctx = context.Background()
	})

	newAccount := func() *pettycash.Account {
		return &pettycash.Account{
			ID:               uuid.New(),
			Name:             "Operations Float",
			PhoneNumber:      "+254700000001",
			CurrentBalance:   decimal.NewFromInt(100000),
			MinimumThreshold: decimal.NewFromInt(50000),
			IsActive:         true,
		}
	}

	Describe("Create", func() {
		It("should persist a new account", func() {
			account := newAccount()

			err := repo.Create(ctx, account)
			Expect(err).NotTo(HaveOccurred())

			found, err := repo.GetByID(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Name).To(Equal("Operations Float"))
			Expect(found.CurrentBalance.Equal(decimal.NewFromInt(100000))).To(BeTrue())
			Expect(found.CreatedAt).NotTo(BeZero())
		})
	})

	Describe("GetByID", func() {
		It("should return a domain error for an unknown id", func() {
			_, err := repo.GetByID(ctx, uuid.New())
			Expect(err).To(Equal(internal.ErrAccountNotFound))
		})

		It("should not return a deactivated account", func() {
			account := newAccount()
			Expect(repo.Create(ctx, account)).To(Succeed())

			account.IsActive = false
			Expect(repo.Save(ctx, account)).To(Succeed())

			_, err := repo.GetByID(ctx, account.ID)
			Expect(err).To(Equal(internal.ErrAccountNotFound))
		})
	})

	Describe("Save", func() {
		It("should persist balance changes", func() {
			account := newAccount()
			Expect(repo.Create(ctx, account)).To(Succeed())

			account.Credit(decimal.NewFromInt(25000))
			Expect(repo.Save(ctx, account)).To(Succeed())

			found, err := repo.GetByID(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.CurrentBalance.Equal(decimal.NewFromInt(125000))).To(BeTrue())
		})
	})

	Describe("HasActiveAccount", func() {
		It("should report false on an empty table", func() {
			exists, err := repo.HasActiveAccount(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})

		It("should report true while an account is active", func() {
			Expect(repo.Create(ctx, newAccount())).To(Succeed())

			exists, err := repo.HasActiveAccount(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())
		})

		It("should report false once the account is deactivated", func() {
			account := newAccount()
			Expect(repo.Create(ctx, account)).To(Succeed())

			account.IsActive = false
			Expect(repo.Save(ctx, account)).To(Succeed())

			exists, err := repo.HasActiveAccount(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
	})

	Describe("ListActive", func() {
		It("should return only active accounts", func() {
			active := newAccount()
			Expect(repo.Create(ctx, active)).To(Succeed())

			// Create active first; a zero-value bool would be swallowed by the
			// column default on insert.
			retired := newAccount()
			retired.ID = uuid.New()
			retired.Name = "Retired Float"
			Expect(repo.Create(ctx, retired)).To(Succeed())
			retired.IsActive = false
			Expect(repo.Save(ctx, retired)).To(Succeed())

			accounts, err := repo.ListActive(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(accounts).To(HaveLen(1))
			Expect(accounts[0].ID).To(Equal(active.ID))
		})
	})
})
