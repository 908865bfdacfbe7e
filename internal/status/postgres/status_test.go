package postgres_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/status"
	statusPostgres "github.com/savannahq/pettycash/internal/status/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestStatusPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Status Postgres Suite")
}

var _ = Describe("Status Repository", func() {
	var (
		db   *gorm.DB
		repo status.Repository
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		// Use SQLite in-memory database for testing
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&status.Status{})
		Expect(err).NotTo(HaveOccurred())

		seed := []status.Status{
			{ID: uuid.New(), Code: status.CodeActive, Name: "Active"},
			{ID: uuid.New(), Code: status.CodePending, Name: "Pending"},
			{ID: uuid.New(), Code: status.CodeApproved, Name: "Approved"},
		}
		Expect(db.Create(&seed).Error).NotTo(HaveOccurred())

		repo = statusPostgres.NewStatusRepository(db)
		ctx = context.Background()
	})

	Describe("GetByCode", func() {
		It("should resolve a seeded code", func() {
			st, err := repo.GetByCode(ctx, status.CodePending)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Name).To(Equal("Pending"))
		})

		It("should return a domain error for an unknown code", func() {
			_, err := repo.GetByCode(ctx, "nope")
			Expect(err).To(Equal(internal.ErrStatusNotFound))
		})
	})

	Describe("GetByID", func() {
		It("should round-trip through the id", func() {
			byCode, err := repo.GetByCode(ctx, status.CodeApproved)
			Expect(err).NotTo(HaveOccurred())

			byID, err := repo.GetByID(ctx, byCode.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.Code).To(Equal(status.CodeApproved))
		})
	})

	Describe("ListAll", func() {
		It("should return every status ordered by code", func() {
			statuses, err := repo.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses).To(HaveLen(3))
			Expect(statuses[0].Code <= statuses[1].Code).To(BeTrue())
			Expect(statuses[1].Code <= statuses[2].Code).To(BeTrue())
		})
	})
})
