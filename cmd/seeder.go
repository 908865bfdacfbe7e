package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/savannahq/pettycash/internal/ledger"
	"github.com/savannahq/pettycash/internal/status"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the status and event type lookup tables",
	Long:  `Seed the statuses and event_types lookup tables. Safe to re-run; existing codes are left untouched.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlxDB.Close()

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if err := seedStatuses(db); err != nil {
			log.Fatalf("failed to seed statuses: %v", err)
		}
		if err := seedEventTypes(db); err != nil {
			log.Fatalf("failed to seed event types: %v", err)
		}

		fmt.Println("Seeded statuses and event types")
	},
}

func seedStatuses(db *gorm.DB) error {
	statuses := []status.Status{
		{Code: status.CodeActive, Name: "Active", Description: "Record is active"},
		{Code: status.CodeInactive, Name: "Inactive", Description: "Record has been deactivated"},
		{Code: status.CodePending, Name: "Pending", Description: "Awaiting a decision"},
		{Code: status.CodeApproved, Name: "Approved", Description: "Approved, awaiting disbursement"},
		{Code: status.CodeRejected, Name: "Rejected", Description: "Rejected, terminal"},
		{Code: status.CodeDisbursed, Name: "Disbursed", Description: "Cash handed out"},
		{Code: status.CodeCompleted, Name: "Completed", Description: "Workflow finished"},
		{Code: status.CodeUnderReview, Name: "Under Review", Description: "Receipts submitted, awaiting review"},
		{Code: status.CodeComplete, Name: "Complete", Description: "Top-up credited to the account"},
		{Code: status.CodeReturned, Name: "Returned for Correction", Description: "Sent back to the employee, resubmission expected"},
	}

	for i := range statuses {
		statuses[i].ID = uuid.New()
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&statuses).Error
}

func seedEventTypes(db *gorm.DB) error {
	eventTypes := []ledger.EventType{
		{Code: ledger.EventAccountCreated, Name: "Petty Cash Account Created", Category: "pettycash"},
		{Code: ledger.EventAccountUpdated, Name: "Petty Cash Account Updated", Category: "pettycash"},

		{Code: ledger.EventExpenseSubmitted, Name: "Expense Submitted", Category: "expense"},
		{Code: ledger.EventExpenseApproved, Name: "Expense Approved", Category: "expense"},
		{Code: ledger.EventExpenseRejected, Name: "Expense Rejected", Category: "expense"},
		{Code: ledger.EventExpenseDisbursed, Name: "Expense Disbursed", Category: "expense"},
		{Code: ledger.EventExpenseUpdated, Name: "Expense Updated", Category: "expense"},
		{Code: ledger.EventExpenseCompleted, Name: "Expense Completed", Category: "expense"},

		{Code: ledger.EventTopUpRequested, Name: "Top-Up Requested", Category: "topup"},
		{Code: ledger.EventTopUpAutoTriggered, Name: "Top-Up Auto Triggered", Category: "topup"},
		{Code: ledger.EventTopUpApproved, Name: "Top-Up Approved", Category: "topup"},
		{Code: ledger.EventTopUpRejected, Name: "Top-Up Rejected", Category: "topup"},
		{Code: ledger.EventTopUpDisbursed, Name: "Top-Up Disbursed", Category: "topup"},
		{Code: ledger.EventTopUpUpdated, Name: "Top-Up Updated", Category: "topup"},

		{Code: ledger.EventReconciliationSubmitted, Name: "Reconciliation Submitted", Category: "reconciliation"},
		{Code: ledger.EventReconciliationCompleted, Name: "Reconciliation Completed", Category: "reconciliation"},
		{Code: ledger.EventReconciliationReturned, Name: "Reconciliation Returned", Category: "reconciliation"},
	}

	for i := range eventTypes {
		eventTypes[i].ID = uuid.New()
		eventTypes[i].IsActive = true
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&eventTypes).Error
}
