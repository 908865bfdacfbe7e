package status

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the shared lookup entity referenced by every workflow. Each
// workflow owns its legal subset of codes and its own transition table; the
// table itself is just code + name.
type Status struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Code        string    `json:"code" gorm:"uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Status) TableName() string {
	return "statuses"
}

const (
	CodeActive      = "ACT"
	CodeInactive    = "INACT"
	CodePending     = "pending"
	CodeApproved    = "approved"
	CodeRejected    = "rejected"
	CodeDisbursed   = "disbursed"
	CodeCompleted   = "completed"
	CodeUnderReview = "under_review"
	// CodeComplete is the terminal state of a disbursed top-up. Distinct from
	// CodeCompleted, which terminates expense requests and reconciliations.
	CodeComplete = "complete"
	// CodeReturned sends a reconciliation back for correction. Deliberately
	// not "rejected": unlike everywhere else in the system it is not terminal.
	CodeReturned = "returned"
)

// Repository resolves status codes. A miss is reported by the caller either
// as NotFound (workflow input) or as a LoggingError (ledger write).
type Repository interface {
	GetByCode(ctx context.Context, code string) (*Status, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Status, error)
	ListAll(ctx context.Context) ([]*Status, error)
}
