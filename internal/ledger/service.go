package ledger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/events"
	"github.com/savannahq/pettycash/internal/status"
	"github.com/savannahq/pettycash/internal/user"
)

// Repository defines the data access methods for the transaction log.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	GetEventTypeByCode(ctx context.Context, code string) (*EventType, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListForEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]*Entry, error)
	ListByEventCode(ctx context.Context, eventCode string, limit, offset int) ([]*Entry, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*Entry, error)
}

// LogParams describes one business event to append.
type LogParams struct {
	EventCode   string
	TriggeredBy *user.Actor // nil = system
	Entity      EntityRef
	StatusCode  string // defaults to ACT
	Message     string
	Metadata    Metadata
	IPAddress   string
}

// Service appends immutable audit entries. It is always invoked inside the
// transaction of the business mutation it describes, so a failed write rolls
// the whole operation back.
type Service struct {
	repo     Repository
	statuses status.Repository
	bus      *events.EventBus
	logger   *slog.Logger
}

func NewService(repo Repository, statuses status.Repository, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		statuses: statuses,
		bus:      bus,
		logger:   logger,
	}
}

// Record resolves the event and status codes and appends one entry. Lookup
// misses and storage failures surface as LoggingError so callers can tell an
// audit failure apart from a business failure.
func (s *Service) Record(ctx context.Context, params LogParams) (*Entry, error) {
	eventType, err := s.repo.GetEventTypeByCode(ctx, params.EventCode)
	if err != nil {
		s.logger.Error("unknown audit event code", "event_code", params.EventCode, "error", err)
		return nil, internal.NewLoggingError("unknown audit event code: "+params.EventCode, err)
	}

	statusCode := params.StatusCode
	if statusCode == "" {
		statusCode = status.CodeActive
	}
	st, err := s.statuses.GetByCode(ctx, statusCode)
	if err != nil {
		s.logger.Error("unknown audit status code", "status_code", statusCode, "error", err)
		return nil, internal.NewLoggingError("unknown audit status code: "+statusCode, err)
	}

	entry := &Entry{
		ID:            uuid.New(),
		EventTypeID:   eventType.ID,
		EventType:     eventType,
		StatusID:      st.ID,
		Status:        st,
		EventMessage:  params.Message,
		Metadata:      params.Metadata,
		EntityType:    string(params.Entity.Kind),
		EntityID:      params.Entity.ID.String(),
		UserIPAddress: params.IPAddress,
	}
	if !user.IsSystem(params.TriggeredBy) {
		actorID := params.TriggeredBy.ID
		entry.TriggeredByID = &actorID
		entry.TriggeredByEmail = params.TriggeredBy.Email
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append transaction log entry",
			"event_code", params.EventCode,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"error", err)
		return nil, internal.NewLoggingError("failed to append transaction log entry", err)
	}

	// Observers only; failures here never affect the committed entry.
	_ = s.bus.Publish(ctx, events.NewEntryRecordedEvent(
		entry.ID, params.EventCode, entry.EntityType, entry.EntityID, entry.EventMessage))

	return entry, nil
}

// GetByID returns one entry with its event type and status preloaded.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

// LogsForEntity returns the audit trail of one entity, most recent first.
func (s *Service) LogsForEntity(ctx context.Context, ref EntityRef, limit, offset int) ([]*Entry, error) {
	return s.repo.ListForEntity(ctx, string(ref.Kind), ref.ID.String(), limit, offset)
}

// LogsByEvent returns every entry recorded for one event code.
func (s *Service) LogsByEvent(ctx context.Context, eventCode string, limit, offset int) ([]*Entry, error) {
	return s.repo.ListByEventCode(ctx, eventCode, limit, offset)
}

// LogsByActor returns everything a specific user has triggered.
func (s *Service) LogsByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*Entry, error) {
	return s.repo.ListByActor(ctx, actorID, limit, offset)
}
