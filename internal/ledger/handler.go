package ledger

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/savannahq/pettycash/internal/transport"
	"github.com/savannahq/pettycash/pkg/logger"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	LogsForEntity(ctx context.Context, ref EntityRef, limit, offset int) ([]*Entry, error)
	LogsByEvent(ctx context.Context, eventCode string, limit, offset int) ([]*Entry, error)
	LogsByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*Entry, error)
}

// Handler exposes the transaction log read-only. Entries are only ever
// written by the workflows themselves.
type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid entry ID")
		return
	}

	entry, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, entry)
}

// ListEntries filters by entity, event code, or actor; exactly one filter
// applies per request, entity taking precedence.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	limit, offset := transport.Pagination(r)
	q := r.URL.Query()

	var (
		entries []*Entry
		err     error
	)
	switch {
	case q.Get("entity_type") != "" && q.Get("entity_id") != "":
		kind, ok := ParseEntityKind(q.Get("entity_type"))
		if !ok {
			h.WriteError(w, http.StatusBadRequest, "invalid entity type")
			return
		}
		entityID, parseErr := uuid.Parse(q.Get("entity_id"))
		if parseErr != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid entity ID")
			return
		}
		entries, err = h.Service.LogsForEntity(r.Context(), EntityRef{Kind: kind, ID: entityID}, limit, offset)
	case q.Get("event_code") != "":
		entries, err = h.Service.LogsByEvent(r.Context(), q.Get("event_code"), limit, offset)
	case q.Get("actor_id") != "":
		actorID, parseErr := uuid.Parse(q.Get("actor_id"))
		if parseErr != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid actor ID")
			return
		}
		entries, err = h.Service.LogsByActor(r.Context(), actorID, limit, offset)
	default:
		h.WriteError(w, http.StatusBadRequest, "a filter is required: entity_type+entity_id, event_code, or actor_id")
		return
	}
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}
