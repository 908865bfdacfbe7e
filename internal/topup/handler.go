package topup

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/savannahq/pettycash/internal/transport"
	"github.com/savannahq/pettycash/internal/user"
	"github.com/savannahq/pettycash/pkg/logger"
)

type ServiceAPI interface {
	Create(ctx context.Context, accountID uuid.UUID, dto CreateTopUpDTO, actor *user.Actor, ipAddress string) (*Request, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Request, error)
	ListForActor(ctx context.Context, actor *user.Actor, limit, offset int) ([]*Request, error)
	ListByStatus(ctx context.Context, statusCode string, limit, offset int) ([]*Request, error)
	ListAutoTriggered(ctx context.Context, limit, offset int) ([]*Request, error)
	Decide(ctx context.Context, id uuid.UUID, dto DecideTopUpDTO, actor *user.Actor, ipAddress string) (*Request, error)
	Disburse(ctx context.Context, id uuid.UUID, actor *user.Actor, ipAddress string) (*Request, error)
	Update(ctx context.Context, id uuid.UUID, dto UpdateTopUpDTO, actor *user.Actor, ipAddress string) (*Request, error)
	Deactivate(ctx context.Context, id uuid.UUID, actor *user.Actor, ipAddress string) (*Request, error)
}

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

func (h *Handler) CreateTopUp(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.Logger.Error("CreateTopUp: actor not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid account ID")
		return
	}

	var dto CreateTopUpDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateTopUp: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.Create(r.Context(), accountID, dto, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateTopUp: request created",
		"topup_id", req.ID,
		"account_id", accountID,
		"amount", req.Amount.String(),
		"actor_id", actor.ID)

	h.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handler) GetTopUp(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid top-up ID")
		return
	}

	req, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) ListTopUps(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, offset := transport.Pagination(r)

	var (
		reqs []*Request
		err  error
	)
	switch {
	case r.URL.Query().Get("mine") == "true":
		reqs, err = h.Service.ListForActor(r.Context(), actor, limit, offset)
	case r.URL.Query().Get("auto") == "true":
		reqs, err = h.Service.ListAutoTriggered(r.Context(), limit, offset)
	case r.URL.Query().Get("status") != "":
		reqs, err = h.Service.ListByStatus(r.Context(), r.URL.Query().Get("status"), limit, offset)
	default:
		reqs, err = h.Service.ListAll(r.Context(), limit, offset)
	}
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"topups": reqs,
		"limit":  limit,
		"offset": offset,
	})
}

// DecideTopUp handles both approval and rejection via the decision field.
func (h *Handler) DecideTopUp(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid top-up ID")
		return
	}

	var dto DecideTopUpDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("DecideTopUp: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.Decide(r.Context(), id, dto, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("DecideTopUp: decision recorded",
		"topup_id", id,
		"decision", dto.Decision,
		"actor_id", actor.ID)

	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) DisburseTopUp(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid top-up ID")
		return
	}

	req, err := h.Service.Disburse(r.Context(), id, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("DisburseTopUp: disbursed", "topup_id", id, "actor_id", actor.ID)
	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) UpdateTopUp(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid top-up ID")
		return
	}

	var dto UpdateTopUpDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateTopUp: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.Update(r.Context(), id, dto, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) DeactivateTopUp(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid top-up ID")
		return
	}

	req, err := h.Service.Deactivate(r.Context(), id, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
}
