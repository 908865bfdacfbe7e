package expense

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
	Create(ctx context.Context, dto CreateExpenseDTO, actor *user.Actor, ipAddress string) (*Request, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Request, error)
	ListForActor(ctx context.Context, actor *user.Actor, limit, offset int) ([]*Request, error)
	Decide(ctx context.Context, id uuid.UUID, dto DecideExpenseDTO, actor *user.Actor, ipAddress string) (*Request, error)
	Disburse(ctx context.Context, id uuid.UUID, actor *user.Actor, ipAddress string) (*Request, error)
	Update(ctx context.Context, id uuid.UUID, dto UpdateExpenseDTO, actor *user.Actor, ipAddress string) (*Request, error)
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

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.Logger.Error("CreateExpense: actor not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateExpense: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.Create(r.Context(), dto, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateExpense: request created",
		"expense_id", req.ID,
		"employee_id", actor.ID,
		"amount", req.Amount.String(),
		"type", req.ExpenseType)

	h.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	req, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
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
	if r.URL.Query().Get("mine") == "true" {
		reqs, err = h.Service.ListForActor(r.Context(), actor, limit, offset)
	} else {
		reqs, err = h.Service.ListAll(r.Context(), limit, offset)
	}
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": reqs,
		"limit":    limit,
		"offset":   offset,
	})
}

// DecideExpense handles both approval and rejection via the decision field.
func (h *Handler) DecideExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	var dto DecideExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("DecideExpense: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.Decide(r.Context(), id, dto, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("DecideExpense: decision recorded",
		"expense_id", id,
		"decision", dto.Decision,
		"actor_id", actor.ID)

	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) DisburseExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	req, err := h.Service.Disburse(r.Context(), id, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("DisburseExpense: disbursed", "expense_id", id, "actor_id", actor.ID)
	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	var dto UpdateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateExpense: invalid request body", "error", err)
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

func (h *Handler) DeactivateExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	req, err := h.Service.Deactivate(r.Context(), id, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
}
