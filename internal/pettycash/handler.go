package pettycash

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
	CreateAccount(ctx context.Context, dto CreateAccountDTO, actor *user.Actor, ipAddress string) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	ListActive(ctx context.Context) ([]*Account, error)
	UpdateAccount(ctx context.Context, id uuid.UUID, dto UpdateAccountDTO, actor *user.Actor, ipAddress string) (*Account, error)
	Deactivate(ctx context.Context, id uuid.UUID, actor *user.Actor, ipAddress string) (*Account, error)
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

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.Logger.Error("CreateAccount: actor not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateAccountDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateAccount: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.Service.CreateAccount(r.Context(), dto, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateAccount: account created",
		"account_id", account.ID,
		"actor_id", actor.ID,
		"balance", account.CurrentBalance.String())

	h.WriteJSON(w, http.StatusCreated, account)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid account ID")
		return
	}

	account, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Service.ListActive(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
	})
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid account ID")
		return
	}

	var dto UpdateAccountDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateAccount: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.Service.UpdateAccount(r.Context(), id, dto, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid account ID")
		return
	}

	account, err := h.Service.Deactivate(r.Context(), id, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("DeactivateAccount: account deactivated", "account_id", id, "actor_id", actor.ID)
	h.WriteJSON(w, http.StatusOK, account)
}
