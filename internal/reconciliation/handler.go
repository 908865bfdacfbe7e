package reconciliation

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
	GetByID(ctx context.Context, id uuid.UUID) (*Reconciliation, error)
	GetByExpenseID(ctx context.Context, expenseID uuid.UUID) (*Reconciliation, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Reconciliation, error)
	ListForActor(ctx context.Context, actor *user.Actor, limit, offset int) ([]*Reconciliation, error)
	ListByStatus(ctx context.Context, statusCode string, limit, offset int) ([]*Reconciliation, error)
	SubmitReceipt(ctx context.Context, id uuid.UUID, dto SubmitReceiptDTO, actor *user.Actor, ipAddress string) (*Reconciliation, error)
	Review(ctx context.Context, id uuid.UUID, dto ReviewDTO, actor *user.Actor, ipAddress string) (*Reconciliation, error)
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

func (h *Handler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid reconciliation ID")
		return
	}

	rec, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) GetByExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := uuid.Parse(chi.URLParam(r, "expenseID"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	rec, err := h.Service.GetByExpenseID(r.Context(), expenseID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) ListReconciliations(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, offset := transport.Pagination(r)

	var (
		recs []*Reconciliation
		err  error
	)
	switch {
	case r.URL.Query().Get("mine") == "true":
		recs, err = h.Service.ListForActor(r.Context(), actor, limit, offset)
	case r.URL.Query().Get("status") != "":
		recs, err = h.Service.ListByStatus(r.Context(), r.URL.Query().Get("status"), limit, offset)
	default:
		recs, err = h.Service.ListAll(r.Context(), limit, offset)
	}
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reconciliations": recs,
		"limit":           limit,
		"offset":          offset,
	})
}

func (h *Handler) SubmitReceipt(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.Logger.Error("SubmitReceipt: actor not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid reconciliation ID")
		return
	}

	var dto SubmitReceiptDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("SubmitReceipt: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.Service.SubmitReceipt(r.Context(), id, dto, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("SubmitReceipt: receipts submitted",
		"reconciliation_id", id,
		"reconciled_amount", dto.ReconciledAmount.String(),
		"actor_id", actor.ID)

	h.WriteJSON(w, http.StatusOK, rec)
}

// ReviewReconciliation completes or returns for correction via the decision
// field.
func (h *Handler) ReviewReconciliation(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid reconciliation ID")
		return
	}

	var dto ReviewDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("ReviewReconciliation: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.Service.Review(r.Context(), id, dto, actor, transport.ClientIP(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("ReviewReconciliation: decision recorded",
		"reconciliation_id", id,
		"decision", dto.Decision,
		"actor_id", actor.ID)

	h.WriteJSON(w, http.StatusOK, rec)
}
