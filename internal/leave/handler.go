package leave

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/campushr/campushr/internal/platform/httpx"
	"github.com/campushr/campushr/internal/shared"
)

// Handler wires HTTP endpoints for the leave lifecycle.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	decisions *shared.DecisionRecorder
	validate  *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, decisions *shared.DecisionRecorder) *Handler {
	return &Handler{logger: logger, service: service, decisions: decisions, validate: validator.New()}
}

// MountRoutes attaches the teacher-facing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/mine", h.listMine)
	r.Get("/balance", h.balance)
	r.Post("/", h.submit)
	r.Post("/{id}/cancel", h.cancel)
	r.Delete("/{id}", h.remove)
}

// MountAdminRoutes attaches the review-queue routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.listByStatus)
	r.Get("/summary", h.summary)
	r.Get("/{id}/history", h.history)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	caller := shared.IdentityFromContext(r.Context())
	if caller == nil || caller.TeacherID == 0 {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	var dto submitDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", dto.Date)

	req, err := h.service.Submit(r.Context(), caller.TeacherID, date, dto.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRequestDTO(req))
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	caller := shared.IdentityFromContext(r.Context())
	if caller == nil || caller.TeacherID == 0 {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	list, err := h.service.ListMine(r.Context(), caller.TeacherID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequestDTOs(list))
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	caller := shared.IdentityFromContext(r.Context())
	if caller == nil || caller.TeacherID == 0 {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	b, err := h.service.BalanceFor(r.Context(), caller.TeacherID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBalanceDTO(b))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	caller := shared.IdentityFromContext(r.Context())
	if caller == nil || caller.TeacherID == 0 {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	req, err := h.service.Cancel(r.Context(), id, caller.TeacherID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequestDTO(req))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	caller := shared.IdentityFromContext(r.Context())
	if caller == nil || caller.TeacherID == 0 {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.service.Delete(r.Context(), id, caller.TeacherID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listByStatus(w http.ResponseWriter, r *http.Request) {
	status := Status(r.URL.Query().Get("status"))
	if status == "" {
		status = StatusPending
	}
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status")
		return
	}
	list, err := h.service.ListByStatus(r.Context(), status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequestDTOs(list))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.PeriodSummary(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	dtos := make([]totalsDTO, 0, len(totals))
	for _, t := range totals {
		dtos = append(dtos, totalsDTO{
			TeacherID: t.TeacherID,
			FirstName: t.FirstName,
			LastName:  t.LastName,
			Pending:   t.Pending,
			Approved:  t.Approved,
			Rejected:  t.Rejected,
			Cancelled: t.Cancelled,
		})
	}
	httpx.JSON(w, http.StatusOK, dtos)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	logs, err := h.decisions.List(r.Context(), "leave", id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	type entry struct {
		ActorID int64  `json:"actor_id"`
		Action  string `json:"action"`
		Note    string `json:"note,omitempty"`
		At      string `json:"at"`
	}
	out := make([]entry, 0, len(logs))
	for _, l := range logs {
		out = append(out, entry{ActorID: l.ActorID, Action: string(l.Action), Note: l.Note, At: l.At.Format(time.RFC3339)})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, requestID, actorID int64, note string) (Request, error)) {
	caller := shared.IdentityFromContext(r.Context())
	if caller == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	// An empty body means a decision without a note.
	var dto decisionDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil && !errors.Is(err, io.EOF) {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	req, err := apply(r.Context(), id, caller.AccountID, dto.Note)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequestDTO(req))
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
