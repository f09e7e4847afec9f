package birthday

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

	"github.com/campushr/campushr/internal/leave"
	"github.com/campushr/campushr/internal/platform/httpx"
	"github.com/campushr/campushr/internal/shared"
)

// Handler wires HTTP endpoints for birthday leave.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches the teacher-facing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/mine", h.listMine)
	r.Post("/", h.submit)
	r.Post("/{id}/cancel", h.cancel)
	r.Delete("/{id}", h.remove)
}

// MountAdminRoutes attaches the review-queue routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.listByStatus)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
}

type submitDTO struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

type decisionDTO struct {
	Note string `json:"note" validate:"max=500"`
}

type requestDTO struct {
	ID           int64  `json:"id"`
	TeacherID    int64  `json:"teacher_id"`
	Year         int    `json:"year"`
	Date         string `json:"date"`
	Status       string `json:"status"`
	DecisionNote string `json:"decision_note,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func toDTO(r Request) requestDTO {
	return requestDTO{
		ID:           r.ID,
		TeacherID:    r.TeacherID,
		Year:         r.Year,
		Date:         r.Date.Format("2006-01-02"),
		Status:       string(r.Status),
		DecisionNote: r.DecisionNote,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
}

func toDTOs(list []Request) []requestDTO {
	dtos := make([]requestDTO, 0, len(list))
	for _, r := range list {
		dtos = append(dtos, toDTO(r))
	}
	return dtos
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

	req, err := h.service.Submit(r.Context(), caller.TeacherID, date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toDTO(req))
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
	httpx.JSON(w, http.StatusOK, toDTOs(list))
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
	httpx.JSON(w, http.StatusOK, toDTO(req))
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
	status := leave.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = leave.StatusPending
	}
	list, err := h.service.ListByStatus(r.Context(), status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDTOs(list))
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
	httpx.JSON(w, http.StatusOK, toDTO(req))
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
