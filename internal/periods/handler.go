package periods

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/campushr/campushr/internal/platform/httpx"
	"github.com/campushr/campushr/internal/shared"
)

// Handler wires HTTP endpoints for period administration.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches period admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/{id}/activate", h.activate)
	r.Post("/{id}/deactivate", h.deactivate)
}

// MountCurrent attaches the read-only current-period route.
func (h *Handler) MountCurrent(r chi.Router) {
	r.Get("/current", h.current)
}

type periodDTO struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Active        bool   `json:"active"`
	DaysRemaining int    `json:"days_remaining"`
}

type createPeriodDTO struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) toDTO(p Period) periodDTO {
	return periodDTO{
		ID:            p.ID,
		Name:          p.Name,
		StartDate:     p.StartDate.Format("2006-01-02"),
		EndDate:       p.EndDate.Format("2006-01-02"),
		Active:        p.Active,
		DaysRemaining: p.DaysRemaining(time.Now().UTC()),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list periods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	dtos := make([]periodDTO, 0, len(list))
	for _, p := range list {
		dtos = append(dtos, h.toDTO(p))
	}
	httpx.JSON(w, http.StatusOK, dtos)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var dto createPeriodDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, _ := time.Parse("2006-01-02", dto.StartDate)
	end, _ := time.Parse("2006-01-02", dto.EndDate)

	p, err := h.service.Create(r.Context(), dto.Name, start, end)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.toDTO(p))
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	p, err := h.service.Activate(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("period activated", slog.Int64("period_id", p.ID))
	httpx.JSON(w, http.StatusOK, h.toDTO(p))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	p, err := h.service.Deactivate(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("period deactivated", slog.Int64("period_id", p.ID))
	httpx.JSON(w, http.StatusOK, h.toDTO(p))
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetActive(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.toDTO(p))
}
