package entitlement

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/campushr/campushr/internal/directory"
	"github.com/campushr/campushr/internal/platform/httpx"
	"github.com/campushr/campushr/internal/shared"
)

// Handler exposes admin endpoints for entitlement configuration.
type Handler struct {
	logger   *slog.Logger
	repo     Repository
	cache    *ConfigCache
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo Repository, cache *ConfigCache) *Handler {
	return &Handler{logger: logger, repo: repo, cache: cache, validate: validator.New()}
}

// MountRoutes attaches entitlement admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Put("/", h.upsert)
}

type configDTO struct {
	ID        int64  `json:"id,omitempty"`
	Category  string `json:"category" validate:"required,oneof=teacher collaborator administrative"`
	Contract  string `json:"contract_kind" validate:"required,oneof=annual term"`
	Allowance int    `json:"allowance" validate:"gte=0"`
	Renewal   string `json:"renewal" validate:"required,oneof=period monthly"`
	Active    bool   `json:"active"`
}

func toDTO(cfg Config) configDTO {
	return configDTO{
		ID:        cfg.ID,
		Category:  string(cfg.Category),
		Contract:  string(cfg.Contract),
		Allowance: cfg.Allowance,
		Renewal:   string(cfg.Renewal),
		Active:    cfg.Active,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	configs, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list entitlement configs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	dtos := make([]configDTO, 0, len(configs))
	for _, cfg := range configs {
		dtos = append(dtos, toDTO(cfg))
	}
	httpx.JSON(w, http.StatusOK, dtos)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var dto configDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	cfg, err := h.repo.Upsert(r.Context(), Config{
		Category:  directory.Category(dto.Category),
		Contract:  directory.ContractKind(dto.Contract),
		Allowance: dto.Allowance,
		Renewal:   Cadence(dto.Renewal),
		Active:    dto.Active,
	})
	if err != nil {
		h.logger.Error("upsert entitlement config", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(r.Context())
	}
	httpx.JSON(w, http.StatusOK, toDTO(cfg))
}
