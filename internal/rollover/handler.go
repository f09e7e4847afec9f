package rollover

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campushr/campushr/internal/platform/httpx"
)

// Handler exposes the manual sweep trigger for administrators. The
// scheduled job runs the same service; this endpoint exists so an
// operator can close a period without waiting for the next tick.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches the sweep route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sweep", h.sweep)
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Sweep(r.Context())
	if err != nil {
		h.logger.Error("manual sweep", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
