package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/campushr/campushr/internal/platform/httpx"
	"github.com/campushr/campushr/internal/shared"
)

// Handler wires the authentication endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches the public auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
}

// MountProtected attaches routes that need a valid token.
func (h *Handler) MountProtected(r chi.Router) {
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
}

type loginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionDTO struct {
	Token     string `json:"token"`
	AccountID int64  `json:"account_id"`
	TeacherID int64  `json:"teacher_id,omitempty"`
	Email     string `json:"email"`
	Admin     bool   `json:"admin"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var dto loginDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	token, identity, err := h.service.Login(r.Context(), dto.Email, dto.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionDTO{
		Token:     token,
		AccountID: identity.AccountID,
		TeacherID: identity.TeacherID,
		Email:     identity.Email,
		Admin:     identity.Admin,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	caller := shared.IdentityFromContext(r.Context())
	if caller == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionDTO{
		AccountID: caller.AccountID,
		TeacherID: caller.TeacherID,
		Email:     caller.Email,
		Admin:     caller.Admin,
	})
}
