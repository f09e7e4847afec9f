package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/campushr/campushr/internal/auth"
	"github.com/campushr/campushr/internal/birthday"
	"github.com/campushr/campushr/internal/entitlement"
	"github.com/campushr/campushr/internal/leave"
	"github.com/campushr/campushr/internal/observability"
	"github.com/campushr/campushr/internal/periods"
	"github.com/campushr/campushr/internal/rollover"
	"github.com/campushr/campushr/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Verifier           auth.Verifier
	AuthHandler        *auth.Handler
	LeaveHandler       *leave.Handler
	BirthdayHandler    *birthday.Handler
	PeriodsHandler     *periods.Handler
	EntitlementHandler *entitlement.Handler
	RolloverHandler    *rollover.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	authenticate := auth.Authenticate(params.Verifier)

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Route("/auth/session", params.AuthHandler.MountProtected)
		r.Route("/api/periods", params.PeriodsHandler.MountCurrent)
		r.Route("/api/leave", params.LeaveHandler.MountRoutes)
		r.Route("/api/birthday", params.BirthdayHandler.MountRoutes)
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(auth.RequireAdmin)

		r.Route("/admin/periods", params.PeriodsHandler.MountRoutes)
		r.Route("/admin/entitlements", params.EntitlementHandler.MountRoutes)
		r.Route("/admin/leave", params.LeaveHandler.MountAdminRoutes)
		r.Route("/admin/birthday", params.BirthdayHandler.MountAdminRoutes)
		r.Route("/admin/rollover", params.RolloverHandler.MountRoutes)
		if params.JobHandler != nil {
			r.Route("/admin/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
