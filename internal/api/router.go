package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apimiddleware "github.com/phrazzld/gauge/internal/api/middleware"
)

// RouterConfig carries the handlers and middleware mounted by NewRouter.
type RouterConfig struct {
	Auth     *apimiddleware.AuthMiddleware
	Sessions *SessionHandler
	Plans    *PlanHandler
	Mastery  *MasteryHandler
	Admin    *AdminHandler
	DB       Pinger
	Logger   *slog.Logger
}

// NewRouter builds the HTTP routes. Everything under /api requires a bearer
// token; /api/admin additionally requires the admin role.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(apimiddleware.NewTraceMiddleware(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/health", HealthHandler(cfg.DB, 2*time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Use(cfg.Auth.Authenticate)

		r.Post("/sessions", cfg.Sessions.StartSession)
		r.Get("/sessions/{id}", cfg.Sessions.GetSession)
		r.Post("/sessions/{id}/responses", cfg.Sessions.SubmitResponse)
		r.Get("/sessions/{id}/analysis", cfg.Sessions.GetAnalysis)

		r.Post("/plans", cfg.Plans.GeneratePlan)
		r.Get("/plans/active", cfg.Plans.GetActivePlan)

		r.Get("/mastery", cfg.Mastery.ListMastery)
		r.Post("/mastery/attempts", cfg.Mastery.RecordAttempt)

		r.Route("/admin", func(r chi.Router) {
			r.Use(cfg.Auth.RequireAdmin)
			r.Post("/sessions/sweep", cfg.Admin.SweepSessions)
			r.Post("/sessions/{id}/terminate", cfg.Admin.TerminateSession)
			r.Post("/reminders/check", cfg.Admin.CheckReminders)
			r.Post("/plans/{id}/reminders/{tier}", cfg.Admin.TriggerReminder)
		})
	})

	return r
}
