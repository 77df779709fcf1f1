package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/api/shared"
	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/service/diagnostic"
	"github.com/phrazzld/gauge/internal/service/reminder"
)

// TerminateSessionRequest is the optional body of
// POST /api/admin/sessions/{id}/terminate.
type TerminateSessionRequest struct {
	Reason string `json:"reason" validate:"omitempty,oneof=admin_clear time_limit"`
}

// SweepResponse lists the sessions a sweep terminated.
type SweepResponse struct {
	Terminated []uuid.UUID `json:"terminated"`
}

// CheckRemindersRequest is the optional body of POST /api/admin/reminders/check.
type CheckRemindersRequest struct {
	// Now overrides the evaluation instant, for replaying a missed run.
	Now *time.Time `json:"now"`
}

// AdminHandler serves the operator routes.
type AdminHandler struct {
	sessions  diagnostic.Service
	reminders reminder.Service
	now       func() time.Time
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewAdminHandler creates an AdminHandler. A nil now uses the wall clock.
func NewAdminHandler(
	sessions diagnostic.Service,
	reminders reminder.Service,
	now func() time.Time,
	logger *slog.Logger,
) *AdminHandler {
	if sessions == nil || reminders == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("admin handler services cannot be nil")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		sessions:  sessions,
		reminders: reminders,
		now:       now,
		validate:  shared.NewValidator(),
		logger:    logger.With(slog.String("component", "admin_handler")),
	}
}

// TerminateSession handles POST /api/admin/sessions/{id}/terminate
func (h *AdminHandler) TerminateSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req TerminateSessionRequest
	if !decodeAndValidate(w, r, h.validate, &req, true) {
		return
	}

	session, err := h.sessions.ForceTerminate(r.Context(), sessionID, domain.TerminationReason(req.Reason))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to terminate session")
		return
	}

	log.Info("session terminated by operator",
		slog.String("session_id", sessionID.String()),
		slog.String("reason", string(session.TerminationReason)))
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session))
}

// SweepSessions handles POST /api/admin/sessions/sweep
func (h *AdminHandler) SweepSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := h.sessions.SweepTimedOut(r.Context(), h.now())
	if err != nil && len(ids) == 0 {
		HandleAPIError(w, r, err, "Failed to sweep sessions")
		return
	}
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).
			Warn("sweep finished with errors", slog.String("error", err.Error()))
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SweepResponse{Terminated: ids})
}

// CheckReminders handles POST /api/admin/reminders/check
func (h *AdminHandler) CheckReminders(w http.ResponseWriter, r *http.Request) {
	var req CheckRemindersRequest
	if !decodeAndValidate(w, r, h.validate, &req, true) {
		return
	}
	now := h.now()
	if req.Now != nil {
		now = req.Now.UTC()
	}

	// Per-plan failures still return the counts; only a failed scan is an error.
	counts, err := h.reminders.CheckReminders(r.Context(), now)
	if err != nil && counts.Scanned == 0 {
		HandleAPIError(w, r, err, "Failed to check reminders")
		return
	}
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).
			Warn("reminder batch finished with errors", slog.String("error", err.Error()))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, counts)
}

// TriggerReminder handles POST /api/admin/plans/{id}/reminders/{tier}
func (h *AdminHandler) TriggerReminder(w http.ResponseWriter, r *http.Request) {
	planID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	tier, err := domain.ParseReminderTier(chi.URLParam(r, "tier"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.reminders.TriggerReminder(r.Context(), planID, tier)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to send reminder")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}
