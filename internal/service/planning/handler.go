package planning

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/events"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/store"
)

// NewCompletionHandler returns an event handler that generates a plan when a
// qualifying diagnostic session completes. Terminated sessions and practice
// sessions are skipped; a plan can still be requested for them explicitly.
// A redelivered event for a session that already backs the active plan is a
// no-op.
func NewCompletionHandler(svc Service, sessions store.SessionStore, log *slog.Logger) events.EventHandler {
	if svc == nil || sessions == nil {
		panic("planning service and session store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "plan_generation_handler"))

	return events.HandlerFunc{
		Type: events.TypeSessionCompleted,
		Fn: func(ctx context.Context, event *events.Event) error {
			var payload events.SessionCompletedPayload
			if err := event.UnmarshalPayload(&payload); err != nil {
				return err
			}
			log := logger.FromContextOrDefault(ctx, log).With(
				slog.String("event_id", event.ID.String()),
				slog.String("session_id", payload.SessionID.String()))

			if payload.Status != string(domain.SessionStatusCompleted) {
				log.Debug("skipping plan generation for a terminated session",
					slog.String("reason", payload.Reason))
				return nil
			}

			session, err := sessions.GetByID(ctx, payload.SessionID)
			if err != nil {
				return err
			}
			if session.SessionType == domain.SessionTypePractice {
				log.Debug("skipping plan generation for a practice session")
				return nil
			}

			active, err := svc.GetActivePlan(ctx, payload.UserID)
			switch {
			case err == nil:
				if active.DiagnosticSessionID != nil && *active.DiagnosticSessionID == payload.SessionID {
					log.Debug("active plan already covers this session",
						slog.String("plan_id", active.ID.String()))
					return nil
				}
			case errors.Is(err, store.ErrNotFound):
			default:
				return err
			}

			_, err = svc.GeneratePlan(ctx, GeneratePlanParams{
				UserID:    payload.UserID,
				SessionID: payload.SessionID,
			})
			return err
		},
	}
}
