package mastery

import (
	"context"
	"log/slog"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/events"
)

// NewResponseHandler returns an event handler that records every diagnostic
// answer in the mastery ledger, keyed by the diagnostic item.
func NewResponseHandler(svc Service, log *slog.Logger) events.EventHandler {
	if svc == nil {
		panic("mastery service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "mastery_response_handler"))

	return events.HandlerFunc{
		Type: events.TypeResponseRecorded,
		Fn: func(ctx context.Context, event *events.Event) error {
			var payload events.ResponseRecordedPayload
			if err := event.UnmarshalPayload(&payload); err != nil {
				return err
			}
			m, err := svc.RecordAttempt(ctx, RecordAttemptParams{
				UserID:      payload.UserID,
				ItemType:    domain.ItemTypeDiagnosticItem,
				ItemID:      payload.ItemID.String(),
				Correct:     payload.IsCorrect,
				SessionDate: payload.AnsweredAt,
				SessionRef:  payload.SessionID.String(),
			})
			if err != nil {
				return err
			}
			log.Debug("diagnostic answer recorded in mastery ledger",
				slog.String("event_id", event.ID.String()),
				slog.String("item_id", m.ItemID),
				slog.Int("attempts", m.Attempts))
			return nil
		},
	}
}
