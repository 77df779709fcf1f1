package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/gauge/internal/api/shared"
	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/service/mastery"
)

// RecordAttemptRequest is the body of POST /api/mastery/attempts.
type RecordAttemptRequest struct {
	ItemType string `json:"item_type" validate:"required,oneof=flashcard practice_question diagnostic_item"`
	ItemID   string `json:"item_id" validate:"required,max=200"`
	Correct  *bool  `json:"correct" validate:"required"`
	// SessionDate defaults to now. Attempts on the same calendar day count as
	// one session.
	SessionDate *time.Time `json:"session_date"`
	SessionRef  string     `json:"session_ref" validate:"max=200"`
}

// MasteryHandler serves the mastery ledger routes.
type MasteryHandler struct {
	mastery  mastery.Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewMasteryHandler creates a MasteryHandler.
func NewMasteryHandler(svc mastery.Service, logger *slog.Logger) *MasteryHandler {
	if svc == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("mastery service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MasteryHandler{
		mastery:  svc,
		validate: shared.NewValidator(),
		logger:   logger.With(slog.String("component", "mastery_handler")),
	}
}

// RecordAttempt handles POST /api/mastery/attempts
func (h *MasteryHandler) RecordAttempt(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req RecordAttemptRequest
	if !decodeAndValidate(w, r, h.validate, &req, false) {
		return
	}

	params := mastery.RecordAttemptParams{
		UserID:     userID,
		ItemType:   domain.ItemType(req.ItemType),
		ItemID:     req.ItemID,
		Correct:    *req.Correct,
		SessionRef: req.SessionRef,
	}
	if req.SessionDate != nil {
		params.SessionDate = *req.SessionDate
	}

	entry, err := h.mastery.RecordAttempt(r.Context(), params)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record attempt")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, entry)
}

// ListMastery handles GET /api/mastery
func (h *MasteryHandler) ListMastery(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireCaller(w, r)
	if !ok {
		return
	}

	entries, err := h.mastery.ListMastery(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load mastery")
		return
	}
	if entries == nil {
		entries = []domain.UserItemMastery{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, entries)
}
