package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/api/shared"
	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/service/diagnostic"
	"github.com/phrazzld/gauge/internal/service/planning"
)

// StartSessionRequest is the body of POST /api/sessions. Omitted fields take
// the server defaults.
type StartSessionRequest struct {
	SessionType        string   `json:"session_type" validate:"omitempty,oneof=initial reassessment practice"`
	Domains            []string `json:"domains" validate:"omitempty,dive,required"`
	MaxQuestions       int      `json:"max_questions" validate:"gte=0,lte=500"`
	PrecisionThreshold float64  `json:"precision_threshold" validate:"gte=0,lte=5"`
	// TimeLimitMinutes overrides the default limit; 0 disables it.
	TimeLimitMinutes *int `json:"time_limit_minutes" validate:"omitempty,gte=0,lte=1440"`
}

// SubmitResponseRequest is the body of POST /api/sessions/{id}/responses.
type SubmitResponseRequest struct {
	ItemID         string `json:"item_id" validate:"required,uuid"`
	Answer         string `json:"answer" validate:"required"`
	ResponseTimeMs int64  `json:"response_time_ms" validate:"gte=0"`
	// ExpectedVersion, when set, must match the session's current version.
	ExpectedVersion int `json:"expected_version" validate:"gte=0"`
}

// ItemResponse is an item as shown to the examinee.
type ItemResponse struct {
	ID         uuid.UUID `json:"id"`
	DomainCode string    `json:"domain_code"`
	Stem       string    `json:"stem"`
}

// SessionResponse is the client view of a diagnostic session.
type SessionResponse struct {
	ID                 uuid.UUID                `json:"id"`
	UserID             uuid.UUID                `json:"user_id"`
	SessionType        domain.SessionType       `json:"session_type"`
	Status             domain.SessionStatus     `json:"status"`
	TerminationReason  domain.TerminationReason `json:"termination_reason,omitempty"`
	Ability            float64                  `json:"ability"`
	StandardError      float64                  `json:"standard_error"`
	QuestionsAnswered  int                      `json:"questions_answered"`
	QuestionsCorrect   int                      `json:"questions_correct"`
	MaxQuestions       int                      `json:"max_questions"`
	PrecisionThreshold float64                  `json:"precision_threshold"`
	TimeLimitSeconds   int64                    `json:"time_limit_seconds"`
	DomainAbilities    domain.DomainAbilityMap  `json:"domain_abilities"`
	PendingItemID      *uuid.UUID               `json:"pending_item_id,omitempty"`
	Version            int                      `json:"version"`
	StartedAt          time.Time                `json:"started_at"`
	CompletedAt        *time.Time               `json:"completed_at,omitempty"`
}

// StartSessionResponse is returned by POST /api/sessions.
type StartSessionResponse struct {
	Session SessionResponse `json:"session"`
	Item    *ItemResponse   `json:"item"`
}

// SubmitResponseResponse is returned by POST /api/sessions/{id}/responses.
type SubmitResponseResponse struct {
	IsCorrect         bool                     `json:"is_correct"`
	Sequence          int                      `json:"sequence"`
	Ability           float64                  `json:"ability"`
	StandardError     float64                  `json:"standard_error"`
	Status            domain.SessionStatus     `json:"status"`
	TerminationReason domain.TerminationReason `json:"termination_reason,omitempty"`
	EstimationWarning bool                     `json:"estimation_warning,omitempty"`
	Version           int                      `json:"version"`
	// NextItem is absent once the session has stopped.
	NextItem *ItemResponse `json:"next_item,omitempty"`
}

// SessionHandler serves the examinee-facing session routes.
type SessionHandler struct {
	sessions diagnostic.Service
	planning planning.Service
	isAdmin  func(*http.Request) bool
	validate *validator.Validate
	logger   *slog.Logger
}

// NewSessionHandler creates a SessionHandler. isAdmin reports whether a
// request may read sessions of other users; nil allows owners only.
func NewSessionHandler(
	sessions diagnostic.Service,
	planningService planning.Service,
	isAdmin func(*http.Request) bool,
	logger *slog.Logger,
) *SessionHandler {
	if sessions == nil || planningService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("session handler services cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if isAdmin == nil {
		isAdmin = func(*http.Request) bool { return false }
	}
	return &SessionHandler{
		sessions: sessions,
		planning: planningService,
		isAdmin:  isAdmin,
		validate: shared.NewValidator(),
		logger:   logger.With(slog.String("component", "session_handler")),
	}
}

// StartSession handles POST /api/sessions
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, _, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req StartSessionRequest
	if !decodeAndValidate(w, r, h.validate, &req, true) {
		return
	}

	params := diagnostic.StartSessionParams{
		UserID:             userID,
		SessionType:        domain.SessionType(req.SessionType),
		Domains:            req.Domains,
		MaxQuestions:       req.MaxQuestions,
		PrecisionThreshold: req.PrecisionThreshold,
	}
	if req.TimeLimitMinutes != nil {
		limit := time.Duration(*req.TimeLimitMinutes) * time.Minute
		params.TimeLimit = &limit
	}

	result, err := h.sessions.StartSession(r.Context(), params)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start session")
		return
	}

	log.Info("diagnostic session started",
		slog.String("session_id", result.Session.ID.String()),
		slog.String("session_type", string(result.Session.SessionType)))
	shared.RespondWithJSON(w, r, http.StatusCreated, StartSessionResponse{
		Session: sessionToResponse(result.Session),
		Item:    itemToResponse(result.Item),
	})
}

// SubmitResponse handles POST /api/sessions/{id}/responses
func (h *SessionHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadOwnedSession(w, r, false)
	if !ok {
		return
	}

	var req SubmitResponseRequest
	if !decodeAndValidate(w, r, h.validate, &req, false) {
		return
	}

	result, err := h.sessions.SubmitResponse(r.Context(), diagnostic.SubmitResponseParams{
		SessionID:       session.ID,
		ItemID:          uuid.MustParse(req.ItemID),
		Answer:          req.Answer,
		ResponseTime:    time.Duration(req.ResponseTimeMs) * time.Millisecond,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit response")
		return
	}

	resp := SubmitResponseResponse{
		Ability:           result.Ability,
		StandardError:     result.SE,
		Status:            result.Status,
		TerminationReason: result.Reason,
		NextItem:          itemToResponse(result.NextItem),
	}
	if result.Response != nil {
		resp.IsCorrect = result.Response.IsCorrect
		resp.Sequence = result.Response.Sequence
		resp.EstimationWarning = result.Response.EstimationWarning
	}
	if result.Session != nil {
		resp.Version = result.Session.Version
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadOwnedSession(w, r, true)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session))
}

// GetAnalysis handles GET /api/sessions/{id}/analysis
func (h *SessionHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadOwnedSession(w, r, true)
	if !ok {
		return
	}

	analysis, err := h.planning.GetDomainAnalysis(r.Context(), session.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to analyze session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, analysis)
}

// loadOwnedSession reads the {id} session and checks the caller owns it.
// Admins may read any session when allowAdmin is set.
func (h *SessionHandler) loadOwnedSession(w http.ResponseWriter, r *http.Request, allowAdmin bool) (*domain.DiagnosticSession, bool) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, _, ok := requireCaller(w, r)
	if !ok {
		return nil, false
	}
	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil, false
	}

	session, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load session")
		return nil, false
	}
	if session.UserID != userID && !(allowAdmin && h.isAdmin(r)) {
		log.Warn("session access denied",
			slog.String("session_id", sessionID.String()),
			slog.String("owner_id", session.UserID.String()))
		HandleAPIError(w, r, planning.ErrSessionNotOwned, "")
		return nil, false
	}
	return session, true
}

func sessionToResponse(s *domain.DiagnosticSession) SessionResponse {
	abilities := s.DomainAbilities
	if abilities == nil {
		abilities = domain.DomainAbilityMap{}
	}
	return SessionResponse{
		ID:                 s.ID,
		UserID:             s.UserID,
		SessionType:        s.SessionType,
		Status:             s.Status,
		TerminationReason:  s.TerminationReason,
		Ability:            s.Theta,
		StandardError:      s.StandardError,
		QuestionsAnswered:  s.QuestionsAnswered,
		QuestionsCorrect:   s.QuestionsCorrect,
		MaxQuestions:       s.MaxQuestions,
		PrecisionThreshold: s.PrecisionThreshold,
		TimeLimitSeconds:   int64(s.TimeLimit / time.Second),
		DomainAbilities:    abilities,
		PendingItemID:      s.PendingItemID,
		Version:            s.Version,
		StartedAt:          s.StartedAt,
		CompletedAt:        s.CompletedAt,
	}
}

func itemToResponse(item *domain.Item) *ItemResponse {
	if item == nil {
		return nil
	}
	return &ItemResponse{ID: item.ID, DomainCode: item.DomainCode, Stem: item.Stem}
}
