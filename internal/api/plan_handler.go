package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/api/shared"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/service/planning"
)

// GeneratePlanRequest is the body of POST /api/plans.
type GeneratePlanRequest struct {
	SessionID     string   `json:"session_id" validate:"required,uuid"`
	TargetAbility *float64 `json:"target_ability" validate:"omitempty,gte=-4,lte=4"`
}

// PlanHandler serves learning plan routes.
type PlanHandler struct {
	plans    planning.Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewPlanHandler creates a PlanHandler.
func NewPlanHandler(plans planning.Service, logger *slog.Logger) *PlanHandler {
	if plans == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("planning service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanHandler{
		plans:    plans,
		validate: shared.NewValidator(),
		logger:   logger.With(slog.String("component", "plan_handler")),
	}
}

// GeneratePlan handles POST /api/plans. The new plan replaces the caller's
// active plan.
func (h *PlanHandler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, _, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req GeneratePlanRequest
	if !decodeAndValidate(w, r, h.validate, &req, false) {
		return
	}

	plan, err := h.plans.GeneratePlan(r.Context(), planning.GeneratePlanParams{
		UserID:        userID,
		SessionID:     uuid.MustParse(req.SessionID),
		TargetAbility: req.TargetAbility,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate learning plan")
		return
	}

	log.Info("learning plan generated",
		slog.String("plan_id", plan.ID.String()),
		slog.Bool("fallback", plan.Fallback))
	shared.RespondWithJSON(w, r, http.StatusCreated, plan)
}

// GetActivePlan handles GET /api/plans/active
func (h *PlanHandler) GetActivePlan(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireCaller(w, r)
	if !ok {
		return
	}

	plan, err := h.plans.GetActivePlan(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load learning plan")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, plan)
}
