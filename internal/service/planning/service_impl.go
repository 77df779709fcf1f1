package planning

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/domain/analysis"
	"github.com/phrazzld/gauge/internal/domain/pathing"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/store"
)

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

// Dependencies are the collaborators of the planning service. Stores and the
// transaction runner are required; the rest have defaults.
type Dependencies struct {
	Tx        store.TxRunner
	Sessions  store.SessionStore
	Responses store.ResponseStore
	Items     store.ItemStore
	Domains   store.DomainStore
	Paths     store.LearningPathStore
	Plans     store.PlanStore

	Analyzer analysis.Analyzer
	Pathing  pathing.Selector
	Clock    func() time.Time
}

type serviceImpl struct {
	tx        store.TxRunner
	sessions  store.SessionStore
	responses store.ResponseStore
	items     store.ItemStore
	domains   store.DomainStore
	paths     store.LearningPathStore
	plans     store.PlanStore
	analyzer  analysis.Analyzer
	pathing   pathing.Selector
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a new planning Service.
func NewService(deps Dependencies, logger *slog.Logger) Service {
	if deps.Tx == nil {
		panic("tx runner cannot be nil")
	}
	if deps.Sessions == nil || deps.Responses == nil || deps.Items == nil {
		panic("session, response and item stores cannot be nil")
	}
	if deps.Domains == nil || deps.Paths == nil || deps.Plans == nil {
		panic("domain, learning path and plan stores cannot be nil")
	}
	if deps.Analyzer == nil {
		deps.Analyzer = analysis.NewAnalyzer(nil, nil)
	}
	if deps.Pathing == nil {
		deps.Pathing = pathing.NewDefaultSelector()
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &serviceImpl{
		tx:        deps.Tx,
		sessions:  deps.Sessions,
		responses: deps.Responses,
		items:     deps.Items,
		domains:   deps.Domains,
		paths:     deps.Paths,
		plans:     deps.Plans,
		analyzer:  deps.Analyzer,
		pathing:   deps.Pathing,
		now:       deps.Clock,
		logger:    logger.With(slog.String("component", "planning_service")),
	}
}

// GetDomainAnalysis implements Service.GetDomainAnalysis
func (s *serviceImpl) GetDomainAnalysis(ctx context.Context, sessionID uuid.UUID) (*DomainAnalysis, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("session_id", sessionID.String()))

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, NewServiceError("get_domain_analysis", "failed to load session", err)
	}

	if !session.IsTerminal() {
		return nil, ErrSessionActive
	}

	result, err := s.analyze(ctx, log, session, nil)
	if err != nil {
		return nil, wrapAnalysisError("get_domain_analysis", err)
	}
	return newDomainAnalysis(session, result), nil
}

// GeneratePlan implements Service.GeneratePlan
func (s *serviceImpl) GeneratePlan(ctx context.Context, p GeneratePlanParams) (*domain.PersonalLearningPlan, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("session_id", p.SessionID.String()),
		slog.String("user_id", p.UserID.String()))

	if p.UserID == uuid.Nil {
		return nil, domain.NewValidationError("user_id", "cannot be empty", nil)
	}
	if p.SessionID == uuid.Nil {
		return nil, domain.NewValidationError("session_id", "cannot be empty", nil)
	}

	session, err := s.sessions.GetByID(ctx, p.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, NewServiceError("generate_plan", "failed to load session", err)
	}
	if session.UserID != p.UserID {
		log.Warn("plan requested for another user's session",
			slog.String("owner_id", session.UserID.String()))
		return nil, ErrSessionNotOwned
	}
	if !session.IsTerminal() {
		return nil, ErrSessionActive
	}

	result, err := s.analyze(ctx, log, session, p.TargetAbility)
	if err != nil {
		return nil, wrapAnalysisError("generate_plan", err)
	}

	paths, err := s.paths.ListAll(ctx)
	if err != nil {
		log.Warn("learning path catalog unavailable, using a fallback plan",
			slog.String("error", err.Error()))
		paths = nil
	}

	now := s.now()
	current := result.CurrentAbility()
	draft := s.pathing.Select(pathing.Input{
		Ability:       current,
		TargetAbility: result.TargetAbility,
		Analysis:      result.Domains,
		Paths:         paths,
		Start:         now,
	})

	sessionID := session.ID
	next := draft.NextDiagnosticAt
	plan := &domain.PersonalLearningPlan{
		ID:                  uuid.New(),
		UserID:              p.UserID,
		DiagnosticSessionID: &sessionID,
		LearningPathID:      draft.PathID(),
		Fallback:            draft.Fallback,
		TargetAbility:       result.TargetAbility,
		CurrentAbility:      current,
		DomainAnalysis:      result.Domains,
		WeakDomains:         result.Weak,
		StrongDomains:       result.Strong,
		Schedule:            draft.Schedule,
		Milestones:          draft.Milestones,
		NextDiagnosticAt:    &next,
		Status:              domain.PlanStatusActive,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	var abandoned int64
	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		plans := s.plans.WithTx(tx)
		n, err := plans.AbandonActive(ctx, p.UserID, now)
		if err != nil {
			return err
		}
		abandoned = n
		return plans.Create(ctx, plan)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			log.Warn("concurrent plan generation detected", slog.String("error", err.Error()))
			return nil, err
		}
		log.Error("failed to store plan", slog.String("error", err.Error()))
		return nil, NewServiceError("generate_plan", "failed to store plan", err)
	}

	attrs := []any{
		slog.String("plan_id", plan.ID.String()),
		slog.Bool("fallback", plan.Fallback),
		slog.Float64("current_ability", plan.CurrentAbility),
		slog.Int("modules", len(plan.Schedule)),
		slog.Int64("abandoned", abandoned),
	}
	if plan.LearningPathID != nil {
		attrs = append(attrs, slog.String("learning_path_id", plan.LearningPathID.String()))
	}
	log.Info("learning plan generated", attrs...)

	return plan, nil
}

// GetActivePlan implements Service.GetActivePlan
func (s *serviceImpl) GetActivePlan(ctx context.Context, userID uuid.UUID) (*domain.PersonalLearningPlan, error) {
	plan, err := s.plans.GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, NewServiceError("get_active_plan", "failed to load plan", err)
	}
	return plan, nil
}

// analyze runs the domain analysis over a session's responses. The previous
// snapshot is the latest plan that existed when the session started; plans
// generated from the session itself never feed back into its analysis.
func (s *serviceImpl) analyze(
	ctx context.Context,
	log *slog.Logger,
	session *domain.DiagnosticSession,
	target *float64,
) (analysis.Result, error) {
	responses, err := s.responses.ListBySession(ctx, session.ID)
	if err != nil {
		return analysis.Result{}, err
	}
	domains, err := s.domains.ListActive(ctx)
	if err != nil {
		return analysis.Result{}, err
	}

	var previous domain.DomainAbilityMap
	plan, err := s.plans.GetLatestBefore(ctx, session.UserID, session.StartedAt, session.ID)
	switch {
	case err == nil:
		previous = plan.DomainAbilities()
	case errors.Is(err, store.ErrNotFound):
	default:
		return analysis.Result{}, err
	}

	scored, err := s.scoreResponses(ctx, session, responses)
	if err != nil {
		return analysis.Result{}, err
	}

	result, err := s.analyzer.Analyze(analysis.Input{
		Responses:     scored,
		Domains:       domains,
		Previous:      previous,
		TargetAbility: target,
	})
	if err != nil {
		return analysis.Result{}, err
	}
	if len(result.NonConverged) > 0 {
		log.Warn("domain estimates kept their prior",
			slog.Any("domains", result.NonConverged),
			slog.String("error", domain.ErrEstimationNonConvergence.Error()))
	}
	return result, nil
}

// scoreResponses pairs each response with its item's parameters. Items are
// loaded per session scope in one query; stragglers are fetched one by one.
func (s *serviceImpl) scoreResponses(
	ctx context.Context,
	session *domain.DiagnosticSession,
	responses []domain.DiagnosticResponse,
) ([]analysis.ScoredResponse, error) {
	if len(responses) == 0 {
		return nil, nil
	}

	pool, err := s.items.ListByDomains(ctx, session.DomainAbilities.Codes())
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.Item, len(pool))
	for _, item := range pool {
		byID[item.ID] = item
	}

	scored := make([]analysis.ScoredResponse, 0, len(responses))
	for _, r := range responses {
		item, ok := byID[r.ItemID]
		if !ok {
			fetched, err := s.items.GetByID(ctx, r.ItemID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, domain.NewDataIntegrityError("response %s references missing item %s", r.ID, r.ItemID)
				}
				return nil, err
			}
			item = *fetched
		}
		params, _ := item.ResolvedParams()
		code := r.DomainCode
		if code == "" {
			code = item.DomainCode
		}
		scored = append(scored, analysis.ScoredResponse{
			DomainCode: code,
			Params:     params,
			Correct:    r.IsCorrect,
		})
	}
	return scored, nil
}

func newDomainAnalysis(session *domain.DiagnosticSession, r analysis.Result) *DomainAnalysis {
	return &DomainAnalysis{
		SessionID:      session.ID,
		UserID:         session.UserID,
		TargetAbility:  r.TargetAbility,
		CurrentAbility: r.CurrentAbility(),
		Domains:        r.Domains,
		WeakDomains:    r.Weak,
		StrongDomains:  r.Strong,
		NonConverged:   r.NonConverged,
	}
}

// wrapAnalysisError keeps data integrity failures recognizable to callers.
func wrapAnalysisError(op string, err error) error {
	if errors.Is(err, domain.ErrDataIntegrity) || errors.Is(err, domain.ErrNoActiveDomains) {
		return err
	}
	return NewServiceError(op, "failed to analyse session", err)
}
