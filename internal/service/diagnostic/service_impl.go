package diagnostic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/domain/irt"
	"github.com/phrazzld/gauge/internal/domain/selection"
	"github.com/phrazzld/gauge/internal/events"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/store"
)

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

// Dependencies are the collaborators of the diagnostic service. Stores and
// the transaction runner are required; the rest have defaults.
type Dependencies struct {
	Tx        store.TxRunner
	Sessions  store.SessionStore
	Responses store.ResponseStore
	Items     store.ItemStore
	Domains   store.DomainStore
	Plans     store.PlanStore

	Selector  selection.Selector
	Estimator irt.Estimator
	Emitter   events.EventEmitter
	Clock     func() time.Time
}

type serviceImpl struct {
	tx        store.TxRunner
	sessions  store.SessionStore
	responses store.ResponseStore
	items     store.ItemStore
	domains   store.DomainStore
	plans     store.PlanStore
	selector  selection.Selector
	estimator irt.Estimator
	emitter   events.EventEmitter
	now       func() time.Time
	params    *Params
	logger    *slog.Logger
}

// NewService creates a new diagnostic Service.
func NewService(deps Dependencies, params *Params, logger *slog.Logger) Service {
	if deps.Tx == nil {
		panic("tx runner cannot be nil")
	}
	if deps.Sessions == nil || deps.Responses == nil {
		panic("session and response stores cannot be nil")
	}
	if deps.Items == nil || deps.Domains == nil || deps.Plans == nil {
		panic("item, domain and plan stores cannot be nil")
	}
	if deps.Selector == nil {
		deps.Selector = selection.NewDefaultSelector()
	}
	if deps.Estimator == nil {
		deps.Estimator = irt.NewDefaultEstimator()
	}
	if deps.Emitter == nil {
		deps.Emitter = events.NoopEmitter{}
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	if params == nil {
		params = NewDefaultParams()
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
		plans:     deps.Plans,
		selector:  deps.Selector,
		estimator: deps.Estimator,
		emitter:   deps.Emitter,
		now:       deps.Clock,
		params:    params,
		logger:    logger.With(slog.String("component", "diagnostic_service")),
	}
}

// StartSession implements Service.StartSession
func (s *serviceImpl) StartSession(ctx context.Context, p StartSessionParams) (*StartSessionResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	session, err := s.newSession(p)
	if err != nil {
		log.Warn("invalid start session request",
			slog.String("error", err.Error()),
			slog.String("user_id", p.UserID.String()))
		return nil, err
	}

	scope, err := s.resolveScope(ctx, s.domains, p.Domains)
	if err != nil {
		return nil, err
	}

	prior := irt.Prior{Mean: 0, SD: s.estimator.Params().PriorSD}
	if p.SessionType == domain.SessionTypeReassessment {
		plan, err := s.plans.GetActiveByUser(ctx, p.UserID)
		switch {
		case err == nil:
			prior.Mean = plan.CurrentAbility
		case errors.Is(err, store.ErrNotFound):
			log.Info("reassessment without an active plan, using the default prior",
				slog.String("user_id", p.UserID.String()))
		default:
			return nil, NewServiceError("start_session", "failed to load active plan", err)
		}
	}

	initial := s.estimator.Initial(prior)
	session.PriorMean = initial.Theta
	session.PriorSD = initial.SE
	session.Theta = initial.Theta
	session.StandardError = initial.SE
	session.DomainAbilities = make(domain.DomainAbilityMap, len(scope))
	for _, d := range scope {
		session.DomainAbilities[d.Code] = domain.DomainEstimate{Ability: initial.Theta, SE: initial.SE}
	}

	codes := session.DomainAbilities.Codes()
	pool, err := s.items.ListByDomains(ctx, codes)
	if err != nil {
		return nil, NewServiceError("start_session", "failed to load item pool", err)
	}
	rates, err := s.items.ExposureRates(ctx, codes)
	if err != nil {
		return nil, NewServiceError("start_session", "failed to load exposure rates", err)
	}

	sel, err := s.selector.Select(selection.Request{
		Items:           pool,
		ExposureRates:   rates,
		Domains:         scope,
		Theta:           session.Theta,
		DomainAbilities: session.DomainAbilities,
		MaxQuestions:    session.MaxQuestions,
	})
	if err != nil {
		if errors.Is(err, selection.ErrNoEligibleItems) {
			log.Error("no items available to start a session",
				slog.String("user_id", p.UserID.String()),
				slog.Any("domains", codes))
			return nil, ErrEmptyItemPool
		}
		return nil, NewServiceError("start_session", "failed to select first item", err)
	}
	s.logSelection(log, session.ID, sel)

	itemID := sel.Item.ID
	session.PendingItemID = &itemID

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.sessions.WithTx(tx).Create(ctx, session)
	})
	if err != nil {
		log.Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("user_id", p.UserID.String()))
		return nil, NewServiceError("start_session", "failed to create session", err)
	}

	log.Info("diagnostic session started",
		slog.String("session_id", session.ID.String()),
		slog.String("user_id", session.UserID.String()),
		slog.String("session_type", string(session.SessionType)),
		slog.Float64("prior_mean", session.PriorMean),
		slog.Int("max_questions", session.MaxQuestions))

	item := sel.Item
	return &StartSessionResult{Session: session, Item: &item}, nil
}

// newSession validates the request and builds the session shell with the
// service defaults applied.
func (s *serviceImpl) newSession(p StartSessionParams) (*domain.DiagnosticSession, error) {
	if p.UserID == uuid.Nil {
		return nil, domain.NewValidationError("user_id", "cannot be empty", nil)
	}
	if p.SessionType == "" {
		p.SessionType = domain.SessionTypeInitial
	}
	if !p.SessionType.IsValid() {
		return nil, domain.NewValidationError("session_type", "is not a known session type", domain.ErrValidation)
	}
	if p.MaxQuestions < 0 {
		return nil, domain.NewValidationError("max_questions", "cannot be negative", nil)
	}
	if p.PrecisionThreshold < 0 {
		return nil, domain.NewValidationError("precision_threshold", "cannot be negative", nil)
	}
	if p.TimeLimit != nil && *p.TimeLimit < 0 {
		return nil, domain.NewValidationError("time_limit", "cannot be negative", nil)
	}

	now := s.now()
	session := &domain.DiagnosticSession{
		ID:                 uuid.New(),
		UserID:             p.UserID,
		SessionType:        p.SessionType,
		MaxQuestions:       s.params.MaxQuestions,
		TimeLimit:          s.params.TimeLimit,
		PrecisionThreshold: s.params.PrecisionThreshold,
		Status:             domain.SessionStatusActive,
		Version:            1,
		StartedAt:          now,
		LastActivityAt:     now,
	}
	if p.MaxQuestions > 0 {
		session.MaxQuestions = p.MaxQuestions
	}
	if p.PrecisionThreshold > 0 {
		session.PrecisionThreshold = p.PrecisionThreshold
	}
	if p.TimeLimit != nil {
		session.TimeLimit = *p.TimeLimit
	}
	return session, nil
}

// resolveScope returns the active domains a session covers. An empty request
// selects every active domain.
func (s *serviceImpl) resolveScope(ctx context.Context, domains store.DomainStore, requested []string) ([]domain.Domain, error) {
	active, err := domains.ListActive(ctx)
	if err != nil {
		return nil, NewServiceError("resolve_scope", "failed to load domains", err)
	}
	if len(active) == 0 {
		return nil, domain.NewDataIntegrityError("no active domains")
	}
	if len(requested) == 0 {
		return active, nil
	}

	byCode := make(map[string]domain.Domain, len(active))
	for _, d := range active {
		byCode[d.Code] = d
	}
	seen := make(map[string]bool, len(requested))
	scope := make([]domain.Domain, 0, len(requested))
	for _, code := range requested {
		code = strings.TrimSpace(code)
		if seen[code] {
			continue
		}
		d, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, code)
		}
		seen[code] = true
		scope = append(scope, d)
	}
	return scope, nil
}

// sessionScope returns the still-active domains of a running session.
func (s *serviceImpl) sessionScope(ctx context.Context, domains store.DomainStore, session *domain.DiagnosticSession) ([]domain.Domain, error) {
	active, err := domains.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load domains: %w", err)
	}
	scope := make([]domain.Domain, 0, len(session.DomainAbilities))
	for _, d := range active {
		if _, ok := session.DomainAbilities[d.Code]; ok {
			scope = append(scope, d)
		}
	}
	if len(scope) == 0 {
		return nil, domain.NewDataIntegrityError("session %s has no active domains left", session.ID)
	}
	return scope, nil
}

// SubmitResponse implements Service.SubmitResponse
func (s *serviceImpl) SubmitResponse(ctx context.Context, p SubmitResponseParams) (*SubmitResponseResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("session_id", p.SessionID.String()),
		slog.String("item_id", p.ItemID.String()))

	switch {
	case p.SessionID == uuid.Nil:
		return nil, domain.NewValidationError("session_id", "cannot be empty", nil)
	case p.ItemID == uuid.Nil:
		return nil, domain.NewValidationError("item_id", "cannot be empty", nil)
	case strings.TrimSpace(p.Answer) == "":
		return nil, domain.NewValidationError("answer", "cannot be empty", nil)
	case p.ResponseTime < 0:
		return nil, domain.NewValidationError("response_time", "cannot be negative", nil)
	}

	var result *SubmitResponseResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		r, err := s.answer(ctx, log, tx, p)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		if IsRejection(err) || errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrVersionConflict) {
			log.Warn("response rejected", slog.String("error", err.Error()))
			return nil, err
		}
		log.Error("failed to record response", slog.String("error", err.Error()))
		return nil, NewServiceError("submit_response", "failed to record response", err)
	}

	s.emit(ctx, log, events.TypeResponseRecorded, events.ResponseRecordedPayload{
		SessionID:  result.Session.ID,
		UserID:     result.Session.UserID,
		ItemID:     result.Response.ItemID,
		DomainCode: result.Response.DomainCode,
		IsCorrect:  result.Response.IsCorrect,
		AnsweredAt: result.Response.CreatedAt,
	})
	if result.Session.IsTerminal() {
		s.emitCompleted(ctx, log, result.Session)
	}

	log.Debug("response recorded",
		slog.Int("sequence", result.Response.Sequence),
		slog.Bool("is_correct", result.Response.IsCorrect),
		slog.Float64("theta", result.Ability),
		slog.Float64("se", result.SE),
		slog.String("status", string(result.Status)))
	return result, nil
}

// answer runs the answer path inside the transaction. Every rejection is
// decided before anything is written.
func (s *serviceImpl) answer(ctx context.Context, log *slog.Logger, tx *sql.Tx, p SubmitResponseParams) (*SubmitResponseResult, error) {
	sessions := s.sessions.WithTx(tx)
	responses := s.responses.WithTx(tx)
	items := s.items.WithTx(tx)

	session, err := sessions.GetForUpdate(ctx, p.SessionID)
	if err != nil {
		return nil, err
	}
	if p.ExpectedVersion > 0 && p.ExpectedVersion != session.Version {
		return nil, store.ErrVersionConflict
	}
	if session.IsTerminal() {
		return nil, ErrSessionTerminal
	}

	history, err := responses.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	answered := make(map[uuid.UUID]bool, len(history)+1)
	for _, r := range history {
		answered[r.ItemID] = true
	}
	if answered[p.ItemID] {
		return nil, ErrDuplicateResponse
	}

	item, err := items.GetByID(ctx, p.ItemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownItem
		}
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	if _, ok := session.DomainAbilities[item.DomainCode]; !ok {
		return nil, ErrUnknownItem
	}
	if session.PendingItemID == nil || *session.PendingItemID != item.ID {
		return nil, ErrOutOfOrder
	}

	scope, err := s.sessionScope(ctx, s.domains.WithTx(tx), session)
	if err != nil {
		return nil, err
	}
	codes := session.DomainAbilities.Codes()
	pool, err := items.ListByDomains(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to load item pool: %w", err)
	}
	byID := make(map[uuid.UUID]domain.Item, len(pool)+1)
	for _, it := range pool {
		byID[it.ID] = it
	}
	byID[item.ID] = *item

	now := s.now()
	params, defaulted := item.ResolvedParams()
	if defaulted {
		log.Warn("using default item parameters",
			slog.String("error", fmt.Errorf("item %s: %w", item.ID, domain.ErrCalibrationDefault).Error()))
	}
	correct := item.IsCorrect(p.Answer)

	overall, byDomain, err := s.observations(ctx, items, byID, history, item.DomainCode)
	if err != nil {
		return nil, err
	}
	obs := irt.Observation{Params: params, Correct: correct}
	overall = append(overall, obs)
	byDomain = append(byDomain, obs)

	prior := irt.Prior{Mean: session.PriorMean, SD: session.PriorSD}
	before := irt.Estimate{Theta: session.Theta, SE: session.StandardError}
	probability, _ := irt.Probability(before.Theta, params)
	information, _ := irt.Information(before.Theta, params)

	warning := false
	after, err := s.estimator.Estimate(prior, overall, before)
	if err != nil {
		warning = true
		log.Warn("keeping previous ability estimate",
			slog.String("error", fmt.Errorf("%w: %v", domain.ErrEstimationNonConvergence, err).Error()))
	}
	domainEst := session.DomainAbilities[item.DomainCode]
	domainAfter, err := s.estimator.Estimate(prior, byDomain, irt.Estimate{Theta: domainEst.Ability, SE: domainEst.SE})
	if err != nil {
		warning = true
		log.Warn("keeping previous domain ability estimate",
			slog.String("domain", item.DomainCode),
			slog.String("error", fmt.Errorf("%w: %v", domain.ErrEstimationNonConvergence, err).Error()))
	}

	response := &domain.DiagnosticResponse{
		ID:                   uuid.New(),
		SessionID:            session.ID,
		ItemID:               item.ID,
		DomainCode:           item.DomainCode,
		Sequence:             session.QuestionsAnswered + 1,
		SelectedAnswer:       strings.TrimSpace(p.Answer),
		IsCorrect:            correct,
		ResponseTime:         p.ResponseTime,
		ThetaBefore:          before.Theta,
		SEBefore:             before.SE,
		ThetaAfter:           after.Theta,
		SEAfter:              after.SE,
		Information:          information,
		ExpectedProbability:  probability,
		EstimationWarning:    warning,
		CalibrationDefaulted: defaulted,
		CreatedAt:            now,
	}
	if err := responses.Create(ctx, response); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateResponse
		}
		return nil, fmt.Errorf("failed to save response: %w", err)
	}
	answered[item.ID] = true

	session.Theta = after.Theta
	session.StandardError = after.SE
	session.QuestionsAnswered++
	domainEst.Ability = domainAfter.Theta
	domainEst.SE = domainAfter.SE
	domainEst.Answered++
	if correct {
		session.QuestionsCorrect++
		domainEst.Correct++
	}
	session.DomainAbilities[item.DomainCode] = domainEst
	session.LastActivityAt = now
	session.PendingItemID = nil

	var next *domain.Item
	if reason, stop := session.StopReason(now); stop {
		if err := session.Finish(reason, now); err != nil {
			return nil, err
		}
		log.Info("session stopped",
			slog.String("reason", string(reason)),
			slog.Int("answered", session.QuestionsAnswered),
			slog.Float64("theta", session.Theta),
			slog.Float64("se", session.StandardError))
	} else {
		remaining := make([]domain.Item, 0, len(pool))
		for _, it := range pool {
			if !answered[it.ID] {
				remaining = append(remaining, it)
			}
		}
		rates, err := items.ExposureRates(ctx, codes)
		if err != nil {
			return nil, fmt.Errorf("failed to load exposure rates: %w", err)
		}
		sel, err := s.selector.Select(selection.Request{
			Items:           remaining,
			ExposureRates:   rates,
			Domains:         scope,
			Theta:           session.Theta,
			DomainAbilities: session.DomainAbilities,
			Answered:        session.QuestionsAnswered,
			MaxQuestions:    session.MaxQuestions,
		})
		switch {
		case errors.Is(err, selection.ErrNoEligibleItems):
			if err := session.Terminate(domain.ReasonItemPoolExhausted, now); err != nil {
				return nil, err
			}
			log.Warn("item pool exhausted, session terminated",
				slog.Int("answered", session.QuestionsAnswered))
		case err != nil:
			return nil, fmt.Errorf("failed to select next item: %w", err)
		default:
			s.logSelection(log, session.ID, sel)
			id := sel.Item.ID
			session.PendingItemID = &id
			next = &sel.Item
		}
	}

	if err := sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	return &SubmitResponseResult{
		NextItem: next,
		Ability:  session.Theta,
		SE:       session.StandardError,
		Status:   session.Status,
		Reason:   session.TerminationReason,
		Response: response,
		Session:  session,
	}, nil
}

// observations rebuilds the scored history of a session, overall and for one
// domain. Items that left the active pool are fetched individually.
func (s *serviceImpl) observations(
	ctx context.Context,
	items store.ItemStore,
	byID map[uuid.UUID]domain.Item,
	history []domain.DiagnosticResponse,
	domainCode string,
) ([]irt.Observation, []irt.Observation, error) {
	overall := make([]irt.Observation, 0, len(history)+1)
	var byDomain []irt.Observation
	for _, r := range history {
		item, ok := byID[r.ItemID]
		if !ok {
			fetched, err := items.GetByID(ctx, r.ItemID)
			if err != nil {
				return nil, nil, domain.NewDataIntegrityError("response %s refers to item %s: %v", r.ID, r.ItemID, err)
			}
			item = *fetched
			byID[item.ID] = item
		}
		params, _ := item.ResolvedParams()
		obs := irt.Observation{Params: params, Correct: r.IsCorrect}
		overall = append(overall, obs)
		if r.DomainCode == domainCode {
			byDomain = append(byDomain, obs)
		}
	}
	return overall, byDomain, nil
}

// ForceTerminate implements Service.ForceTerminate
func (s *serviceImpl) ForceTerminate(ctx context.Context, sessionID uuid.UUID, reason domain.TerminationReason) (*domain.DiagnosticSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("session_id", sessionID.String()))

	if reason == "" {
		reason = domain.ReasonAdminClear
	}
	if !reason.IsForcible() {
		return nil, domain.NewValidationError("reason", "cannot be used to end a session early", domain.ErrInvalidTerminationReason)
	}

	var (
		session *domain.DiagnosticSession
		changed bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		sessions := s.sessions.WithTx(tx)
		current, err := sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		session = current
		if current.IsTerminal() {
			return nil
		}
		if err := current.Terminate(reason, s.now()); err != nil {
			return err
		}
		if err := sessions.Update(ctx, current); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		log.Error("failed to terminate session", slog.String("error", err.Error()))
		return nil, NewServiceError("force_terminate", "failed to terminate session", err)
	}

	if changed {
		log.Info("session terminated", slog.String("reason", string(reason)))
		s.emitCompleted(ctx, log, session)
	} else {
		log.Debug("session already terminal",
			slog.String("status", string(session.Status)),
			slog.String("reason", string(session.TerminationReason)))
	}
	return session, nil
}

// SweepTimedOut implements Service.SweepTimedOut
func (s *serviceImpl) SweepTimedOut(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	grace := s.params.InactivityGrace

	candidates, err := s.sessions.ListTimedOut(ctx, now, grace)
	if err != nil {
		return nil, NewServiceError("sweep_timed_out", "failed to list timed out sessions", err)
	}

	var (
		terminated []uuid.UUID
		errs       []error
	)
	for _, id := range candidates {
		var session *domain.DiagnosticSession
		err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			sessions := s.sessions.WithTx(tx)
			current, err := sessions.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			// Re-check under the lock: an answer may have landed since the scan.
			if current.IsTerminal() || !current.TimeExceeded(now) || current.LastActivityAt.After(now.Add(-grace)) {
				return nil
			}
			if err := current.Terminate(domain.ReasonTimeLimit, now); err != nil {
				return err
			}
			if err := sessions.Update(ctx, current); err != nil {
				return err
			}
			session = current
			return nil
		})
		if err != nil {
			log.Error("failed to sweep session",
				slog.String("session_id", id.String()),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
			continue
		}
		if session != nil {
			terminated = append(terminated, id)
			s.emitCompleted(ctx, log, session)
		}
	}

	log.Info("timeout sweep finished",
		slog.Int("candidates", len(candidates)),
		slog.Int("terminated", len(terminated)),
		slog.Int("failed", len(errs)))

	if len(errs) > 0 {
		return terminated, NewServiceError("sweep_timed_out", "some sessions could not be terminated", errors.Join(errs...))
	}
	return terminated, nil
}

// GetSession implements Service.GetSession
func (s *serviceImpl) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.DiagnosticSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, NewServiceError("get_session", "failed to load session", err)
	}
	return session, nil
}

func (s *serviceImpl) logSelection(log *slog.Logger, sessionID uuid.UUID, sel selection.Selection) {
	if sel.CalibrationDefaulted {
		log.Warn("selected item uses default parameters",
			slog.String("session_id", sessionID.String()),
			slog.String("error", fmt.Errorf("item %s: %w", sel.Item.ID, domain.ErrCalibrationDefault).Error()))
	}
	if sel.Relaxed {
		log.Info("exposure cap relaxed to find an item",
			slog.String("session_id", sessionID.String()),
			slog.String("item_id", sel.Item.ID.String()))
	}
}

func (s *serviceImpl) emitCompleted(ctx context.Context, log *slog.Logger, session *domain.DiagnosticSession) {
	s.emit(ctx, log, events.TypeSessionCompleted, events.SessionCompletedPayload{
		SessionID: session.ID,
		UserID:    session.UserID,
		Status:    string(session.Status),
		Reason:    string(session.TerminationReason),
		Theta:     session.Theta,
		SE:        session.StandardError,
	})
}

// emit publishes an event after the transaction committed. Handler failures
// are logged; the committed answer stands.
func (s *serviceImpl) emit(ctx context.Context, log *slog.Logger, eventType string, payload any) {
	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		log.Error("failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("event handler failed",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}
