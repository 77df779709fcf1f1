package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/store"
)

// activePlanConstraint is the partial unique index allowing one active plan per user.
const activePlanConstraint = "uq_learning_plans_active_user"

// PostgresPlanStore implements the store.PlanStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPlanStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPlanStore creates a new PostgreSQL implementation of the PlanStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresPlanStore(db store.DBTX, logger *slog.Logger) *PostgresPlanStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPlanStore{
		db:     db,
		logger: logger.With(slog.String("component", "plan_store")),
	}
}

// Ensure PostgresPlanStore implements store.PlanStore interface
var _ store.PlanStore = (*PostgresPlanStore)(nil)

const planColumns = `
	id, user_id, diagnostic_session_id, learning_path_id, fallback, target_ability, current_ability,
	next_diagnostic_at, status, last_reminder_tier, last_reminder_at, last_reminder_failed,
	created_at, updated_at
`

// Create implements store.PlanStore.Create
func (s *PostgresPlanStore) Create(ctx context.Context, plan *domain.PersonalLearningPlan) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := plan.Validate(); err != nil {
		log.Warn("plan validation failed during create",
			slog.String("error", err.Error()),
			slog.String("plan_id", plan.ID.String()))
		return err
	}

	var tier any
	if plan.Reminder.Tier != domain.ReminderTierNone {
		tier = string(plan.Reminder.Tier)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learning_plans (
			id, user_id, diagnostic_session_id, learning_path_id, fallback, target_ability, current_ability,
			next_diagnostic_at, status, last_reminder_tier, last_reminder_rank, last_reminder_at,
			last_reminder_failed, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		plan.ID,
		plan.UserID,
		plan.DiagnosticSessionID,
		plan.LearningPathID,
		plan.Fallback,
		plan.TargetAbility,
		plan.CurrentAbility,
		plan.NextDiagnosticAt,
		string(plan.Status),
		tier,
		plan.Reminder.Tier.Rank(),
		plan.Reminder.SentAt,
		plan.Reminder.Failed,
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("user already has an active plan",
				slog.String("user_id", plan.UserID.String()))
			return MapError(err)
		}
		log.Error("failed to create plan",
			slog.String("error", err.Error()),
			slog.String("plan_id", plan.ID.String()),
			slog.String("user_id", plan.UserID.String()))
		return MapError(err)
	}

	for rank, d := range plan.DomainAnalysis {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO plan_domain_estimates (
				plan_id, domain_code, rank, ability, standard_error, answered,
				weight, gap, priority, classification, inherited
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, plan.ID, d.DomainCode, rank, d.Ability, d.SE, d.Answered,
			d.Weight, d.Gap, d.Priority, string(d.Classification), d.Inherited,
		); err != nil {
			log.Error("failed to insert plan domain estimate",
				slog.String("error", err.Error()),
				slog.String("plan_id", plan.ID.String()),
				slog.String("domain_code", d.DomainCode))
			return MapError(err)
		}
	}

	for _, m := range plan.Schedule {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO plan_schedule (
				plan_id, position, module_id, title, domain_code, difficulty, estimated_hours, start_date, due_date
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, plan.ID, m.Position, m.ModuleID, m.Title, m.DomainCode, m.Difficulty, m.EstimatedHours,
			m.StartDate, m.DueDate,
		); err != nil {
			log.Error("failed to insert plan schedule entry",
				slog.String("error", err.Error()),
				slog.String("plan_id", plan.ID.String()),
				slog.Int("position", m.Position))
			return MapError(err)
		}
	}

	for _, m := range plan.Milestones {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO plan_milestones (plan_id, position, title, target_ability, due_date)
			VALUES ($1, $2, $3, $4, $5)
		`, plan.ID, m.Position, m.Title, m.TargetAbility, m.DueDate); err != nil {
			log.Error("failed to insert plan milestone",
				slog.String("error", err.Error()),
				slog.String("plan_id", plan.ID.String()),
				slog.Int("position", m.Position))
			return MapError(err)
		}
	}

	log.Info("plan created",
		slog.String("plan_id", plan.ID.String()),
		slog.String("user_id", plan.UserID.String()),
		slog.Bool("fallback", plan.Fallback),
		slog.Int("modules", len(plan.Schedule)))
	return nil
}

// GetByID implements store.PlanStore.GetByID
func (s *PostgresPlanStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PersonalLearningPlan, error) {
	query := `SELECT ` + planColumns + ` FROM learning_plans WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetActiveByUser implements store.PlanStore.GetActiveByUser
func (s *PostgresPlanStore) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.PersonalLearningPlan, error) {
	query := `SELECT ` + planColumns + ` FROM learning_plans WHERE user_id = $1 AND status = 'active'`
	return s.getOne(ctx, query, userID)
}

// GetLatestBefore implements store.PlanStore.GetLatestBefore
func (s *PostgresPlanStore) GetLatestBefore(
	ctx context.Context,
	userID uuid.UUID,
	before time.Time,
	excludeSessionID uuid.UUID,
) (*domain.PersonalLearningPlan, error) {
	query := `SELECT ` + planColumns + `
		FROM learning_plans
		WHERE user_id = $1
			AND created_at <= $2
			AND diagnostic_session_id IS DISTINCT FROM $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return s.getOne(ctx, query, userID, before, excludeSessionID)
}

// getOne loads a single plan; args[0] is the ID the lookup is keyed on.
func (s *PostgresPlanStore) getOne(ctx context.Context, query string, args ...any) (*domain.PersonalLearningPlan, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	plan, err := scanPlan(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("plan not found", slog.Any("lookup_id", args[0]))
			return nil, store.ErrPlanNotFound
		}
		log.Error("failed to get plan",
			slog.String("error", err.Error()),
			slog.Any("lookup_id", args[0]))
		return nil, MapError(err)
	}

	if err := s.loadChildren(ctx, &plan); err != nil {
		log.Error("failed to load plan details",
			slog.String("error", err.Error()),
			slog.String("plan_id", plan.ID.String()))
		return nil, err
	}
	return &plan, nil
}

func scanPlan(row rowScanner) (domain.PersonalLearningPlan, error) {
	var (
		plan          domain.PersonalLearningPlan
		sessionID     uuid.NullUUID
		pathID        uuid.NullUUID
		nextDiagnosis sql.NullTime
		status        string
		tier          sql.NullString
		sentAt        sql.NullTime
	)
	err := row.Scan(
		&plan.ID,
		&plan.UserID,
		&sessionID,
		&pathID,
		&plan.Fallback,
		&plan.TargetAbility,
		&plan.CurrentAbility,
		&nextDiagnosis,
		&status,
		&tier,
		&sentAt,
		&plan.Reminder.Failed,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return domain.PersonalLearningPlan{}, err
	}

	if sessionID.Valid {
		id := sessionID.UUID
		plan.DiagnosticSessionID = &id
	}
	if pathID.Valid {
		id := pathID.UUID
		plan.LearningPathID = &id
	}
	if nextDiagnosis.Valid {
		t := nextDiagnosis.Time
		plan.NextDiagnosticAt = &t
	}
	if sentAt.Valid {
		t := sentAt.Time
		plan.Reminder.SentAt = &t
	}
	plan.Status = domain.PlanStatus(status)
	plan.Reminder.Tier = domain.ReminderTier(tier.String)
	plan.DomainAnalysis = []domain.PlanDomainEstimate{}
	plan.WeakDomains = []string{}
	plan.StrongDomains = []string{}
	plan.Schedule = []domain.ScheduledModule{}
	plan.Milestones = []domain.Milestone{}
	return plan, nil
}

func (s *PostgresPlanStore) loadChildren(ctx context.Context, plan *domain.PersonalLearningPlan) error {
	err := s.queryRows(ctx, `
		SELECT domain_code, ability, standard_error, answered, weight, gap, priority, classification, inherited
		FROM plan_domain_estimates
		WHERE plan_id = $1
		ORDER BY rank
	`, plan.ID, func(rows *sql.Rows) error {
		var d domain.PlanDomainEstimate
		var class string
		if err := rows.Scan(&d.DomainCode, &d.Ability, &d.SE, &d.Answered, &d.Weight, &d.Gap,
			&d.Priority, &class, &d.Inherited); err != nil {
			return err
		}
		d.Classification = domain.Classification(class)
		plan.DomainAnalysis = append(plan.DomainAnalysis, d)
		switch d.Classification {
		case domain.ClassificationWeak:
			plan.WeakDomains = append(plan.WeakDomains, d.DomainCode)
		case domain.ClassificationStrong:
			plan.StrongDomains = append(plan.StrongDomains, d.DomainCode)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = s.queryRows(ctx, `
		SELECT position, module_id, title, domain_code, difficulty, estimated_hours, start_date, due_date
		FROM plan_schedule
		WHERE plan_id = $1
		ORDER BY position
	`, plan.ID, func(rows *sql.Rows) error {
		var m domain.ScheduledModule
		var moduleID uuid.NullUUID
		if err := rows.Scan(&m.Position, &moduleID, &m.Title, &m.DomainCode, &m.Difficulty,
			&m.EstimatedHours, &m.StartDate, &m.DueDate); err != nil {
			return err
		}
		if moduleID.Valid {
			id := moduleID.UUID
			m.ModuleID = &id
		}
		plan.Schedule = append(plan.Schedule, m)
		return nil
	})
	if err != nil {
		return err
	}

	return s.queryRows(ctx, `
		SELECT position, title, target_ability, due_date
		FROM plan_milestones
		WHERE plan_id = $1
		ORDER BY position
	`, plan.ID, func(rows *sql.Rows) error {
		var m domain.Milestone
		if err := rows.Scan(&m.Position, &m.Title, &m.TargetAbility, &m.DueDate); err != nil {
			return err
		}
		plan.Milestones = append(plan.Milestones, m)
		return nil
	})
}

func (s *PostgresPlanStore) queryRows(ctx context.Context, query string, planID uuid.UUID, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, planID)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// AbandonActive implements store.PlanStore.AbandonActive
func (s *PostgresPlanStore) AbandonActive(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE learning_plans SET status = 'abandoned', updated_at = $2
		WHERE user_id = $1 AND status = 'active'
	`, userID, now)
	if err != nil {
		log.Error("failed to abandon active plan",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		log.Info("abandoned previous active plan", slog.String("user_id", userID.String()))
	}
	return n, nil
}

// ListDueForReminder implements store.PlanStore.ListDueForReminder
func (s *PostgresPlanStore) ListDueForReminder(ctx context.Context, horizon time.Time) ([]domain.PersonalLearningPlan, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + planColumns + `
		FROM learning_plans
		WHERE status = 'active' AND next_diagnostic_at IS NOT NULL AND next_diagnostic_at <= $1
		ORDER BY next_diagnostic_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, horizon)
	if err != nil {
		log.Error("failed to query plans due for reminder", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	plans := []domain.PersonalLearningPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			log.Error("failed to scan plan row", slog.String("error", err.Error()))
			return nil, err
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating plan rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed plans due for reminder", slog.Int("count", len(plans)))
	return plans, nil
}

// ClaimReminder implements store.PlanStore.ClaimReminder
func (s *PostgresPlanStore) ClaimReminder(
	ctx context.Context,
	planID uuid.UUID,
	tier domain.ReminderTier,
	now time.Time,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if tier.Rank() == 0 {
		return false, domain.ErrInvalidReminderTier
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE learning_plans SET
			last_reminder_tier = $2,
			last_reminder_rank = $3,
			last_reminder_at = $4,
			last_reminder_failed = FALSE,
			updated_at = $4
		WHERE id = $1 AND status = 'active' AND last_reminder_rank < $3
	`, planID, string(tier), tier.Rank(), now)
	if err != nil {
		log.Error("failed to claim reminder",
			slog.String("error", err.Error()),
			slog.String("plan_id", planID.String()),
			slog.String("tier", string(tier)))
		return false, MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// MarkReminderFailed implements store.PlanStore.MarkReminderFailed
func (s *PostgresPlanStore) MarkReminderFailed(ctx context.Context, planID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE learning_plans SET last_reminder_failed = TRUE WHERE id = $1
	`, planID)
	if err != nil {
		log.Error("failed to mark reminder failed",
			slog.String("error", err.Error()),
			slog.String("plan_id", planID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "learning plan"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrPlanNotFound
		}
		return err
	}
	return nil
}

// WithTx implements store.PlanStore.WithTx
func (s *PostgresPlanStore) WithTx(tx *sql.Tx) store.PlanStore {
	return &PostgresPlanStore{db: tx, logger: s.logger}
}
