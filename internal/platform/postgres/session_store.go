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

// PostgresSessionStore implements the store.SessionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a new PostgreSQL implementation of the SessionStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Ensure PostgresSessionStore implements store.SessionStore interface
var _ store.SessionStore = (*PostgresSessionStore)(nil)

const sessionColumns = `
	id, user_id, session_type, max_questions, time_limit_seconds, precision_threshold,
	prior_mean, prior_sd, theta, standard_error, questions_answered, questions_correct,
	pending_item_id, status, termination_reason, version, started_at, completed_at, last_activity_at
`

// Create implements store.SessionStore.Create
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.DiagnosticSession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during create",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	query := `
		INSERT INTO diagnostic_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		string(session.SessionType),
		session.MaxQuestions,
		int64(session.TimeLimit/time.Second),
		session.PrecisionThreshold,
		session.PriorMean,
		session.PriorSD,
		session.Theta,
		session.StandardError,
		session.QuestionsAnswered,
		session.QuestionsCorrect,
		session.PendingItemID,
		string(session.Status),
		nullableReason(session.TerminationReason),
		session.Version,
		session.StartedAt,
		session.CompletedAt,
		session.LastActivityAt,
	)
	if err != nil {
		log.Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()),
			slog.String("user_id", session.UserID.String()))
		return MapError(err)
	}

	if err := s.writeEstimates(ctx, session); err != nil {
		log.Error("failed to write session domain estimates",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	log.Info("session created",
		slog.String("session_id", session.ID.String()),
		slog.String("user_id", session.UserID.String()),
		slog.String("session_type", string(session.SessionType)),
		slog.Int("domains", len(session.DomainAbilities)))
	return nil
}

// GetByID implements store.SessionStore.GetByID
func (s *PostgresSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.DiagnosticSession, error) {
	return s.get(ctx, id, false)
}

// GetForUpdate implements store.SessionStore.GetForUpdate
func (s *PostgresSessionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.DiagnosticSession, error) {
	return s.get(ctx, id, true)
}

func (s *PostgresSessionStore) get(ctx context.Context, id uuid.UUID, lock bool) (*domain.DiagnosticSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + sessionColumns + ` FROM diagnostic_sessions WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var (
		session     domain.DiagnosticSession
		sessionType string
		status      string
		reason      sql.NullString
		limitSecs   int64
		pending     uuid.NullUUID
		completedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&sessionType,
		&session.MaxQuestions,
		&limitSecs,
		&session.PrecisionThreshold,
		&session.PriorMean,
		&session.PriorSD,
		&session.Theta,
		&session.StandardError,
		&session.QuestionsAnswered,
		&session.QuestionsCorrect,
		&pending,
		&status,
		&reason,
		&session.Version,
		&session.StartedAt,
		&completedAt,
		&session.LastActivityAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("session not found", slog.String("session_id", id.String()))
			return nil, store.ErrSessionNotFound
		}
		log.Error("failed to get session",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return nil, MapError(err)
	}

	session.SessionType = domain.SessionType(sessionType)
	session.Status = domain.SessionStatus(status)
	session.TerminationReason = domain.TerminationReason(reason.String)
	session.TimeLimit = time.Duration(limitSecs) * time.Second
	if pending.Valid {
		p := pending.UUID
		session.PendingItemID = &p
	}
	if completedAt.Valid {
		t := completedAt.Time
		session.CompletedAt = &t
	}

	abilities, err := s.loadEstimates(ctx, id)
	if err != nil {
		log.Error("failed to load session domain estimates",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return nil, err
	}
	session.DomainAbilities = abilities

	return &session, nil
}

// Update implements store.SessionStore.Update
func (s *PostgresSessionStore) Update(ctx context.Context, session *domain.DiagnosticSession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during update",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	query := `
		UPDATE diagnostic_sessions SET
			theta = $3,
			standard_error = $4,
			questions_answered = $5,
			questions_correct = $6,
			pending_item_id = $7,
			status = $8,
			termination_reason = $9,
			completed_at = $10,
			last_activity_at = $11,
			version = version + 1
		WHERE id = $1 AND version = $2
	`
	result, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.Version,
		session.Theta,
		session.StandardError,
		session.QuestionsAnswered,
		session.QuestionsCorrect,
		session.PendingItemID,
		string(session.Status),
		nullableReason(session.TerminationReason),
		session.CompletedAt,
		session.LastActivityAt,
	)
	if err != nil {
		log.Error("failed to update session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM diagnostic_sessions WHERE id = $1)`, session.ID,
		).Scan(&exists); err != nil {
			return MapError(err)
		}
		if !exists {
			return store.ErrSessionNotFound
		}
		log.Warn("session version conflict",
			slog.String("session_id", session.ID.String()),
			slog.Int("version", session.Version))
		return store.ErrVersionConflict
	}

	if err := s.writeEstimates(ctx, session); err != nil {
		log.Error("failed to write session domain estimates",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	session.Version++

	log.Debug("session updated",
		slog.String("session_id", session.ID.String()),
		slog.Int("version", session.Version),
		slog.String("status", string(session.Status)))
	return nil
}

// ListTimedOut implements store.SessionStore.ListTimedOut
func (s *PostgresSessionStore) ListTimedOut(ctx context.Context, now time.Time, grace time.Duration) ([]uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id
		FROM diagnostic_sessions
		WHERE status = 'active'
			AND time_limit_seconds > 0
			AND started_at + make_interval(secs => time_limit_seconds) < $1
			AND last_activity_at < $2
		ORDER BY started_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, now, now.Add(-grace))
	if err != nil {
		log.Error("failed to query timed out sessions", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			log.Error("failed to scan session id", slog.String("error", err.Error()))
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating timed out sessions", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed timed out sessions", slog.Int("count", len(ids)))
	return ids, nil
}

// WithTx implements store.SessionStore.WithTx
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &PostgresSessionStore{db: tx, logger: s.logger}
}

// writeEstimates upserts one row per domain of the session's scope. The scope
// never shrinks, so no rows are deleted.
func (s *PostgresSessionStore) writeEstimates(ctx context.Context, session *domain.DiagnosticSession) error {
	for _, code := range session.DomainAbilities.Codes() {
		est := session.DomainAbilities[code]
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO session_domain_estimates (session_id, domain_code, ability, standard_error, answered, correct)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (session_id, domain_code) DO UPDATE SET
				ability = EXCLUDED.ability,
				standard_error = EXCLUDED.standard_error,
				answered = EXCLUDED.answered,
				correct = EXCLUDED.correct
		`, session.ID, code, est.Ability, est.SE, est.Answered, est.Correct)
		if err != nil {
			return MapError(err)
		}
	}
	return nil
}

func (s *PostgresSessionStore) loadEstimates(ctx context.Context, sessionID uuid.UUID) (domain.DomainAbilityMap, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain_code, ability, standard_error, answered, correct
		FROM session_domain_estimates
		WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	abilities := domain.DomainAbilityMap{}
	for rows.Next() {
		var code string
		var est domain.DomainEstimate
		if err := rows.Scan(&code, &est.Ability, &est.SE, &est.Answered, &est.Correct); err != nil {
			return nil, err
		}
		abilities[code] = est
	}
	return abilities, rows.Err()
}

func nullableReason(r domain.TerminationReason) any {
	if r == "" {
		return nil
	}
	return string(r)
}
