package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/store"
)

// PostgresMasteryStore implements the store.MasteryStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMasteryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMasteryStore creates a new PostgreSQL implementation of the MasteryStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresMasteryStore(db store.DBTX, logger *slog.Logger) *PostgresMasteryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresMasteryStore{
		db:     db,
		logger: logger.With(slog.String("component", "mastery_store")),
	}
}

// Ensure PostgresMasteryStore implements store.MasteryStore interface
var _ store.MasteryStore = (*PostgresMasteryStore)(nil)

const masteryColumns = `
	user_id, item_type, item_id, attempts, correct, consecutive_correct_sessions,
	last_result, last_session_date, last_session_ref, mastered_at, created_at, updated_at
`

func scanMastery(row rowScanner) (domain.UserItemMastery, error) {
	var (
		m           domain.UserItemMastery
		itemType    string
		lastResult  sql.NullBool
		sessionDate sql.NullTime
		masteredAt  sql.NullTime
	)
	err := row.Scan(
		&m.UserID, &itemType, &m.ItemID, &m.Attempts, &m.Correct, &m.ConsecutiveCorrectSessions,
		&lastResult, &sessionDate, &m.LastSessionRef, &masteredAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.UserItemMastery{}, err
	}
	m.ItemType = domain.ItemType(itemType)
	if lastResult.Valid {
		v := lastResult.Bool
		m.LastResult = &v
	}
	if sessionDate.Valid {
		t := sessionDate.Time.UTC()
		m.LastSessionDate = &t
	}
	if masteredAt.Valid {
		t := masteredAt.Time
		m.MasteredAt = &t
	}
	return m, nil
}

// Ensure implements store.MasteryStore.Ensure
func (s *PostgresMasteryStore) Ensure(ctx context.Context, m *domain.UserItemMastery) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := m.Validate(); err != nil {
		return false, err
	}

	// Counters start from their column defaults; the caller locks the row next.
	query := `
		INSERT INTO user_item_mastery (user_id, item_type, item_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, item_type, item_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, m.UserID, string(m.ItemType), m.ItemID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		log.Error("failed to create mastery entry",
			slog.String("error", err.Error()),
			slog.String("user_id", m.UserID.String()),
			slog.String("item_id", m.ItemID))
		return false, MapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// GetForUpdate implements store.MasteryStore.GetForUpdate
func (s *PostgresMasteryStore) GetForUpdate(
	ctx context.Context,
	userID uuid.UUID,
	itemType domain.ItemType,
	itemID string,
) (*domain.UserItemMastery, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + masteryColumns + `
		FROM user_item_mastery
		WHERE user_id = $1 AND item_type = $2 AND item_id = $3
		FOR UPDATE
	`
	m, err := scanMastery(s.db.QueryRowContext(ctx, query, userID, string(itemType), itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrMasteryNotFound
		}
		log.Error("failed to get mastery entry",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("item_id", itemID))
		return nil, MapError(err)
	}
	return &m, nil
}

// Upsert implements store.MasteryStore.Upsert
func (s *PostgresMasteryStore) Upsert(ctx context.Context, m *domain.UserItemMastery) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := m.Validate(); err != nil {
		log.Warn("mastery validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("user_id", m.UserID.String()),
			slog.String("item_id", m.ItemID))
		return err
	}

	// last_session_date is a DATE column; the domain keeps it as midnight UTC.
	var sessionDate any
	if m.LastSessionDate != nil {
		sessionDate = m.LastSessionDate.UTC().Format("2006-01-02")
	}

	query := `
		INSERT INTO user_item_mastery (` + masteryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9, $10, $11, $12)
		ON CONFLICT (user_id, item_type, item_id) DO UPDATE SET
			attempts = EXCLUDED.attempts,
			correct = EXCLUDED.correct,
			consecutive_correct_sessions = EXCLUDED.consecutive_correct_sessions,
			last_result = EXCLUDED.last_result,
			last_session_date = EXCLUDED.last_session_date,
			last_session_ref = EXCLUDED.last_session_ref,
			mastered_at = EXCLUDED.mastered_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		m.UserID, string(m.ItemType), m.ItemID, m.Attempts, m.Correct, m.ConsecutiveCorrectSessions,
		m.LastResult, sessionDate, m.LastSessionRef, m.MasteredAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to upsert mastery entry",
			slog.String("error", err.Error()),
			slog.String("user_id", m.UserID.String()),
			slog.String("item_id", m.ItemID))
		return MapError(err)
	}

	log.Debug("mastery entry saved",
		slog.String("user_id", m.UserID.String()),
		slog.String("item_type", string(m.ItemType)),
		slog.String("item_id", m.ItemID),
		slog.Int("consecutive_correct_sessions", m.ConsecutiveCorrectSessions),
		slog.Bool("mastered", m.IsMastered()))
	return nil
}

// ListByUser implements store.MasteryStore.ListByUser
func (s *PostgresMasteryStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.UserItemMastery, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + masteryColumns + `
		FROM user_item_mastery
		WHERE user_id = $1
		ORDER BY item_type, item_id
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query mastery entries",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	entries := []domain.UserItemMastery{}
	for rows.Next() {
		m, err := scanMastery(rows)
		if err != nil {
			log.Error("failed to scan mastery row", slog.String("error", err.Error()))
			return nil, err
		}
		entries = append(entries, m)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating mastery rows", slog.String("error", err.Error()))
		return nil, err
	}
	return entries, nil
}

// WithTx implements store.MasteryStore.WithTx
func (s *PostgresMasteryStore) WithTx(tx *sql.Tx) store.MasteryStore {
	return &PostgresMasteryStore{db: tx, logger: s.logger}
}
