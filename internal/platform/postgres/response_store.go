package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/store"
)

// PostgresResponseStore implements the store.ResponseStore interface
// using a PostgreSQL database as the storage backend.
type PostgresResponseStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresResponseStore creates a new PostgreSQL implementation of the ResponseStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresResponseStore(db store.DBTX, logger *slog.Logger) *PostgresResponseStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresResponseStore{
		db:     db,
		logger: logger.With(slog.String("component", "response_store")),
	}
}

// Ensure PostgresResponseStore implements store.ResponseStore interface
var _ store.ResponseStore = (*PostgresResponseStore)(nil)

// Create implements store.ResponseStore.Create
func (s *PostgresResponseStore) Create(ctx context.Context, r *domain.DiagnosticResponse) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO diagnostic_responses (
			id, session_id, item_id, domain_code, sequence, selected_answer, is_correct,
			response_time_ms, theta_before, se_before, theta_after, se_after,
			information, expected_probability, estimation_warning, calibration_defaulted, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.SessionID,
		r.ItemID,
		r.DomainCode,
		r.Sequence,
		r.SelectedAnswer,
		r.IsCorrect,
		r.ResponseTime.Milliseconds(),
		r.ThetaBefore,
		r.SEBefore,
		r.ThetaAfter,
		r.SEAfter,
		r.Information,
		r.ExpectedProbability,
		r.EstimationWarning,
		r.CalibrationDefaulted,
		r.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate diagnostic response",
				slog.String("session_id", r.SessionID.String()),
				slog.String("item_id", r.ItemID.String()),
				slog.Int("sequence", r.Sequence))
			return MapError(err)
		}
		log.Error("failed to create diagnostic response",
			slog.String("error", err.Error()),
			slog.String("session_id", r.SessionID.String()),
			slog.String("item_id", r.ItemID.String()))
		return MapError(err)
	}

	log.Debug("diagnostic response recorded",
		slog.String("session_id", r.SessionID.String()),
		slog.String("item_id", r.ItemID.String()),
		slog.Int("sequence", r.Sequence),
		slog.Bool("is_correct", r.IsCorrect))
	return nil
}

// ListBySession implements store.ResponseStore.ListBySession
func (s *PostgresResponseStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.DiagnosticResponse, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, session_id, item_id, domain_code, sequence, selected_answer, is_correct,
			response_time_ms, theta_before, se_before, theta_after, se_after,
			information, expected_probability, estimation_warning, calibration_defaulted, created_at
		FROM diagnostic_responses
		WHERE session_id = $1
		ORDER BY sequence
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		log.Error("failed to query diagnostic responses",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	responses := []domain.DiagnosticResponse{}
	for rows.Next() {
		var r domain.DiagnosticResponse
		var responseMillis int64
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.ItemID, &r.DomainCode, &r.Sequence, &r.SelectedAnswer, &r.IsCorrect,
			&responseMillis, &r.ThetaBefore, &r.SEBefore, &r.ThetaAfter, &r.SEAfter,
			&r.Information, &r.ExpectedProbability, &r.EstimationWarning, &r.CalibrationDefaulted, &r.CreatedAt,
		); err != nil {
			log.Error("failed to scan diagnostic response", slog.String("error", err.Error()))
			return nil, err
		}
		r.ResponseTime = time.Duration(responseMillis) * time.Millisecond
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating diagnostic responses", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed diagnostic responses",
		slog.String("session_id", sessionID.String()),
		slog.Int("count", len(responses)))
	return responses, nil
}

// WithTx implements store.ResponseStore.WithTx
func (s *PostgresResponseStore) WithTx(tx *sql.Tx) store.ResponseStore {
	return &PostgresResponseStore{db: tx, logger: s.logger}
}
