package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/domain/irt"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/store"
)

// PostgresItemStore implements the store.ItemStore interface
// using a PostgreSQL database as the storage backend.
type PostgresItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresItemStore creates a new PostgreSQL implementation of the ItemStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresItemStore(db store.DBTX, logger *slog.Logger) *PostgresItemStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "item_store")),
	}
}

// Ensure PostgresItemStore implements store.ItemStore interface
var _ store.ItemStore = (*PostgresItemStore)(nil)

const itemColumns = `
	id, domain_code, stem, correct_answer,
	discrimination, difficulty, guessing,
	calibration_sample_size, discrimination_se, difficulty_se, guessing_se,
	fit_statistic, calibrated_at, created_at
`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var (
		item                            domain.Item
		discrimination, difficulty, gss sql.NullFloat64
		sampleSize                      sql.NullInt64
		discSE, diffSE, guessSE, fit    sql.NullFloat64
		calibratedAt                    sql.NullTime
	)
	err := row.Scan(
		&item.ID, &item.DomainCode, &item.Stem, &item.CorrectAnswer,
		&discrimination, &difficulty, &gss,
		&sampleSize, &discSE, &diffSE, &guessSE,
		&fit, &calibratedAt, &item.CreatedAt,
	)
	if err != nil {
		return domain.Item{}, err
	}

	// A partial parameter set is treated as uncalibrated.
	if discrimination.Valid && difficulty.Valid && gss.Valid {
		item.Params = &irt.ItemParams{
			Discrimination: discrimination.Float64,
			Difficulty:     difficulty.Float64,
			Guessing:       gss.Float64,
		}
	}
	if sampleSize.Valid {
		cal := &domain.Calibration{
			SampleSize:       int(sampleSize.Int64),
			DiscriminationSE: discSE.Float64,
			DifficultySE:     diffSE.Float64,
			GuessingSE:       guessSE.Float64,
		}
		if fit.Valid {
			v := fit.Float64
			cal.FitStatistic = &v
		}
		if calibratedAt.Valid {
			cal.CalibratedAt = calibratedAt.Time
		}
		item.Calibration = cal
	}
	return item, nil
}

// ListByDomains implements store.ItemStore.ListByDomains
func (s *PostgresItemStore) ListByDomains(ctx context.Context, domainCodes []string) ([]domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + itemColumns + `
		FROM items
		WHERE active AND (cardinality($1::text[]) = 0 OR domain_code = ANY($1))
		ORDER BY domain_code, id
	`
	if domainCodes == nil {
		domainCodes = []string{}
	}

	rows, err := s.db.QueryContext(ctx, query, domainCodes)
	if err != nil {
		log.Error("failed to query items",
			slog.String("error", err.Error()),
			slog.Any("domain_codes", domainCodes))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	items := []domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			log.Error("failed to scan item row", slog.String("error", err.Error()))
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating item rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed items",
		slog.Any("domain_codes", domainCodes),
		slog.Int("count", len(items)))
	return items, nil
}

// GetByID implements store.ItemStore.GetByID
func (s *PostgresItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("item not found", slog.String("item_id", id.String()))
			return nil, store.ErrItemNotFound
		}
		log.Error("failed to get item",
			slog.String("error", err.Error()),
			slog.String("item_id", id.String()))
		return nil, MapError(err)
	}

	return &item, nil
}

// ExposureRates implements store.ItemStore.ExposureRates
func (s *PostgresItemStore) ExposureRates(ctx context.Context, domainCodes []string) (map[uuid.UUID]float64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		WITH total AS (SELECT COUNT(*)::float8 AS n FROM diagnostic_sessions)
		SELECT r.item_id, COUNT(DISTINCT r.session_id)::float8 / NULLIF((SELECT n FROM total), 0)
		FROM diagnostic_responses r
		WHERE cardinality($1::text[]) = 0 OR r.domain_code = ANY($1)
		GROUP BY r.item_id
	`
	if domainCodes == nil {
		domainCodes = []string{}
	}

	rows, err := s.db.QueryContext(ctx, query, domainCodes)
	if err != nil {
		log.Error("failed to query exposure rates", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	rates := make(map[uuid.UUID]float64)
	for rows.Next() {
		var id uuid.UUID
		var rate sql.NullFloat64
		if err := rows.Scan(&id, &rate); err != nil {
			log.Error("failed to scan exposure row", slog.String("error", err.Error()))
			return nil, err
		}
		if rate.Valid {
			rates[id] = rate.Float64
		}
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating exposure rows", slog.String("error", err.Error()))
		return nil, err
	}

	return rates, nil
}

// Upsert implements store.ItemStore.Upsert
func (s *PostgresItemStore) Upsert(ctx context.Context, item *domain.Item) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("item validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return err
	}

	var a, b, c any
	if item.Params != nil {
		a, b, c = item.Params.Discrimination, item.Params.Difficulty, item.Params.Guessing
	}
	var sampleSize, discSE, diffSE, guessSE, fit, calibratedAt any
	if cal := item.Calibration; cal != nil {
		sampleSize, discSE, diffSE, guessSE = cal.SampleSize, cal.DiscriminationSE, cal.DifficultySE, cal.GuessingSE
		if cal.FitStatistic != nil {
			fit = *cal.FitStatistic
		}
		if !cal.CalibratedAt.IsZero() {
			calibratedAt = cal.CalibratedAt
		}
	}
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO items (
			id, domain_code, stem, correct_answer,
			discrimination, difficulty, guessing,
			calibration_sample_size, discrimination_se, difficulty_se, guessing_se,
			fit_statistic, calibrated_at, active, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, TRUE, $14)
		ON CONFLICT (id) DO UPDATE SET
			domain_code = EXCLUDED.domain_code,
			stem = EXCLUDED.stem,
			correct_answer = EXCLUDED.correct_answer,
			discrimination = EXCLUDED.discrimination,
			difficulty = EXCLUDED.difficulty,
			guessing = EXCLUDED.guessing,
			calibration_sample_size = EXCLUDED.calibration_sample_size,
			discrimination_se = EXCLUDED.discrimination_se,
			difficulty_se = EXCLUDED.difficulty_se,
			guessing_se = EXCLUDED.guessing_se,
			fit_statistic = EXCLUDED.fit_statistic,
			calibrated_at = EXCLUDED.calibrated_at,
			active = TRUE
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID, item.DomainCode, item.Stem, item.CorrectAnswer,
		a, b, c,
		sampleSize, discSE, diffSE, guessSE,
		fit, calibratedAt, createdAt,
	)
	if err != nil {
		log.Error("failed to upsert item",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return MapError(err)
	}

	log.Debug("item upserted",
		slog.String("item_id", item.ID.String()),
		slog.String("domain_code", item.DomainCode))
	return nil
}

// WithTx implements store.ItemStore.WithTx
func (s *PostgresItemStore) WithTx(tx *sql.Tx) store.ItemStore {
	return &PostgresItemStore{db: tx, logger: s.logger}
}
