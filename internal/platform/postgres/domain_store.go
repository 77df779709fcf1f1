package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/store"
)

// PostgresDomainStore implements the store.DomainStore interface
// using a PostgreSQL database as the storage backend.
type PostgresDomainStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDomainStore creates a new PostgreSQL implementation of the DomainStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresDomainStore(db store.DBTX, logger *slog.Logger) *PostgresDomainStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDomainStore{
		db:     db,
		logger: logger.With(slog.String("component", "domain_store")),
	}
}

// Ensure PostgresDomainStore implements store.DomainStore interface
var _ store.DomainStore = (*PostgresDomainStore)(nil)

// ListActive implements store.DomainStore.ListActive
func (s *PostgresDomainStore) ListActive(ctx context.Context) ([]domain.Domain, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT code, name, category, weight_percentage, is_critical, active
		FROM domains
		WHERE active
		ORDER BY code
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query active domains", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	domains := []domain.Domain{}
	for rows.Next() {
		var d domain.Domain
		var category string
		if err := rows.Scan(&d.Code, &d.Name, &category, &d.WeightPercentage, &d.IsCritical, &d.Active); err != nil {
			log.Error("failed to scan domain row", slog.String("error", err.Error()))
			return nil, err
		}
		d.Category = domain.DomainCategory(category)
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating domain rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed active domains", slog.Int("count", len(domains)))
	return domains, nil
}

// Upsert implements store.DomainStore.Upsert
func (s *PostgresDomainStore) Upsert(ctx context.Context, d *domain.Domain) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := d.Validate(); err != nil {
		log.Warn("domain validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("domain_code", d.Code))
		return err
	}

	query := `
		INSERT INTO domains (code, name, category, weight_percentage, is_critical, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			weight_percentage = EXCLUDED.weight_percentage,
			is_critical = EXCLUDED.is_critical,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		d.Code,
		d.Name,
		string(d.Category),
		d.WeightPercentage,
		d.IsCritical,
		d.Active,
		time.Now().UTC(),
	)
	if err != nil {
		log.Error("failed to upsert domain",
			slog.String("error", err.Error()),
			slog.String("domain_code", d.Code))
		return MapError(err)
	}

	log.Debug("domain upserted", slog.String("domain_code", d.Code))
	return nil
}

// WithTx implements store.DomainStore.WithTx
func (s *PostgresDomainStore) WithTx(tx *sql.Tx) store.DomainStore {
	return &PostgresDomainStore{db: tx, logger: s.logger}
}
