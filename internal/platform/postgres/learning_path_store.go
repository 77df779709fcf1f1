package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/store"
)

// PostgresLearningPathStore implements the store.LearningPathStore interface
// using a PostgreSQL database as the storage backend.
type PostgresLearningPathStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLearningPathStore creates a new PostgreSQL implementation of the LearningPathStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresLearningPathStore(db store.DBTX, logger *slog.Logger) *PostgresLearningPathStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLearningPathStore{
		db:     db,
		logger: logger.With(slog.String("component", "learning_path_store")),
	}
}

// Ensure PostgresLearningPathStore implements store.LearningPathStore interface
var _ store.LearningPathStore = (*PostgresLearningPathStore)(nil)

// ListAll implements store.LearningPathStore.ListAll
// Paths, coverage and modules are read with one query each and stitched in memory.
func (s *PostgresLearningPathStore) ListAll(ctx context.Context) ([]domain.LearningPath, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	paths := []domain.LearningPath{}
	index := make(map[uuid.UUID]int)

	err := s.query(ctx, log, `
		SELECT id, name, min_difficulty, max_difficulty, estimated_hours
		FROM learning_paths
		ORDER BY name, id
	`, func(rows *sql.Rows) error {
		var p domain.LearningPath
		if err := rows.Scan(&p.ID, &p.Name, &p.MinDifficulty, &p.MaxDifficulty, &p.EstimatedHours); err != nil {
			return err
		}
		p.Domains = []string{}
		p.Modules = []domain.LearningModule{}
		index[p.ID] = len(paths)
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.query(ctx, log, `
		SELECT path_id, domain_code FROM learning_path_domains ORDER BY path_id, domain_code
	`, func(rows *sql.Rows) error {
		var pathID uuid.UUID
		var code string
		if err := rows.Scan(&pathID, &code); err != nil {
			return err
		}
		if i, ok := index[pathID]; ok {
			paths[i].Domains = append(paths[i].Domains, code)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.query(ctx, log, `
		SELECT id, path_id, title, domain_code, difficulty, estimated_hours, position
		FROM learning_modules
		ORDER BY path_id, position, id
	`, func(rows *sql.Rows) error {
		var m domain.LearningModule
		var pathID uuid.UUID
		if err := rows.Scan(&m.ID, &pathID, &m.Title, &m.DomainCode, &m.Difficulty, &m.EstimatedHours, &m.Position); err != nil {
			return err
		}
		if i, ok := index[pathID]; ok {
			paths[i].Modules = append(paths[i].Modules, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug("listed learning paths", slog.Int("count", len(paths)))
	return paths, nil
}

func (s *PostgresLearningPathStore) query(ctx context.Context, log *slog.Logger, query string, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query learning paths", slog.String("error", err.Error()))
		return MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	for rows.Next() {
		if err := scan(rows); err != nil {
			log.Error("failed to scan learning path row", slog.String("error", err.Error()))
			return err
		}
	}
	return rows.Err()
}

// Upsert implements store.LearningPathStore.Upsert
func (s *PostgresLearningPathStore) Upsert(ctx context.Context, path *domain.LearningPath) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := path.Validate(); err != nil {
		log.Warn("learning path validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("path_id", path.ID.String()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learning_paths (id, name, min_difficulty, max_difficulty, estimated_hours, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			min_difficulty = EXCLUDED.min_difficulty,
			max_difficulty = EXCLUDED.max_difficulty,
			estimated_hours = EXCLUDED.estimated_hours
	`, path.ID, path.Name, path.MinDifficulty, path.MaxDifficulty, path.EstimatedHours)
	if err != nil {
		log.Error("failed to upsert learning path",
			slog.String("error", err.Error()),
			slog.String("path_id", path.ID.String()))
		return MapError(err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM learning_path_domains WHERE path_id = $1`, path.ID); err != nil {
		log.Error("failed to clear learning path domains",
			slog.String("error", err.Error()),
			slog.String("path_id", path.ID.String()))
		return MapError(err)
	}
	for _, code := range path.Domains {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO learning_path_domains (path_id, domain_code) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, path.ID, code); err != nil {
			log.Error("failed to insert learning path domain",
				slog.String("error", err.Error()),
				slog.String("path_id", path.ID.String()),
				slog.String("domain_code", code))
			return MapError(err)
		}
	}

	for _, m := range path.Modules {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO learning_modules (id, path_id, title, domain_code, difficulty, estimated_hours, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				path_id = EXCLUDED.path_id,
				title = EXCLUDED.title,
				domain_code = EXCLUDED.domain_code,
				difficulty = EXCLUDED.difficulty,
				estimated_hours = EXCLUDED.estimated_hours,
				position = EXCLUDED.position
		`, m.ID, path.ID, m.Title, m.DomainCode, m.Difficulty, m.EstimatedHours, m.Position); err != nil {
			log.Error("failed to upsert learning module",
				slog.String("error", err.Error()),
				slog.String("module_id", m.ID.String()))
			return MapError(err)
		}
	}

	log.Info("learning path upserted",
		slog.String("path_id", path.ID.String()),
		slog.Int("domains", len(path.Domains)),
		slog.Int("modules", len(path.Modules)))
	return nil
}

// WithTx implements store.LearningPathStore.WithTx
func (s *PostgresLearningPathStore) WithTx(tx *sql.Tx) store.LearningPathStore {
	return &PostgresLearningPathStore{db: tx, logger: s.logger}
}
