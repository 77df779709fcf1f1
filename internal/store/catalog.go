package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
)

// DomainStore defines the interface for knowledge domain persistence.
type DomainStore interface {
	// ListActive returns all active domains ordered by code.
	ListActive(ctx context.Context) ([]domain.Domain, error)

	// Upsert creates the domain or replaces the stored one with the same code.
	// Returns validation errors from the domain Domain if data is invalid.
	Upsert(ctx context.Context, d *domain.Domain) error

	// WithTx returns a new DomainStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) DomainStore
}

// ItemStore defines the interface to the item bank. Outside of seeding the
// bank is read-only.
type ItemStore interface {
	// ListByDomains returns the active items of the given domains. An empty
	// domain list returns every active item.
	ListByDomains(ctx context.Context, domainCodes []string) ([]domain.Item, error)

	// GetByID retrieves an item by its unique ID.
	// Returns ErrItemNotFound if the item does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// ExposureRates returns, for each item of the given domains that has been
	// served at least once, the fraction of all diagnostic sessions that served
	// it. Items never served are absent from the map.
	ExposureRates(ctx context.Context, domainCodes []string) (map[uuid.UUID]float64, error)

	// Upsert creates the item or replaces the stored one with the same ID.
	Upsert(ctx context.Context, item *domain.Item) error

	// WithTx returns a new ItemStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ItemStore
}

// LearningPathStore defines the interface to the learning path catalog.
type LearningPathStore interface {
	// ListAll returns every learning path with its domains and modules.
	// Modules are ordered by position.
	ListAll(ctx context.Context) ([]domain.LearningPath, error)

	// Upsert creates or replaces the path, its domain coverage and its modules.
	// Modules are upserted by ID and never deleted, since plans refer to them.
	// IMPORTANT: This method touches several tables and MUST run within a transaction.
	Upsert(ctx context.Context, path *domain.LearningPath) error

	// WithTx returns a new LearningPathStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) LearningPathStore
}
