package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/store"
)

// Summary counts what one Seed call wrote.
type Summary struct {
	Domains int `json:"domains"`
	Items   int `json:"items"`
	Paths   int `json:"paths"`
	Modules int `json:"modules"`
}

// Seeder writes a Catalog to the stores.
type Seeder struct {
	tx            store.TxRunner
	domains       store.DomainStore
	items         store.ItemStore
	paths         store.LearningPathStore
	criticalFloor float64
	logger        *slog.Logger
}

// NewSeeder creates a Seeder. criticalFloor is the minimum weight kept by
// critical domains when weights are rebalanced.
func NewSeeder(
	tx store.TxRunner,
	domains store.DomainStore,
	items store.ItemStore,
	paths store.LearningPathStore,
	criticalFloor float64,
	logger *slog.Logger,
) *Seeder {
	if tx == nil {
		panic("transaction runner cannot be nil")
	}
	if domains == nil || items == nil || paths == nil {
		panic("catalog stores cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		tx:            tx,
		domains:       domains,
		items:         items,
		paths:         paths,
		criticalFloor: criticalFloor,
		logger:        logger.With(slog.String("component", "catalog_seeder")),
	}
}

// Seed upserts the catalog in a single transaction. Active domain weights are
// rebalanced to sum to 100 first; inactive domains are written unchanged.
func (s *Seeder) Seed(ctx context.Context, cat *Catalog) (Summary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	var summary Summary
	if cat == nil {
		return summary, nil
	}

	domains, err := s.balance(cat.Domains)
	if err != nil {
		return summary, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		domainStore := s.domains.WithTx(tx)
		itemStore := s.items.WithTx(tx)
		pathStore := s.paths.WithTx(tx)

		for i := range domains {
			if err := domainStore.Upsert(ctx, &domains[i]); err != nil {
				return fmt.Errorf("domain %s: %w", domains[i].Code, err)
			}
		}
		for i := range cat.Items {
			if err := itemStore.Upsert(ctx, &cat.Items[i]); err != nil {
				return fmt.Errorf("item %s: %w", cat.Items[i].ID, err)
			}
		}
		for i := range cat.Paths {
			if err := pathStore.Upsert(ctx, &cat.Paths[i]); err != nil {
				return fmt.Errorf("learning path %q: %w", cat.Paths[i].Name, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("catalog seed failed", slog.String("error", err.Error()))
		return Summary{}, fmt.Errorf("failed to seed catalog: %w", err)
	}

	summary.Domains = len(domains)
	summary.Items = len(cat.Items)
	summary.Paths = len(cat.Paths)
	for _, p := range cat.Paths {
		summary.Modules += len(p.Modules)
	}
	log.Info("catalog seeded",
		slog.Int("domains", summary.Domains),
		slog.Int("items", summary.Items),
		slog.Int("paths", summary.Paths),
		slog.Int("modules", summary.Modules))
	return summary, nil
}

func (s *Seeder) balance(in []domain.Domain) ([]domain.Domain, error) {
	if len(in) == 0 {
		return nil, nil
	}
	var inactive []domain.Domain
	hasActive := false
	for _, d := range in {
		if d.Active {
			hasActive = true
		} else {
			inactive = append(inactive, d)
		}
	}
	if !hasActive {
		return inactive, nil
	}

	balanced, err := domain.RebalanceWeights(in, s.criticalFloor)
	if err != nil {
		return nil, fmt.Errorf("failed to rebalance domain weights: %w", err)
	}
	return append(balanced, inactive...), nil
}
