package catalog

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/store"
)

const seedYAML = `
domains:
  - code: PSY
    name: Psychometrics
    category: theoretical
    weight: 30
    critical: true
  - code: ETH
    name: Ethics
    category: practical
    weight: 30
  - code: STAT
    category: methodology
    weight: 20
  - code: OLD
    category: clinical
    weight: 10
    active: false
items:
  - id: 9d1f2a3e-0000-4000-8000-000000000001
    domain: PSY
    stem: What does test reliability describe?
    answer: " B "
    params:
      discrimination: 1.2
      difficulty: -0.4
      guessing: 0.2
    calibration:
      sample_size: 812
      discrimination_se: 0.08
      difficulty_se: 0.05
      guessing_se: 0.02
      calibrated_at: 2026-01-15T00:00:00Z
  - id: 9d1f2a3e-0000-4000-8000-000000000002
    domain: ETH
    stem: Uncalibrated pilot item
    answer: A
paths:
  - name: Measurement foundations
    min_difficulty: -1.5
    max_difficulty: 0
    domains: [PSY]
    modules:
      - title: Test construction
        difficulty: -1.2
        estimated_hours: 4
      - title: Reliability
        difficulty: -0.8
        estimated_hours: 6
`

func TestParse(t *testing.T) {
	t.Parallel()

	cat, err := Parse(strings.NewReader(seedYAML))
	require.NoError(t, err)

	require.Len(t, cat.Domains, 4)
	assert.Equal(t, "Psychometrics", cat.Domains[0].Name)
	assert.True(t, cat.Domains[0].IsCritical)
	assert.True(t, cat.Domains[0].Active)
	assert.Equal(t, "STAT", cat.Domains[2].Name, "name defaults to the code")
	assert.False(t, cat.Domains[3].Active)

	require.Len(t, cat.Items, 2)
	item := cat.Items[0]
	assert.Equal(t, "B", item.CorrectAnswer)
	require.NotNil(t, item.Params)
	assert.InDelta(t, -0.4, item.Params.Difficulty, 1e-9)
	require.NotNil(t, item.Calibration)
	assert.Equal(t, 812, item.Calibration.SampleSize)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), item.Calibration.CalibratedAt.UTC())
	assert.Nil(t, cat.Items[1].Params)

	require.Len(t, cat.Paths, 1)
	path := cat.Paths[0]
	assert.NotEqual(t, uuid.Nil, path.ID)
	assert.InDelta(t, 10, path.EstimatedHours, 1e-9, "hours default to the module total")
	require.Len(t, path.Modules, 2)
	assert.Equal(t, "PSY", path.Modules[0].DomainCode, "single-domain paths lend their domain to modules")
	assert.Equal(t, 1, path.Modules[1].Position)
}

func TestParseDerivesStableIDs(t *testing.T) {
	t.Parallel()

	first, err := Parse(strings.NewReader(seedYAML))
	require.NoError(t, err)
	second, err := Parse(strings.NewReader(seedYAML))
	require.NoError(t, err)

	assert.Equal(t, first.Paths[0].ID, second.Paths[0].ID)
	assert.Equal(t, first.Paths[0].Modules[1].ID, second.Paths[0].Modules[1].ID)
	assert.NotEqual(t, first.Paths[0].Modules[0].ID, first.Paths[0].Modules[1].ID)
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"unknown key", "domains:\n  - code: A\n    category: clinical\n    wieght: 10\n"},
		{"bad category", "domains:\n  - code: A\n    category: folklore\n    weight: 10\n"},
		{"weight out of range", "domains:\n  - code: A\n    category: clinical\n    weight: 140\n"},
		{"duplicate domain", "domains:\n  - {code: A, category: clinical, weight: 50}\n  - {code: A, category: clinical, weight: 50}\n"},
		{"item id not a uuid", "items:\n  - {id: q1, domain: A, answer: B}\n"},
		{"item without answer", "items:\n  - {id: 9d1f2a3e-0000-4000-8000-000000000001, domain: A}\n"},
		{
			"item in undeclared domain",
			"domains:\n  - {code: A, category: clinical, weight: 100}\n" +
				"items:\n  - {id: 9d1f2a3e-0000-4000-8000-000000000001, domain: B, answer: C}\n",
		},
		{
			"duplicate item",
			"items:\n  - {id: 9d1f2a3e-0000-4000-8000-000000000001, domain: A, answer: C}\n" +
				"  - {id: 9d1f2a3e-0000-4000-8000-000000000001, domain: A, answer: D}\n",
		},
		{"inverted band", "paths:\n  - {name: P, min_difficulty: 1, max_difficulty: 0, domains: [A]}\n"},
		{"path without domains", "paths:\n  - {name: P, min_difficulty: 0, max_difficulty: 1}\n"},
		{
			"module outside path domains",
			"paths:\n  - name: P\n    min_difficulty: 0\n    max_difficulty: 1\n    domains: [A, B]\n" +
				"    modules:\n      - {title: M, domain: C}\n",
		},
		{
			"module domain ambiguous",
			"paths:\n  - name: P\n    min_difficulty: 0\n    max_difficulty: 1\n    domains: [A, B]\n" +
				"    modules:\n      - {title: M}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	cat, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, cat.Items, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

type fakeTx struct{ calls int }

func (f *fakeTx) RunInTx(ctx context.Context, fn store.TxFn) error {
	f.calls++
	return fn(ctx, nil)
}

type fakeDomainStore struct {
	store.DomainStore
	upserted []domain.Domain
}

func (f *fakeDomainStore) Upsert(_ context.Context, d *domain.Domain) error {
	f.upserted = append(f.upserted, *d)
	return nil
}

func (f *fakeDomainStore) WithTx(*sql.Tx) store.DomainStore { return f }

type fakeItemStore struct {
	store.ItemStore
	upserted []domain.Item
	err      error
}

func (f *fakeItemStore) Upsert(_ context.Context, item *domain.Item) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, *item)
	return nil
}

func (f *fakeItemStore) WithTx(*sql.Tx) store.ItemStore { return f }

type fakePathStore struct {
	store.LearningPathStore
	upserted []domain.LearningPath
}

func (f *fakePathStore) Upsert(_ context.Context, p *domain.LearningPath) error {
	f.upserted = append(f.upserted, *p)
	return nil
}

func (f *fakePathStore) WithTx(*sql.Tx) store.LearningPathStore { return f }

func TestSeed(t *testing.T) {
	t.Parallel()
	log, buf := logger.NewTestLogger(t)
	tx := &fakeTx{}
	domains, items, paths := &fakeDomainStore{}, &fakeItemStore{}, &fakePathStore{}
	seeder := NewSeeder(tx, domains, items, paths, 40, log)

	cat, err := Parse(strings.NewReader(seedYAML))
	require.NoError(t, err)

	summary, err := seeder.Seed(context.Background(), cat)
	require.NoError(t, err)
	assert.Equal(t, Summary{Domains: 4, Items: 2, Paths: 1, Modules: 2}, summary)
	assert.Equal(t, 1, tx.calls)

	// PSY is pinned at the floor; ETH and STAT share the remaining 60 by weight.
	require.Len(t, domains.upserted, 4)
	weights := map[string]float64{}
	for _, d := range domains.upserted {
		weights[d.Code] = d.WeightPercentage
	}
	assert.InDelta(t, 40, weights["PSY"], 1e-9)
	assert.InDelta(t, 36, weights["ETH"], 1e-9)
	assert.InDelta(t, 24, weights["STAT"], 1e-9)
	assert.InDelta(t, 10, weights["OLD"], 1e-9, "inactive domains keep their weight")
	assert.InDelta(t, 100, domain.SumWeights(domains.upserted), domain.WeightTolerance)

	assert.Len(t, items.upserted, 2)
	assert.Len(t, paths.upserted, 1)
	logger.AssertLogContains(t, buf, "catalog seeded")
}

func TestSeedWithoutDomains(t *testing.T) {
	t.Parallel()
	domains := &fakeDomainStore{}
	seeder := NewSeeder(&fakeTx{}, domains, &fakeItemStore{}, &fakePathStore{}, 0, nil)

	cat, err := Parse(strings.NewReader("items:\n  - {id: 9d1f2a3e-0000-4000-8000-000000000001, domain: PSY, answer: C}\n"))
	require.NoError(t, err)

	summary, err := seeder.Seed(context.Background(), cat)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Items)
	assert.Empty(t, domains.upserted)
}

func TestSeedFailures(t *testing.T) {
	t.Parallel()

	t.Run("critical floor too high", func(t *testing.T) {
		t.Parallel()
		tx := &fakeTx{}
		seeder := NewSeeder(tx, &fakeDomainStore{}, &fakeItemStore{}, &fakePathStore{}, 60, nil)
		cat := &Catalog{Domains: []domain.Domain{
			{Code: "A", Category: domain.CategoryClinical, WeightPercentage: 50, IsCritical: true, Active: true},
			{Code: "B", Category: domain.CategoryClinical, WeightPercentage: 50, IsCritical: true, Active: true},
		}}
		_, err := seeder.Seed(context.Background(), cat)
		assert.ErrorIs(t, err, domain.ErrCriticalFloorTooHigh)
		assert.Zero(t, tx.calls)
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		items := &fakeItemStore{err: errors.New("connection reset")}
		seeder := NewSeeder(&fakeTx{}, &fakeDomainStore{}, items, &fakePathStore{}, 0, nil)
		cat, err := Parse(strings.NewReader(seedYAML))
		require.NoError(t, err)

		summary, err := seeder.Seed(context.Background(), cat)
		assert.ErrorIs(t, err, items.err)
		assert.Zero(t, summary)
	})
}
