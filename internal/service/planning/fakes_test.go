package planning

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/domain/analysis"
	"github.com/phrazzld/gauge/internal/store"
)

type memDB struct {
	mu        sync.Mutex
	domains   []domain.Domain
	items     map[uuid.UUID]domain.Item
	sessions  map[uuid.UUID]domain.DiagnosticSession
	responses map[uuid.UUID][]domain.DiagnosticResponse
	paths     []domain.LearningPath
	pathsErr  error
	plans     []domain.PersonalLearningPlan
}

func newMemDB() *memDB {
	return &memDB{
		items:     make(map[uuid.UUID]domain.Item),
		sessions:  make(map[uuid.UUID]domain.DiagnosticSession),
		responses: make(map[uuid.UUID][]domain.DiagnosticResponse),
	}
}

func (db *memDB) activePlans(userID uuid.UUID) []domain.PersonalLearningPlan {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []domain.PersonalLearningPlan
	for _, p := range db.plans {
		if p.UserID == userID && p.Status == domain.PlanStatusActive {
			out = append(out, p)
		}
	}
	return out
}

type fakeTx struct{ calls int }

func (f *fakeTx) RunInTx(ctx context.Context, fn store.TxFn) error {
	f.calls++
	return fn(ctx, nil)
}

type fakeSessions struct {
	store.SessionStore
	db *memDB
}

func (f fakeSessions) GetByID(_ context.Context, id uuid.UUID) (*domain.DiagnosticSession, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	s.DomainAbilities = s.DomainAbilities.Clone()
	return &s, nil
}

type fakeResponses struct {
	store.ResponseStore
	db *memDB
}

func (f fakeResponses) ListBySession(_ context.Context, sessionID uuid.UUID) ([]domain.DiagnosticResponse, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return append([]domain.DiagnosticResponse(nil), f.db.responses[sessionID]...), nil
}

type fakeItems struct {
	store.ItemStore
	db *memDB
}

func (f fakeItems) ListByDomains(_ context.Context, codes []string) ([]domain.Item, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	var out []domain.Item
	for _, it := range f.db.items {
		if want[it.DomainCode] {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (f fakeItems) GetByID(_ context.Context, id uuid.UUID) (*domain.Item, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	it, ok := f.db.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	return &it, nil
}

type fakeDomains struct {
	store.DomainStore
	db *memDB
}

func (f fakeDomains) ListActive(context.Context) ([]domain.Domain, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []domain.Domain
	for _, d := range f.db.domains {
		if d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakePaths struct {
	store.LearningPathStore
	db *memDB
}

func (f fakePaths) ListAll(context.Context) ([]domain.LearningPath, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.pathsErr != nil {
		return nil, f.db.pathsErr
	}
	return append([]domain.LearningPath(nil), f.db.paths...), nil
}

type fakePlans struct {
	store.PlanStore
	db *memDB
}

func (f fakePlans) Create(_ context.Context, plan *domain.PersonalLearningPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, p := range f.db.plans {
		if p.UserID == plan.UserID && p.Status == domain.PlanStatusActive {
			return store.ErrActivePlanExists
		}
	}
	f.db.plans = append(f.db.plans, *plan)
	return nil
}

func (f fakePlans) GetActiveByUser(_ context.Context, userID uuid.UUID) (*domain.PersonalLearningPlan, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, p := range f.db.plans {
		if p.UserID == userID && p.Status == domain.PlanStatusActive {
			return &p, nil
		}
	}
	return nil, store.ErrPlanNotFound
}

func (f fakePlans) GetLatestBefore(_ context.Context, userID uuid.UUID, before time.Time, excludeSessionID uuid.UUID) (*domain.PersonalLearningPlan, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var latest *domain.PersonalLearningPlan
	for i := range f.db.plans {
		p := f.db.plans[i]
		if p.UserID != userID || p.CreatedAt.After(before) {
			continue
		}
		if p.DiagnosticSessionID != nil && *p.DiagnosticSessionID == excludeSessionID {
			continue
		}
		if latest == nil || !p.CreatedAt.Before(latest.CreatedAt) {
			latest = &p
		}
	}
	if latest == nil {
		return nil, store.ErrPlanNotFound
	}
	return latest, nil
}

func (f fakePlans) AbandonActive(_ context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var n int64
	for i := range f.db.plans {
		if f.db.plans[i].UserID == userID && f.db.plans[i].Status == domain.PlanStatusActive {
			f.db.plans[i].Status = domain.PlanStatusAbandoned
			f.db.plans[i].UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (f fakePlans) WithTx(*sql.Tx) store.PlanStore { return f }

// stubAnalyzer returns a canned result and records its input.
type stubAnalyzer struct {
	mu     sync.Mutex
	result analysis.Result
	inputs []analysis.Input
}

func (s *stubAnalyzer) Analyze(in analysis.Input) (analysis.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, in)
	return s.result, nil
}

func (s *stubAnalyzer) lastInput() analysis.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inputs) == 0 {
		return analysis.Input{}
	}
	return s.inputs[len(s.inputs)-1]
}

var errCatalogDown = errors.New("catalog unavailable")
