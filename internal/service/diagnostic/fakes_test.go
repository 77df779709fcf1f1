package diagnostic

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/events"
	"github.com/phrazzld/gauge/internal/store"
)

// memDB is an in-memory stand-in for the database shared by the fake stores.
// Reads return copies so that, as with a real database, only Update changes
// what later reads see.
type memDB struct {
	mu        sync.Mutex
	domains   []domain.Domain
	items     map[uuid.UUID]domain.Item
	sessions  map[uuid.UUID]domain.DiagnosticSession
	responses map[uuid.UUID][]domain.DiagnosticResponse
	plans     map[uuid.UUID]domain.PersonalLearningPlan
	exposure  map[uuid.UUID]float64
}

func newMemDB() *memDB {
	return &memDB{
		items:     make(map[uuid.UUID]domain.Item),
		sessions:  make(map[uuid.UUID]domain.DiagnosticSession),
		responses: make(map[uuid.UUID][]domain.DiagnosticResponse),
		plans:     make(map[uuid.UUID]domain.PersonalLearningPlan),
		exposure:  make(map[uuid.UUID]float64),
	}
}

func copySession(s domain.DiagnosticSession) *domain.DiagnosticSession {
	s.DomainAbilities = s.DomainAbilities.Clone()
	if s.PendingItemID != nil {
		id := *s.PendingItemID
		s.PendingItemID = &id
	}
	return &s
}

type fakeTx struct{ calls int }

func (f *fakeTx) RunInTx(ctx context.Context, fn store.TxFn) error {
	f.calls++
	return fn(ctx, nil)
}

type fakeSessions struct{ db *memDB }

func (f fakeSessions) Create(_ context.Context, s *domain.DiagnosticSession) error {
	if err := s.Validate(); err != nil {
		return err
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.sessions[s.ID] = *copySession(*s)
	return nil
}

func (f fakeSessions) GetByID(_ context.Context, id uuid.UUID) (*domain.DiagnosticSession, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return copySession(s), nil
}

func (f fakeSessions) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.DiagnosticSession, error) {
	return f.GetByID(ctx, id)
}

func (f fakeSessions) Update(_ context.Context, s *domain.DiagnosticSession) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	stored, ok := f.db.sessions[s.ID]
	if !ok {
		return store.ErrSessionNotFound
	}
	if stored.Version != s.Version {
		return store.ErrVersionConflict
	}
	s.Version++
	f.db.sessions[s.ID] = *copySession(*s)
	return nil
}

func (f fakeSessions) ListTimedOut(_ context.Context, now time.Time, grace time.Duration) ([]uuid.UUID, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var ids []uuid.UUID
	for id, s := range f.db.sessions {
		if s.Status == domain.SessionStatusActive && s.TimeExceeded(now) && s.LastActivityAt.Before(now.Add(-grace)) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f fakeSessions) WithTx(*sql.Tx) store.SessionStore { return f }

type fakeResponses struct{ db *memDB }

func (f fakeResponses) Create(_ context.Context, r *domain.DiagnosticResponse) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, existing := range f.db.responses[r.SessionID] {
		if existing.ItemID == r.ItemID || existing.Sequence == r.Sequence {
			return store.ErrDuplicateResponse
		}
	}
	f.db.responses[r.SessionID] = append(f.db.responses[r.SessionID], *r)
	return nil
}

func (f fakeResponses) ListBySession(_ context.Context, sessionID uuid.UUID) ([]domain.DiagnosticResponse, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := append([]domain.DiagnosticResponse(nil), f.db.responses[sessionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (f fakeResponses) WithTx(*sql.Tx) store.ResponseStore { return f }

type fakeItems struct{ db *memDB }

func (f fakeItems) ListByDomains(_ context.Context, codes []string) ([]domain.Item, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	var out []domain.Item
	for _, it := range f.db.items {
		if len(codes) == 0 || want[it.DomainCode] {
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

func (f fakeItems) ExposureRates(context.Context, []string) (map[uuid.UUID]float64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make(map[uuid.UUID]float64, len(f.db.exposure))
	for id, rate := range f.db.exposure {
		out[id] = rate
	}
	return out, nil
}

func (f fakeItems) Upsert(_ context.Context, item *domain.Item) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.items[item.ID] = *item
	return nil
}

func (f fakeItems) WithTx(*sql.Tx) store.ItemStore { return f }

type fakeDomains struct{ db *memDB }

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

func (f fakeDomains) Upsert(_ context.Context, d *domain.Domain) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.domains = append(f.db.domains, *d)
	return nil
}

func (f fakeDomains) WithTx(*sql.Tx) store.DomainStore { return f }

// fakePlans only serves active plan lookups; the diagnostic service reads
// nothing else.
type fakePlans struct {
	store.PlanStore
	db *memDB
}

func (f fakePlans) GetActiveByUser(_ context.Context, userID uuid.UUID) (*domain.PersonalLearningPlan, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.plans[userID]
	if !ok || p.Status != domain.PlanStatusActive {
		return nil, store.ErrPlanNotFound
	}
	return &p, nil
}

func (f fakePlans) WithTx(*sql.Tx) store.PlanStore { return f }

type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recordingEmitter) EmitEvent(_ context.Context, e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEmitter) ofType(eventType string) []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
