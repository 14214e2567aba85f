package http_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samirrijal/detour/internal/core/domain"
)

// In-memory stores behind the real services. A single mutex keeps the
// websocket and handler goroutines honest.

type memUsers struct {
	mu    sync.Mutex
	users []domain.User
}

func (m *memUsers) Create(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrDuplicateUser
		}
	}
	u.ID = fmt.Sprintf("u-%d", len(m.users)+1)
	m.users = append(m.users, *u)
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) SetAccessLevel(ctx context.Context, id string, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].AccessLevel = level
			return nil
		}
	}
	return domain.ErrNotFound
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func (m *memSessions) Create(ctx context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = map[string]domain.Session{}
	}
	m.sessions[s.Token] = *s
	return nil
}

func (m *memSessions) GetValid(ctx context.Context, token string, now time.Time) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok || !s.ExpiresAt.After(now) {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type memQueries struct {
	mu      sync.Mutex
	queries []*domain.Query
	// onBegin runs before BeginPlanning takes the lock.
	onBegin func(id string)
}

func (m *memQueries) Create(ctx context.Context, q *domain.Query) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.queries {
		if existing.UserID == q.UserID && existing.Origin == q.Origin && existing.Destination == q.Destination {
			return domain.ErrDuplicateQuery
		}
	}
	q.ID = fmt.Sprintf("q-%d", len(m.queries)+1)
	q.Status = domain.QueryPending
	cp := *q
	m.queries = append(m.queries, &cp)
	return nil
}

func (m *memQueries) GetByID(ctx context.Context, id string) (*domain.Query, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queries {
		if q.ID == id {
			cp := *q
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memQueries) ListByUser(ctx context.Context, userID string) ([]domain.Query, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Query
	for i := len(m.queries) - 1; i >= 0; i-- {
		if m.queries[i].UserID == userID {
			out = append(out, *m.queries[i])
		}
	}
	return out, nil
}

func (m *memQueries) SetStatus(ctx context.Context, id string, status domain.QueryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queries {
		if q.ID == id {
			q.Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memQueries) BeginPlanning(ctx context.Context, id string) error {
	if m.onBegin != nil {
		m.onBegin(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queries {
		if q.ID != id {
			continue
		}
		if q.Status != domain.QueryPending && q.Status != domain.QueryFailed {
			return domain.ErrAlreadyPlanned
		}
		q.Status = domain.QueryPlanning
		return nil
	}
	return domain.ErrNotFound
}

type memStopovers struct {
	mu     sync.Mutex
	stored []domain.Stopover
}

func (m *memStopovers) Append(ctx context.Context, st *domain.Stopover) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st.ID = fmt.Sprintf("s-%d", len(m.stored)+1)
	m.stored = append(m.stored, *st)
	return nil
}

func (m *memStopovers) ListByQuery(ctx context.Context, queryID string, origin domain.StopoverOrigin) ([]domain.Stopover, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Stopover
	for _, st := range m.stored {
		if st.QueryID == queryID && (origin == "" || st.Origin == origin) {
			out = append(out, st)
		}
	}
	return out, nil
}

type memSponsors struct {
	mu       sync.Mutex
	sponsors []domain.SponsorLocation
}

func (m *memSponsors) Create(ctx context.Context, s *domain.SponsorLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = fmt.Sprintf("sp-%d", len(m.sponsors)+1)
	m.sponsors = append(m.sponsors, *s)
	return nil
}

func (m *memSponsors) GetByID(ctx context.Context, id string) (*domain.SponsorLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sponsors {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSponsors) ListByOwner(ctx context.Context, ownerID string) ([]domain.SponsorLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SponsorLocation
	for _, s := range m.sponsors {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSponsors) ListAll(ctx context.Context) ([]domain.SponsorLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SponsorLocation(nil), m.sponsors...), nil
}

func (m *memSponsors) ListWithin(ctx context.Context, center domain.Coordinate, radiusMiles float64) ([]domain.SponsorLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SponsorLocation
	for _, s := range m.sponsors {
		// one degree of latitude is about 69 miles; tests only use small offsets
		if abs(s.Location.Lat-center.Lat)*69 <= radiusMiles && abs(s.Location.Lng-center.Lng)*69 <= radiusMiles {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSponsors) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sponsors {
		if s.ID == id {
			m.sponsors = append(m.sponsors[:i], m.sponsors[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

type memTags struct {
	mu   sync.Mutex
	tags []domain.Tag
}

func (m *memTags) Create(ctx context.Context, t *domain.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = fmt.Sprintf("t-%d", len(m.tags)+1)
	m.tags = append(m.tags, *t)
	return nil
}

func (m *memTags) GetByID(ctx context.Context, id string) (*domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memTags) ListByUser(ctx context.Context, userID string) ([]domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Tag
	for _, t := range m.tags {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTags) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tags {
		if t.ID == id {
			m.tags = append(m.tags[:i], m.tags[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// ---- Google stand-ins ----

type fakeDirections struct {
	route *domain.Route
	err   error
}

func (f *fakeDirections) Route(ctx context.Context, origin, destination string) (*domain.Route, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.route == nil {
		return nil, domain.ErrNoRoute
	}
	return f.route, nil
}

type fakePlaces struct {
	candidates []domain.Candidate
}

func (f *fakePlaces) Nearby(ctx context.Context, at domain.Coordinate, category, keyword string) ([]domain.Candidate, error) {
	return f.candidates, nil
}

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

type fakeStarter struct {
	started []string
	err     error
}

func (f *fakeStarter) StartPlan(ctx context.Context, queryID string) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, queryID)
	return nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }
