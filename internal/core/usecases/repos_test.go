package usecases_test

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/pkg/geospatial"
)

// --- Mock QueryRepository ---

type mockQueryRepo struct {
	createFn func(ctx context.Context, q *domain.Query) error
	getFn    func(ctx context.Context, id string) (*domain.Query, error)
	statuses []domain.QueryStatus
	created  []*domain.Query
}

func (m *mockQueryRepo) Create(ctx context.Context, q *domain.Query) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, q); err != nil {
			return err
		}
	}
	q.ID = fmt.Sprintf("q-%d", len(m.created)+1)
	m.created = append(m.created, q)
	return nil
}

func (m *mockQueryRepo) GetByID(ctx context.Context, id string) (*domain.Query, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	for _, q := range m.created {
		if q.ID == id {
			return q, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockQueryRepo) ListByUser(ctx context.Context, userID string) ([]domain.Query, error) {
	var out []domain.Query
	for _, q := range m.created {
		if q.UserID == userID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *mockQueryRepo) SetStatus(ctx context.Context, id string, status domain.QueryStatus) error {
	q, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}
	q.Status = status
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockQueryRepo) BeginPlanning(ctx context.Context, id string) error {
	q, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if q.Status != domain.QueryPending && q.Status != domain.QueryFailed {
		return domain.ErrAlreadyPlanned
	}
	return m.SetStatus(ctx, id, domain.QueryPlanning)
}

// --- Mock StopoverRepository ---

type mockStopoverRepo struct {
	appendFn func(ctx context.Context, st *domain.Stopover) error
	stored   []domain.Stopover
}

func (m *mockStopoverRepo) Append(ctx context.Context, st *domain.Stopover) error {
	if m.appendFn != nil {
		if err := m.appendFn(ctx, st); err != nil {
			return err
		}
	}
	m.stored = append(m.stored, *st)
	return nil
}

func (m *mockStopoverRepo) ListByQuery(ctx context.Context, queryID string, origin domain.StopoverOrigin) ([]domain.Stopover, error) {
	var out []domain.Stopover
	for _, st := range m.stored {
		if st.QueryID == queryID && (origin == "" || st.Origin == origin) {
			out = append(out, st)
		}
	}
	return out, nil
}

// --- Mock SponsorRepository ---

type mockSponsorRepo struct {
	items   []domain.SponsorLocation
	deleted []string
}

func (m *mockSponsorRepo) Create(ctx context.Context, sp *domain.SponsorLocation) error {
	sp.ID = fmt.Sprintf("sp-%d", len(m.items)+1)
	m.items = append(m.items, *sp)
	return nil
}

func (m *mockSponsorRepo) GetByID(ctx context.Context, id string) (*domain.SponsorLocation, error) {
	for _, sp := range m.items {
		if sp.ID == id {
			return &sp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockSponsorRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.SponsorLocation, error) {
	var out []domain.SponsorLocation
	for _, sp := range m.items {
		if sp.OwnerID == ownerID {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (m *mockSponsorRepo) ListAll(ctx context.Context) ([]domain.SponsorLocation, error) {
	return m.items, nil
}

func (m *mockSponsorRepo) ListWithin(ctx context.Context, center domain.Coordinate, radiusMiles float64) ([]domain.SponsorLocation, error) {
	var out []domain.SponsorLocation
	for _, sp := range m.items {
		if geospatial.Miles(center.Lat, center.Lng, sp.Location.Lat, sp.Location.Lng) <= radiusMiles {
			out = append(out, sp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return geospatial.Miles(center.Lat, center.Lng, out[i].Location.Lat, out[i].Location.Lng) <
			geospatial.Miles(center.Lat, center.Lng, out[j].Location.Lat, out[j].Location.Lng)
	})
	return out, nil
}

func (m *mockSponsorRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

// --- Mock TagRepository ---

type mockTagRepo struct {
	items   []domain.Tag
	deleted []string
}

func (m *mockTagRepo) Create(ctx context.Context, t *domain.Tag) error {
	t.ID = fmt.Sprintf("t-%d", len(m.items)+1)
	m.items = append(m.items, *t)
	return nil
}

func (m *mockTagRepo) GetByID(ctx context.Context, id string) (*domain.Tag, error) {
	for _, t := range m.items {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockTagRepo) ListByUser(ctx context.Context, userID string) ([]domain.Tag, error) {
	var out []domain.Tag
	for _, t := range m.items {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTagRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

// --- Mock UserRepository ---

type mockUserRepo struct {
	users []domain.User
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrDuplicateUser
		}
	}
	u.ID = fmt.Sprintf("u-%d", len(m.users)+1)
	m.users = append(m.users, *u)
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) SetAccessLevel(ctx context.Context, id string, level int) error {
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].AccessLevel = level
			return nil
		}
	}
	return domain.ErrNotFound
}

// --- Mock SessionRepository ---

type mockSessionRepo struct {
	sessions []domain.Session
}

func (m *mockSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	m.sessions = append(m.sessions, *s)
	return nil
}

func (m *mockSessionRepo) GetValid(ctx context.Context, token string, now time.Time) (*domain.Session, error) {
	for _, s := range m.sessions {
		if s.Token == token && s.ExpiresAt.After(now) {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	kept := m.sessions[:0]
	var n int64
	for _, s := range m.sessions {
		if s.ExpiresAt.After(now) {
			kept = append(kept, s)
			continue
		}
		n++
	}
	m.sessions = kept
	return n, nil
}

// --- Mock DirectionsProvider ---

type mockDirections struct {
	routeFn func(ctx context.Context, origin, destination string) (*domain.Route, error)
	calls   int
}

func (m *mockDirections) Route(ctx context.Context, origin, destination string) (*domain.Route, error) {
	m.calls++
	if m.routeFn != nil {
		return m.routeFn(ctx, origin, destination)
	}
	return nil, domain.ErrNoRoute
}

// --- Mock EventPublisher ---

type mockEvents struct {
	queries   []string
	stopovers []domain.Stopover
	err       error
}

func (m *mockEvents) PublishQueryCreated(ctx context.Context, q *domain.Query) error {
	m.queries = append(m.queries, q.ID)
	return m.err
}

func (m *mockEvents) PublishStopover(ctx context.Context, st *domain.Stopover) error {
	m.stopovers = append(m.stopovers, *st)
	return m.err
}
