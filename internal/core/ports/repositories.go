package ports

import (
	"context"
	"time"

	"github.com/samirrijal/detour/internal/core/domain"
)

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetAccessLevel(ctx context.Context, id string, level int) error
}

// SessionRepository persists bearer tokens.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	// GetValid returns the session for token if it has not expired at now.
	GetValid(ctx context.Context, token string, now time.Time) (*domain.Session, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TagRepository persists user keyword tags.
type TagRepository interface {
	Create(ctx context.Context, tag *domain.Tag) error
	GetByID(ctx context.Context, id string) (*domain.Tag, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Tag, error)
	Delete(ctx context.Context, id string) error
}

// QueryRepository persists trip queries.
type QueryRepository interface {
	// Create returns domain.ErrDuplicateQuery when (origin, destination, user) already exists.
	Create(ctx context.Context, query *domain.Query) error
	GetByID(ctx context.Context, id string) (*domain.Query, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Query, error)
	SetStatus(ctx context.Context, id string, status domain.QueryStatus) error
	// BeginPlanning moves a pending or failed query to planning in one step.
	// It returns domain.ErrAlreadyPlanned for any other status.
	BeginPlanning(ctx context.Context, id string) error
}

// SponsorRepository persists sponsor locations.
type SponsorRepository interface {
	Create(ctx context.Context, sponsor *domain.SponsorLocation) error
	GetByID(ctx context.Context, id string) (*domain.SponsorLocation, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.SponsorLocation, error)
	ListAll(ctx context.Context) ([]domain.SponsorLocation, error)
	// ListWithin returns sponsors within radiusMiles of center, nearest first.
	ListWithin(ctx context.Context, center domain.Coordinate, radiusMiles float64) ([]domain.SponsorLocation, error)
	Delete(ctx context.Context, id string) error
}

// StopoverRepository is the append-only store of selected stopovers.
type StopoverRepository interface {
	Append(ctx context.Context, stopover *domain.Stopover) error
	ListByQuery(ctx context.Context, queryID string, origin domain.StopoverOrigin) ([]domain.Stopover, error)
}
