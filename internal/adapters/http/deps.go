package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/detour/internal/core/usecases"
)

// Pinger is a backing service that can report its own liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PlanStarter hands a query to the background planner.
type PlanStarter interface {
	StartPlan(ctx context.Context, queryID string) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Users    *usecases.UserService
	Queries  *usecases.QueryService
	Tags     *usecases.TagService
	Sponsors *usecases.SponsorService
	// Planner is nil when planning runs inside the request.
	Planner PlanStarter
	NATS    *nats.Conn
	DB      Pinger
	Cache   Pinger
}
