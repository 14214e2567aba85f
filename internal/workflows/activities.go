package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/core/usecases"
)

// Planner is the slice of usecases.QueryService the activities drive.
type Planner interface {
	Begin(ctx context.Context, queryID string) error
	Prepare(ctx context.Context, queryID string) (*usecases.SampleRequest, error)
	Sample(ctx context.Context, req usecases.SampleRequest) ([]domain.Stopover, error)
	MarkStatus(ctx context.Context, queryID string, status domain.QueryStatus) error
}

// PlanActivities holds the activity implementations for PlanStopoversWorkflow.
type PlanActivities struct {
	Planner Planner
}

// ClaimQuery moves the query to planning unless another run already has it.
func (a *PlanActivities) ClaimQuery(ctx context.Context, queryID string) error {
	return classify(a.Planner.Begin(ctx, queryID))
}

// PrepareRoute resolves and decodes the query's route and loads sponsors.
func (a *PlanActivities) PrepareRoute(ctx context.Context, queryID string) (usecases.SampleRequest, error) {
	req, err := a.Planner.Prepare(ctx, queryID)
	if err != nil {
		return usecases.SampleRequest{}, classify(err)
	}
	activity.GetLogger(ctx).Info("route prepared", "queryID", queryID, "points", len(req.Route))
	return *req, nil
}

// SampleStopovers runs the sampler and returns how many stopovers were stored.
func (a *PlanActivities) SampleStopovers(ctx context.Context, req usecases.SampleRequest) (int, error) {
	stopovers, err := a.Planner.Sample(ctx, req)
	if err != nil {
		return len(stopovers), classify(err)
	}
	return len(stopovers), nil
}

// MarkQueryStatus records the planning outcome.
func (a *PlanActivities) MarkQueryStatus(ctx context.Context, queryID string, status domain.QueryStatus) error {
	return a.Planner.MarkStatus(ctx, queryID, status)
}

// errTypeAlreadyPlanned tags the non-retryable error ClaimQuery returns when
// the query is not pending or failed.
const errTypeAlreadyPlanned = "AlreadyPlanned"

// classify marks errors that a retry cannot fix.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrAlreadyPlanned):
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeAlreadyPlanned, err)
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNoRoute),
		errors.Is(err, domain.ErrMalformedPolyline),
		errors.Is(err, domain.ErrInvalidThreshold):
		return temporal.NewNonRetryableApplicationError(err.Error(), "PlanningError", err)
	}
	return err
}
