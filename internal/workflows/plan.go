package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/core/usecases"
	"github.com/samirrijal/detour/internal/pkg/logging"
)

// PlanInput is the input for PlanStopoversWorkflow.
type PlanInput struct {
	QueryID string
}

// PlanResult summarises a finished planning run.
type PlanResult struct {
	QueryID   string
	Stopovers int
	// Skipped is set when the query was already complete or being planned.
	Skipped bool
}

// PlanStopoversWorkflow resolves a query's route, samples stopovers along it
// and records the outcome. A failed step marks the query as failed.
func PlanStopoversWorkflow(ctx workflow.Context, input PlanInput) (PlanResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting plan workflow", "queryID", input.QueryID)

	routeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})
	// Stopovers are appended as they are found, so sampling is not retried.
	sampleCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	result := PlanResult{QueryID: input.QueryID}

	// Step 0: claim. Losing the claim is not a failure of this query.
	if err := workflow.ExecuteActivity(routeCtx, "ClaimQuery", input.QueryID).Get(ctx, nil); err != nil {
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.Type() == errTypeAlreadyPlanned {
			logger.Info("Query already planned, skipping", "queryID", input.QueryID)
			result.Skipped = true
			return result, nil
		}
		return result, err
	}

	// Step 1: route + sponsors
	var req usecases.SampleRequest
	if err := workflow.ExecuteActivity(routeCtx, "PrepareRoute", input.QueryID).Get(ctx, &req); err != nil {
		markFailed(routeCtx, input.QueryID)
		return result, err
	}

	// Step 2: sample
	if err := workflow.ExecuteActivity(sampleCtx, "SampleStopovers", req).Get(ctx, &result.Stopovers); err != nil {
		logger.Warn("sampling failed", "queryID", input.QueryID, "error", err)
		markFailed(routeCtx, input.QueryID)
		return result, err
	}

	// Step 3: done
	if err := workflow.ExecuteActivity(routeCtx, "MarkQueryStatus", input.QueryID, domain.QueryComplete).Get(ctx, nil); err != nil {
		return result, err
	}

	logger.Info("Plan workflow finished", "queryID", input.QueryID, "stopovers", result.Stopovers)
	return result, nil
}

func markFailed(ctx workflow.Context, queryID string) {
	_ = workflow.ExecuteActivity(ctx, "MarkQueryStatus", queryID, domain.QueryFailed).Get(ctx, nil)
}

// WorkflowID is the deterministic workflow ID for a query, so a redelivered
// event joins the run already in flight.
func WorkflowID(queryID string) string {
	return "plan-" + queryID
}

// Starter launches planning workflows.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter creates a Starter.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// StartPlan starts PlanStopoversWorkflow for queryID.
func (s *Starter) StartPlan(ctx context.Context, queryID string) error {
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        WorkflowID(queryID),
		TaskQueue: s.taskQueue,
	}, PlanStopoversWorkflow, PlanInput{QueryID: queryID})
	if err != nil {
		return fmt.Errorf("start plan workflow: %w", err)
	}
	logging.FromContext(ctx).Info("plan workflow started", "query_id", queryID, "run_id", run.GetRunID())
	return nil
}
