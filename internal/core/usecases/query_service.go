package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/core/ports"
	"github.com/samirrijal/detour/internal/pkg/logging"
	"github.com/samirrijal/detour/internal/pkg/metrics"
	"github.com/samirrijal/detour/internal/pkg/polyline"
	"github.com/samirrijal/detour/internal/pkg/telemetry"
)

// QueryDefaults fill in what a query request leaves out.
type QueryDefaults struct {
	ThresholdMiles float64
	Categories     []string
}

// CreateQueryInput is a new trip request. A nil ThresholdMiles uses the default.
type CreateQueryInput struct {
	Origin         string
	Destination    string
	ThresholdMiles *float64
	Categories     []string
	Keywords       []string
}

// QueryService handles trip queries and their stopover planning.
type QueryService struct {
	queries    ports.QueryRepository
	stopovers  ports.StopoverRepository
	sponsors   ports.SponsorRepository
	tags       ports.TagRepository
	directions ports.DirectionsProvider
	events     ports.EventPublisher
	sampler    *Sampler
	defaults   QueryDefaults
}

// QueryServiceDeps groups QueryService collaborators. Events may be nil.
type QueryServiceDeps struct {
	Queries    ports.QueryRepository
	Stopovers  ports.StopoverRepository
	Sponsors   ports.SponsorRepository
	Tags       ports.TagRepository
	Directions ports.DirectionsProvider
	Events     ports.EventPublisher
	Sampler    *Sampler
}

// NewQueryService creates a new QueryService.
func NewQueryService(deps QueryServiceDeps, defaults QueryDefaults) *QueryService {
	return &QueryService{
		queries:    deps.Queries,
		stopovers:  deps.Stopovers,
		sponsors:   deps.Sponsors,
		tags:       deps.Tags,
		directions: deps.Directions,
		events:     deps.Events,
		sampler:    deps.Sampler,
		defaults:   defaults,
	}
}

// Create validates and stores a query, then announces it for planning.
func (s *QueryService) Create(ctx context.Context, userID string, in CreateQueryInput) (*domain.Query, error) {
	origin := strings.TrimSpace(in.Origin)
	destination := strings.TrimSpace(in.Destination)
	if origin == "" || destination == "" {
		return nil, domain.ErrMissingEndpoint
	}

	threshold := s.defaults.ThresholdMiles
	if in.ThresholdMiles != nil {
		threshold = *in.ThresholdMiles
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold <= 0 {
		return nil, domain.ErrInvalidThreshold
	}

	categories := cleanWords(in.Categories)
	if len(categories) == 0 {
		categories = append([]string(nil), s.defaults.Categories...)
	}

	keywords := cleanWords(in.Keywords)
	if len(keywords) == 0 && s.tags != nil {
		tags, err := s.tags.ListByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load tags: %w", err)
		}
		for _, t := range tags {
			keywords = append(keywords, t.Keyword)
		}
	}

	q := &domain.Query{
		UserID:         userID,
		Origin:         origin,
		Destination:    destination,
		ThresholdMiles: threshold,
		Categories:     categories,
		Keywords:       keywords,
		Status:         domain.QueryPending,
	}
	if err := s.queries.Create(ctx, q); err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.PublishQueryCreated(ctx, q); err != nil {
			logging.FromContext(ctx).Warn("publish query created failed", "query_id", q.ID, "error", err)
		}
	}
	return q, nil
}

// GetByID returns a single query.
func (s *QueryService) GetByID(ctx context.Context, id string) (*domain.Query, error) {
	return s.queries.GetByID(ctx, id)
}

// GetOwned returns a query only if it belongs to userID.
func (s *QueryService) GetOwned(ctx context.Context, userID, id string) (*domain.Query, error) {
	q, err := s.queries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.UserID != userID {
		return nil, domain.ErrNotOwner
	}
	return q, nil
}

// ListByUser returns a user's queries, newest first.
func (s *QueryService) ListByUser(ctx context.Context, userID string) ([]domain.Query, error) {
	return s.queries.ListByUser(ctx, userID)
}

// Plan runs the full pipeline for a query synchronously: route lookup,
// polyline decoding, sampling and persistence.
func (s *QueryService) Plan(ctx context.Context, queryID string) ([]domain.StopoverView, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanPlan)
	defer span.End()
	span.SetAttributes(attribute.String("query.id", queryID))

	start := time.Now()
	defer func() { metrics.PlanDuration.Observe(time.Since(start).Seconds()) }()

	if err := s.Begin(ctx, queryID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	req, err := s.Prepare(ctx, queryID)
	if err != nil {
		s.fail(ctx, queryID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	stopovers, err := s.Sample(ctx, *req)
	if err != nil {
		s.fail(ctx, queryID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("stopovers", len(stopovers)))

	if err := s.queries.SetStatus(ctx, queryID, domain.QueryComplete); err != nil {
		return nil, fmt.Errorf("mark query complete: %w", err)
	}
	return views(stopovers), nil
}

// Begin claims a pending or failed query for planning. Only one caller wins;
// the rest get domain.ErrAlreadyPlanned.
func (s *QueryService) Begin(ctx context.Context, queryID string) error {
	return s.queries.BeginPlanning(ctx, queryID)
}

// Prepare builds the sampler input for a query claimed with Begin.
func (s *QueryService) Prepare(ctx context.Context, queryID string) (*SampleRequest, error) {
	q, err := s.queries.GetByID(ctx, queryID)
	if err != nil {
		return nil, err
	}

	route, err := s.directions.Route(ctx, q.Origin, q.Destination)
	if err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}
	points, err := polyline.DecodeAll(route.StepPolylines)
	if err != nil {
		return nil, fmt.Errorf("decode route: %w", err)
	}

	sponsors, err := s.sponsors.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sponsors: %w", err)
	}

	logging.FromContext(ctx).Info("route resolved",
		"query_id", queryID, "points", len(points), "distance_m", route.DistanceM, "sponsors", len(sponsors))

	return &SampleRequest{
		QueryID:        q.ID,
		Route:          points,
		ThresholdMiles: q.ThresholdMiles,
		Categories:     q.Categories,
		Keyword:        strings.Join(q.Keywords, " "),
		Sponsors:       sponsors,
	}, nil
}

// Sample runs the sampler, persisting and publishing each stopover as it is found.
func (s *QueryService) Sample(ctx context.Context, req SampleRequest) ([]domain.Stopover, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSample)
	defer span.End()

	return s.sampler.Sample(ctx, req, func(ctx context.Context, st *domain.Stopover) error {
		if err := s.stopovers.Append(ctx, st); err != nil {
			return err
		}
		if s.events != nil {
			if err := s.events.PublishStopover(ctx, st); err != nil {
				logging.FromContext(ctx).Warn("publish stopover failed", "query_id", st.QueryID, "error", err)
			}
		}
		return nil
	})
}

// MarkStatus records a planning outcome.
func (s *QueryService) MarkStatus(ctx context.Context, queryID string, status domain.QueryStatus) error {
	return s.queries.SetStatus(ctx, queryID, status)
}

func (s *QueryService) fail(ctx context.Context, queryID string, cause error) {
	if errors.Is(cause, domain.ErrNotFound) {
		return
	}
	logging.FromContext(ctx).Error("planning failed", "query_id", queryID, "error", cause)
	// the request context may already be done
	if err := s.queries.SetStatus(context.WithoutCancel(ctx), queryID, domain.QueryFailed); err != nil {
		logging.FromContext(ctx).Error("mark query failed", "query_id", queryID, "error", err)
	}
}

// Results returns the organic stopovers recorded for a query.
func (s *QueryService) Results(ctx context.Context, queryID string) ([]domain.StopoverView, error) {
	stopovers, err := s.stopovers.ListByQuery(ctx, queryID, domain.OriginOrganic)
	if err != nil {
		return nil, err
	}
	return views(stopovers), nil
}

// Sponsored returns the sponsor stopovers recorded for a query.
func (s *QueryService) Sponsored(ctx context.Context, queryID string) ([]domain.StopoverView, error) {
	stopovers, err := s.stopovers.ListByQuery(ctx, queryID, domain.OriginSponsor)
	if err != nil {
		return nil, err
	}
	return views(stopovers), nil
}

// Stopovers returns every recorded stopover for a query in sequence order.
func (s *QueryService) Stopovers(ctx context.Context, queryID string) ([]domain.Stopover, error) {
	return s.stopovers.ListByQuery(ctx, queryID, "")
}

func views(stopovers []domain.Stopover) []domain.StopoverView {
	out := make([]domain.StopoverView, 0, len(stopovers))
	for _, st := range stopovers {
		out = append(out, st.View())
	}
	return out
}

func cleanWords(in []string) []string {
	var out []string
	for _, w := range in {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}
