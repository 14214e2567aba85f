// Package googlemaps implements the directions, places and rating ports
// against the Google Maps web services.
package googlemaps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"googlemaps.github.io/maps"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/pkg/metrics"
	"github.com/samirrijal/detour/internal/pkg/telemetry"
)

const zeroResults = "ZERO_RESULTS"

// Options configures the Maps client.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client wraps a maps.Client. It satisfies ports.DirectionsProvider,
// ports.PlaceSearcher and ports.RatingLookup.
type Client struct {
	maps *maps.Client
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(opts.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, maps.WithBaseURL(opts.BaseURL))
	}
	mc, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &Client{maps: mc}, nil
}

// Route fetches a driving route and returns the polyline of every step in order.
func (c *Client) Route(ctx context.Context, origin, destination string) (*domain.Route, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanDirections)
	defer span.End()

	routes, _, err := c.maps.Directions(ctx, &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
	})
	if err != nil {
		if isZeroResults(err) {
			observe(span, "directions", nil)
			return nil, domain.ErrNoRoute
		}
		observe(span, "directions", err)
		return nil, fmt.Errorf("directions %q -> %q: %w", origin, destination, err)
	}
	observe(span, "directions", nil)
	if len(routes) == 0 {
		return nil, domain.ErrNoRoute
	}

	r := routes[0]
	out := &domain.Route{Summary: r.Summary}
	for _, leg := range r.Legs {
		out.DistanceM += leg.Distance.Meters
		for _, step := range leg.Steps {
			out.StepPolylines = append(out.StepPolylines, step.Polyline.Points)
		}
	}
	span.SetAttributes(attribute.Int("route.steps", len(out.StepPolylines)))
	return out, nil
}

// Nearby runs a distance-ranked nearby search for open places of one category.
func (c *Client) Nearby(ctx context.Context, at domain.Coordinate, category, keyword string) ([]domain.Candidate, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanNearby, trace.WithAttributes(
		attribute.String("places.category", category),
		attribute.Float64("places.lat", at.Lat),
		attribute.Float64("places.lng", at.Lng),
	))
	defer span.End()

	resp, err := c.maps.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: at.Lat, Lng: at.Lng},
		Keyword:  keyword,
		OpenNow:  true,
		RankBy:   maps.RankByDistance,
		Type:     maps.PlaceType(category),
	})
	if err != nil {
		if isZeroResults(err) {
			observe(span, "nearby", nil)
			return nil, nil
		}
		observe(span, "nearby", err)
		return nil, fmt.Errorf("nearby search %s: %w", category, err)
	}
	observe(span, "nearby", nil)

	out := make([]domain.Candidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		cand := domain.Candidate{
			PlaceID:  r.PlaceID,
			Name:     r.Name,
			Category: category,
			Location: domain.Coordinate{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
		}
		// the API reports an unrated place as 0
		if r.Rating > 0 {
			rating := float64(r.Rating)
			cand.Rating = &rating
		}
		out = append(out, cand)
	}
	return out, nil
}

// Rating looks up a place's rating through Place Details.
func (c *Client) Rating(ctx context.Context, placeID string) (float64, bool, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanPlaceDetail,
		trace.WithAttributes(attribute.String("places.place_id", placeID)))
	defer span.End()

	res, err := c.maps.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields:  []maps.PlaceDetailsFieldMask{maps.PlaceDetailsFieldMask("rating")},
	})
	observe(span, "details", err)
	if err != nil {
		return 0, false, fmt.Errorf("place details %s: %w", placeID, err)
	}
	if res.Rating <= 0 {
		return 0, false, nil
	}
	return float64(res.Rating), true, nil
}

func observe(span trace.Span, call string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.PlacesRequests.WithLabelValues(call, outcome).Inc()
}

func isZeroResults(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && strings.Contains(err.Error(), zeroResults)
}
