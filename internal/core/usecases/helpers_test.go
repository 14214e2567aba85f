package usecases_test

import (
	"context"
	"math"

	"github.com/samirrijal/detour/internal/core/domain"
)

// milesPerDegree is one degree of latitude on the 6371 km sphere used by geospatial.
var milesPerDegree = 6371.0 * math.Pi / 180 / 1.609344

// north returns the point d miles due north of p.
func north(p domain.Coordinate, d float64) domain.Coordinate {
	return domain.Coordinate{Lat: p.Lat + d/milesPerDegree, Lng: p.Lng}
}

// straightRoute returns n points spaced step miles apart heading north.
func straightRoute(start domain.Coordinate, n int, step float64) []domain.Coordinate {
	route := []domain.Coordinate{start}
	for i := 1; i < n; i++ {
		route = append(route, north(route[i-1], step))
	}
	return route
}

func ptr(f float64) *float64 { return &f }

// --- Mock PlaceSearcher ---

type nearbyCall struct {
	At       domain.Coordinate
	Category string
	Keyword  string
}

type mockPlaces struct {
	nearbyFn func(ctx context.Context, at domain.Coordinate, category, keyword string) ([]domain.Candidate, error)
	calls    []nearbyCall
}

func (m *mockPlaces) Nearby(ctx context.Context, at domain.Coordinate, category, keyword string) ([]domain.Candidate, error) {
	m.calls = append(m.calls, nearbyCall{At: at, Category: category, Keyword: keyword})
	if m.nearbyFn != nil {
		return m.nearbyFn(ctx, at, category, keyword)
	}
	return nil, nil
}

// --- Mock RatingLookup ---

type mockRatings struct {
	ratingFn func(ctx context.Context, placeID string) (float64, bool, error)
	calls    int
}

func (m *mockRatings) Rating(ctx context.Context, placeID string) (float64, bool, error) {
	m.calls++
	if m.ratingFn != nil {
		return m.ratingFn(ctx, placeID)
	}
	return 0, false, nil
}

// --- Deterministic RandomSource ---

type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

func fixedRand(v float64) *seqRand { return &seqRand{vals: []float64{v}} }
