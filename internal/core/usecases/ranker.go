package usecases

import (
	"context"
	"sort"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/core/ports"
	"github.com/samirrijal/detour/internal/pkg/geospatial"
	"github.com/samirrijal/detour/internal/pkg/logging"
)

const (
	maxRating = 5.0
	// ratingWeight converts a rating penalty into distance-equivalent miles.
	ratingWeight = 10.0
)

// RatingPenalty maps a 0-5 star rating onto [0,1]; 5 stars costs nothing.
func RatingPenalty(rating float64) float64 {
	if rating > maxRating {
		rating = maxRating
	}
	if rating < 0 {
		rating = 0
	}
	return (maxRating - rating) / maxRating
}

// ScoredCandidate pairs a candidate with its ranking score (lower is better).
type ScoredCandidate struct {
	Candidate domain.Candidate
	Rating    float64
	Miles     float64
	Score     float64
}

// Ranker orders organic candidates by distance plus a rating penalty.
type Ranker struct {
	ratings ports.RatingLookup
}

// NewRanker creates a Ranker. ratings may be nil, in which case candidates
// without a search-provided rating use domain.DefaultRating.
func NewRanker(ratings ports.RatingLookup) *Ranker {
	return &Ranker{ratings: ratings}
}

// Rank scores every candidate against ref and returns them best first.
// Equal scores keep their input order.
func (r *Ranker) Rank(ctx context.Context, candidates []domain.Candidate, ref domain.Coordinate) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		rating := r.rating(ctx, c)
		miles := geospatial.Miles(c.Location.Lat, c.Location.Lng, ref.Lat, ref.Lng)
		scored = append(scored, ScoredCandidate{
			Candidate: c,
			Rating:    rating,
			Miles:     miles,
			Score:     miles + RatingPenalty(rating)*ratingWeight,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score < scored[j].Score
	})
	return scored
}

// Best returns the top-ranked candidate. ok is false for an empty list.
func (r *Ranker) Best(ctx context.Context, candidates []domain.Candidate, ref domain.Coordinate) (domain.Candidate, bool) {
	if len(candidates) == 0 {
		return domain.Candidate{}, false
	}
	return r.Rank(ctx, candidates, ref)[0].Candidate, true
}

func (r *Ranker) rating(ctx context.Context, c domain.Candidate) float64 {
	if c.Rating != nil {
		return *c.Rating
	}
	if r.ratings == nil || c.PlaceID == "" {
		return domain.DefaultRating
	}
	rating, ok, err := r.ratings.Rating(ctx, c.PlaceID)
	if err != nil {
		logging.FromContext(ctx).Warn("place rating lookup failed", "place_id", c.PlaceID, "error", err)
		return domain.DefaultRating
	}
	if !ok {
		return domain.DefaultRating
	}
	return rating
}
