package usecases

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/core/ports"
	"github.com/samirrijal/detour/internal/pkg/geospatial"
	"github.com/samirrijal/detour/internal/pkg/logging"
	"github.com/samirrijal/detour/internal/pkg/metrics"
)

// SamplerConfig tunes the deviation sampler.
type SamplerConfig struct {
	// SponsorProbability is the chance a threshold crossing tries sponsors first.
	SponsorProbability float64
	// SponsorRadiusMiles bounds how far a sponsor may be from the route point.
	SponsorRadiusMiles float64
	// Damping scales the accumulator when no organic candidate is found.
	Damping float64
}

// DefaultSamplerConfig returns the production tuning.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		SponsorProbability: 0.2,
		SponsorRadiusMiles: 25,
		Damping:            0.75,
	}
}

// SampleRequest is one sampling run over a decoded route.
type SampleRequest struct {
	QueryID        string
	Route          []domain.Coordinate
	ThresholdMiles float64
	Categories     []string
	Keyword        string
	Sponsors       []domain.SponsorLocation
}

// StopoverSink receives each stopover as soon as it is selected.
type StopoverSink func(ctx context.Context, stopover *domain.Stopover) error

// Sampler walks a route and picks deviation stopovers at distance thresholds.
type Sampler struct {
	places ports.PlaceSearcher
	ranker *Ranker
	rnd    ports.RandomSource
	cfg    SamplerConfig
}

type defaultRand struct{}

func (defaultRand) Float64() float64 { return rand.Float64() }

// NewSampler creates a Sampler. A nil rnd uses math/rand/v2.
func NewSampler(places ports.PlaceSearcher, ranker *Ranker, rnd ports.RandomSource, cfg SamplerConfig) *Sampler {
	if rnd == nil {
		rnd = defaultRand{}
	}
	if ranker == nil {
		ranker = NewRanker(nil)
	}
	return &Sampler{places: places, ranker: ranker, rnd: rnd, cfg: cfg}
}

// Sample runs the deviation algorithm and returns stopovers in encounter order.
// Place search failures are logged and treated as empty results. A sink error
// stops the run; stopovers already handed to the sink stay persisted.
func (s *Sampler) Sample(ctx context.Context, req SampleRequest, sink StopoverSink) ([]domain.Stopover, error) {
	if math.IsNaN(req.ThresholdMiles) || req.ThresholdMiles < 0 {
		return nil, domain.ErrInvalidThreshold
	}
	if req.ThresholdMiles == 0 || len(req.Route) < 2 {
		return nil, nil
	}

	log := logging.FromContext(ctx)
	var out []domain.Stopover
	emit := func(st domain.Stopover) error {
		st.QueryID = req.QueryID
		st.Sequence = len(out)
		if sink != nil {
			if err := sink(ctx, &st); err != nil {
				return fmt.Errorf("store stopover %d: %w", st.Sequence, err)
			}
		}
		metrics.StopoversSelected.WithLabelValues(string(st.Origin)).Inc()
		out = append(out, st)
		return nil
	}

	acc := 0.0
	for i := 1; i < len(req.Route); i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		prev, cur := req.Route[i-1], req.Route[i]
		acc += geospatial.Miles(prev.Lat, prev.Lng, cur.Lat, cur.Lng)
		if acc < req.ThresholdMiles {
			continue
		}

		if s.rnd.Float64() <= s.cfg.SponsorProbability {
			if sp, ok := NearestSponsor(req.Sponsors, cur, s.cfg.SponsorRadiusMiles); ok {
				if err := emit(domain.Stopover{
					Label:    sp.Keyword,
					Location: sp.Location,
					Origin:   domain.OriginSponsor,
				}); err != nil {
					return out, err
				}
				acc = 0
				continue
			}
		}

		candidates, err := s.search(ctx, cur, req.Categories, req.Keyword)
		if err != nil {
			return out, err
		}
		best, ok := s.ranker.Best(ctx, candidates, cur)
		if !ok {
			log.Debug("no organic candidates, damping accumulator",
				"lat", cur.Lat, "lng", cur.Lng, "accumulated_miles", acc)
			metrics.SamplerDampings.Inc()
			acc *= s.cfg.Damping
			continue
		}

		label := best.Name
		if label == "" {
			label = best.Category
		}
		if err := emit(domain.Stopover{
			Label:    label,
			Location: best.Location,
			Origin:   domain.OriginOrganic,
			PlaceID:  best.PlaceID,
		}); err != nil {
			return out, err
		}
		acc = 0
	}

	return out, nil
}

// search queries every category at a point and pools the results in
// category order. Only context cancellation is returned as an error.
func (s *Sampler) search(ctx context.Context, at domain.Coordinate, categories []string, keyword string) ([]domain.Candidate, error) {
	var pooled []domain.Candidate
	for _, category := range categories {
		found, err := s.places.Nearby(ctx, at, category, keyword)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logging.FromContext(ctx).Warn("nearby search failed",
				"category", category, "lat", at.Lat, "lng", at.Lng, "error", err)
			continue
		}
		for _, c := range found {
			if c.Category == "" {
				c.Category = category
			}
			pooled = append(pooled, c)
		}
	}
	return pooled, nil
}

// NearestSponsor returns the sponsor closest to at within radiusMiles.
func NearestSponsor(sponsors []domain.SponsorLocation, at domain.Coordinate, radiusMiles float64) (domain.SponsorLocation, bool) {
	// The box is a coarse prefilter; pad it so it never clips the radius.
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(at.Lat, at.Lng, geospatial.MilesToMeters(radiusMiles)*1.05)

	var (
		best  domain.SponsorLocation
		found bool
		bestD = math.Inf(1)
	)
	for _, sp := range sponsors {
		loc := sp.Location
		if loc.Lat < minLat || loc.Lat > maxLat || loc.Lng < minLon || loc.Lng > maxLon {
			continue
		}
		d := geospatial.Miles(at.Lat, at.Lng, loc.Lat, loc.Lng)
		if d <= radiusMiles && d < bestD {
			best, bestD, found = sp, d, true
		}
	}
	return best, found
}
