package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	h3 "github.com/uber/h3-go/v4"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/core/ports"
	"github.com/samirrijal/detour/internal/pkg/logging"
	"github.com/samirrijal/detour/internal/pkg/metrics"
)

// CellResolution is the H3 resolution used to bucket nearby searches
// (roughly 0.1 km² hexagons).
const CellResolution = 9

// CachedPlaces memoises Nearby results per H3 cell, category and keyword.
type CachedPlaces struct {
	next       ports.PlaceSearcher
	cache      ports.CacheService
	ttlSeconds int
}

// NewCachedPlaces wraps next. A nil cache disables caching.
func NewCachedPlaces(next ports.PlaceSearcher, cache ports.CacheService, ttlSeconds int) *CachedPlaces {
	return &CachedPlaces{next: next, cache: cache, ttlSeconds: ttlSeconds}
}

// Nearby serves from cache when possible and fills it on a miss.
// Cache failures never fail the search.
func (c *CachedPlaces) Nearby(ctx context.Context, at domain.Coordinate, category, keyword string) ([]domain.Candidate, error) {
	if c.cache == nil {
		return c.next.Nearby(ctx, at, category, keyword)
	}

	key, err := NearbyKey(at, category, keyword)
	if err != nil {
		logging.FromContext(ctx).Debug("nearby cache key", "error", err)
		return c.next.Nearby(ctx, at, category, keyword)
	}

	if data, err := c.cache.Get(ctx, key); err == nil {
		var cands []domain.Candidate
		if err := json.Unmarshal(data, &cands); err == nil {
			metrics.CacheHits.WithLabelValues("nearby").Inc()
			return cands, nil
		}
	}
	metrics.CacheMisses.WithLabelValues("nearby").Inc()

	cands, err := c.next.Nearby(ctx, at, category, keyword)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(cands); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttlSeconds); err != nil {
			logging.FromContext(ctx).Debug("nearby cache set", "key", key, "error", err)
		}
	}
	return cands, nil
}

// NearbyKey builds the cache key places:nearby:<cell>:<category>:<keyword>.
func NearbyKey(at domain.Coordinate, category, keyword string) (string, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(at.Lat, at.Lng), CellResolution)
	if err != nil {
		return "", fmt.Errorf("h3 cell: %w", err)
	}
	return fmt.Sprintf("places:nearby:%s:%s:%s", cell.String(), category, strings.ToLower(strings.TrimSpace(keyword))), nil
}
