// Package polyline converts Google encoded polylines to coordinate sequences.
package polyline

import (
	"fmt"

	gpolyline "github.com/twpayne/go-polyline"

	"github.com/samirrijal/detour/internal/core/domain"
)

// Decode decodes an encoded polyline (1e-5 precision) into ordered coordinates.
func Decode(encoded string) ([]domain.Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, rest, err := gpolyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPolyline, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", domain.ErrMalformedPolyline, len(rest))
	}

	out := make([]domain.Coordinate, 0, len(coords))
	for _, c := range coords {
		out = append(out, domain.Coordinate{Lat: c[0], Lng: c[1]})
	}
	return out, nil
}

// DecodeAll decodes route step polylines and joins them in order. A step that
// starts where the previous one ended does not repeat the shared point.
func DecodeAll(encoded []string) ([]domain.Coordinate, error) {
	var out []domain.Coordinate
	for i, e := range encoded {
		coords, err := Decode(e)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if len(out) > 0 && len(coords) > 0 && out[len(out)-1] == coords[0] {
			coords = coords[1:]
		}
		out = append(out, coords...)
	}
	return out, nil
}

// Encode encodes coordinates as a polyline string.
func Encode(coords []domain.Coordinate) string {
	raw := make([][]float64, 0, len(coords))
	for _, c := range coords {
		raw = append(raw, []float64{c.Lat, c.Lng})
	}
	return string(gpolyline.EncodeCoords(raw))
}
