package domain

// Coordinate represents a geographic point (WGS 84).
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Route is a driving route returned by the directions provider.
type Route struct {
	Summary       string   `json:"summary,omitempty"`
	DistanceM     int      `json:"distance_m"`
	StepPolylines []string `json:"step_polylines"`
}
