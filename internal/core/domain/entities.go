package domain

import (
	"time"
)

// Access levels carried by User.AccessLevel.
const (
	AccessNormal  = 0
	AccessSponsor = 1
	AccessAdmin   = 4
)

// ValidAccessLevel reports whether level is one of the known access levels.
func ValidAccessLevel(level int) bool {
	return level == AccessNormal || level == AccessSponsor || level == AccessAdmin
}

// User is an account that owns queries, tags and (for sponsors) sponsor locations.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AccessLevel  int       `json:"access_level"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsSponsor reports whether the user may manage sponsor locations.
func (u *User) IsSponsor() bool {
	return u.AccessLevel == AccessSponsor || u.AccessLevel >= AccessAdmin
}

// IsAdmin reports whether the user may manage other accounts.
func (u *User) IsAdmin() bool {
	return u.AccessLevel >= AccessAdmin
}

// Session is an issued bearer token.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Tag is a user preference keyword fed into the places keyword filter.
type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Keyword   string    `json:"keyword"`
	CreatedAt time.Time `json:"created_at"`
}

// QueryStatus tracks the lifecycle of a sampling run.
type QueryStatus string

const (
	QueryPending  QueryStatus = "pending"
	QueryPlanning QueryStatus = "planning"
	QueryComplete QueryStatus = "complete"
	QueryFailed   QueryStatus = "failed"
)

// Query is a trip request. (Origin, Destination, UserID) is unique.
type Query struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Origin         string      `json:"origin"`
	Destination    string      `json:"destination"`
	ThresholdMiles float64     `json:"threshold_miles"`
	Categories     []string    `json:"categories"`
	Keywords       []string    `json:"keywords"`
	Status         QueryStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
}

// SponsorLocation is a promoted point of interest owned by a sponsor user.
type SponsorLocation struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Keyword   string     `json:"keyword"`
	Location  Coordinate `json:"location"`
	CreatedAt time.Time  `json:"created_at"`
}

// DefaultRating is used when a place has no rating.
const DefaultRating = 3.0

// Candidate is an organic place returned by a nearby search. Never persisted.
type Candidate struct {
	PlaceID  string     `json:"place_id"`
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Location Coordinate `json:"location"`
	Rating   *float64   `json:"rating,omitempty"`
}

// StopoverOrigin distinguishes sponsor picks from organic ones.
type StopoverOrigin string

const (
	OriginOrganic StopoverOrigin = "organic"
	OriginSponsor StopoverOrigin = "sponsor"
)

// Stopover is a selected deviation point. Append-only.
type Stopover struct {
	ID        string         `json:"id"`
	QueryID   string         `json:"query_id"`
	Label     string         `json:"label"`
	Location  Coordinate     `json:"location"`
	Origin    StopoverOrigin `json:"origin"`
	PlaceID   string         `json:"place_id,omitempty"`
	Sequence  int            `json:"sequence"`
	CreatedAt time.Time      `json:"created_at"`
}

// StopoverView is the {name, lat, lng} shape handed back to clients.
type StopoverView struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// View flattens a stopover for API responses.
func (s Stopover) View() StopoverView {
	return StopoverView{Name: s.Label, Lat: s.Location.Lat, Lng: s.Location.Lng}
}
