package postgres

import (
	"context"

	"github.com/samirrijal/detour/internal/core/domain"
)

// StopoverRepo implements ports.StopoverRepository. Rows are never updated.
type StopoverRepo struct {
	db *DB
}

func NewStopoverRepo(db *DB) *StopoverRepo {
	return &StopoverRepo{db: db}
}

// Append commits one stopover on its own.
func (r *StopoverRepo) Append(ctx context.Context, st *domain.Stopover) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO stopovers (query_id, seq, label, lat, lng, origin, place_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, st.QueryID, st.Sequence, st.Label, st.Location.Lat, st.Location.Lng, string(st.Origin), st.PlaceID,
	).Scan(&st.ID, &st.CreatedAt)
}

// ListByQuery returns a query's stopovers in sequence order. An empty origin
// returns both kinds.
func (r *StopoverRepo) ListByQuery(ctx context.Context, queryID string, origin domain.StopoverOrigin) ([]domain.Stopover, error) {
	if !validID(queryID) {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, query_id, seq, label, lat, lng, origin, place_id, created_at
		FROM stopovers
		WHERE query_id = $1 AND ($2 = '' OR origin = $2)
		ORDER BY created_at, seq
	`, queryID, string(origin))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Stopover
	for rows.Next() {
		var st domain.Stopover
		var o string
		if err := rows.Scan(&st.ID, &st.QueryID, &st.Sequence, &st.Label,
			&st.Location.Lat, &st.Location.Lng, &o, &st.PlaceID, &st.CreatedAt); err != nil {
			return nil, err
		}
		st.Origin = domain.StopoverOrigin(o)
		out = append(out, st)
	}
	return out, rows.Err()
}
