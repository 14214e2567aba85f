package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/pkg/geospatial"
)

// SponsorRepo implements ports.SponsorRepository.
type SponsorRepo struct {
	db *DB
}

func NewSponsorRepo(db *DB) *SponsorRepo {
	return &SponsorRepo{db: db}
}

const sponsorSelect = `SELECT id, owner_id, keyword, lat, lng, created_at FROM sponsor_locations`

func (r *SponsorRepo) Create(ctx context.Context, sp *domain.SponsorLocation) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO sponsor_locations (owner_id, keyword, lat, lng)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, sp.OwnerID, sp.Keyword, sp.Location.Lat, sp.Location.Lng).Scan(&sp.ID, &sp.CreatedAt)
}

// sponsorBatchSize bounds how many inserts CreateMany queues per round trip.
const sponsorBatchSize = 500

// CreateMany inserts sponsor locations in batches and returns how many were stored.
func (r *SponsorRepo) CreateMany(ctx context.Context, sponsors []domain.SponsorLocation) (int, error) {
	stored := 0
	for start := 0; start < len(sponsors); start += sponsorBatchSize {
		chunk := sponsors[start:min(start+sponsorBatchSize, len(sponsors))]
		batch := &pgx.Batch{}
		for _, sp := range chunk {
			batch.Queue(`
				INSERT INTO sponsor_locations (owner_id, keyword, lat, lng)
				VALUES ($1, $2, $3, $4)
			`, sp.OwnerID, sp.Keyword, sp.Location.Lat, sp.Location.Lng)
		}
		if err := flushBatch(ctx, r.db, batch, len(chunk)); err != nil {
			return stored, err
		}
		stored += len(chunk)
	}
	return stored, nil
}

func flushBatch(ctx context.Context, db *DB, batch *pgx.Batch, count int) error {
	br := db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < count; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	return nil
}

func (r *SponsorRepo) GetByID(ctx context.Context, id string) (*domain.SponsorLocation, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	var sp domain.SponsorLocation
	err := r.db.Pool.QueryRow(ctx, sponsorSelect+` WHERE id = $1`, id).Scan(
		&sp.ID, &sp.OwnerID, &sp.Keyword, &sp.Location.Lat, &sp.Location.Lng, &sp.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &sp, nil
}

func (r *SponsorRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.SponsorLocation, error) {
	rows, err := r.db.Pool.Query(ctx, sponsorSelect+` WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanSponsors(rows)
}

func (r *SponsorRepo) ListAll(ctx context.Context) ([]domain.SponsorLocation, error) {
	rows, err := r.db.Pool.Query(ctx, sponsorSelect+` ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return scanSponsors(rows)
}

// ListWithin prefilters on a bounding box in SQL and trims to the exact radius.
func (r *SponsorRepo) ListWithin(ctx context.Context, center domain.Coordinate, radiusMiles float64) ([]domain.SponsorLocation, error) {
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(center.Lat, center.Lng, geospatial.MilesToMeters(radiusMiles)*1.05)
	rows, err := r.db.Pool.Query(ctx, sponsorSelect+`
		WHERE lat BETWEEN $1 AND $3 AND lng BETWEEN $2 AND $4
	`, minLat, minLon, maxLat, maxLon)
	if err != nil {
		return nil, err
	}
	all, err := scanSponsors(rows)
	if err != nil {
		return nil, err
	}

	dist := func(sp domain.SponsorLocation) float64 {
		return geospatial.Miles(center.Lat, center.Lng, sp.Location.Lat, sp.Location.Lng)
	}
	var out []domain.SponsorLocation
	for _, sp := range all {
		if dist(sp) <= radiusMiles {
			out = append(out, sp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return dist(out[i]) < dist(out[j]) })
	return out, nil
}

func (r *SponsorRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sponsor_locations WHERE id = $1`, id)
	if err != nil {
		return notFound(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanSponsors(rows pgx.Rows) ([]domain.SponsorLocation, error) {
	defer rows.Close()
	var out []domain.SponsorLocation
	for rows.Next() {
		var sp domain.SponsorLocation
		if err := rows.Scan(&sp.ID, &sp.OwnerID, &sp.Keyword, &sp.Location.Lat, &sp.Location.Lng, &sp.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}
