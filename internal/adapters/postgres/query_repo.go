package postgres

import (
	"context"

	"github.com/samirrijal/detour/internal/core/domain"
)

// QueryRepo implements ports.QueryRepository.
type QueryRepo struct {
	db *DB
}

func NewQueryRepo(db *DB) *QueryRepo {
	return &QueryRepo{db: db}
}

const querySelect = `
	SELECT id, user_id, origin, destination, threshold_miles, categories, keywords, status, created_at
	FROM queries`

func (r *QueryRepo) Create(ctx context.Context, q *domain.Query) error {
	if q.Status == "" {
		q.Status = domain.QueryPending
	}
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO queries (user_id, origin, destination, threshold_miles, categories, keywords, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, q.UserID, q.Origin, q.Destination, q.ThresholdMiles, nonNil(q.Categories), nonNil(q.Keywords), string(q.Status),
	).Scan(&q.ID, &q.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateQuery
	}
	return err
}

func (r *QueryRepo) GetByID(ctx context.Context, id string) (*domain.Query, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	var q domain.Query
	var status string
	err := r.db.Pool.QueryRow(ctx, querySelect+` WHERE id = $1`, id).Scan(
		&q.ID, &q.UserID, &q.Origin, &q.Destination, &q.ThresholdMiles,
		&q.Categories, &q.Keywords, &status, &q.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	q.Status = domain.QueryStatus(status)
	return &q, nil
}

func (r *QueryRepo) ListByUser(ctx context.Context, userID string) ([]domain.Query, error) {
	rows, err := r.db.Pool.Query(ctx, querySelect+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Query
	for rows.Next() {
		var q domain.Query
		var status string
		if err := rows.Scan(
			&q.ID, &q.UserID, &q.Origin, &q.Destination, &q.ThresholdMiles,
			&q.Categories, &q.Keywords, &status, &q.CreatedAt,
		); err != nil {
			return nil, err
		}
		q.Status = domain.QueryStatus(status)
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *QueryRepo) SetStatus(ctx context.Context, id string, status domain.QueryStatus) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE queries SET status = $2, updated_at = now() WHERE id = $1
	`, id, string(status))
	if err != nil {
		return notFound(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *QueryRepo) BeginPlanning(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE queries SET status = 'planning', updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'failed')
	`, id)
	if err != nil {
		return notFound(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM queries WHERE id = $1)`, id).Scan(&exists); err != nil {
		return notFound(err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadyPlanned
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
