package postgres

import (
	"context"

	"github.com/samirrijal/detour/internal/core/domain"
)

// TagRepo implements ports.TagRepository.
type TagRepo struct {
	db *DB
}

func NewTagRepo(db *DB) *TagRepo {
	return &TagRepo{db: db}
}

// Create stores a tag. Re-adding an existing keyword returns the stored row.
func (r *TagRepo) Create(ctx context.Context, t *domain.Tag) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO tags (user_id, keyword) VALUES ($1, $2)
		ON CONFLICT (user_id, keyword) DO UPDATE SET keyword = EXCLUDED.keyword
		RETURNING id, created_at
	`, t.UserID, t.Keyword).Scan(&t.ID, &t.CreatedAt)
}

func (r *TagRepo) GetByID(ctx context.Context, id string) (*domain.Tag, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	t := &domain.Tag{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, keyword, created_at FROM tags WHERE id = $1
	`, id).Scan(&t.ID, &t.UserID, &t.Keyword, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (r *TagRepo) ListByUser(ctx context.Context, userID string) ([]domain.Tag, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, keyword, created_at FROM tags
		WHERE user_id = $1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Keyword, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *TagRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return notFound(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
