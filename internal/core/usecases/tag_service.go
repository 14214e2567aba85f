package usecases

import (
	"context"
	"strings"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/core/ports"
)

// TagService manages user keyword tags.
type TagService struct {
	tags ports.TagRepository
}

// NewTagService creates a new TagService.
func NewTagService(tags ports.TagRepository) *TagService {
	return &TagService{tags: tags}
}

// Create adds a keyword tag for a user.
func (s *TagService) Create(ctx context.Context, userID, keyword string) (*domain.Tag, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, domain.ErrInvalidTag
	}
	t := &domain.Tag{UserID: userID, Keyword: keyword}
	if err := s.tags.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns a user's tags.
func (s *TagService) List(ctx context.Context, userID string) ([]domain.Tag, error) {
	return s.tags.ListByUser(ctx, userID)
}

// Delete removes a tag owned by userID.
func (s *TagService) Delete(ctx context.Context, userID, tagID string) error {
	t, err := s.tags.GetByID(ctx, tagID)
	if err != nil {
		return err
	}
	if t.UserID != userID {
		return domain.ErrNotOwner
	}
	return s.tags.Delete(ctx, tagID)
}
