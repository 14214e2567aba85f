package usecases

import (
	"context"
	"strings"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/core/ports"
)

// SponsorService manages sponsor locations.
type SponsorService struct {
	sponsors ports.SponsorRepository
}

// NewSponsorService creates a new SponsorService.
func NewSponsorService(sponsors ports.SponsorRepository) *SponsorService {
	return &SponsorService{sponsors: sponsors}
}

// Create registers a sponsor location. Only sponsor-level users may do so.
func (s *SponsorService) Create(ctx context.Context, owner *domain.User, keyword string, at domain.Coordinate) (*domain.SponsorLocation, error) {
	if owner == nil || !owner.IsSponsor() {
		return nil, domain.ErrForbidden
	}
	sp := &domain.SponsorLocation{
		OwnerID:  owner.ID,
		Keyword:  strings.TrimSpace(keyword),
		Location: at,
	}
	if err := s.sponsors.Create(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

// ListByOwner returns the locations a sponsor owns.
func (s *SponsorService) ListByOwner(ctx context.Context, ownerID string) ([]domain.SponsorLocation, error) {
	return s.sponsors.ListByOwner(ctx, ownerID)
}

// Near returns sponsor locations within radiusMiles of at, nearest first.
func (s *SponsorService) Near(ctx context.Context, at domain.Coordinate, radiusMiles float64) ([]domain.SponsorLocation, error) {
	if radiusMiles <= 0 {
		return nil, nil
	}
	return s.sponsors.ListWithin(ctx, at, radiusMiles)
}

// Delete removes a sponsor location owned by ownerID.
func (s *SponsorService) Delete(ctx context.Context, ownerID, id string) error {
	sp, err := s.sponsors.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sp.OwnerID != ownerID {
		return domain.ErrNotOwner
	}
	return s.sponsors.Delete(ctx, id)
}
