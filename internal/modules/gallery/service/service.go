package service

import (
	"context"
	"sync"

	"github.com/samber/oops"

	adrepo "github.com/popmarket/popmarket/internal/modules/ad/repository"
	"github.com/popmarket/popmarket/internal/modules/gallery/domain"
)

// Service keeps one gallery viewer per browsing user. Sessions are
// created when a viewer opens an ad's images and dropped on close.
type Service struct {
	repo adrepo.Repository

	mu       sync.Mutex
	sessions map[int64]*domain.Viewer
}

// New creates a gallery session service
func New(repo adrepo.Repository) *Service {
	return &Service{
		repo:     repo,
		sessions: make(map[int64]*domain.Viewer),
	}
}

// Open loads an ad's image sequence and opens a viewer session at the
// target index, replacing any previous session of the same user
func (s *Service) Open(ctx context.Context, viewerID int64, adID string, target int) (*domain.Viewer, error) {
	ad, err := s.repo.FindByID(ctx, adID)
	if err != nil {
		return nil, oops.With("ad_id", adID, "context", "opening gallery").Wrap(err)
	}
	if len(ad.Images) == 0 {
		return nil, oops.With("ad_id", adID).Errorf("ad has no images")
	}

	viewer := domain.NewViewer(ad.Images)
	if err := viewer.Open(target); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[viewerID] = viewer
	return viewer, nil
}

// Get returns the user's active viewer, if any
func (s *Service) Get(viewerID int64) (*domain.Viewer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	viewer, ok := s.sessions[viewerID]
	return viewer, ok
}

// Close ends the user's session; no viewer state survives
func (s *Service) Close(viewerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if viewer, ok := s.sessions[viewerID]; ok {
		viewer.Close()
		delete(s.sessions, viewerID)
	}
}
