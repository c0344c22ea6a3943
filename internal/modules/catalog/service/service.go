package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/oops"

	addomain "github.com/popmarket/popmarket/internal/modules/ad/domain"
	adrepo "github.com/popmarket/popmarket/internal/modules/ad/repository"
	"github.com/popmarket/popmarket/internal/modules/catalog/domain"
)

// Service owns the session ad snapshot: the in-memory list the views
// filter over. It is refreshed from the repository after every
// mutation (read-after-write) and never mutated speculatively.
type Service struct {
	repo adrepo.Repository

	mu         sync.RWMutex
	ads        []*addomain.Ad
	fetched    bool
	nextGen    uint64 // generation handed to the next fetch
	appliedGen uint64 // generation of the snapshot currently visible
}

// New creates a catalog service over the ad repository
func New(repo adrepo.Repository) *Service {
	return &Service{repo: repo}
}

// Refresh fetches the ad list and installs it as the visible snapshot.
// Each fetch carries a generation number: a fetch that completes after
// a newer one has already been applied is discarded, so a superseded
// request can never overwrite fresher data.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.nextGen++
	gen := s.nextGen
	s.mu.Unlock()

	ads, err := s.repo.List(ctx)
	if err != nil {
		return oops.With("context", "refreshing ad snapshot").Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen < s.appliedGen {
		slog.Debug("Discarding superseded ad fetch", "generation", gen, "applied", s.appliedGen)
		return nil
	}
	s.ads = ads
	s.fetched = true
	s.appliedGen = gen
	return nil
}

// Snapshot returns the cached ad list, newest first
func (s *Service) Snapshot() []*addomain.Ad {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ads
}

// Fetched reports whether at least one fetch has completed
func (s *Service) Fetched() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetched
}

// Visible applies the filter state over the snapshot
func (s *Service) Visible(f domain.FilterState) domain.Result {
	return domain.Apply(s.Snapshot(), f)
}

// Insert places a newly created ad at the head of the snapshot so it
// is visible before the follow-up refresh lands
func (s *Service) Insert(ad *addomain.Ad) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ads = append([]*addomain.Ad{ad}, s.ads...)
}

// Remove drops an ad from the snapshot after a confirmed delete
func (s *Service) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ads = lo.Reject(s.ads, func(ad *addomain.Ad, _ int) bool {
		return ad.ID == id
	})
}

// SetStatus updates an ad's lifecycle flag in the snapshot after a
// confirmed status change. Copy-on-write: the element is replaced with
// a modified clone, never mutated in place, so snapshots handed out
// earlier stay safe to read without a lock.
func (s *Service) SetStatus(id string, status addomain.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ad := range s.ads {
		if ad.ID == id {
			clone := *ad
			clone.Status = status
			ads := make([]*addomain.Ad, len(s.ads))
			copy(ads, s.ads)
			ads[i] = &clone
			s.ads = ads
			return
		}
	}
}
