package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/popmarket/popmarket/internal/modules/ad/domain"
	apperrors "github.com/popmarket/popmarket/internal/shared/errors"
)

// MemoryRepository is a mutex-guarded in-memory Repository. It backs
// tests and local development without a MongoDB instance.
type MemoryRepository struct {
	mu  sync.RWMutex
	ads map[string]*domain.Ad
}

// NewMemoryRepository creates an empty in-memory ad repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{ads: make(map[string]*domain.Ad)}
}

func (r *MemoryRepository) List(ctx context.Context) ([]*domain.Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ads := make([]*domain.Ad, 0, len(r.ads))
	for _, ad := range r.ads {
		clone := *ad
		ads = append(ads, &clone)
	}
	sort.Slice(ads, func(i, j int) bool {
		return ads[i].CreatedAt.After(ads[j].CreatedAt)
	})
	return ads, nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*domain.Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ad, ok := r.ads[id]
	if !ok {
		return nil, apperrors.ErrAdNotFound
	}
	clone := *ad
	return &clone, nil
}

func (r *MemoryRepository) Insert(ctx context.Context, ad *domain.Ad) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *ad
	r.ads[ad.ID] = &clone
	return nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, authorID int64, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ad, ok := r.ads[id]
	if !ok {
		return apperrors.ErrAdNotFound
	}
	if ad.AuthorID != authorID {
		return apperrors.ErrNotOwner
	}
	ad.Status = status
	ad.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string, authorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ad, ok := r.ads[id]
	if !ok {
		return apperrors.ErrAdNotFound
	}
	if ad.AuthorID != authorID {
		return apperrors.ErrNotOwner
	}
	delete(r.ads, id)
	return nil
}
