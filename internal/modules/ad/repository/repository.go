package repository

import (
	"context"

	"github.com/popmarket/popmarket/internal/modules/ad/domain"
)

// Repository defines the persistence collaborator for ads.
// The abstraction allows swapping the MongoDB implementation for an
// in-memory fake in tests.
type Repository interface {
	// List returns all ads ordered by creation time, newest first
	List(ctx context.Context) ([]*domain.Ad, error)
	FindByID(ctx context.Context, id string) (*domain.Ad, error)
	Insert(ctx context.Context, ad *domain.Ad) error
	// UpdateStatus changes the lifecycle flag of an ad owned by authorID.
	// A mismatched owner is rejected with ErrNotOwner and nothing is written.
	UpdateStatus(ctx context.Context, id string, authorID int64, status domain.Status) error
	// Delete removes an ad owned by authorID
	Delete(ctx context.Context, id string, authorID int64) error
}
