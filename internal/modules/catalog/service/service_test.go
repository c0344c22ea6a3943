package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	addomain "github.com/popmarket/popmarket/internal/modules/ad/domain"
	"github.com/popmarket/popmarket/internal/modules/catalog/domain"
)

// listFunc lets each test script the repository's List behavior.
type fakeRepo struct {
	mu       sync.Mutex
	listFunc func(ctx context.Context) ([]*addomain.Ad, error)
}

func (f *fakeRepo) List(ctx context.Context) ([]*addomain.Ad, error) {
	f.mu.Lock()
	fn := f.listFunc
	f.mu.Unlock()
	return fn(ctx)
}

func (f *fakeRepo) FindByID(ctx context.Context, id string) (*addomain.Ad, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRepo) Insert(ctx context.Context, ad *addomain.Ad) error { return nil }

func (f *fakeRepo) UpdateStatus(ctx context.Context, id string, authorID int64, status addomain.Status) error {
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string, authorID int64) error { return nil }

func adsNamed(titles ...string) []*addomain.Ad {
	out := make([]*addomain.Ad, len(titles))
	for i, title := range titles {
		out[i] = &addomain.Ad{ID: title, Title: title, Status: addomain.StatusActive}
	}
	return out
}

func TestRefreshInstallsSnapshot(t *testing.T) {
	repo := &fakeRepo{listFunc: func(ctx context.Context) ([]*addomain.Ad, error) {
		return adsNamed("a", "b"), nil
	}}
	svc := New(repo)

	assert.False(t, svc.Fetched())
	require.NoError(t, svc.Refresh(context.Background()))
	assert.True(t, svc.Fetched())
	assert.Len(t, svc.Snapshot(), 2)
}

func TestRefreshPropagatesRepositoryError(t *testing.T) {
	repo := &fakeRepo{listFunc: func(ctx context.Context) ([]*addomain.Ad, error) {
		return nil, errors.New("connection reset")
	}}
	svc := New(repo)

	assert.Error(t, svc.Refresh(context.Background()))
	assert.False(t, svc.Fetched())
}

// A slow fetch that finishes after a newer one must not overwrite the
// newer snapshot.
func TestRefreshDiscardsSupersededFetch(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	repo := &fakeRepo{}
	repo.listFunc = func(ctx context.Context) ([]*addomain.Ad, error) {
		close(started)
		<-release
		return adsNamed("stale"), nil
	}

	svc := New(repo)

	done := make(chan error, 1)
	go func() { done <- svc.Refresh(context.Background()) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first fetch never started")
	}

	// Second refresh completes immediately with fresh data
	repo.mu.Lock()
	repo.listFunc = func(ctx context.Context) ([]*addomain.Ad, error) {
		return adsNamed("fresh"), nil
	}
	repo.mu.Unlock()
	require.NoError(t, svc.Refresh(context.Background()))

	// Now let the stale fetch land
	close(release)
	require.NoError(t, <-done)

	snap := svc.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "fresh", snap[0].ID, "superseded fetch must not replace newer data")
}

func TestInsertPrependsToSnapshot(t *testing.T) {
	repo := &fakeRepo{listFunc: func(ctx context.Context) ([]*addomain.Ad, error) {
		return adsNamed("old"), nil
	}}
	svc := New(repo)
	require.NoError(t, svc.Refresh(context.Background()))

	svc.Insert(&addomain.Ad{ID: "new", Title: "new"})

	snap := svc.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "new", snap[0].ID)
}

func TestRemoveDropsAd(t *testing.T) {
	repo := &fakeRepo{listFunc: func(ctx context.Context) ([]*addomain.Ad, error) {
		return adsNamed("a", "b", "c"), nil
	}}
	svc := New(repo)
	require.NoError(t, svc.Refresh(context.Background()))

	svc.Remove("b")

	snap := svc.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "c", snap[1].ID)
}

func TestSetStatusUpdatesSnapshot(t *testing.T) {
	repo := &fakeRepo{listFunc: func(ctx context.Context) ([]*addomain.Ad, error) {
		return adsNamed("a"), nil
	}}
	svc := New(repo)
	require.NoError(t, svc.Refresh(context.Background()))

	svc.SetStatus("a", addomain.StatusSold)
	assert.Equal(t, addomain.StatusSold, svc.Snapshot()[0].Status)
}

// Snapshots handed out before a status change must never be written to:
// readers hold them without a lock.
func TestSetStatusLeavesEarlierSnapshotsUntouched(t *testing.T) {
	repo := &fakeRepo{listFunc: func(ctx context.Context) ([]*addomain.Ad, error) {
		return adsNamed("a", "b"), nil
	}}
	svc := New(repo)
	require.NoError(t, svc.Refresh(context.Background()))

	before := svc.Snapshot()
	svc.SetStatus("a", addomain.StatusSold)

	assert.Equal(t, addomain.StatusActive, before[0].Status, "earlier snapshot must keep its own view")
	assert.Equal(t, addomain.StatusSold, svc.Snapshot()[0].Status)
	assert.Same(t, before[1], svc.Snapshot()[1], "untouched entries stay shared")
}

// Exercises a reader iterating an old snapshot while status changes
// land; meaningful under the race detector.
func TestSnapshotReadsAreSafeDuringStatusChanges(t *testing.T) {
	repo := &fakeRepo{listFunc: func(ctx context.Context) ([]*addomain.Ad, error) {
		return adsNamed("a", "b", "c"), nil
	}}
	svc := New(repo)
	require.NoError(t, svc.Refresh(context.Background()))

	snap := svc.Snapshot()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			svc.SetStatus("a", addomain.StatusSold)
			svc.SetStatus("a", addomain.StatusActive)
		}
	}()

	for alive := true; alive; {
		select {
		case <-done:
			alive = false
		default:
			for _, ad := range snap {
				status := ad.Status
				assert.Contains(t, []addomain.Status{addomain.StatusActive, addomain.StatusSold}, status)
			}
			res := svc.Visible(domain.FilterState{Category: domain.All, Type: domain.All})
			assert.Len(t, res.Ads, 3)
		}
	}
}

func TestVisibleFiltersSnapshot(t *testing.T) {
	repo := &fakeRepo{listFunc: func(ctx context.Context) ([]*addomain.Ad, error) {
		return []*addomain.Ad{
			{ID: "1", Title: "Labubu", Category: addomain.CategoryFigures},
			{ID: "2", Title: "Кружка", Category: addomain.CategoryMerch},
		}, nil
	}}
	svc := New(repo)
	require.NoError(t, svc.Refresh(context.Background()))

	res := svc.Visible(domain.FilterState{Query: "labubu", Category: domain.All, Type: domain.All})
	require.Len(t, res.Ads, 1)
	assert.Equal(t, "1", res.Ads[0].ID)
}
