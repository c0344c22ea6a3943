package service

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/popmarket/popmarket/internal/modules/ad/domain"
	adrepo "github.com/popmarket/popmarket/internal/modules/ad/repository"
	catalogService "github.com/popmarket/popmarket/internal/modules/catalog/service"
	apperrors "github.com/popmarket/popmarket/internal/shared/errors"
	"github.com/popmarket/popmarket/internal/shared/images"
	"github.com/popmarket/popmarket/internal/shared/storage"
)

// Announcer publishes a freshly created ad, e.g. to a Telegram channel
type Announcer interface {
	AnnounceAd(ctx context.Context, ad *domain.Ad)
}

// RawImage is a user-selected file before compression
type RawImage struct {
	Name string
	Data []byte
}

// Service implements the ad create/edit flow: validation, image
// compression, upload and persistence, with the catalog snapshot
// refreshed after every successful mutation
type Service struct {
	repo        adrepo.Repository
	store       storage.ObjectStorage
	catalog     *catalogService.Service
	compression images.Options
	announcer   Announcer

	mu       sync.Mutex
	creating map[int64]struct{}
}

// New creates an ad service
func New(repo adrepo.Repository, store storage.ObjectStorage, catalog *catalogService.Service, compression images.Options) *Service {
	return &Service{
		repo:        repo,
		store:       store,
		catalog:     catalog,
		compression: compression,
		creating:    make(map[int64]struct{}),
	}
}

// SetAnnouncer attaches the optional new-ad announcer
func (s *Service) SetAnnouncer(a Announcer) {
	s.announcer = a
}

// List returns all ads, newest first
func (s *Service) List(ctx context.Context) ([]*domain.Ad, error) {
	return s.repo.List(ctx)
}

// Get returns one ad by id
func (s *Service) Get(ctx context.Context, id string) (*domain.Ad, error) {
	return s.repo.FindByID(ctx, id)
}

// MyAds returns the ads owned by the given user, newest first
func (s *Service) MyAds(ctx context.Context, userID int64) ([]*domain.Ad, error) {
	ads, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(ads, func(ad *domain.Ad, _ int) bool {
		return ad.AuthorID == userID
	}), nil
}

// Create validates the payload and the selected images, compresses the
// images in parallel, uploads them and persists the ad. Nothing is
// written on any failure, so the caller keeps its form state for retry.
func (s *Service) Create(ctx context.Context, user domain.TelegramUser, payload domain.NewAd, raw []RawImage) (*domain.Ad, error) {
	if user.ID == 0 {
		return nil, apperrors.ErrUnauthorized
	}

	// One create at a time per author, so a double-tapped submit cannot
	// produce two ads
	if !s.beginCreate(user.ID) {
		return nil, oops.With("author_id", user.ID).
			Wrapf(apperrors.ErrCreateInFlight, "author %d already has a create in flight", user.ID)
	}
	defer s.endCreate(user.ID)

	payload.Normalize()
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if err := checkImages(raw); err != nil {
		return nil, err
	}

	compressed, err := images.CompressAll(ctx, lo.Map(raw, func(r RawImage, _ int) []byte {
		return r.Data
	}), s.compression)
	if err != nil {
		return nil, oops.With("context", "compressing ad images").Wrap(err)
	}

	urls := make([]string, 0, len(compressed))
	for i, data := range compressed {
		key, err := s.store.Upload(ctx, jpegName(raw[i].Name), data, "image/jpeg")
		if err != nil {
			return nil, oops.With("image_index", i, "context", "uploading ad image").Wrap(err)
		}
		urls = append(urls, s.store.PublicURL(key))
	}

	now := time.Now()
	ad := &domain.Ad{
		ID:          uuid.New().String(),
		Title:       payload.Title,
		Description: payload.Description,
		Price:       payload.Price,
		Category:    payload.Category,
		Types:       payload.Types,
		Images:      urls,
		Location:    payload.Location,
		ContactInfo: payload.ContactInfo,
		Status:      domain.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
		AuthorID:    user.ID,
		AuthorName:  user.DisplayName(),
	}

	if err := s.repo.Insert(ctx, ad); err != nil {
		return nil, oops.With("ad_id", ad.ID, "context", "persisting ad").Wrap(err)
	}

	s.catalog.Insert(ad)
	s.refreshCatalog(ctx)

	if s.announcer != nil {
		s.announcer.AnnounceAd(ctx, ad)
	}

	slog.Info("Ad created", "ad_id", ad.ID, "author_id", ad.AuthorID, "images", len(urls))
	return ad, nil
}

// UpdateStatus changes an ad's lifecycle flag. The repository enforces
// ownership; the type invariant (sold needs 'sale', exchanged needs
// 'exchange') is checked here against the stored ad.
func (s *Service) UpdateStatus(ctx context.Context, user domain.TelegramUser, id string, status domain.Status) error {
	if user.ID == 0 {
		return apperrors.ErrUnauthorized
	}

	ad, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := ad.CanTransition(status); err != nil {
		return err
	}

	if err := s.repo.UpdateStatus(ctx, id, user.ID, status); err != nil {
		return err
	}

	s.catalog.SetStatus(id, status)
	s.refreshCatalog(ctx)

	slog.Info("Ad status changed", "ad_id", id, "status", status)
	return nil
}

// Delete removes an ad owned by the user
func (s *Service) Delete(ctx context.Context, user domain.TelegramUser, id string) error {
	if user.ID == 0 {
		return apperrors.ErrUnauthorized
	}

	if err := s.repo.Delete(ctx, id, user.ID); err != nil {
		return err
	}

	s.catalog.Remove(id)
	s.refreshCatalog(ctx)

	slog.Info("Ad deleted", "ad_id", id, "author_id", user.ID)
	return nil
}

// refreshCatalog performs the read-after-write refresh. A failed
// refresh keeps the locally reconciled snapshot and is only logged.
func (s *Service) refreshCatalog(ctx context.Context) {
	if err := s.catalog.Refresh(ctx); err != nil {
		slog.Error("Failed to refresh ad snapshot", "error", err)
	}
}

func (s *Service) beginCreate(authorID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.creating[authorID]; busy {
		return false
	}
	s.creating[authorID] = struct{}{}
	return true
}

func (s *Service) endCreate(authorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creating, authorID)
}

func checkImages(raw []RawImage) error {
	if len(raw) > domain.MaxImages {
		return oops.With("count", len(raw)).
			Wrapf(apperrors.ErrTooManyImages, "%d images selected", len(raw))
	}
	for i, r := range raw {
		if len(r.Data) > domain.MaxRawImageSize {
			return oops.With("image_index", i, "size_bytes", len(r.Data)).
				Wrapf(apperrors.ErrImageTooLarge, "image %d is %d bytes", i, len(r.Data))
		}
		if len(r.Data) == 0 {
			return oops.With("image_index", i).Errorf("image %d is empty", i)
		}
	}
	return nil
}

func jpegName(name string) string {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	if base == "" || base == "." {
		base = "image"
	}
	return fmt.Sprintf("%s.jpg", base)
}
