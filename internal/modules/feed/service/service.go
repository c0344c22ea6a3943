package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/feeds"
	"github.com/samber/oops"

	addomain "github.com/popmarket/popmarket/internal/modules/ad/domain"
	adrepo "github.com/popmarket/popmarket/internal/modules/ad/repository"
)

const feedItemLimit = 50

// Service generates the RSS feed of fresh listings
type Service struct {
	repo adrepo.Repository
}

// New creates a feed service
func New(repo adrepo.Repository) *Service {
	return &Service{repo: repo}
}

// GenerateFeed builds an RSS feed of the latest active ads. Links
// point into the Mini-App at webAppURL.
func (s *Service) GenerateFeed(ctx context.Context, webAppURL string) (*feeds.Feed, error) {
	ads, err := s.repo.List(ctx)
	if err != nil {
		return nil, oops.With("context", "loading ads for feed").Wrap(err)
	}

	feed := &feeds.Feed{
		Title:       "Pop Mart Маркет — новые объявления",
		Link:        &feeds.Link{Href: webAppURL},
		Description: "Коллекционные фигурки и мерч: свежие объявления",
		Created:     time.Now(),
	}

	count := 0
	for _, ad := range ads {
		if ad.Status != addomain.StatusActive {
			continue
		}
		feed.Items = append(feed.Items, s.adToFeedItem(ad, webAppURL))
		count++
		if count >= feedItemLimit {
			break
		}
	}

	return feed, nil
}

func (s *Service) adToFeedItem(ad *addomain.Ad, webAppURL string) *feeds.Item {
	description := fmt.Sprintf("%s — %.2f ₽ (%s, %s)\n\n%s",
		ad.Title, ad.Price, ad.Category.Label(), ad.Location, ad.Description)

	return &feeds.Item{
		Id:          ad.ID,
		Title:       ad.Title,
		Link:        &feeds.Link{Href: fmt.Sprintf("%s?ad=%s", webAppURL, ad.ID)},
		Description: description,
		Author:      &feeds.Author{Name: ad.AuthorName},
		Created:     ad.CreatedAt,
		Updated:     ad.UpdatedAt,
	}
}
