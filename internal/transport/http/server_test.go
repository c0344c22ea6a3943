package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	addomain "github.com/popmarket/popmarket/internal/modules/ad/domain"
	adrepo "github.com/popmarket/popmarket/internal/modules/ad/repository"
	adService "github.com/popmarket/popmarket/internal/modules/ad/service"
	catalogDomain "github.com/popmarket/popmarket/internal/modules/catalog/domain"
	catalogService "github.com/popmarket/popmarket/internal/modules/catalog/service"
	feedService "github.com/popmarket/popmarket/internal/modules/feed/service"
	"github.com/popmarket/popmarket/internal/shared/config"
	"github.com/popmarket/popmarket/internal/shared/images"
	"github.com/popmarket/popmarket/internal/shared/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *adrepo.MemoryRepository) {
	t.Helper()

	cfg := &config.Config{
		TelegramBotToken: "123:test-token",
		WebAppURL:        "https://popmarket.example.com",
		HTTPPort:         "0",
	}
	repo := adrepo.NewMemoryRepository()
	store := storage.NewMemoryStorage("http://localhost/files")
	catalog := catalogService.New(repo)
	ads := adService.New(repo, store, catalog, images.DefaultOptions())
	feed := feedService.New(repo)

	srv := httptest.NewServer(New(cfg, ads, catalog, feed).Handler())
	t.Cleanup(srv.Close)
	return srv, repo
}

func seed(t *testing.T, repo *adrepo.MemoryRepository, ad *addomain.Ad) {
	t.Helper()
	if ad.Status == "" {
		ad.Status = addomain.StatusActive
	}
	if ad.CreatedAt.IsZero() {
		ad.CreatedAt = time.Now()
		ad.UpdatedAt = ad.CreatedAt
	}
	require.NoError(t, repo.Insert(context.Background(), ad))
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestCities(t *testing.T) {
	srv, _ := newTestServer(t)

	var body struct {
		Cities []string `json:"cities"`
		Other  string   `json:"other"`
	}
	resp := getJSON(t, srv.URL+"/api/cities", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body.Cities, "Москва")
	assert.Equal(t, "other", body.Other)
}

func TestListAdsEmptyMarketplace(t *testing.T) {
	srv, _ := newTestServer(t)

	var body listResponse
	resp := getJSON(t, srv.URL+"/api/ads", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body.Ads)
	assert.Equal(t, catalogDomain.EmptyNoAds, body.Empty)
}

func TestListAdsFiltering(t *testing.T) {
	srv, repo := newTestServer(t)
	seed(t, repo, &addomain.Ad{
		ID: "1", Title: "Labubu Winter", Category: addomain.CategoryFigures,
		Types: []addomain.AdType{addomain.TypeSale},
	})
	seed(t, repo, &addomain.Ad{
		ID: "2", Title: "Кружка Hirono", Category: addomain.CategoryMerch,
		Types: []addomain.AdType{addomain.TypeExchange},
	})

	var body listResponse
	resp := getJSON(t, srv.URL+"/api/ads?q=labubu", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Ads, 1)
	assert.Equal(t, "1", body.Ads[0].ID)

	getJSON(t, srv.URL+"/api/ads?category=merch", &body)
	require.Len(t, body.Ads, 1)
	assert.Equal(t, "2", body.Ads[0].ID)

	getJSON(t, srv.URL+"/api/ads?type=exchange", &body)
	require.Len(t, body.Ads, 1)
	assert.Equal(t, "2", body.Ads[0].ID)
}

func TestListAdsNoMatchesIsDistinctFromNoAds(t *testing.T) {
	srv, repo := newTestServer(t)
	seed(t, repo, &addomain.Ad{ID: "1", Title: "Labubu", Category: addomain.CategoryFigures})

	var body listResponse
	getJSON(t, srv.URL+"/api/ads?q=skullpanda", &body)
	assert.Empty(t, body.Ads)
	assert.Equal(t, catalogDomain.EmptyNoMatches, body.Empty)
}

func TestListAdsPresentationFollowsViewMode(t *testing.T) {
	srv, _ := newTestServer(t)

	var body listResponse
	getJSON(t, srv.URL+"/api/ads", &body)
	assert.Equal(t, catalogDomain.ModeList, body.Presentation.Mode)
	assert.Equal(t, 1, body.Presentation.Columns)
	assert.True(t, body.Presentation.ShowDescription)

	getJSON(t, srv.URL+"/api/ads?view=grid", &body)
	assert.Equal(t, catalogDomain.ModeGrid, body.Presentation.Mode)
	assert.Equal(t, 2, body.Presentation.Columns)
	assert.True(t, body.Presentation.ImageFirst)
}

func TestGetAd(t *testing.T) {
	srv, repo := newTestServer(t)
	seed(t, repo, &addomain.Ad{ID: "abc", Title: "Labubu"})

	var ad addomain.Ad
	resp := getJSON(t, srv.URL+"/api/ads/abc", &ad)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Labubu", ad.Title)

	resp = getJSON(t, srv.URL+"/api/ads/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMutationsRequireIdentity(t *testing.T) {
	srv, repo := newTestServer(t)
	seed(t, repo, &addomain.Ad{ID: "abc", Title: "Labubu", AuthorID: 42})

	requests := []*http.Request{
		mustRequest(t, http.MethodPost, srv.URL+"/api/ads", ""),
		mustRequest(t, http.MethodPatch, srv.URL+"/api/ads/abc/status", `{"status":"sold"}`),
		mustRequest(t, http.MethodDelete, srv.URL+"/api/ads/abc", ""),
	}

	for _, req := range requests {
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", req.Method, req.URL.Path)
	}
}

func TestMalformedAuthorizationIsRejected(t *testing.T) {
	srv, repo := newTestServer(t)
	seed(t, repo, &addomain.Ad{ID: "abc", AuthorID: 42})

	headers := []string{
		"Bearer sometoken",
		"tma",
		"tma ", // empty init data
		"tma query_id=fake&hash=deadbeef",
	}
	for _, header := range headers {
		req := mustRequest(t, http.MethodDelete, srv.URL+"/api/ads/abc", "")
		req.Header.Set("Authorization", header)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}

	// The ad is untouched
	_, err := repo.FindByID(context.Background(), "abc")
	assert.NoError(t, err)
}

func TestRSSEndpoint(t *testing.T) {
	srv, repo := newTestServer(t)
	seed(t, repo, &addomain.Ad{
		ID: "abc", Title: "Labubu Winter", Price: 1500,
		Category: addomain.CategoryFigures, Location: "Москва", AuthorName: "Анна",
	})

	resp, err := http.Get(srv.URL + "/rss")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/rss+xml")

	var buf strings.Builder
	_, err = io.Copy(&buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Labubu Winter")
}

func TestParsePrice(t *testing.T) {
	assert.Equal(t, 1500.0, parsePrice("1500"))
	assert.Equal(t, 99.9, parsePrice(" 99,9 "))
	assert.Equal(t, 0.0, parsePrice("дорого"))
	assert.Equal(t, 0.0, parsePrice(""))
}

func TestParseTypes(t *testing.T) {
	assert.Equal(t,
		[]addomain.AdType{addomain.TypeSale, addomain.TypeExchange},
		parseTypes([]string{"sale,exchange"}))
	assert.Equal(t,
		[]addomain.AdType{addomain.TypeSale, addomain.TypeExchange},
		parseTypes([]string{"Sale", " exchange "}))
	assert.Nil(t, parseTypes(nil))
}

func mustRequest(t *testing.T, method, url, body string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}
